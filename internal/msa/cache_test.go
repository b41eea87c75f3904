package msa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"boltzprep/internal/model"
)

// fakeSearcher 计数的测试搜索器
type fakeSearcher struct {
	calls   atomic.Int64
	failFor map[string]bool // 按序列触发失败
	delay   time.Duration
}

func (f *fakeSearcher) Search(_ context.Context, sequence string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failFor[sequence] {
		return "", errors.New("search blew up")
	}
	return "/msa/" + sequence + ".a3m", nil
}

// TestGetOrCreateSingleComputation 测试同一哈希至多一次外部调用
func TestGetOrCreateSingleComputation(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	cache := NewCache(searcher, 4, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		art, err := cache.GetOrCreate(ctx, "h1", "MKVL")
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if art.Status != model.StatusReady || art.Path != "/msa/MKVL.a3m" {
			t.Fatalf("unexpected artifact: %+v", art)
		}
	}

	if got := searcher.calls.Load(); got != 1 {
		t.Errorf("searcher called %d times, want 1", got)
	}
}

// TestGetOrCreateConcurrent 测试并发请求共享同一在途计算
func TestGetOrCreateConcurrent(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{delay: 20 * time.Millisecond}
	cache := NewCache(searcher, 2, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			art, err := cache.GetOrCreate(ctx, "shared", "ACDE")
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			if art.Status != model.StatusReady {
				t.Errorf("artifact status = %s, want ready", art.Status)
			}
		}()
	}
	wg.Wait()

	if got := searcher.calls.Load(); got != 1 {
		t.Errorf("searcher called %d times under concurrency, want 1", got)
	}
}

// TestGetOrCreateDistinctHashes 测试不同哈希各计算一次
func TestGetOrCreateDistinctHashes(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	cache := NewCache(searcher, 3, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		seq := fmt.Sprintf("SEQ%d", i)
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := cache.GetOrCreate(ctx, seq, seq); err != nil {
					t.Errorf("GetOrCreate(%s) failed: %v", seq, err)
				}
			}()
		}
	}
	wg.Wait()

	if got := searcher.calls.Load(); got != 8 {
		t.Errorf("searcher called %d times, want 8", got)
	}
}

// TestFailedNotRetriedAutomatically 测试 failed 产物不自动重试
func TestFailedNotRetriedAutomatically(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{failFor: map[string]bool{"BAD": true}}
	cache := NewCache(searcher, 1, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		art, err := cache.GetOrCreate(ctx, "hbad", "BAD")
		if !errors.Is(err, model.ErrAlignmentFailed) {
			t.Fatalf("error = %v, want ErrAlignmentFailed", err)
		}
		if art.Status != model.StatusFailed {
			t.Fatalf("artifact status = %s, want failed", art.Status)
		}
	}

	if got := searcher.calls.Load(); got != 1 {
		t.Errorf("searcher called %d times after failure, want 1", got)
	}
}

// TestExplicitRetry 测试操作员显式重试
func TestExplicitRetry(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{failFor: map[string]bool{"FLAKY": true}}
	cache := NewCache(searcher, 1, 0)
	ctx := context.Background()

	if _, err := cache.GetOrCreate(ctx, "hf", "FLAKY"); !errors.Is(err, model.ErrAlignmentFailed) {
		t.Fatalf("expected alignment failure, got %v", err)
	}

	// 外部条件恢复后显式重试
	searcher.failFor = nil
	art, err := cache.Retry(ctx, "hf")
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if art.Status != model.StatusReady {
		t.Errorf("artifact status after retry = %s, want ready", art.Status)
	}
	if got := searcher.calls.Load(); got != 2 {
		t.Errorf("searcher called %d times, want 2", got)
	}
}

// TestRetryUnknownHash 测试重试不存在的哈希
func TestRetryUnknownHash(t *testing.T) {
	t.Parallel()

	cache := NewCache(&fakeSearcher{}, 1, 0)
	if _, err := cache.Retry(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown hash")
	}
}

// TestSearchTimeout 测试超时标记 failed
func TestSearchTimeout(t *testing.T) {
	t.Parallel()

	slow := &slowSearcher{}
	cache := NewCache(slow, 1, 10*time.Millisecond)

	art, err := cache.GetOrCreate(context.Background(), "hslow", "MKVL")
	if !errors.Is(err, model.ErrAlignmentFailed) {
		t.Fatalf("error = %v, want ErrAlignmentFailed", err)
	}
	if art.Status != model.StatusFailed {
		t.Errorf("artifact status = %s, want failed", art.Status)
	}
}

// slowSearcher 阻塞直到 context 取消
type slowSearcher struct{}

func (s *slowSearcher) Search(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
