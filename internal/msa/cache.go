package msa

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boltzprep/internal/model"
)

// Cache 比对缓存：sequence_hash → 比对产物。
// 保证整个运行期间每个唯一序列至多触发一次外部搜索；
// 同一哈希的并发请求等待同一个在途计算，而不是发起第二次外部调用。
// failed 产物只在操作员显式请求时重试，不会自动重算
type Cache struct {
	searcher Searcher
	timeout  time.Duration
	slots    chan struct{} // 有界并发池

	mu      sync.Mutex
	entries map[string]*entry
}

// entry 单个哈希的缓存槽。done 在计算结束（ready 或 failed）时关闭，
// 首个调用者是唯一计算者，其余调用者等待 done
type entry struct {
	artifact model.AlignmentArtifact
	sequence string
	err      error
	done     chan struct{}
}

// NewCache 创建比对缓存
func NewCache(searcher Searcher, concurrency int, timeout time.Duration) *Cache {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Cache{
		searcher: searcher,
		timeout:  timeout,
		slots:    make(chan struct{}, concurrency),
		entries:  make(map[string]*entry),
	}
}

// GetOrCreate 返回哈希对应的比对产物，必要时计算一次。
// 命中 ready/failed 直接返回存量结果；命中 pending 等待在途计算；
// 未命中则当前调用者成为唯一计算者
func (c *Cache) GetOrCreate(ctx context.Context, hash, sequence string) (model.AlignmentArtifact, error) {
	c.mu.Lock()
	if e, ok := c.entries[hash]; ok {
		c.mu.Unlock()
		return c.await(ctx, e)
	}

	e := &entry{
		artifact: model.AlignmentArtifact{
			SequenceHash: hash,
			Status:       model.StatusPending,
			CreatedAt:    time.Now(),
		},
		sequence: sequence,
		done:     make(chan struct{}),
	}
	c.entries[hash] = e
	c.mu.Unlock()

	c.compute(ctx, e, sequence)
	return c.await(ctx, e)
}

// Get 只读查询，不触发计算
func (c *Cache) Get(hash string) (model.AlignmentArtifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[hash]
	if !ok {
		return model.AlignmentArtifact{}, false
	}
	return e.artifact, true
}

// Retry 操作员显式重试一个 failed 产物。pending/ready 状态下不做任何事
func (c *Cache) Retry(ctx context.Context, hash string) (model.AlignmentArtifact, error) {
	c.mu.Lock()
	old, ok := c.entries[hash]
	if !ok || old.artifact.Status != model.StatusFailed {
		c.mu.Unlock()
		if !ok {
			return model.AlignmentArtifact{}, fmt.Errorf("no alignment artifact for hash %s", hash)
		}
		return old.artifact, old.err
	}

	// 重新安装 pending 槽，当前调用者成为计算者
	e := &entry{
		artifact: model.AlignmentArtifact{
			SequenceHash: hash,
			Status:       model.StatusPending,
			CreatedAt:    time.Now(),
		},
		sequence: old.sequence,
		done:     make(chan struct{}),
	}
	c.entries[hash] = e
	c.mu.Unlock()

	c.compute(ctx, e, e.sequence)
	return c.await(ctx, e)
}

// Snapshot 当前全部产物的副本，供持久化与状态查询
func (c *Cache) Snapshot() []model.AlignmentArtifact {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.AlignmentArtifact, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.artifact)
	}
	return out
}

// compute 执行外部搜索并迁移状态，计算结束后关闭 done
func (c *Cache) compute(ctx context.Context, e *entry, sequence string) {
	defer close(e.done)

	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		c.fail(e, fmt.Errorf("%w: %v", model.ErrAlignmentFailed, ctx.Err()))
		return
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	path, err := c.searcher.Search(runCtx, sequence)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		e.err = fmt.Errorf("%w: %v", model.ErrAlignmentFailed, err)
		e.artifact.Status = model.StatusFailed
		e.artifact.Error = e.err.Error()
		return
	}
	e.artifact.Status = model.StatusReady
	e.artifact.Path = path
}

// fail 将槽标记为 failed
func (c *Cache) fail(e *entry, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.err = err
	e.artifact.Status = model.StatusFailed
	e.artifact.Error = err.Error()
}

// await 等待槽计算完成并返回结果
func (c *Cache) await(ctx context.Context, e *entry) (model.AlignmentArtifact, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		return model.AlignmentArtifact{}, fmt.Errorf("%w: %v", model.ErrAlignmentFailed, ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return e.artifact, e.err
}
