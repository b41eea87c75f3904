package structure

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"boltzprep/internal/model"
)

// fakePredictor 记录调用的测试预测器
type fakePredictor struct {
	calls atomic.Int64
	jobs  chan PredictionJob
	fail  bool
}

func newFakePredictor() *fakePredictor {
	return &fakePredictor{jobs: make(chan PredictionJob, 64)}
}

func (f *fakePredictor) Predict(_ context.Context, job PredictionJob) (string, error) {
	f.calls.Add(1)
	f.jobs <- job
	if f.fail {
		return "", errors.New("gpu on fire")
	}
	return "/structures/" + job.Name + ".cif", nil
}

// TestDeriveBeforeReference 测试参考结构就绪前派生失败
func TestDeriveBeforeReference(t *testing.T) {
	t.Parallel()

	p := NewProvider(newFakePredictor(), 2, 0)
	_, err := p.Derive(context.Background(), model.LigandTestosterone, "MKVL", "h2", "/msa/h2.a3m", model.StrategyPoseTransplant)
	if !errors.Is(err, model.ErrReferenceNotReady) {
		t.Fatalf("error = %v, want ErrReferenceNotReady", err)
	}
}

// TestMakeReferenceOnce 测试参考结构每配体恰好一次
func TestMakeReferenceOnce(t *testing.T) {
	t.Parallel()

	pred := newFakePredictor()
	p := NewProvider(pred, 2, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ref, err := p.MakeReference(ctx, model.LigandEstradiol, "MKVL", "h1", "/msa/h1.a3m")
		if err != nil {
			t.Fatalf("MakeReference failed: %v", err)
		}
		if ref.Kind != model.StructureReference || ref.Status != model.StatusReady {
			t.Fatalf("unexpected reference: %+v", ref)
		}
	}

	if got := pred.calls.Load(); got != 1 {
		t.Errorf("predictor called %d times, want 1", got)
	}
}

// TestDeriveStrategies 测试两种派生策略
func TestDeriveStrategies(t *testing.T) {
	t.Parallel()

	pred := newFakePredictor()
	p := NewProvider(pred, 2, 0)
	ctx := context.Background()

	ref, err := p.MakeReference(ctx, model.LigandProgesterone, "MKVL", "href", "/msa/href.a3m")
	if err != nil {
		t.Fatalf("MakeReference failed: %v", err)
	}
	<-pred.jobs // 丢弃参考任务

	// 姿态移植：参考姿态传给预测器
	art, err := p.Derive(ctx, model.LigandProgesterone, "MKVA", "hv1", "/msa/hv1.a3m", model.StrategyPoseTransplant)
	if err != nil {
		t.Fatalf("Derive(pose_transplant) failed: %v", err)
	}
	if art.Strategy != model.StrategyPoseTransplant || art.Kind != model.StructureDerived {
		t.Errorf("artifact not audited correctly: %+v", art)
	}
	job := <-pred.jobs
	if job.ReferencePose != ref.Path {
		t.Errorf("transplant job ReferencePose = %q, want %q", job.ReferencePose, ref.Path)
	}

	// 全量推理：不带参考姿态
	art, err = p.Derive(ctx, model.LigandProgesterone, "MKVC", "hv2", "/msa/hv2.a3m", model.StrategyFullInference)
	if err != nil {
		t.Fatalf("Derive(full_inference) failed: %v", err)
	}
	if art.Strategy != model.StrategyFullInference {
		t.Errorf("artifact strategy = %s, want full_inference", art.Strategy)
	}
	job = <-pred.jobs
	if job.ReferencePose != "" {
		t.Errorf("full inference job has ReferencePose %q", job.ReferencePose)
	}
}

// TestDeriveUnknownStrategy 测试未知策略被拒绝
func TestDeriveUnknownStrategy(t *testing.T) {
	t.Parallel()

	p := NewProvider(newFakePredictor(), 2, 0)
	_, err := p.Derive(context.Background(), model.LigandEstradiol, "MKVL", "h1", "/msa/h1.a3m", model.Strategy("yolo"))
	if !errors.Is(err, model.ErrUnknownStrategy) {
		t.Fatalf("error = %v, want ErrUnknownStrategy", err)
	}
}

// TestDeriveDeduplicates 测试同一变体只预测一次
func TestDeriveDeduplicates(t *testing.T) {
	t.Parallel()

	pred := newFakePredictor()
	p := NewProvider(pred, 2, 0)
	ctx := context.Background()

	if _, err := p.MakeReference(ctx, model.LigandCorticosterone, "MKVL", "href", "/msa/href.a3m"); err != nil {
		t.Fatalf("MakeReference failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Derive(ctx, model.LigandCorticosterone, "MKVA", "hv", "/msa/hv.a3m", model.StrategyPoseTransplant); err != nil {
			t.Fatalf("Derive failed: %v", err)
		}
	}

	// 1 次参考 + 1 次派生
	if got := pred.calls.Load(); got != 2 {
		t.Errorf("predictor called %d times, want 2", got)
	}
}

// TestReferenceFailure 测试参考结构失败的标记
func TestReferenceFailure(t *testing.T) {
	t.Parallel()

	pred := newFakePredictor()
	pred.fail = true
	p := NewProvider(pred, 1, 0)

	ref, err := p.MakeReference(context.Background(), model.LigandTestosterone, "MKVL", "h", "/msa/h.a3m")
	if err == nil {
		t.Fatal("expected reference failure")
	}
	if ref.Status != model.StatusFailed {
		t.Errorf("reference status = %s, want failed", ref.Status)
	}

	// 失败的参考结构不满足派生前提
	_, err = p.Derive(context.Background(), model.LigandTestosterone, "MKVA", "hv", "/msa/hv.a3m", model.StrategyPoseTransplant)
	if !errors.Is(err, model.ErrReferenceNotReady) {
		t.Errorf("error = %v, want ErrReferenceNotReady", err)
	}
}

// TestMakeReferenceRepeatAfterFailure 测试失败参考结构的重复请求：
// 不会以 nil 错误返回失败产物，下一次显式请求触发重算
func TestMakeReferenceRepeatAfterFailure(t *testing.T) {
	t.Parallel()

	pred := newFakePredictor()
	pred.fail = true
	p := NewProvider(pred, 1, 0)
	ctx := context.Background()

	if _, err := p.MakeReference(ctx, model.LigandEstradiol, "MKVL", "h", "/msa/h.a3m"); err == nil {
		t.Fatal("expected first reference failure")
	}

	// 仍然失败：重复请求必须带错误返回，而不是把 failed 当作就绪
	ref, err := p.MakeReference(ctx, model.LigandEstradiol, "MKVL", "h", "/msa/h.a3m")
	if err == nil {
		t.Fatalf("repeat call returned nil error for artifact %+v", ref)
	}
	if ref.Status != model.StatusFailed {
		t.Errorf("reference status = %s, want failed", ref.Status)
	}

	// 预测器恢复后，下一次请求重算成功
	pred.fail = false
	ref, err = p.MakeReference(ctx, model.LigandEstradiol, "MKVL", "h", "/msa/h.a3m")
	if err != nil {
		t.Fatalf("MakeReference after recovery failed: %v", err)
	}
	if ref.Status != model.StatusReady {
		t.Errorf("reference status = %s, want ready", ref.Status)
	}
	if got := pred.calls.Load(); got != 3 {
		t.Errorf("predictor called %d times, want 3", got)
	}

	// 就绪之后不再重算
	if _, err := p.MakeReference(ctx, model.LigandEstradiol, "MKVL", "h", "/msa/h.a3m"); err != nil {
		t.Fatalf("MakeReference on ready failed: %v", err)
	}
	if got := pred.calls.Load(); got != 3 {
		t.Errorf("predictor called %d times after ready hit, want 3", got)
	}
}

// blockingPredictor 在 release 关闭前阻塞的测试预测器
type blockingPredictor struct {
	calls   atomic.Int64
	release chan struct{}
}

func (b *blockingPredictor) Predict(_ context.Context, job PredictionJob) (string, error) {
	b.calls.Add(1)
	<-b.release
	return "/structures/" + job.Name + ".cif", nil
}

// TestMakeReferenceConcurrent 测试并发请求共享同一个在途计算
func TestMakeReferenceConcurrent(t *testing.T) {
	t.Parallel()

	pred := &blockingPredictor{release: make(chan struct{})}
	p := NewProvider(pred, 2, 0)
	ctx := context.Background()

	results := make(chan model.StructureArtifact, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := p.MakeReference(ctx, model.LigandProgesterone, "MKVL", "h", "/msa/h.a3m")
			if err != nil {
				t.Errorf("MakeReference failed: %v", err)
				return
			}
			results <- ref
		}()
	}

	close(pred.release)
	wg.Wait()
	close(results)

	for ref := range results {
		if ref.Status != model.StatusReady {
			t.Errorf("reference status = %s, want ready", ref.Status)
		}
	}
	if got := pred.calls.Load(); got != 1 {
		t.Errorf("predictor called %d times, want 1", got)
	}
}

// TestParseStrategy 测试策略解析
func TestParseStrategy(t *testing.T) {
	t.Parallel()

	if s, err := model.ParseStrategy("pose_transplant"); err != nil || s != model.StrategyPoseTransplant {
		t.Errorf("ParseStrategy(pose_transplant) = %v, %v", s, err)
	}
	if s, err := model.ParseStrategy("full_inference"); err != nil || s != model.StrategyFullInference {
		t.Errorf("ParseStrategy(full_inference) = %v, %v", s, err)
	}
	if _, err := model.ParseStrategy("guess"); !errors.Is(err, model.ErrUnknownStrategy) {
		t.Errorf("ParseStrategy(guess) error = %v, want ErrUnknownStrategy", err)
	}
}
