package structure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boltzprep/internal/model"
)

// Provider 结构提供者：每个配体先产出一个参考复合物结构（全量推理），
// 再按策略为各变体派生结构。参考结构未就绪前请求派生结构属于
// 顺序违例，返回 ErrReferenceNotReady 并由调用方按致命错误处理
type Provider struct {
	predictor Predictor
	timeout   time.Duration
	slots     chan struct{}

	mu         sync.Mutex
	references map[model.Ligand]*refEntry
	derived    map[string]*model.StructureArtifact // variant_id → 产物
}

// refEntry 单个配体的参考结构槽。done 在计算结束（ready 或 failed）时关闭，
// pending 命中等待 done，failed 命中由下一次显式请求重算
type refEntry struct {
	artifact model.StructureArtifact
	err      error
	done     chan struct{}
}

// NewProvider 创建结构提供者
func NewProvider(predictor Predictor, concurrency int, timeout time.Duration) *Provider {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Provider{
		predictor:  predictor,
		timeout:    timeout,
		slots:      make(chan struct{}, concurrency),
		references: make(map[model.Ligand]*refEntry),
		derived:    make(map[string]*model.StructureArtifact),
	}
}

// MakeReference 为配体生成参考结构，全量推理，每配体至多一次在途计算。
// 命中 ready 返回已存产物；命中 pending 等待在途计算；命中 failed 时
// 当前调用者重算——MakeReference 只在操作员触发的运行开头发生，
// 这就是失败参考结构的显式重试途径
func (p *Provider) MakeReference(ctx context.Context, ligand model.Ligand, sequence, sequenceHash, msaPath string) (model.StructureArtifact, error) {
	p.mu.Lock()
	if e, ok := p.references[ligand]; ok && e.artifact.Status != model.StatusFailed {
		p.mu.Unlock()
		return p.awaitRef(ctx, ligand, e)
	}
	e := &refEntry{
		artifact: model.StructureArtifact{
			Ligand:       ligand,
			SequenceHash: sequenceHash,
			Kind:         model.StructureReference,
			Strategy:     model.StrategyFullInference,
			Status:       model.StatusPending,
		},
		done: make(chan struct{}),
	}
	p.references[ligand] = e
	p.mu.Unlock()

	path, err := p.predict(ctx, PredictionJob{
		Name:     ligand.Key() + "_reference",
		Sequence: sequence,
		SMILES:   ligand.SMILES(),
		MSAPath:  msaPath,
	})

	p.mu.Lock()
	if err != nil {
		e.err = fmt.Errorf("reference for %s: %w", ligand, err)
		e.artifact.Status = model.StatusFailed
		e.artifact.Error = err.Error()
	} else {
		e.artifact.Status = model.StatusReady
		e.artifact.Path = path
	}
	art, refErr := e.artifact, e.err
	p.mu.Unlock()
	close(e.done)
	return art, refErr
}

// awaitRef 等待参考结构计算完成并返回结果。failed 结果连同存量错误
// 一并返回，调用方不会把失败的参考结构误认为就绪
func (p *Provider) awaitRef(ctx context.Context, ligand model.Ligand, e *refEntry) (model.StructureArtifact, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		return model.StructureArtifact{}, fmt.Errorf("reference for %s: %w", ligand, ctx.Err())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return e.artifact, e.err
}

// Derive 按策略为变体生成结构。
// full_inference 与参考结构同路径全量预测；pose_transplant 复用参考姿态，
// 只替换蛋白序列，不重新预测配体位置——这是显式记录的近似，策略写入产物供审计
func (p *Provider) Derive(ctx context.Context, ligand model.Ligand, sequence, sequenceHash, msaPath string, strategy model.Strategy) (model.StructureArtifact, error) {
	if strategy != model.StrategyFullInference && strategy != model.StrategyPoseTransplant {
		return model.StructureArtifact{}, fmt.Errorf("%w: %q", model.ErrUnknownStrategy, strategy)
	}

	p.mu.Lock()
	ref, ok := p.references[ligand]
	if !ok || ref.artifact.Status != model.StatusReady {
		p.mu.Unlock()
		return model.StructureArtifact{}, fmt.Errorf("%w: ligand %s", model.ErrReferenceNotReady, ligand)
	}
	refPath := ref.artifact.Path

	variantID := ligand.Key() + "_" + sequenceHash
	if art, ok := p.derived[variantID]; ok {
		p.mu.Unlock()
		return *art, nil
	}
	art := &model.StructureArtifact{
		Ligand:       ligand,
		SequenceHash: sequenceHash,
		Kind:         model.StructureDerived,
		Strategy:     strategy,
		Status:       model.StatusPending,
	}
	p.derived[variantID] = art
	p.mu.Unlock()

	// 任务名用短哈希，完整哈希留在产物键里
	shortHash := sequenceHash
	if len(shortHash) > 12 {
		shortHash = shortHash[:12]
	}
	job := PredictionJob{
		Name:     ligand.Key() + "_" + shortHash,
		Sequence: sequence,
		SMILES:   ligand.SMILES(),
		MSAPath:  msaPath,
	}
	if strategy == model.StrategyPoseTransplant {
		job.ReferencePose = refPath
	}

	path, err := p.predict(ctx, job)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		art.Status = model.StatusFailed
		art.Error = err.Error()
		return *art, fmt.Errorf("derive %s: %w", variantID, err)
	}
	art.Status = model.StatusReady
	art.Path = path
	return *art, nil
}

// Reference 查询配体的参考结构
func (p *Provider) Reference(ligand model.Ligand) (model.StructureArtifact, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref, ok := p.references[ligand]
	if !ok {
		return model.StructureArtifact{}, false
	}
	return ref.artifact, true
}

// Get 查询变体的结构产物。担任参考结构的变体没有派生产物，
// 直接解析到该配体的参考结构
func (p *Provider) Get(ligand model.Ligand, sequenceHash string) (model.StructureArtifact, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if art, ok := p.derived[ligand.Key()+"_"+sequenceHash]; ok {
		return *art, true
	}
	if ref, ok := p.references[ligand]; ok && ref.artifact.SequenceHash == sequenceHash {
		return ref.artifact, true
	}
	return model.StructureArtifact{}, false
}

// Snapshot 全部结构产物副本，参考结构在前
func (p *Provider) Snapshot() []model.StructureArtifact {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.StructureArtifact, 0, len(p.references)+len(p.derived))
	for _, ref := range p.references {
		out = append(out, ref.artifact)
	}
	for _, art := range p.derived {
		out = append(out, *art)
	}
	return out
}

// predict 有界并发 + 超时控制下调用外部预测
func (p *Provider) predict(ctx context.Context, job PredictionJob) (string, error) {
	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.predictor.Predict(runCtx, job)
}
