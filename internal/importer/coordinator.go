// Package importer 管线协调器：表格行 → 序列规范化 → 比对缓存 →
// 结构生成 → 亲和力归一化 → 清单装配。
// 行级与产物级失败就地恢复（排除并记录），配置级错误终止整个运行
package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boltzprep/internal/affinity"
	"boltzprep/internal/manifest"
	"boltzprep/internal/model"
	"boltzprep/internal/msa"
	"boltzprep/internal/parser"
	"boltzprep/internal/seq"
	"boltzprep/internal/structure"
)

// Coordinator 管线协调器
type Coordinator struct {
	cache    *msa.Cache
	provider *structure.Provider
	affinity *affinity.Normalizer
	strategy model.Strategy

	correctedDir  string // 修正后 MSA 的输出目录
	manifestPath  string
	rejectionPath string
}

// Options 协调器配置
type Options struct {
	Cache         *msa.Cache
	Provider      *structure.Provider
	Affinity      *affinity.Normalizer
	Strategy      model.Strategy
	CorrectedDir  string
	ManifestPath  string
	RejectionPath string
}

// NewCoordinator 创建协调器。未知策略在此即拒绝，任何数据处理开始之前
func NewCoordinator(opts Options) (*Coordinator, error) {
	if _, err := model.ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownStrategy, opts.Strategy)
	}
	return &Coordinator{
		cache:         opts.Cache,
		provider:      opts.Provider,
		affinity:      opts.Affinity,
		strategy:      opts.Strategy,
		correctedDir:  opts.CorrectedDir,
		manifestPath:  opts.ManifestPath,
		rejectionPath: opts.RejectionPath,
	}, nil
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/info/align/reference/structure/record/rejection/error/done
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Report 一次运行的汇总报告
type Report struct {
	Workbook   string                 `json:"workbook"`
	TotalRows  int                    `json:"totalRows"`
	Records    []model.TrainingRecord `json:"records"`
	Rejections []model.Rejection      `json:"rejections"`
	Alignments int                    `json:"alignments"` // 唯一序列数
	Duration   time.Duration          `json:"duration"`
}

// Run 执行管线，返回进度通道。通道在运行结束（含失败）后关闭，
// done 事件的 Data 为 *Report
func (c *Coordinator) Run(ctx context.Context, source parser.RowSource, workbook string) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doRun(ctx, source, workbook, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doRun(ctx context.Context, source parser.RowSource, workbook string, ch chan ProgressEvent) {
	startTime := time.Now()

	c.send(ch, ProgressEvent{
		Type:    "start",
		Message: "开始构建训练数据集",
		Data:    map[string]string{"workbook": workbook},
	})

	assembler := manifest.NewAssembler(c.cache, c.provider, c.affinity.Normalize)
	report := &Report{Workbook: workbook}

	rows, err := source.Rows()
	if err != nil {
		c.send(ch, ProgressEvent{Type: "error", Message: fmt.Sprintf("读取数据源失败: %v", err)})
		c.finish(ch, assembler, report, startTime)
		return
	}
	report.TotalRows = len(rows)
	c.send(ch, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("发现 %d 行测量数据", len(rows)),
	})

	// 阶段一：序列规范化。非法行立即排除
	variants := c.normalizeRows(rows, assembler, ch)

	// 阶段二：比对。唯一哈希并行计算，缓存保证每哈希至多一次外部调用
	c.alignAll(ctx, variants, ch)
	report.Alignments = len(uniqueHashes(variants))

	// 阶段三：结构。各配体独立推进；配体内先参考结构、后派生结构
	c.buildStructures(ctx, variants, ch)

	// 阶段四：亲和力归一化 + 装配，按输入顺序
	for _, v := range variants {
		record, rejection := assembler.Assemble(v)
		if record != nil {
			c.send(ch, ProgressEvent{Type: "record", Message: record.ID})
			continue
		}
		c.send(ch, ProgressEvent{
			Type:    "rejection",
			Message: fmt.Sprintf("%s: %s", rejection.VariantID, rejection.Reason),
			Data:    rejection,
		})
	}

	c.finish(ch, assembler, report, startTime)
}

// normalizeRows 规范化全部行，返回合法变体记录
func (c *Coordinator) normalizeRows(rows []parser.Row, assembler *manifest.Assembler, ch chan ProgressEvent) []model.VariantRecord {
	variants := make([]model.VariantRecord, 0, len(rows))
	for _, row := range rows {
		normalized, err := seq.Normalize(row.Sequence)
		if err != nil {
			variantID := fmt.Sprintf("%s_row%d", row.Ligand.Key(), row.RowIndex)
			rej := assembler.RejectInvalidSequence(variantID, err.Error())
			c.send(ch, ProgressEvent{
				Type:    "rejection",
				Message: fmt.Sprintf("%s: %s", rej.VariantID, rej.Reason),
				Data:    rej,
			})
			continue
		}
		variants = append(variants, model.VariantRecord{
			SourceHormone: row.SheetName,
			RawSequence:   row.Sequence,
			Sequence:      normalized.Sequence,
			SequenceHash:  normalized.Hash,
			Ligand:        row.Ligand,
			RawAffinity:   row.RawAffinity,
			Row:           row.RowIndex,
		})
	}
	return variants
}

// alignAll 为每个唯一哈希触发一次比对计算并等待全部完成
func (c *Coordinator) alignAll(ctx context.Context, variants []model.VariantRecord, ch chan ProgressEvent) {
	var wg sync.WaitGroup
	for hash, sequence := range uniqueHashes(variants) {
		wg.Add(1)
		go func(hash, sequence string) {
			defer wg.Done()
			art, err := c.cache.GetOrCreate(ctx, hash, sequence)
			if err != nil {
				c.send(ch, ProgressEvent{Type: "align", Message: fmt.Sprintf("比对失败 %s: %v", shortHash(hash), err)})
				return
			}
			c.send(ch, ProgressEvent{Type: "align", Message: fmt.Sprintf("比对就绪 %s", shortHash(hash)), Data: art})
		}(hash, sequence)
	}
	wg.Wait()
}

// buildStructures 各配体独立生成结构：先参考结构，后派生结构。
// 派生严格排在参考完成之后（偏序，不同配体之间无顺序约束）
func (c *Coordinator) buildStructures(ctx context.Context, variants []model.VariantRecord, ch chan ProgressEvent) {
	byLigand := make(map[model.Ligand][]model.VariantRecord)
	for _, v := range variants {
		byLigand[v.Ligand] = append(byLigand[v.Ligand], v)
	}

	var wg sync.WaitGroup
	for ligand, group := range byLigand {
		wg.Add(1)
		go func(ligand model.Ligand, group []model.VariantRecord) {
			defer wg.Done()
			c.buildLigandStructures(ctx, ligand, group, ch)
		}(ligand, group)
	}
	wg.Wait()
}

func (c *Coordinator) buildLigandStructures(ctx context.Context, ligand model.Ligand, group []model.VariantRecord, ch chan ProgressEvent) {
	// 选第一个比对就绪的变体作为参考序列（表内顺序，确定性）
	refIdx := -1
	for i, v := range group {
		if c.alignedPath(v) != "" {
			refIdx = i
			break
		}
	}
	if refIdx < 0 {
		c.send(ch, ProgressEvent{Type: "reference", Message: fmt.Sprintf("%s: 无比对就绪的变体，跳过结构生成", ligand)})
		return
	}

	ref := group[refIdx]
	refMSA, err := c.correctedMSA(ref)
	if err != nil {
		c.send(ch, ProgressEvent{Type: "reference", Message: fmt.Sprintf("%s: MSA 修正失败: %v", ligand, err)})
		return
	}

	refArt, err := c.provider.MakeReference(ctx, ligand, ref.Sequence, ref.SequenceHash, refMSA)
	if err != nil {
		c.send(ch, ProgressEvent{Type: "reference", Message: fmt.Sprintf("%s: 参考结构失败: %v", ligand, err)})
		return
	}
	c.send(ch, ProgressEvent{Type: "reference", Message: fmt.Sprintf("%s: 参考结构就绪", ligand), Data: refArt})

	// 参考完成后才派生，配体内偏序由此保证。
	// 组内按哈希去重：重复的 (配体, 哈希) 行不触发第二次外部预测，
	// 装配阶段照常记录 duplicate-record
	seen := map[string]bool{ref.SequenceHash: true}
	var wg sync.WaitGroup
	for _, v := range group {
		if seen[v.SequenceHash] {
			continue
		}
		seen[v.SequenceHash] = true
		msaPath := c.alignedPath(v)
		if msaPath == "" {
			continue // 比对未就绪，装配阶段记录排除原因
		}
		wg.Add(1)
		go func(v model.VariantRecord) {
			defer wg.Done()
			corrected, err := c.correctedMSA(v)
			if err != nil {
				c.send(ch, ProgressEvent{Type: "structure", Message: fmt.Sprintf("%s: MSA 修正失败: %v", v.VariantID(), err)})
				return
			}
			art, err := c.provider.Derive(ctx, v.Ligand, v.Sequence, v.SequenceHash, corrected, c.strategy)
			if err != nil {
				c.send(ch, ProgressEvent{Type: "structure", Message: fmt.Sprintf("%s: 结构生成失败: %v", v.VariantID(), err)})
				return
			}
			c.send(ch, ProgressEvent{Type: "structure", Message: fmt.Sprintf("%s: 结构就绪 (%s)", v.VariantID(), art.Strategy), Data: art})
		}(v)
	}
	wg.Wait()
}

// alignedPath 变体的就绪比对路径，未就绪返回空串
func (c *Coordinator) alignedPath(v model.VariantRecord) string {
	art, ok := c.cache.Get(v.SequenceHash)
	if !ok || art.Status != model.StatusReady {
		return ""
	}
	return art.Path
}

// correctedMSA 确保 MSA 查询序列与变体一致，必要时写出修正副本
func (c *Coordinator) correctedMSA(v model.VariantRecord) (string, error) {
	path := c.alignedPath(v)
	if path == "" {
		return "", fmt.Errorf("alignment not ready for %s", v.VariantID())
	}
	return msa.EnsureQueryMatches(v.Sequence, path, c.correctedDir)
}

// finish 持久化清单与排除记录并发出 done 事件。
// 运行总以持久化的清单（可能为空）加完整排除日志收尾
func (c *Coordinator) finish(ch chan ProgressEvent, assembler *manifest.Assembler, report *Report, startTime time.Time) {
	report.Records = assembler.Records()
	report.Rejections = assembler.Rejections()
	report.Duration = time.Since(startTime)

	if err := manifest.WriteManifest(c.manifestPath, report.Records); err != nil {
		c.send(ch, ProgressEvent{Type: "error", Message: fmt.Sprintf("清单写出失败: %v", err)})
	}
	if err := manifest.WriteRejections(c.rejectionPath, report.Rejections); err != nil {
		c.send(ch, ProgressEvent{Type: "error", Message: fmt.Sprintf("排除日志写出失败: %v", err)})
	}

	c.send(ch, ProgressEvent{
		Type:    "done",
		Message: fmt.Sprintf("完成：%d 条训练记录，%d 条排除", len(report.Records), len(report.Rejections)),
		Data:    report,
	})
}

// send 发送进度事件
func (c *Coordinator) send(ch chan ProgressEvent, evt ProgressEvent) {
	evt.Timestamp = time.Now()
	ch <- evt
}

// uniqueHashes 哈希 → 规范化序列，去重
func uniqueHashes(variants []model.VariantRecord) map[string]string {
	out := make(map[string]string)
	for _, v := range variants {
		out[v.SequenceHash] = v.Sequence
	}
	return out
}

// shortHash 日志用短哈希
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
