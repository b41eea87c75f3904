// Package manifest 将变体记录与其四项依赖（序列、配体映射、比对产物、
// 结构产物）联结为训练记录，并持久化最终数据集索引。
// 装配器只读上游产物，从不修改它们
package manifest

import (
	"sync"

	"boltzprep/internal/model"
)

// AlignmentLookup 按序列哈希查询比对产物
type AlignmentLookup interface {
	Get(hash string) (model.AlignmentArtifact, bool)
}

// StructureLookup 按 (配体, 序列哈希) 查询结构产物
type StructureLookup interface {
	Get(ligand model.Ligand, sequenceHash string) (model.StructureArtifact, bool)
}

// AffinityFunc 亲和力归一化函数
type AffinityFunc func(raw string) (float64, error)

// Assembler 清单装配器。
// 输出顺序为首次装配成功的插入顺序，重复运行结果一致
type Assembler struct {
	alignments AlignmentLookup
	structures StructureLookup
	normalize  AffinityFunc

	mu         sync.Mutex
	records    []model.TrainingRecord
	seen       map[string]bool // 已发出的记录 ID
	rejections []model.Rejection
}

// NewAssembler 创建装配器
func NewAssembler(alignments AlignmentLookup, structures StructureLookup, normalize AffinityFunc) *Assembler {
	return &Assembler{
		alignments: alignments,
		structures: structures,
		normalize:  normalize,
		seen:       make(map[string]bool),
	}
}

// Assemble 装配一条变体。依赖齐备时发出训练记录并返回之；
// 任一依赖 failed 或缺失时排除该变体并记录原因，整个运行不会因单条坏记录失败。
// 同一 (配体, 哈希) 对至多发出一条记录；同一序列在不同配体下是两条合法记录
func (a *Assembler) Assemble(variant model.VariantRecord) (*model.TrainingRecord, *model.Rejection) {
	id := RecordID(variant.Ligand, variant.SequenceHash)

	target, err := a.normalize(variant.RawAffinity)
	if err != nil {
		return nil, a.reject(id, model.ReasonAffinityMissing, variant.RawAffinity)
	}

	alignment, ok := a.alignments.Get(variant.SequenceHash)
	if !ok || alignment.Status != model.StatusReady {
		detail := ""
		if ok {
			detail = alignment.Error
		}
		return nil, a.reject(id, model.ReasonNotAligned, detail)
	}

	structure, ok := a.structures.Get(variant.Ligand, variant.SequenceHash)
	if !ok || structure.Status != model.StatusReady {
		detail := ""
		if ok {
			detail = structure.Error
		}
		return nil, a.reject(id, model.ReasonStructureNotReady, detail)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[id] {
		rej := model.Rejection{VariantID: id, Reason: model.ReasonDuplicate}
		a.rejections = append(a.rejections, rej)
		return nil, &rej
	}
	a.seen[id] = true

	record := model.TrainingRecord{
		ID:              id,
		ProteinSequence: variant.Sequence,
		LigandSMILES:    variant.Ligand.SMILES(),
		StructurePath:   structure.Path,
		MSAPath:         alignment.Path,
		TargetAffinity:  target,
	}
	a.records = append(a.records, record)
	return &record, nil
}

// RejectInvalidSequence 记录序列级排除（规范化阶段失败的行）
func (a *Assembler) RejectInvalidSequence(variantID, detail string) model.Rejection {
	rej := a.reject(variantID, model.ReasonSequenceInvalid, detail)
	return *rej
}

// Records 已发出的训练记录，插入顺序
func (a *Assembler) Records() []model.TrainingRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.TrainingRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Rejections 全部排除记录
func (a *Assembler) Rejections() []model.Rejection {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Rejection, len(a.rejections))
	copy(out, a.rejections)
	return out
}

// reject 追加一条排除记录
func (a *Assembler) reject(variantID, reason, detail string) *model.Rejection {
	rej := model.Rejection{VariantID: variantID, Reason: reason, Detail: detail}
	a.mu.Lock()
	a.rejections = append(a.rejections, rej)
	a.mu.Unlock()
	return &rej
}
