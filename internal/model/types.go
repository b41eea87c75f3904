package model

import "time"

// ArtifactStatus 产物状态
type ArtifactStatus string

const (
	StatusPending ArtifactStatus = "pending"
	StatusReady   ArtifactStatus = "ready"
	StatusFailed  ArtifactStatus = "failed"
)

// VariantRecord 从表格读出的一行变体记录，读取后不可变
type VariantRecord struct {
	SourceHormone string // 来源 Sheet 名称
	RawSequence   string // 原始序列字符串
	Sequence      string // 规范化后的序列
	SequenceHash  string // 规范化序列的内容哈希
	Ligand        Ligand // 配体
	RawAffinity   string // 原始亲和力值（未解析）
	Row           int    // 来源行号，用于诊断
}

// VariantID 变体标识：配体 + 序列哈希
func (v VariantRecord) VariantID() string {
	return v.Ligand.Key() + "_" + v.SequenceHash
}

// AlignmentArtifact 比对产物，以 sequence_hash 为键
// 不变式：同一哈希至多计算一次，共享哈希的所有变体引用同一产物
type AlignmentArtifact struct {
	SequenceHash string         `json:"sequence_hash"`
	Path         string         `json:"path"`
	Status       ArtifactStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// StructureKind 结构产物来源
type StructureKind string

const (
	StructureReference StructureKind = "reference" // 全量推理得到的参考结构，每配体一个
	StructureDerived   StructureKind = "derived"   // 由参考结构派生
)

// Strategy 派生结构的生成策略
type Strategy string

const (
	StrategyFullInference  Strategy = "full_inference"  // 全量推理：慢、精度高
	StrategyPoseTransplant Strategy = "pose_transplant" // 姿态移植：快，假设突变不改变结合几何
)

// ParseStrategy 解析策略值，未知值返回 ErrUnknownStrategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFullInference, StrategyPoseTransplant:
		return Strategy(s), nil
	}
	return "", ErrUnknownStrategy
}

// StructureArtifact 结构产物，以 (ligand, variant) 为键
// 不变式：任一配体的派生结构产生之前，该配体的参考结构必须已存在
type StructureArtifact struct {
	Ligand       Ligand         `json:"ligand"`
	SequenceHash string         `json:"sequence_hash"`
	Kind         StructureKind  `json:"kind"`
	Strategy     Strategy       `json:"strategy"` // 生成时使用的策略，留作审计
	Path         string         `json:"path"`
	Status       ArtifactStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
}

// TrainingRecord 最终联结单元，四项依赖全部就绪后由装配器生成
type TrainingRecord struct {
	ID              string  `json:"id"`
	ProteinSequence string  `json:"protein_sequence"`
	LigandSMILES    string  `json:"ligand_smiles"`
	StructurePath   string  `json:"structure_path"`
	MSAPath         string  `json:"msa_path"`
	TargetAffinity  float64 `json:"target_affinity"`
}

// Rejection 被排除记录及原因，供操作员复核
type Rejection struct {
	VariantID string `json:"variant_id"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

// 排除原因
const (
	ReasonSequenceInvalid   = "sequence-invalid"
	ReasonNotAligned        = "sequence-hash-not-aligned"
	ReasonStructureNotReady = "structure-not-ready"
	ReasonAffinityMissing   = "affinity-missing"
	ReasonDuplicate         = "duplicate-record"
)
