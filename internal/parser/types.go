package parser

import (
	"time"

	"boltzprep/internal/model"
)

// Row 表格中的一行测量数据：序列、所属配体 Sheet、原始亲和力。
// 管线只要求这个三元组的迭代器，与文件格式无关
type Row struct {
	Sequence    string
	Ligand      model.Ligand
	RawAffinity string
	SheetName   string
	RowIndex    int // 1-based，含表头
}

// RowSource 测量数据行的来源
type RowSource interface {
	// Rows 按表内顺序返回全部数据行
	Rows() ([]Row, error)
}

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName  string       `json:"sheetName"`
	Ligand     model.Ligand `json:"ligand"`
	Confidence float64      `json:"confidence"` // 置信度 0-1
	SeqCol     int          `json:"seqCol"`     // 序列列索引
	AffCol     int          `json:"affCol"`     // 亲和力列索引
}

// ParseResult 单个 Sheet 的解析结果
type ParseResult struct {
	SheetName string        `json:"sheetName"`
	Ligand    model.Ligand  `json:"ligand"`
	Status    string        `json:"status"` // imported/skipped/error
	Rows      int           `json:"rows"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}
