package parser

import (
	"fmt"
	"strings"

	"boltzprep/internal/model"
)

// 序列列与亲和力列的表头关键词
var (
	sequenceHeaders = []string{"sequence", "seq", "protein", "variant_sequence", "aa_sequence", "序列"}
	affinityHeaders = []string{"affinity", "kd", "ki", "ic50", "ec50", "potency", "亲和力"}
)

// SheetRecognizer 激素 Sheet 识别器：按 Sheet 名匹配配体，
// 按表头定位序列列与亲和力列
type SheetRecognizer struct{}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer() *SheetRecognizer {
	return &SheetRecognizer{}
}

// Recognize 识别一个 Sheet。配体名不匹配或找不到两个关键列时置信度为 0
func (r *SheetRecognizer) Recognize(sheetName string, columnNames []string) SheetRecognitionResult {
	result := SheetRecognitionResult{
		SheetName: sheetName,
		SeqCol:    -1,
		AffCol:    -1,
	}

	ligand, err := matchLigand(sheetName)
	if err != nil {
		return result
	}
	result.Ligand = ligand

	for i, col := range columnNames {
		normalized := normalizeColumnName(col)
		if result.SeqCol < 0 && matchAny(normalized, sequenceHeaders) {
			result.SeqCol = i
			continue
		}
		if result.AffCol < 0 && matchAny(normalized, affinityHeaders) {
			result.AffCol = i
		}
	}

	// 配体匹配占一半置信度，两个关键列各占四分之一
	result.Confidence = 0.5
	if result.SeqCol >= 0 {
		result.Confidence += 0.25
	}
	if result.AffCol >= 0 {
		result.Confidence += 0.25
	}
	if result.SeqCol < 0 || result.AffCol < 0 {
		result.Confidence = 0
	}
	return result
}

// matchLigand 从 Sheet 名匹配配体，容忍 "Estradiol (E2)" 之类的修饰
func matchLigand(sheetName string) (model.Ligand, error) {
	lower := strings.ToLower(sheetName)
	for _, l := range model.AllLigands {
		if strings.Contains(lower, l.Key()) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: sheet %q", model.ErrUnknownLigand, sheetName)
}

// normalizeColumnName 规范化列名：去空白、转小写
func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// matchAny 列名是否含任一关键词
func matchAny(normalized string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(normalized, key) {
			return true
		}
	}
	return false
}
