// Package affinity 将原始亲和力测量值换算为训练目标值。
//
// 换算在四张激素 Sheet 间完全一致：输入按配置单位（默认 nM）解释，
// 目标值为 pAff = -log10(浓度/M)。删失值（">10000" / "<0.5" 等）
// 去掉限定符后按数值处理；缺失或无法解析的值排除该行，不回填为零。
package affinity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"boltzprep/internal/model"
)

// Unit 输入单位对应的摩尔换算系数
type Unit float64

const (
	UnitMolar      Unit = 1
	UnitMillimolar Unit = 1e-3
	UnitMicromolar Unit = 1e-6
	UnitNanomolar  Unit = 1e-9
	UnitPicomolar  Unit = 1e-12
)

// ParseUnit 解析配置中的单位名称
func ParseUnit(name string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "m":
		return UnitMolar, nil
	case "mm":
		return UnitMillimolar, nil
	case "um", "µm":
		return UnitMicromolar, nil
	case "", "nm":
		return UnitNanomolar, nil
	case "pm":
		return UnitPicomolar, nil
	}
	return 0, fmt.Errorf("unknown affinity unit %q", name)
}

// Normalizer 亲和力归一化器
type Normalizer struct {
	unit Unit
}

// NewNormalizer 创建归一化器
func NewNormalizer(unit Unit) *Normalizer {
	return &Normalizer{unit: unit}
}

// 视为缺失的占位符
var missingValues = map[string]bool{
	"": true, "na": true, "n/a": true, "nd": true, "-": true, "--": true, "null": true,
}

// Normalize 将原始测量值换算为 pAff。缺失、非数值或非正值返回 ErrMissingAffinity
func (n *Normalizer) Normalize(raw string) (float64, error) {
	v := strings.TrimSpace(raw)
	if missingValues[strings.ToLower(v)] {
		return 0, fmt.Errorf("%w: %q", model.ErrMissingAffinity, raw)
	}

	// 删失/近似限定符：限定符本身被丢弃，数值照常换算
	v = strings.TrimLeft(v, "><~≈ ")

	// 容忍千位分隔
	v = strings.ReplaceAll(v, ",", "")

	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrMissingAffinity, raw)
	}
	if parsed <= 0 || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("%w: non-positive value %q", model.ErrMissingAffinity, raw)
	}

	return -math.Log10(parsed * float64(n.unit)), nil
}
