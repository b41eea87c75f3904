package parser

import (
	"testing"

	"boltzprep/internal/model"
)

// TestRecognizeHormoneSheet 测试激素 Sheet 识别
func TestRecognizeHormoneSheet(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()

	result := r.Recognize("Estradiol", []string{"Variant", "Sequence", "Affinity (nM)"})
	if result.Ligand != model.LigandEstradiol {
		t.Errorf("ligand = %s, want Estradiol", result.Ligand)
	}
	if result.SeqCol != 1 || result.AffCol != 2 {
		t.Errorf("columns = (%d, %d), want (1, 2)", result.SeqCol, result.AffCol)
	}
	if result.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", result.Confidence)
	}
}

// TestRecognizeDecoratedSheetName 测试带修饰的 Sheet 名
func TestRecognizeDecoratedSheetName(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()

	cases := map[string]model.Ligand{
		"Progesterone (P4)":    model.LigandProgesterone,
		"testosterone_binding": model.LigandTestosterone,
		"Corticosterone 2026":  model.LigandCorticosterone,
	}
	for name, want := range cases {
		result := r.Recognize(name, []string{"seq", "Ki"})
		if result.Ligand != want {
			t.Errorf("Recognize(%q).Ligand = %s, want %s", name, result.Ligand, want)
		}
		if result.Confidence < 0.5 {
			t.Errorf("Recognize(%q).Confidence = %v", name, result.Confidence)
		}
	}
}

// TestRecognizeUnknownSheet 测试无法识别的 Sheet
func TestRecognizeUnknownSheet(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()

	// 非配体 Sheet
	if result := r.Recognize("Summary", []string{"sequence", "affinity"}); result.Confidence != 0 {
		t.Errorf("summary sheet confidence = %v, want 0", result.Confidence)
	}

	// 配体名匹配但缺少关键列
	if result := r.Recognize("Estradiol", []string{"notes", "plate"}); result.Confidence != 0 {
		t.Errorf("keyless sheet confidence = %v, want 0", result.Confidence)
	}
}

// TestRecognizeAffinityHeaderVariants 测试常见亲和力表头
func TestRecognizeAffinityHeaderVariants(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()
	for _, header := range []string{"Kd (nM)", "IC50", "EC50 [uM]", "ki", "Potency"} {
		result := r.Recognize("Estradiol", []string{"Sequence", header})
		if result.AffCol != 1 {
			t.Errorf("header %q not recognized as affinity column", header)
		}
	}
}
