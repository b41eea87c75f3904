package parser

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"boltzprep/internal/model"
)

// writeWorkbook 写出测试工作簿
func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("new sheet: %v", err)
			}
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "measurements.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// TestExcelSourceRows 测试多 Sheet 行提取
func TestExcelSourceRows(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, map[string][][]any{
		"Estradiol": {
			{"Variant", "Sequence", "Affinity (nM)"},
			{"v1", "AAAC", "10"},
			{"v2", "MKVL", ""},
		},
		"Progesterone": {
			{"Sequence", "Ki"},
			{" aaac ", "20"},
		},
		"Notes": {
			{"whatever"},
			{"not data"},
		},
	})

	src, err := OpenExcel(path)
	if err != nil {
		t.Fatalf("OpenExcel failed: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	rows, err := src.Rows()
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %+v", len(rows), rows)
	}

	byLigand := map[model.Ligand]int{}
	for _, row := range rows {
		byLigand[row.Ligand]++
	}
	if byLigand[model.LigandEstradiol] != 2 || byLigand[model.LigandProgesterone] != 1 {
		t.Errorf("rows per ligand = %v", byLigand)
	}

	if len(src.Skipped) != 1 || src.Skipped[0] != "Notes" {
		t.Errorf("skipped = %v, want [Notes]", src.Skipped)
	}

	if len(src.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(src.Results))
	}
	for _, res := range src.Results {
		switch res.SheetName {
		case "Estradiol":
			if res.Status != "imported" || res.Rows != 2 {
				t.Errorf("Estradiol result = %+v", res)
			}
		case "Notes":
			if res.Status != "skipped" {
				t.Errorf("Notes result = %+v", res)
			}
		}
	}
}

// TestExcelSourceEmptyAffinityKept 测试空亲和力行保留（由下游排除并记录原因）
func TestExcelSourceEmptyAffinityKept(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, map[string][][]any{
		"Testosterone": {
			{"Sequence", "Kd"},
			{"MKVL", ""},
		},
	})

	src, err := OpenExcel(path)
	if err != nil {
		t.Fatalf("OpenExcel failed: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	rows, err := src.Rows()
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Sequence != "MKVL" || rows[0].RawAffinity != "" {
		t.Errorf("row = %+v", rows[0])
	}
}
