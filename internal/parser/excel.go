package parser

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelSource 从 Excel 工作簿提取测量数据行。
// 每个激素一张 Sheet，无法识别的 Sheet 被跳过并记入 Skipped
type ExcelSource struct {
	file       *excelize.File
	recognizer *SheetRecognizer

	Skipped []string      // 未识别的 Sheet 名
	Results []ParseResult // 每个 Sheet 的解析摘要，供进度展示
}

// OpenExcel 打开工作簿文件
func OpenExcel(path string) (*ExcelSource, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &ExcelSource{file: file, recognizer: NewSheetRecognizer()}, nil
}

// NewExcelSource 从 reader 加载工作簿
func NewExcelSource(reader io.Reader) (*ExcelSource, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &ExcelSource{file: file, recognizer: NewSheetRecognizer()}, nil
}

// Close 关闭工作簿
func (s *ExcelSource) Close() error {
	return s.file.Close()
}

// Rows 提取全部已识别 Sheet 的数据行，Sheet 按工作簿顺序、行按表内顺序
func (s *ExcelSource) Rows() ([]Row, error) {
	var out []Row
	s.Skipped = s.Skipped[:0]
	s.Results = s.Results[:0]

	for _, sheetName := range s.file.GetSheetList() {
		start := time.Now()
		rows, err := s.file.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}
		if len(rows) == 0 {
			s.skip(sheetName, start)
			continue
		}

		rec := s.recognizer.Recognize(sheetName, rows[0])
		if rec.Confidence < 0.5 {
			s.skip(sheetName, start)
			continue
		}

		count := 0
		for i, cells := range rows[1:] {
			row := Row{
				Ligand:    rec.Ligand,
				SheetName: sheetName,
				RowIndex:  i + 2,
			}
			if rec.SeqCol < len(cells) {
				row.Sequence = cells[rec.SeqCol]
			}
			if rec.AffCol < len(cells) {
				row.RawAffinity = cells[rec.AffCol]
			}
			if row.Sequence == "" && row.RawAffinity == "" {
				continue // 空行
			}
			out = append(out, row)
			count++
		}
		s.Results = append(s.Results, ParseResult{
			SheetName: sheetName,
			Ligand:    rec.Ligand,
			Status:    "imported",
			Rows:      count,
			Duration:  time.Since(start),
		})
	}
	return out, nil
}

// skip 记录一个被跳过的 Sheet
func (s *ExcelSource) skip(sheetName string, start time.Time) {
	s.Skipped = append(s.Skipped, sheetName)
	s.Results = append(s.Results, ParseResult{
		SheetName: sheetName,
		Status:    "skipped",
		Duration:  time.Since(start),
	})
}
