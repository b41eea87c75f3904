package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// RunInfo 一次管线运行的概要
type RunInfo struct {
	ID        string `json:"id"`
	Workbook  string `json:"workbook"`
	Strategy  string `json:"strategy"`
	Status    string `json:"status"` // running/done/failed
	TotalRows int    `json:"total_rows"`
	Emitted   int    `json:"emitted"`
	Rejected  int    `json:"rejected"`
	Error     string `json:"error,omitempty"`
}

// CreateRun 创建运行日志
func (s *Store) CreateRun(id, workbook, strategy string) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, workbook, strategy) VALUES (?, ?, ?)
	`, id, workbook, strategy)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun 完成运行日志更新
func (s *Store) FinishRun(id string, totalRows, emitted, rejected int, status, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET
			total_rows = ?,
			emitted = ?,
			rejected = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, totalRows, emitted, rejected, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// LatestRun 最近一次运行，不存在时返回 (nil, nil)
func (s *Store) LatestRun() (*RunInfo, error) {
	row := s.db.QueryRow(`
		SELECT id, workbook, strategy, status, total_rows, emitted, rejected, error_message
		FROM runs ORDER BY started_at DESC, id DESC LIMIT 1
	`)
	var r RunInfo
	err := row.Scan(&r.ID, &r.Workbook, &r.Strategy, &r.Status, &r.TotalRows, &r.Emitted, &r.Rejected, &r.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &r, nil
}
