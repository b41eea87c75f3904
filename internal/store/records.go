package store

import (
	"fmt"

	"boltzprep/internal/model"
)

// ReplaceTrainingRecords 用一次运行的装配结果整体替换训练记录，
// position 保持插入顺序
func (s *Store) ReplaceTrainingRecords(records []model.TrainingRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM training_records`); err != nil {
		return fmt.Errorf("failed to clear training records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO training_records
			(id, position, protein_sequence, ligand_smiles, structure_path, msa_path, target_affinity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(r.ID, i, r.ProteinSequence, r.LigandSMILES, r.StructurePath, r.MSAPath, r.TargetAffinity); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// ListTrainingRecords 按插入顺序返回全部训练记录
func (s *Store) ListTrainingRecords() ([]model.TrainingRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, protein_sequence, ligand_smiles, structure_path, msa_path, target_affinity
		FROM training_records ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list training records: %w", err)
	}
	defer rows.Close()

	var out []model.TrainingRecord
	for rows.Next() {
		var r model.TrainingRecord
		if err := rows.Scan(&r.ID, &r.ProteinSequence, &r.LigandSMILES, &r.StructurePath, &r.MSAPath, &r.TargetAffinity); err != nil {
			return nil, fmt.Errorf("failed to scan training record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRejections 追加一次运行的排除记录
func (s *Store) SaveRejections(runID string, rejections []model.Rejection) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO rejections (run_id, variant_id, reason, detail) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rejections {
		if _, err := stmt.Exec(runID, r.VariantID, r.Reason, r.Detail); err != nil {
			return fmt.Errorf("failed to insert rejection %s: %w", r.VariantID, err)
		}
	}
	return tx.Commit()
}

// ListRejections 返回某次运行的排除记录，runID 为空时返回全部
func (s *Store) ListRejections(runID string) ([]model.Rejection, error) {
	query := `SELECT variant_id, reason, detail FROM rejections`
	args := []any{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejections: %w", err)
	}
	defer rows.Close()

	var out []model.Rejection
	for rows.Next() {
		var r model.Rejection
		if err := rows.Scan(&r.VariantID, &r.Reason, &r.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
