package store

import (
	"fmt"

	"boltzprep/internal/model"
)

// SaveAlignment 写入或更新比对产物
func (s *Store) SaveAlignment(a model.AlignmentArtifact) error {
	_, err := s.db.Exec(`
		INSERT INTO alignments (sequence_hash, path, status, error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sequence_hash) DO UPDATE SET
			path = excluded.path,
			status = excluded.status,
			error = excluded.error
	`, a.SequenceHash, a.Path, string(a.Status), a.Error)
	if err != nil {
		return fmt.Errorf("failed to save alignment %s: %w", a.SequenceHash, err)
	}
	return nil
}

// GetAlignment 按哈希读取比对产物
func (s *Store) GetAlignment(hash string) (model.AlignmentArtifact, error) {
	var a model.AlignmentArtifact
	var status string
	err := s.db.QueryRow(`
		SELECT sequence_hash, path, status, error, created_at
		FROM alignments WHERE sequence_hash = ?
	`, hash).Scan(&a.SequenceHash, &a.Path, &status, &a.Error, &a.CreatedAt)
	if err != nil {
		return model.AlignmentArtifact{}, fmt.Errorf("failed to get alignment %s: %w", hash, err)
	}
	a.Status = model.ArtifactStatus(status)
	return a, nil
}

// ListFailedAlignments 列出全部 failed 比对产物，供操作员重试
func (s *Store) ListFailedAlignments() ([]model.AlignmentArtifact, error) {
	rows, err := s.db.Query(`
		SELECT sequence_hash, path, status, error, created_at
		FROM alignments WHERE status = 'failed' ORDER BY sequence_hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed alignments: %w", err)
	}
	defer rows.Close()

	var out []model.AlignmentArtifact
	for rows.Next() {
		var a model.AlignmentArtifact
		var status string
		if err := rows.Scan(&a.SequenceHash, &a.Path, &status, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alignment: %w", err)
		}
		a.Status = model.ArtifactStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveStructure 写入或更新结构产物
func (s *Store) SaveStructure(a model.StructureArtifact) error {
	_, err := s.db.Exec(`
		INSERT INTO structures (ligand, sequence_hash, kind, strategy, path, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ligand, sequence_hash) DO UPDATE SET
			kind = excluded.kind,
			strategy = excluded.strategy,
			path = excluded.path,
			status = excluded.status,
			error = excluded.error
	`, string(a.Ligand), a.SequenceHash, string(a.Kind), string(a.Strategy), a.Path, string(a.Status), a.Error)
	if err != nil {
		return fmt.Errorf("failed to save structure %s/%s: %w", a.Ligand, a.SequenceHash, err)
	}
	return nil
}

// GetStructure 按 (配体, 哈希) 读取结构产物
func (s *Store) GetStructure(ligand model.Ligand, hash string) (model.StructureArtifact, error) {
	var a model.StructureArtifact
	var lig, kind, strategy, status string
	err := s.db.QueryRow(`
		SELECT ligand, sequence_hash, kind, strategy, path, status, error
		FROM structures WHERE ligand = ? AND sequence_hash = ?
	`, string(ligand), hash).Scan(&lig, &a.SequenceHash, &kind, &strategy, &a.Path, &status, &a.Error)
	if err != nil {
		return model.StructureArtifact{}, fmt.Errorf("failed to get structure %s/%s: %w", ligand, hash, err)
	}
	a.Ligand = model.Ligand(lig)
	a.Kind = model.StructureKind(kind)
	a.Strategy = model.Strategy(strategy)
	a.Status = model.ArtifactStatus(status)
	return a, nil
}
