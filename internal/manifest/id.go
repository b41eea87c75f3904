package manifest

import (
	"fmt"
	"strings"

	"boltzprep/internal/model"
)

// RecordID 由 (配体, 序列哈希) 生成全局唯一记录 ID。
// 同一序列在不同配体下得到不同 ID，同一 (配体, 哈希) 对恒定
func RecordID(ligand model.Ligand, sequenceHash string) string {
	return ligand.Key() + "_" + sequenceHash
}

// ParseRecordID 从记录 ID 还原 (配体, 序列哈希)。
// 配体名不含下划线，按第一个下划线切分即可往返
func ParseRecordID(id string) (model.Ligand, string, error) {
	key, hash, ok := strings.Cut(id, "_")
	if !ok || hash == "" {
		return "", "", fmt.Errorf("malformed record id %q", id)
	}
	ligand, err := model.ParseLigand(key)
	if err != nil {
		return "", "", fmt.Errorf("malformed record id %q: %w", id, err)
	}
	return ligand, hash, nil
}
