package msa

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"boltzprep/internal/seq"
)

// Searcher 外部比对搜索工具的能力接口。
// 生产实现调用外部进程，测试实现返回现成产物
type Searcher interface {
	// Search 对单条序列执行 MSA 搜索，返回结果文件路径。
	// 可能失败或超时，调用方负责超时控制
	Search(ctx context.Context, sequence string) (string, error)
}

// CommandSearcher 通过外部命令执行 MSA 搜索。
// 将查询序列写成 FASTA 后以 <command> <args...> <fasta> <outDir> 方式调用，
// 约定输出为 <outDir>/<stem>.a3m
type CommandSearcher struct {
	Command string
	Args    []string
	OutDir  string
}

// Search 执行搜索命令
func (s *CommandSearcher) Search(ctx context.Context, sequence string) (string, error) {
	if err := os.MkdirAll(s.OutDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create msa dir: %w", err)
	}

	normalized, err := seq.Normalize(sequence)
	if err != nil {
		return "", err
	}
	stem := normalized.Hash[:16]

	fastaPath := filepath.Join(s.OutDir, stem+".fasta")
	f, err := os.Create(fastaPath)
	if err != nil {
		return "", fmt.Errorf("failed to write query fasta: %w", err)
	}
	writeErr := seq.WriteFasta(f, []seq.FastaRecord{{Header: stem, Sequence: normalized.Sequence}})
	closeErr := f.Close()
	if writeErr != nil {
		return "", fmt.Errorf("failed to write query fasta: %w", writeErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to write query fasta: %w", closeErr)
	}

	args := append(append([]string{}, s.Args...), fastaPath, s.OutDir)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("search command failed: %w: %s", err, string(out))
	}

	a3mPath := filepath.Join(s.OutDir, stem+".a3m")
	if _, err := os.Stat(a3mPath); err != nil {
		return "", fmt.Errorf("search produced no alignment at %s: %w", a3mPath, err)
	}
	return a3mPath, nil
}
