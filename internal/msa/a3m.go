package msa

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// QuerySequence 读取 A3M 文件的首条（查询）序列，返回记录头、序列
// 以及第二条记录的起始行号
func QuerySequence(path string) (header, sequence string, secondIdx int, err error) {
	lines, err := readLines(path)
	if err != nil {
		return "", "", 0, err
	}
	if len(lines) == 0 {
		return "", "", 0, fmt.Errorf("empty a3m file %s", path)
	}

	header = strings.TrimSpace(lines[0])
	secondIdx = len(lines)
	var parts []string
	for i := 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], ">") {
			secondIdx = i
			break
		}
		parts = append(parts, strings.TrimSpace(lines[i]))
	}
	return header, strings.Join(parts, ""), secondIdx, nil
}

// EnsureQueryMatches 校验 A3M 查询序列（去除 gap 后）与变体序列一致。
// 一致时原样返回；不一致时在 correctedDir 写出替换了查询序列的副本并返回其路径。
// 变体与同一参考 MSA 合用时查询序列可能带有突变差异，预测前必须对齐
func EnsureQueryMatches(sequence, a3mPath, correctedDir string) (string, error) {
	_, query, secondIdx, err := QuerySequence(a3mPath)
	if err != nil {
		return "", err
	}

	clean := strings.NewReplacer("-", "", ".", "").Replace(query)
	if clean == sequence {
		return a3mPath, nil
	}

	if err := os.MkdirAll(correctedDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create corrected msa dir: %w", err)
	}

	// 文件名带序列长度避免不同变体互相覆盖
	corrected := filepath.Join(correctedDir, fmt.Sprintf("corrected_%d_%s", len(sequence), filepath.Base(a3mPath)))
	if _, err := os.Stat(corrected); err == nil {
		return corrected, nil
	}

	lines, err := readLines(a3mPath)
	if err != nil {
		return "", err
	}

	f, err := os.Create(corrected)
	if err != nil {
		return "", fmt.Errorf("failed to write corrected msa: %w", err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.TrimSpace(lines[0]))
	fmt.Fprintln(w, sequence)
	for _, line := range lines[secondIdx:] {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write corrected msa: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write corrected msa: %w", err)
	}
	return corrected, nil
}

// readLines 按行读取文件，保留除行尾换行外的内容
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read a3m: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}
