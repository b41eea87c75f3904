package msa

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeA3M 写出测试用 A3M 文件
func writeA3M(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write a3m: %v", err)
	}
	return path
}

// TestQuerySequence 测试查询序列提取
func TestQuerySequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeA3M(t, dir, "q.a3m", ">query\nMKV\nLIL\n>hit1\nMKV-IL\n")

	header, query, secondIdx, err := QuerySequence(path)
	if err != nil {
		t.Fatalf("QuerySequence failed: %v", err)
	}
	if header != ">query" || query != "MKVLIL" || secondIdx != 3 {
		t.Errorf("got header=%q query=%q secondIdx=%d", header, query, secondIdx)
	}
}

// TestEnsureQueryMatchesIdentical 测试查询一致时原样返回
func TestEnsureQueryMatchesIdentical(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeA3M(t, dir, "q.a3m", ">query\nMKVLIL\n>hit1\nMKV-IL\n")

	got, err := EnsureQueryMatches("MKVLIL", path, filepath.Join(dir, "corrected"))
	if err != nil {
		t.Fatalf("EnsureQueryMatches failed: %v", err)
	}
	if got != path {
		t.Errorf("path = %s, want original %s", got, path)
	}
}

// TestEnsureQueryMatchesGapped 测试带 gap 的查询按去 gap 形式比较
func TestEnsureQueryMatchesGapped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeA3M(t, dir, "q.a3m", ">query\nMK-VL.IL\n>hit1\nMKVLIL\n")

	got, err := EnsureQueryMatches("MKVLIL", path, filepath.Join(dir, "corrected"))
	if err != nil {
		t.Fatalf("EnsureQueryMatches failed: %v", err)
	}
	if got != path {
		t.Errorf("gapped query should match after cleaning, got corrected copy %s", got)
	}
}

// TestEnsureQueryMatchesMismatch 测试不一致时写出替换副本
func TestEnsureQueryMatchesMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeA3M(t, dir, "wt.a3m", ">wt\nMKVLIL\n>hit1\nMKV-IL\n>hit2\nMKVAIL\n")

	variant := "MKVAIL" // 单点突变变体
	got, err := EnsureQueryMatches(variant, path, filepath.Join(dir, "corrected"))
	if err != nil {
		t.Fatalf("EnsureQueryMatches failed: %v", err)
	}
	if got == path {
		t.Fatal("expected corrected copy for mismatched query")
	}

	_, query, _, err := QuerySequence(got)
	if err != nil {
		t.Fatalf("QuerySequence on corrected copy failed: %v", err)
	}
	if query != variant {
		t.Errorf("corrected query = %q, want %q", query, variant)
	}

	// 其余比对内容保留
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read corrected copy: %v", err)
	}
	for _, want := range []string{">hit1", "MKV-IL", ">hit2"} {
		if !containsLine(string(data), want) {
			t.Errorf("corrected copy missing %q", want)
		}
	}

	// 再次调用复用同一副本
	again, err := EnsureQueryMatches(variant, path, filepath.Join(dir, "corrected"))
	if err != nil {
		t.Fatalf("second EnsureQueryMatches failed: %v", err)
	}
	if again != got {
		t.Errorf("corrected path not stable: %s != %s", again, got)
	}
}

func containsLine(data, line string) bool {
	for _, l := range strings.Split(data, "\n") {
		if l == line {
			return true
		}
	}
	return false
}
