package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"boltzprep/internal/model"
)

// WriteManifest 将训练记录按插入顺序写为 JSONL，每行一条
func WriteManifest(path string, records []model.TrainingRecord) error {
	return writeJSONL(path, len(records), func(enc *json.Encoder, i int) error {
		return enc.Encode(records[i])
	})
}

// WriteRejections 将排除记录写为 JSONL，供操作员复核
func WriteRejections(path string, rejections []model.Rejection) error {
	return writeJSONL(path, len(rejections), func(enc *json.Encoder, i int) error {
		return enc.Encode(rejections[i])
	})
}

// ReadManifest 读回 JSONL 清单
func ReadManifest(path string) ([]model.TrainingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	var records []model.TrainingRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.TrainingRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse manifest line: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return records, nil
}

// writeJSONL 逐行编码写出，先写临时文件再原子替换
func writeJSONL(path string, n int, encode func(*json.Encoder, int) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := encode(enc, i); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
