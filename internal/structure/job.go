package structure

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PredictionJob 一次结构预测任务
type PredictionJob struct {
	Name          string // 任务名，用于配置与输出命名
	Sequence      string // 蛋白序列
	SMILES        string // 配体化学结构
	MSAPath       string // 比对文件路径
	ReferencePose string // 可选：姿态移植时的参考结构路径
}

// boltzConfig Boltz 任务文档结构
type boltzConfig struct {
	Version    int              `yaml:"version"`
	Sequences  []map[string]any `yaml:"sequences"`
	Properties []map[string]any `yaml:"properties,omitempty"`
}

// WriteJobConfig 在 configDir 下写出 Boltz 任务 YAML，返回文件路径。
// 蛋白链固定为 A、配体链固定为 B
func WriteJobConfig(configDir string, job PredictionJob, predictAffinity bool) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	cfg := boltzConfig{
		Version: 1,
		Sequences: []map[string]any{
			{"protein": map[string]any{
				"id":       "A",
				"sequence": job.Sequence,
				"msa":      job.MSAPath,
			}},
		},
	}
	if job.SMILES != "" {
		cfg.Sequences = append(cfg.Sequences, map[string]any{
			"ligand": map[string]any{
				"id":     "B",
				"smiles": job.SMILES,
			},
		})
		if predictAffinity {
			cfg.Properties = []map[string]any{
				{"affinity": map[string]any{"binder": "B"}},
			}
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job config: %w", err)
	}

	path := filepath.Join(configDir, job.Name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write job config: %w", err)
	}
	return path, nil
}
