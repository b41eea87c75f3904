package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"boltzprep/internal/model"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Tools    ToolsConfig    `toml:"tools"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// PipelineConfig 管线配置
type PipelineConfig struct {
	DefaultStrategy      string `toml:"default_strategy"`      // full_inference / pose_transplant
	AlignConcurrency     int    `toml:"align_concurrency"`     // 比对并发上限
	StructureConcurrency int    `toml:"structure_concurrency"` // 结构预测并发上限
	SearchTimeoutSec     int    `toml:"search_timeout_sec"`    // 单次比对搜索超时
	PredictTimeoutSec    int    `toml:"predict_timeout_sec"`   // 单次结构预测超时
	AffinityUnit         string `toml:"affinity_unit"`         // 原始亲和力单位，默认 nM
	PredictAffinity      bool   `toml:"predict_affinity"`      // 预测任务是否带 affinity 属性
	AffinitySamples      int    `toml:"affinity_samples"`      // affinity 扩散采样数
}

// ToolsConfig 外部工具配置
type ToolsConfig struct {
	SearchCommand string   `toml:"search_command"` // MSA 搜索命令
	SearchArgs    []string `toml:"search_args"`
	BoltzCommand  string   `toml:"boltz_command"` // 结构预测命令
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Pipeline: PipelineConfig{
			DefaultStrategy:      string(model.StrategyPoseTransplant),
			AlignConcurrency:     2,
			StructureConcurrency: 1,
			SearchTimeoutSec:     3600,
			PredictTimeoutSec:    7200,
			AffinityUnit:         "nM",
			PredictAffinity:      true,
			AffinitySamples:      5,
		},
		Tools: ToolsConfig{
			SearchCommand: "colabfold_search",
			BoltzCommand:  "boltz",
		},
	}
}

// SearchTimeout 比对搜索超时
func (c *AppConfig) SearchTimeout() time.Duration {
	return time.Duration(c.Pipeline.SearchTimeoutSec) * time.Second
}

// PredictTimeout 结构预测超时
func (c *AppConfig) PredictTimeout() time.Duration {
	return time.Duration(c.Pipeline.PredictTimeoutSec) * time.Second
}

// Strategy 校验并返回默认策略。未知值属于致命配置错误，
// 在处理任何数据之前终止运行
func (c *AppConfig) Strategy() (model.Strategy, error) {
	return model.ParseStrategy(c.Pipeline.DefaultStrategy)
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下，不存在时使用默认配置
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("BOLTZPREP_SEARCH_COMMAND"); v != "" {
		config.Tools.SearchCommand = v
	}
	if v := os.Getenv("BOLTZPREP_BOLTZ_COMMAND"); v != "" {
		config.Tools.BoltzCommand = v
	}

	return config, nil
}

// EnsureDataDir 确保数据目录及子目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	subdirs := []string{"msa", "msa/corrected", "structures", "configs", "manifest"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(exeDir, "config.toml"), data, 0644)
}
