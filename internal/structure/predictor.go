package structure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Predictor 外部结构预测模型的能力接口。
// 生产实现调用外部进程，测试实现返回现成产物
type Predictor interface {
	// Predict 预测一个蛋白-配体复合物结构，返回结构文件路径。
	// job.ReferencePose 非空表示姿态移植：复用参考姿态而不重新预测配体位置
	Predict(ctx context.Context, job PredictionJob) (string, error)
}

// BoltzPredictor 调用 boltz predict 的生产实现
type BoltzPredictor struct {
	Command         string // boltz 可执行文件（或包装脚本）
	ConfigDir       string // 任务 YAML 输出目录
	OutDir          string // 预测结果目录
	PredictAffinity bool
	AffinitySamples int
}

// Predict 写出任务配置并执行预测命令
func (p *BoltzPredictor) Predict(ctx context.Context, job PredictionJob) (string, error) {
	configPath, err := WriteJobConfig(p.ConfigDir, job, p.PredictAffinity)
	if err != nil {
		return "", err
	}

	jobOut := filepath.Join(p.OutDir, job.Name)
	args := []string{"predict", configPath, "--out_dir", jobOut}
	if job.ReferencePose != "" {
		args = append(args, "--template", job.ReferencePose)
	}
	if p.PredictAffinity && p.AffinitySamples > 0 {
		args = append(args, "--diffusion_samples_affinity", fmt.Sprint(p.AffinitySamples))
	}

	cmd := exec.CommandContext(ctx, p.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("predict command failed: %w: %s", err, string(out))
	}

	structPath := filepath.Join(jobOut, job.Name+".cif")
	if _, err := os.Stat(structPath); err != nil {
		return "", fmt.Errorf("prediction produced no structure at %s: %w", structPath, err)
	}
	return structPath, nil
}
