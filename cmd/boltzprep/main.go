package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"boltzprep/internal/affinity"
	"boltzprep/internal/config"
	"boltzprep/internal/importer"
	"boltzprep/internal/msa"
	"boltzprep/internal/parser"
	"boltzprep/internal/server"
	"boltzprep/internal/structure"
)

var (
	workbook   = flag.String("workbook", "", "测量数据工作簿路径（一次性运行模式；留空则启动服务）")
	port       = flag.Int("port", 0, "服务端口 (覆盖 config.toml)")
	devMode    = flag.Bool("dev", false, "开发模式")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	strategy   = flag.String("strategy", "", "派生结构策略 full_inference/pose_transplant (覆盖配置文件)")
	saveConfig = flag.Bool("saveConfig", false, "将生效配置（含命令行覆盖）写回 config.toml")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  boltzprep - 亲和力训练数据集构建工具")
	fmt.Println("==========================================")

	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
	}

	// 命令行参数覆盖配置
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if *strategy != "" {
		cfg.Pipeline.DefaultStrategy = *strategy
	}

	if *saveConfig {
		if err := config.SaveConfig(cfg); err != nil {
			log.Printf("写回配置失败: %v", err)
		} else {
			fmt.Println("生效配置已写回 config.toml")
		}
	}

	if *workbook != "" {
		if err := runOnce(cfg, *workbook); err != nil {
			log.Fatalf("运行失败: %v", err)
		}
		return
	}

	serve(cfg)
}

// runOnce 一次性运行：构建数据集后退出
func runOnce(cfg *config.AppConfig, workbookPath string) error {
	strategy, err := cfg.Strategy()
	if err != nil {
		return fmt.Errorf("invalid default_strategy %q: %w", cfg.Pipeline.DefaultStrategy, err)
	}
	unit, err := affinity.ParseUnit(cfg.Pipeline.AffinityUnit)
	if err != nil {
		return err
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}
	fmt.Printf("数据目录: %s\n", dataDir)

	cache := msa.NewCache(&msa.CommandSearcher{
		Command: cfg.Tools.SearchCommand,
		Args:    cfg.Tools.SearchArgs,
		OutDir:  filepath.Join(dataDir, "msa"),
	}, cfg.Pipeline.AlignConcurrency, cfg.SearchTimeout())

	provider := structure.NewProvider(&structure.BoltzPredictor{
		Command:         cfg.Tools.BoltzCommand,
		ConfigDir:       filepath.Join(dataDir, "configs"),
		OutDir:          filepath.Join(dataDir, "structures"),
		PredictAffinity: cfg.Pipeline.PredictAffinity,
		AffinitySamples: cfg.Pipeline.AffinitySamples,
	}, cfg.Pipeline.StructureConcurrency, cfg.PredictTimeout())

	coordinator, err := importer.NewCoordinator(importer.Options{
		Cache:         cache,
		Provider:      provider,
		Affinity:      affinity.NewNormalizer(unit),
		Strategy:      strategy,
		CorrectedDir:  filepath.Join(dataDir, "msa", "corrected"),
		ManifestPath:  filepath.Join(dataDir, "manifest", "manifest.jsonl"),
		RejectionPath: filepath.Join(dataDir, "manifest", "rejections.jsonl"),
	})
	if err != nil {
		return err
	}

	source, err := parser.OpenExcel(workbookPath)
	if err != nil {
		return err
	}
	defer source.Close()

	for evt := range coordinator.Run(context.Background(), source, filepath.Base(workbookPath)) {
		fmt.Printf("[%s] %s\n", evt.Type, evt.Message)
	}
	fmt.Printf("清单: %s\n", filepath.Join(dataDir, "manifest", "manifest.jsonl"))
	return nil
}

// serve 服务模式：提供操作员 API 与进度推送
func serve(cfg *config.AppConfig) {
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	if err := srv.Close(); err != nil {
		log.Printf("退出前清理失败: %v", err)
	}
}
