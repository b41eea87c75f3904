package server

import (
	"fmt"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"boltzprep/internal/affinity"
	"boltzprep/internal/config"
	"boltzprep/internal/importer"
	"boltzprep/internal/msa"
	"boltzprep/internal/server/handlers"
	"boltzprep/internal/server/progress"
	"boltzprep/internal/store"
	"boltzprep/internal/structure"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
}

// NewServer 创建服务器：装配外部协作者、管线协调器与 API 处理器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 未知默认策略在任何数据处理前终止
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, fmt.Errorf("invalid default_strategy %q: %w", cfg.Pipeline.DefaultStrategy, err)
	}
	unit, err := affinity.ParseUnit(cfg.Pipeline.AffinityUnit)
	if err != nil {
		return nil, fmt.Errorf("invalid affinity_unit: %w", err)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}

	sqliteStore, err := store.New(filepath.Join(dataDir, "boltzprep.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	searcher := &msa.CommandSearcher{
		Command: cfg.Tools.SearchCommand,
		Args:    cfg.Tools.SearchArgs,
		OutDir:  filepath.Join(dataDir, "msa"),
	}
	cache := msa.NewCache(searcher, cfg.Pipeline.AlignConcurrency, cfg.SearchTimeout())

	predictor := &structure.BoltzPredictor{
		Command:         cfg.Tools.BoltzCommand,
		ConfigDir:       filepath.Join(dataDir, "configs"),
		OutDir:          filepath.Join(dataDir, "structures"),
		PredictAffinity: cfg.Pipeline.PredictAffinity,
		AffinitySamples: cfg.Pipeline.AffinitySamples,
	}
	provider := structure.NewProvider(predictor, cfg.Pipeline.StructureConcurrency, cfg.PredictTimeout())

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
		return nil, err
	}

	hub := progress.NewHub()
	handler := handlers.New(sqliteStore, coordinator, cache, provider, hub)

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
	}
	s.setupRoutes(handler, hub)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(handler *handlers.Handler, hub *progress.Hub) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		handler.RegisterRoutes(api)
	}

	s.router.GET("/ws/progress", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 释放资源
func (s *Server) Close() error {
	return s.store.Close()
}
