// Package handlers 操作员 API：运行触发、状态查询、排除记录复核、
// 失败比对的显式重试
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"boltzprep/internal/importer"
	"boltzprep/internal/model"
	"boltzprep/internal/msa"
	"boltzprep/internal/parser"
	"boltzprep/internal/server/progress"
	"boltzprep/internal/store"
	"boltzprep/internal/structure"
)

// Handler API 处理器
type Handler struct {
	store       *store.Store
	coordinator *importer.Coordinator
	cache       *msa.Cache
	provider    *structure.Provider
	hub         *progress.Hub

	mu      sync.Mutex
	running bool
	lastRun string
}

// New 创建处理器
func New(st *store.Store, coordinator *importer.Coordinator, cache *msa.Cache, provider *structure.Provider, hub *progress.Hub) *Handler {
	return &Handler{
		store:       st,
		coordinator: coordinator,
		cache:       cache,
		provider:    provider,
		hub:         hub,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/status", h.getStatus)
	api.POST("/runs", h.startRun)
	api.GET("/manifest", h.getManifest)
	api.GET("/rejections", h.getRejections)
	api.POST("/alignments/:hash/retry", h.retryAlignment)
}

// getStatus 当前运行状态
func (h *Handler) getStatus(c *gin.Context) {
	h.mu.Lock()
	running := h.running
	lastRun := h.lastRun
	h.mu.Unlock()

	latest, err := h.store.LatestRun()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running":     running,
		"last_run_id": lastRun,
		"latest_run":  latest,
	})
}

// startRunRequest 运行触发请求
type startRunRequest struct {
	WorkbookPath string `json:"workbook_path" binding:"required"`
}

// startRun 触发一次管线运行。同时只允许一次运行
func (h *Handler) startRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	h.running = true
	runID := uuid.New().String()
	h.lastRun = runID
	h.mu.Unlock()

	go h.executeRun(runID, req.WorkbookPath)

	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

// executeRun 后台执行运行并持久化结果
func (h *Handler) executeRun(runID, workbookPath string) {
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	_ = h.store.CreateRun(runID, workbookPath, "")

	source, err := parser.OpenExcel(workbookPath)
	if err != nil {
		_ = h.store.FinishRun(runID, 0, 0, 0, "failed", err.Error())
		return
	}
	defer source.Close()

	var report *importer.Report
	for evt := range h.coordinator.Run(context.Background(), source, workbookPath) {
		h.hub.Broadcast(evt)
		if evt.Type == "done" {
			if r, ok := evt.Data.(*importer.Report); ok {
				report = r
			}
		}
	}

	// 行提取完成后补发各 Sheet 的解析摘要
	h.hub.Broadcast(importer.ProgressEvent{
		Type:      "sheets",
		Message:   "工作表解析摘要",
		Data:      source.Results,
		Timestamp: time.Now(),
	})
	if report == nil {
		_ = h.store.FinishRun(runID, 0, 0, 0, "failed", "no report produced")
		return
	}

	h.persist(runID, report)
}

// persist 将运行结果写入数据库
func (h *Handler) persist(runID string, report *importer.Report) {
	for _, art := range h.cache.Snapshot() {
		_ = h.store.SaveAlignment(art)
	}
	for _, art := range h.provider.Snapshot() {
		_ = h.store.SaveStructure(art)
	}
	_ = h.store.ReplaceTrainingRecords(report.Records)
	_ = h.store.SaveRejections(runID, report.Rejections)
	_ = h.store.FinishRun(runID, report.TotalRows, len(report.Records), len(report.Rejections), "done", "")
}

// getManifest 全部训练记录，插入顺序
func (h *Handler) getManifest(c *gin.Context) {
	records, err := h.store.ListTrainingRecords()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []model.TrainingRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// getRejections 排除记录，可按 run_id 过滤
func (h *Handler) getRejections(c *gin.Context) {
	rejections, err := h.store.ListRejections(c.Query("run_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rejections == nil {
		rejections = []model.Rejection{}
	}
	c.JSON(http.StatusOK, gin.H{"rejections": rejections, "count": len(rejections)})
}

// retryAlignment 操作员显式重试一个失败的比对。
// 这是 failed 比对产物唯一的重算途径
func (h *Handler) retryAlignment(c *gin.Context) {
	hash := c.Param("hash")

	art, err := h.cache.Retry(c.Request.Context(), hash)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "artifact": art})
		return
	}

	_ = h.store.SaveAlignment(art)
	c.JSON(http.StatusOK, gin.H{"artifact": art})
}
