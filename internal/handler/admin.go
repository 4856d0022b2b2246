package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/service"
	"listing-admin-api/pkg/apierror"
	"listing-admin-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	catalog   *service.CatalogService
	editor    *service.EditorService
	dbType    string // sqlite, postgres, mongodb
	cacheType string // memory, redis
	loginKey  string
	startTime time.Time
	log       logger.Logger
}

// AdminConfig holds the dependencies of the admin handler.
type AdminConfig struct {
	Catalog   *service.CatalogService
	Editor    *service.EditorService
	DBType    string
	CacheType string
	LoginKey  string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		catalog:   cfg.Catalog,
		editor:    cfg.Editor,
		dbType:    cfg.DBType,
		cacheType: cfg.CacheType,
		loginKey:  cfg.LoginKey,
		startTime: time.Now(),
		log:       log.With("component", "admin"),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	if h.editor != nil {
		stats["editor"] = map[string]interface{}{
			"open_sessions": h.editor.Count(),
		}
	}

	if h.catalog != nil {
		catalogStats, err := h.catalog.Stats(ctx)
		if err == nil {
			catalogStats["status"] = "connected"
			stats["catalog"] = catalogStats
		} else {
			stats["catalog"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["catalog"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// LoginRequest is the body of the dashboard key login.
type LoginRequest struct {
	Key string `json:"key"`
}

// VerifyLogin handles POST /api/v1/admin/login
func (h *AdminHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if h.loginKey == "" {
		response.Error(w, apierror.ServiceUnavailable("login key is not configured"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(h.loginKey)) != 1 {
		h.log.Warn("dashboard login rejected", "remote_addr", r.RemoteAddr)
		response.Error(w, apierror.Unauthorized("Invalid login key"))
		return
	}

	response.OK(w, map[string]bool{"valid": true})
}

// ClearCache handles POST /api/v1/admin/cache/clear
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.ClearCache(r.Context()); err != nil {
		h.log.Error("cache clear failed", "error", err)
		response.Error(w, apierror.InternalError("failed to clear cache"))
		return
	}
	h.log.Info("listing cache cleared")
	response.OK(w, map[string]string{"status": "cleared"})
}
