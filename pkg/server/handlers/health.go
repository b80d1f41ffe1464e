package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mindgraph"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const serviceName = "mindgraph"

// HealthHandler handles health check requests
type HealthHandler struct {
	graphs    mindgraph.GraphReader
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(g mindgraph.GraphReader) *HealthHandler {
	return &HealthHandler{
		graphs:    g,
		startedAt: time.Now(),
	}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// storageCheck lists graphs, which touches the storage driver when one is
// configured. Only a timeout counts as unhealthy: listing falls back to the
// resident graphs on driver errors.
func (h *HealthHandler) storageCheck(ctx context.Context) (gin.H, bool) {
	start := time.Now()
	graphs, err := h.graphs.ListGraphs(ctx)
	duration := time.Since(start)

	status := gin.H{
		"status":      "healthy",
		"duration_ms": duration.Milliseconds(),
		"operation":   "ListGraphs",
	}
	switch {
	case err != nil && ctx.Err() != nil:
		status["status"] = "unhealthy"
		status["error"] = "storage timeout"
		return status, false
	case err != nil:
		status["note"] = err.Error()
	default:
		status["graphs"] = len(graphs)
	}
	return status, true
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	allHealthy := true

	if h.graphs != nil {
		status, ok := h.storageCheck(ctx)
		checks["storage"] = status
		allHealthy = ok
	} else {
		checks["storage"] = gin.H{
			"status": "unhealthy",
			"error":  "mindgraph client not initialized",
		}
		allHealthy = false
	}

	checks["system"] = gin.H{
		"status": "healthy",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}

	response := gin.H{
		"status":    "ready",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}
	if !allHealthy {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	startTime := time.Now()
	checks := gin.H{}
	allHealthy := true

	if h.graphs != nil {
		status, ok := h.storageCheck(ctx)
		checks["storage"] = status
		allHealthy = ok
	} else {
		checks["mindgraph_client"] = gin.H{
			"status": "unhealthy",
			"error":  "client not initialized",
		}
		allHealthy = false
	}

	systemMetrics := h.getSystemMetrics()
	checks["system"] = gin.H{
		"status":       "healthy",
		"uptime":       time.Since(h.startedAt).Round(time.Second).String(),
		"memory_usage": systemMetrics.MemoryUsage,
		"goroutines":   systemMetrics.Goroutines,
		"gc_cycles":    systemMetrics.GCCycles,
		"heap_objects": systemMetrics.HeapObjects,
		"stack_usage":  systemMetrics.StackUsage,
	}

	response := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{
			"go_version": GoVersion,
		},
		"checks": checks,
		"metrics": gin.H{
			"response_time_ms": time.Since(startTime).Milliseconds(),
		},
	}
	if !allHealthy {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

// getSystemMetrics collects current system runtime metrics
func (h *HealthHandler) getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
