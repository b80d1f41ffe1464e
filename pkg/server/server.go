package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/soundprediction/mindgraph/pkg/server/handlers"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	graphs mindgraph.MindGraph
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, graphs mindgraph.MindGraph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		graphs: graphs,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Router returns the configured router. Setup must have been called.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.graphs)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	if s.graphs == nil {
		return
	}
	graphHandler := handlers.NewGraphHandler(s.graphs)
	queryHandler := handlers.NewQueryHandler(s.graphs)
	eventsHandler := handlers.NewEventsHandler(s.graphs)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/events", eventsHandler.Stream)

		graphs := v1.Group("/graphs")
		{
			graphs.POST("", graphHandler.Build)
			graphs.POST("/text", graphHandler.BuildFromText)
			graphs.GET("", graphHandler.List)
			graphs.GET("/:graph_id", graphHandler.Get)
			graphs.DELETE("/:graph_id", graphHandler.Delete)
			graphs.POST("/:graph_id/concepts", graphHandler.AddConcepts)
			graphs.GET("/:graph_id/version", graphHandler.Version)
			graphs.GET("/:graph_id/clusters", graphHandler.Clusters)
			graphs.POST("/:graph_id/summary", graphHandler.Summarize)

			graphs.GET("/:graph_id/path", queryHandler.ShortestPath)
			graphs.POST("/:graph_id/explain", queryHandler.Explain)
			graphs.POST("/:graph_id/ask", queryHandler.Ask)

			nodes := graphs.Group("/:graph_id/nodes/:node_id")
			{
				nodes.GET("", queryHandler.GetNode)
				nodes.DELETE("", queryHandler.DeleteNode)
				nodes.GET("/edges", queryHandler.Edges)
				nodes.GET("/neighbors", queryHandler.Neighbors)
				nodes.GET("/expand", queryHandler.Expand)
				nodes.GET("/similar", queryHandler.Similar)
				nodes.GET("/traverse", queryHandler.Traverse)
				nodes.GET("/paths", queryHandler.Paths)
			}
		}
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.ErrorContext(c.Request.Context(), "request", attrs...)
		default:
			logger.DebugContext(c.Request.Context(), "request", attrs...)
		}
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

const requestIDKey = "request_id"

// contextMiddleware extracts context information from headers and assigns a
// request id.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if userID := c.GetHeader("X-User-ID"); userID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyUserID, userID)
		}
		if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
			ctx = context.WithValue(ctx, types.ContextKeySessionID, sessionID)
		}
		if graphID := c.Param("graph_id"); graphID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyGraphID, graphID)
		}

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
