// Package server exposes the pipeline over HTTP for operators.
//
// Routes:
//
//	GET /convert-procedures  archive, list and convert; returns the texts
//	GET /apply-procedures    apply every pending artifact
//	GET /metrics             Prometheus counters
//	GET /healthz             liveness
//
// Only one run executes at a time. A trigger arriving while a run is in
// progress gets 409 Conflict.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/procmigrate/internal/artifact"
	"github.com/roach88/procmigrate/internal/migrate"
)

// Runner executes pipeline runs.
type Runner interface {
	Convert(ctx context.Context) (migrate.ConvertReport, error)
	Apply(ctx context.Context) (migrate.ApplyReport, error)
}

// Server routes operator requests to a Runner.
type Server struct {
	runner  Runner
	metrics http.Handler
	logger  *slog.Logger
	running sync.Mutex
	router  *gin.Engine
}

// New builds the router. metrics may be nil, in which case /metrics is not
// registered.
func New(runner Runner, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{runner: runner, metrics: metrics, logger: logger}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/convert-procedures", s.handleConvert)
	router.GET("/apply-procedures", s.handleApply)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}
	return router
}

func (s *Server) handleConvert(c *gin.Context) {
	if !s.running.TryLock() {
		conflict(c)
		return
	}
	defer s.running.Unlock()

	// A disconnected client does not cancel the run.
	report, err := s.runner.Convert(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		s.fail(c, "convert", err)
		return
	}
	c.JSON(http.StatusOK, NewConvertResponse(report))
}

func (s *Server) handleApply(c *gin.Context) {
	if !s.running.TryLock() {
		conflict(c)
		return
	}
	defer s.running.Unlock()

	report, err := s.runner.Apply(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		s.fail(c, "apply", err)
		return
	}
	c.JSON(http.StatusOK, NewApplyResponse(report))
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, artifact.ErrLocked) {
		conflict(c)
		return
	}
	s.logger.Error("run failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func conflict(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
