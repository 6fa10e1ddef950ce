// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the stored papers over a read-only JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdiddy/magpie/internal/store"
	"github.com/pdiddy/magpie/pkg/types"
)

// PaperReader is the read side of the paper store.
type PaperReader interface {
	Recent(ctx context.Context, n int) ([]types.Paper, error)
	Get(ctx context.Context, id int64) (types.Paper, error)
	Search(ctx context.Context, q string) ([]types.Paper, error)
	Count(ctx context.Context) (int, error)
}

// Server serves papers from a PaperReader.
type Server struct {
	papers PaperReader
	log    *zap.Logger
	reg    *prometheus.Registry
	engine *gin.Engine
}

// New builds the router. A nil logger disables request logging.
func New(papers PaperReader, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{papers: papers, log: log.Named("server"), reg: prometheus.NewRegistry()}
	s.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "magpie_papers_stored",
		Help: "Number of papers in the store.",
	}, s.storedPapers))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))

	r.GET("/healthz", s.health)
	r.GET("/papers", s.listPapers)
	r.GET("/papers/:id", s.getPaper)
	r.GET("/search", s.search)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	n, err := s.papers.Count(c.Request.Context())
	if err != nil {
		s.log.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "papers": n})
}

func (s *Server) listPapers(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	papers, err := s.papers.Recent(c.Request.Context(), limit)
	if err != nil {
		s.log.Error("listing papers failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(papers), "papers": nonNil(papers)})
}

func (s *Server) getPaper(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper id"})
		return
	}

	paper, err := s.papers.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
		return
	}
	if err != nil {
		s.log.Error("fetching paper failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, paper)
}

func (s *Server) search(c *gin.Context) {
	q := c.Query("q")
	papers, err := s.papers.Search(c.Request.Context(), q)
	if err != nil {
		s.log.Error("search failed", zap.String("query", q), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "count": len(papers), "papers": nonNil(papers)})
}

func (s *Server) storedPapers() float64 {
	n, err := s.papers.Count(context.Background())
	if err != nil {
		return 0
	}
	return float64(n)
}

func nonNil(papers []types.Paper) []types.Paper {
	if papers == nil {
		return []types.Paper{}
	}
	return papers
}

// requestLogger logs one line per request at a level chosen by status.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", strings.ToUpper(c.Request.Method)),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
