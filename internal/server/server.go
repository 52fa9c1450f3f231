// Package server exposes the scan engine, settings and portfolio over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"AssetJudge/internal/metrics"
	"AssetJudge/internal/model"
	"AssetJudge/internal/portfolio"
	"AssetJudge/internal/recorder"
	"AssetJudge/internal/scanner"
	"AssetJudge/internal/settings"
)

// LiveScanner runs a full collect-and-grade scan.
type LiveScanner interface {
	RunScan(ctx context.Context) (*model.ScanResult, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Orchestrator *scanner.Orchestrator
	Settings     *settings.Store
	Portfolio    *portfolio.Manager
	Recorder     recorder.Recorder
	// Live may be nil, in which case POST /api/v1/scan/run is unavailable.
	Live    LiveScanner
	Metrics *metrics.Registry

	validate *validator.Validate
}

// New creates a Server.
func New(orch *scanner.Orchestrator, st *settings.Store, pm *portfolio.Manager, rec recorder.Recorder, live LiveScanner, m *metrics.Registry) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Server{
		Orchestrator: orch,
		Settings:     st,
		Portfolio:    pm,
		Recorder:     rec,
		Live:         live,
		Metrics:      m,
		validate:     validator.New(),
	}
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/scan", s.Scan)
		api.POST("/scan/run", s.RunScan)
		api.GET("/scan/latest", s.LatestScan)
		api.GET("/scans", s.RecentScans)

		api.GET("/settings", s.GetSettings)
		api.PUT("/settings", s.UpdateSettings)

		api.GET("/portfolio", s.GetPortfolio)
		api.POST("/portfolio", s.UpsertHolding)
		api.PUT("/portfolio/equity", s.SetEquity)
		api.DELETE("/portfolio/:id", s.RemoveHolding)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
