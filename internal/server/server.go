// Package server exposes the relevance engine and the run history over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/relevance"
	"github.com/spigell/hh-matcher/internal/store"
)

const (
	DefaultAddr = ":8080"

	maxBodyBytes    = 10 << 20
	shutdownTimeout = 10 * time.Second
)

// RunStore is the part of the history store used by the API.
type RunStore interface {
	SaveRun(ctx context.Context, run *store.Run) error
	ListRuns(ctx context.Context, limit int) ([]*store.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
}

// Server serves the match API. The store is optional; without it runs are
// not recorded and the history routes answer 404.
type Server struct {
	engine *relevance.Engine
	runs   RunStore
	logger *zap.Logger
	router *gin.Engine
}

// New creates a Server and registers its routes.
func New(engine *relevance.Engine, runs RunStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine: engine,
		runs:   runs,
		logger: logger,
	}

	router := gin.New()
	router.Use(requestLogger(logger), recovery(logger), bodyLimit(maxBodyBytes))

	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/match", s.match)
		if runs != nil {
			v1.GET("/runs", s.listRuns)
			v1.GET("/runs/:id", s.getRun)
		}
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
