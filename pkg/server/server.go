package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/harrisonrobin/applytrack/pkg/applicant"
	"github.com/harrisonrobin/applytrack/pkg/supabase"
	"golang.org/x/sync/singleflight"
)

// Loader produces the full record list. *applicant.Fetcher implements it.
type Loader interface {
	FetchAll(ctx context.Context) ([]applicant.Record, error)
}

// Verifier resolves a bearer token to a user. *session.Manager implements it.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*supabase.User, error)
}

// Server serves the dashboard API over an in-memory record list that is
// replaced wholesale on every successful refresh.
type Server struct {
	loader   Loader
	verifier Verifier
	log      *log.Logger
	now      func() time.Time

	mu          sync.RWMutex
	records     []applicant.Record
	loaded      bool
	refreshedAt time.Time

	group  singleflight.Group
	router *gin.Engine
}

// New builds the server. A nil verifier leaves the API unauthenticated.
func New(loader Loader, verifier Verifier, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		loader:   loader,
		verifier: verifier,
		log:      logger,
		now:      time.Now,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(s.log))
	router.Use(CORSMiddleware())

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	if s.verifier != nil {
		api.Use(AuthMiddleware(s.verifier, s.log))
	}
	api.GET("/applications", s.listApplications)
	api.GET("/applications/export.xlsx", s.exportApplications)
	api.POST("/refresh", s.refresh)
	api.GET("/me", s.me)
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Debug("received shutdown signal, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server shutdown completed")
	return nil
}

// Refresh reloads the record list. Concurrent callers share one fetch. On
// failure the previous list is kept.
func (s *Server) Refresh(ctx context.Context) ([]applicant.Record, error) {
	v, err, shared := s.group.Do("refresh", func() (any, error) {
		// One caller going away must not abort the fetch for the others.
		records, err := s.loader.FetchAll(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.records = records
		s.loaded = true
		s.refreshedAt = s.now()
		s.mu.Unlock()
		s.log.Info("records refreshed", "count", len(records))
		return records, nil
	})
	if err != nil {
		s.log.Error("refresh failed", "err", err, "shared", shared)
		return nil, err
	}
	return v.([]applicant.Record), nil
}

// Records returns the current list, loading it on first use.
func (s *Server) Records(ctx context.Context) ([]applicant.Record, error) {
	s.mu.RLock()
	records, loaded := s.records, s.loaded
	s.mu.RUnlock()
	if loaded {
		return records, nil
	}
	return s.Refresh(ctx)
}

func (s *Server) status() (loaded bool, count int, at time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded, len(s.records), s.refreshedAt
}
