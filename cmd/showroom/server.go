package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/shell/api"
	authmw "github.com/artpar/showroom/internal/shell/api/middleware"
	"github.com/artpar/showroom/internal/shell/seed"
	"github.com/artpar/showroom/internal/shell/store"
	"github.com/artpar/showroom/internal/shell/workers"
	"github.com/artpar/showroom/internal/shell/workflow"
	"github.com/rs/cors"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitHTTPServerError = 3
	ExitSeedError       = 4
)

// =============================================================================
// Server
// =============================================================================

// Server is the showroom application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      *store.SQLiteStore
	sessions   *workflow.Registry
	reaper     *workers.SessionReaper
	logger     *slog.Logger
}

// NewServer opens the database, applies seed fixtures and wires the HTTP API.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	if err := ensureDataDir(cfg.Database.DSN); err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}

	if cfg.Auth.SharedSecret == "" {
		logger.Warn("auth.shared_secret is not set; X-User-ID and bearer identities are trusted from any client, so the server must only be reachable through the gateway")
	}

	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}
	products := store.NewProducts(s)

	if cfg.Seed.File != "" {
		if err := applySeed(cfg.Seed.File, s, logger); err != nil {
			s.Close()
			return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitSeedError}
		}
	}

	sessions := workflow.NewRegistry(workflow.RegistryConfig{
		Store:  products,
		Logger: logger,
	})

	reaper := workers.NewSessionReaper(sessions, workers.SessionReaperConfig{
		Interval:    cfg.Sessions.ReapInterval,
		IdleTimeout: cfg.Sessions.IdleTimeout,
	}, logger)

	handler := api.NewHandler(api.Config{
		Products: products,
		Sessions: sessions,
		Health:   s,
		Auth:     authmw.AuthConfig{SharedSecret: cfg.Auth.SharedSecret},
		Logger:   logger,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", auth.HeaderUserID, auth.HeaderKeyID, auth.HeaderGatewaySecret},
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      c.Handler(handler.Routes()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		sessions:   sessions,
		reaper:     reaper,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	s.reaper.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.Shutdown(context.Background())
		return &ServerError{Op: "Start", Err: err, ExitCode: ExitHTTPServerError}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.reaper.Stop()
	s.sessions.CloseAll()

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// ensureDataDir creates the parent directory of a file-backed DSN.
func ensureDataDir(dsn string) error {
	if strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return nil
}

func applySeed(path string, docs store.DocumentStore, logger *slog.Logger) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	_, err = seed.Apply(context.Background(), docs, f, logger.With("seed_file", path))
	return err
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
