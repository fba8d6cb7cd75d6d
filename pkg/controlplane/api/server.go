package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	internalauth "github.com/shareguard/shareguard/internal/controlplane/api/auth"
	"github.com/shareguard/shareguard/internal/logger"
)

// Server provides an HTTP server for the REST/WebSocket API.
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server from config and deps.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests. When config.Auth.Enabled is true, a JWKS Validator is built
// from config.Auth and wired into deps; when false the router runs
// unauthenticated (local development only).
func NewServer(ctx context.Context, config Config, deps RouterDeps) (*Server, error) {
	config.applyDefaults()

	if config.Auth.Enabled {
		validator, err := internalauth.NewValidator(ctx, internalauth.ValidatorConfig{
			JWKSURL:  config.Auth.JWKSURL,
			Issuer:   config.Auth.Issuer,
			Audience: config.Auth.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS validator: %w", err)
		}
		validator.StartAutoRefresh(ctx, func(err error) {
			logger.Warn("JWKS key set refresh failed", "error", err)
		})
		deps.Validator = validator
	}

	router := NewRouter(deps)

	server := &http.Server{
		Addr:         config.ListenAddr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}, nil
}

// Start starts the API HTTP server and blocks until ctx is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", s.config.ListenAddr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server is configured to listen on.
func (s *Server) Addr() string {
	return s.config.ListenAddr
}
