// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package httpapi exposes the authentication core over HTTP. It is a thin
// adapter: request decoding, status mapping, and nothing else.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/sigilauth/sigil/internal/auth"
	"github.com/sigilauth/sigil/internal/observability"
)

// Server serves the public authentication API.
type Server struct {
	addr       string
	exposeErrs bool
	authSvc    *auth.Service
	metrics    *observability.Metrics
	logger     *slog.Logger

	echo       *echo.Echo
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server for the given auth service.
// exposeErrs controls whether 500 responses carry the error kind and
// message; production configurations must pass false. metrics may be nil.
func NewServer(addr string, authSvc *auth.Service, metrics *observability.Metrics, exposeErrs bool, logger *slog.Logger) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Code("HTTP_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:       addr,
		exposeErrs: exposeErrs,
		authSvc:    authSvc,
		metrics:    metrics,
		logger:     logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(middleware.Recover())

	g := e.Group("/auth")
	g.POST("/users", s.createUser)
	g.GET("/users/:username", s.getUser)
	g.POST("/token", s.issueToken)

	s.echo = e
	return s, nil
}

// Handler returns the underlying HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving the API. It returns an error channel that receives
// any serve error after startup; the channel is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
