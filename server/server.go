// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/poiesic/docrag/query"
)

// Responder answers a single question.
type Responder interface {
	Respond(ctx context.Context, message string) (string, error)
}

// MonitoredResponder is a Responder that reports pipeline stages to a
// query.Monitor. The server feeds those stages into its metrics.
type MonitoredResponder interface {
	Responder
	RespondWithMonitor(ctx context.Context, message string, monitor query.Monitor) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	// QueryTimeout bounds each /query call. Zero means no limit.
	QueryTimeout time.Duration

	// BodyLimit caps request bodies, e.g. "1M". Empty means no limit.
	BodyLimit string
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{BodyLimit: "1M"}
}

// Server exposes the query pipeline over HTTP.
type Server struct {
	echo      *echo.Echo
	responder Responder
	metrics   *Metrics
	config    Config
	logger    *slog.Logger
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics replaces the server's metrics collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// New creates a Server.
func New(responder Responder, cfg Config, opts ...Option) (*Server, error) {
	if responder == nil {
		return nil, ErrResponderRequired
	}
	if cfg.QueryTimeout < 0 {
		return nil, errors.New("query timeout cannot be negative")
	}

	s := &Server{
		responder: responder,
		config:    cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.logger = s.logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(s.metrics.middleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.echo = e
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	var queryMiddleware []echo.MiddlewareFunc
	if s.config.QueryTimeout > 0 {
		queryMiddleware = append(queryMiddleware, middleware.ContextTimeout(s.config.QueryTimeout))
	}

	s.echo.POST("/query", s.handleQuery, queryMiddleware...)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// handleQuery answers the raw request body as a question.
func (s *Server) handleQuery(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	var answer string
	if monitored, ok := s.responder.(MonitoredResponder); ok {
		answer, err = monitored.RespondWithMonitor(c.Request().Context(), string(body), s.metrics.queryMonitor())
	} else {
		answer, err = s.responder.Respond(c.Request().Context(), string(body))
	}
	if err != nil {
		s.logger.Error("query failed",
			"err", err,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer query").WithInternal(err)
	}

	return c.String(http.StatusOK, answer)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// requestLogger logs every request once its status is known.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		}
	}
}

// statusOf reports the status a request will finish with.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// Start starts the HTTP server. It blocks until the server stops and
// returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
