// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/api/alerts"
	"github.com/good-yellow-bee/pulsewatch/internal/api/escalations"
	"github.com/good-yellow-bee/pulsewatch/internal/api/health"
	"github.com/good-yellow-bee/pulsewatch/internal/api/recommendations"
	"github.com/good-yellow-bee/pulsewatch/internal/api/scores"
	"github.com/good-yellow-bee/pulsewatch/internal/escalation"
	"github.com/good-yellow-bee/pulsewatch/internal/risk"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address            string
	TLSEnabled         bool
	TLSCertFile        string
	TLSKeyFile         string
	RateLimitPerMinute int
	Verbose            bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
}

// Server is the HTTP API server.
type Server struct {
	config *Config

	storage storage.Storage
	engine  *escalation.Engine

	scores          *scores.Handler
	alerts          *alerts.Handler
	recommendations *recommendations.Handler
	escalations     *escalations.Handler
	healthHandler   *health.Handler

	server *http.Server
}

// New creates an API server wired to the escalation engine and a validated
// risk configuration.
func New(cfg *Config, store storage.Storage, engine *escalation.Engine, riskCfg *risk.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("escalation engine is required")
	}
	if riskCfg == nil {
		return nil, fmt.Errorf("risk configuration is required")
	}

	cfg.SetDefaults()

	scoresHandler, err := scores.NewHandler(riskCfg)
	if err != nil {
		return nil, fmt.Errorf("score handler: %w", err)
	}
	alertsHandler, err := alerts.NewHandler(riskCfg)
	if err != nil {
		return nil, fmt.Errorf("alert handler: %w", err)
	}
	recsHandler, err := recommendations.NewHandler(riskCfg)
	if err != nil {
		return nil, fmt.Errorf("recommendation handler: %w", err)
	}
	escalationsHandler, err := escalations.NewHandler(engine, riskCfg)
	if err != nil {
		return nil, fmt.Errorf("escalation handler: %w", err)
	}

	s := &Server{
		config:          cfg,
		storage:         store,
		engine:          engine,
		scores:          scoresHandler,
		alerts:          alertsHandler,
		recommendations: recsHandler,
		escalations:     escalationsHandler,
		healthHandler:   health.NewHandler(),
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.TLSEnabled {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	return s, nil
}

// ApplyRiskConfig swaps a reloaded risk configuration into every component
// that depends on it. The config must already be validated.
func (s *Server) ApplyRiskConfig(cfg *risk.Config) error {
	if err := s.scores.SetConfig(cfg); err != nil {
		return err
	}
	if err := s.alerts.SetConfig(cfg); err != nil {
		return err
	}
	if err := s.recommendations.SetConfig(cfg); err != nil {
		return err
	}
	if err := s.escalations.SetConfig(cfg); err != nil {
		return err
	}
	s.engine.SetConfig(cfg.Escalation)
	return nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		var err error
		if s.config.TLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
