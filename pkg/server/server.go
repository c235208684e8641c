// Package server provides the public entry point for initializing the
// AI-Mammoth analysis server.
//
// This package exists in pkg/ (not internal/) so that deployments embedding
// the service can compose the handler with their own outer middleware:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/analysis"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/api"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/api/handlers"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/config"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/gigachat"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/retention"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/store"
	"github.com/SaltyFrappuccino/AI-Mammoth-API/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized analysis service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the run history store (in-memory by default).
	Store store.Store

	// Gateway is the resilient GigaChat client, exposed for health probes.
	Gateway *gigachat.Client

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration and returns
// a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg.Gateway.AuthKey == "" {
		return nil, fmt.Errorf("GIGACHAT_API_KEY is not set")
	}

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	runStore := store.NewMemoryStore()
	log.Info().Msg("In-memory run store initialized")

	var archiver retention.Archiver
	if cfg.Retention.ArchiveDir != "" {
		archiver = retention.NewLocalFileArchiver(cfg.Retention.ArchiveDir, cfg.Retention.Compress)
	}
	janitor := retention.NewJanitor(runStore, archiver, cfg.Retention.Interval)
	go janitor.Start(ctx)

	client := gigachat.NewClient(cfg.Gateway)
	log.Info().
		Str("api_base", cfg.Gateway.APIBase).
		Int("max_retries", cfg.Gateway.MaxRetries).
		Msg("Gateway client initialized")

	orch := analysis.NewOrchestrator(client, cfg.Analysis)
	log.Info().
		Str("model", cfg.Analysis.Model).
		Bool("security", cfg.Analysis.AnalyzeSecurity).
		Msg("Analysis orchestrator initialized")

	h := handlers.New(runStore, orch, client)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        runStore,
		Gateway:      client,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
