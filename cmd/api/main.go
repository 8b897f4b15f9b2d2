// Package main provides the entry point for the wizard API server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/droidwrap/droidwrap/internal/analysis"
	"github.com/droidwrap/droidwrap/internal/api"
	"github.com/droidwrap/droidwrap/internal/auth"
	"github.com/droidwrap/droidwrap/internal/secrets"
	"github.com/droidwrap/droidwrap/internal/shutdown"
	"github.com/droidwrap/droidwrap/internal/store"
	"github.com/droidwrap/droidwrap/internal/store/memory"
	pgstore "github.com/droidwrap/droidwrap/internal/store/postgres"
	"github.com/droidwrap/droidwrap/internal/wizard"
	"github.com/droidwrap/droidwrap/pkg/config"
	"github.com/droidwrap/droidwrap/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Run store: Postgres when configured, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseDSN != "" {
		pg, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.Logger)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		st = pg
	} else {
		log.Warn("DATABASE_URL not set, run history will not survive restarts")
		st = memory.NewMemoryStore()
	}
	defer st.Close()

	// Keystore passphrase encryption, if age keys are configured.
	var secretsSvc *secrets.Service
	if cfg.Secrets.AgePublicKey != "" || cfg.Secrets.AgePrivateKey != "" {
		secretsSvc, err = secrets.NewService(&secrets.Config{
			AgePublicKey:  cfg.Secrets.AgePublicKey,
			AgePrivateKey: cfg.Secrets.AgePrivateKey,
		}, log.Logger)
		if err != nil {
			log.Error("failed to initialize secrets service", "error", err)
			os.Exit(1)
		}
		log.Info("secrets service initialized",
			"can_encrypt", secretsSvc.CanEncrypt(),
			"can_decrypt", secretsSvc.CanDecrypt(),
		)
	} else {
		log.Warn("age keys not configured, keystore passphrases will not be persisted")
	}

	authService := auth.NewService(&auth.Config{
		JWTSecret:         []byte(cfg.JWTSecret),
		AdminPasswordHash: cfg.AdminPasswordHash,
		TokenExpiry:       cfg.JWTExpiry,
	}, log.Logger)
	if !authService.Enabled() {
		log.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	// Analysis backend: the hosted model when a key is configured, the
	// offline heuristic otherwise.
	var gen analysis.TextGenerator
	if cfg.AI.APIKey != "" {
		gen = analysis.NewGeminiClient(analysis.GeminiConfig{
			Endpoint: cfg.AI.Endpoint,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			Timeout:  cfg.AI.Timeout,
		}, log.Logger)
	} else {
		log.Info("AI_API_KEY not set, using offline heuristic analysis")
		gen = analysis.NewHeuristicGenerator()
	}
	adapter := analysis.NewAdapter(gen, log.Logger)

	manager := wizard.NewManager(wizard.Deps{
		Store:         st,
		Adapter:       adapter,
		Secrets:       secretsSvc,
		Logger:        log.Logger,
		TickInterval:  cfg.Build.TickInterval,
		WarnThreshold: cfg.Build.WarnThreshold,
		ReportTail:    cfg.Build.ReportTail,
	})

	server := api.NewServer(cfg, st, manager, authService, log.Logger)

	coordinator := shutdown.NewCoordinator(log.Logger, shutdown.WithTimeout(cfg.ShutdownTimeout))
	coordinator.Register(manager)
	coordinator.Register(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Run(); err != nil {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	code := coordinator.Wait(ctx)
	log.Info("server stopped")
	os.Exit(code)
}
