// Command server runs the assistant backend: an HTTP API that manages
// assistants and their knowledge bases, and answers visitor chat messages by
// routing each one through deterministic branches (greeting, FAQ, snippet,
// cache) before falling back to a streaming generative backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/askadesk/assistant-backend/internal/config"
	httpapi "github.com/askadesk/assistant-backend/internal/http"
	"github.com/askadesk/assistant-backend/internal/llm"
	"github.com/askadesk/assistant-backend/internal/observability"
	"github.com/askadesk/assistant-backend/internal/repo"
	"github.com/askadesk/assistant-backend/internal/services"
	"github.com/askadesk/assistant-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Seed the protected demo assistant so a fresh install is usable.
	assistantSvc := &services.AssistantService{DB: db, DefaultSystemPrompt: services.DefaultSystemPrompt}
	demo, err := assistantSvc.EnsureDemo(ctx, "demo-user", services.AssistantInput{
		Name:           "Demo Assistant",
		Description:    "A sample assistant to explore the product.",
		WelcomeMessage: "Hi! Ask me anything about this demo.",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed demo assistant")
	}
	log.Info().Str("assistant_id", demo.ID).Msg("demo assistant ready")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	client := llm.NewOllamaClient(cfg.Gen.BaseURL, cfg.Gen.Model).WithTimeout(cfg.Gen.Timeout)

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, client, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
