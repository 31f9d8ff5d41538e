package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/api"
	"github.com/examtrace/proctor-agent/internal/config"
	"github.com/examtrace/proctor-agent/internal/guard"
	"github.com/examtrace/proctor-agent/internal/journal"
	"github.com/examtrace/proctor-agent/internal/logger"
	"github.com/examtrace/proctor-agent/internal/page"
	"github.com/examtrace/proctor-agent/internal/session"
	"github.com/examtrace/proctor-agent/internal/ui"
	"github.com/examtrace/proctor-agent/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("api", cfg.APIBaseURL).
		Str("ingest", cfg.IngestAddr).
		Msg("Starting proctor agent")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Persisted Session ────────────────────────────────────────
	store := session.NewStore(cfg.SessionFile, log)
	if err := store.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load session state")
	}

	// ─── Open Capture Journal ──────────────────────────────────────────
	// Optional: the agent still proctors without a local audit trail.
	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Warn().Err(err).Msg("Capture journal unavailable")
		jnl = nil
	} else {
		defer jnl.Close()
	}

	// ─── Wire Components ───────────────────────────────────────────────
	client := api.New(cfg.APIBaseURL, log)
	panel := ui.NewConsole()
	input := page.NewStdinInput()
	router := page.NewRouter(cfg, client, store, jnl, panel, input, log)

	// ─── Handle Signals ────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()

	// ─── Run Pages ─────────────────────────────────────────────────────
	// The guard routes the start page from the persisted session: a fresh
	// run lands on login, a live session lands on its role home.
	if err := router.Run(ctx, guard.PageLogin); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Agent exited with error")
		os.Exit(1)
	}

	log.Info().Msg("Agent stopped")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
