package main

import (
	"chatterm/contract"
	"chatterm/errors"
	"chatterm/internal"
	"chatterm/moderation"
	"chatterm/observability"
	"chatterm/runtime"
	"chatterm/runtime/workers"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives or the
// listener fails.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation (optional)
	censor, err := buildCensor(log, config)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	// 3. Core
	promRegistry := prometheus.NewRegistry()
	monitoring := observability.NewMonitoring(promRegistry)
	registry := runtime.NewRegistry(config.MaxNameAttempts, config.NameSuffixRange)
	broadcaster := runtime.NewBroadcaster(log, registry, monitoring)
	router := runtime.NewCommandRouter(log, registry, broadcaster, censor, monitoring, config.ShowTimestamps)
	lifecycle := runtime.NewLifecycle(log, registry, broadcaster, router, monitoring,
		config.HandshakeAttempts, config.HandshakeTimeout)
	listener := runtime.NewListener(log, config.Address(), lifecycle, registry,
		config.MaxLineLength, config.WriteTimeout, config.ShutdownTimeout)

	// 4. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval, errors.ErrListener)
	sup.Add(listener, workers.NewStatsWorker(log, monitoring, config.StatsInterval))
	if config.MetricsAddr != "" {
		sup.Add(observability.NewMetricsServer(log, config.MetricsAddr, promRegistry, func() map[string]any {
			return map[string]any{
				"stats":   monitoring.GetLatest(),
				"members": registry.Snapshot(),
			}
		}))
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Run until Stop or Error
	if err := sup.Run(ctx); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}

// buildCensor returns nil when no dictionary is configured.
func buildCensor(log *slog.Logger, config internal.Config) (contract.Censor, error) {
	if config.CensoredDir == "" && len(config.CensoredWordList()) == 0 {
		return nil, nil
	}
	var fsys fs.FS
	if config.CensoredDir != "" {
		fsys = os.DirFS(config.CensoredDir)
	}
	data, err := moderation.LoadWords(fsys, ".", config.CensoredWordList())
	if err != nil {
		return nil, err
	}
	charReplacement, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)), "languages", data.Languages)
	moderator, err := moderation.NewModerator(data.Words, charReplacement)
	if err != nil {
		return nil, err
	}
	return moderator, nil
}
