// SPDX-License-Identifier: MIT

// Command papercastd is the studio daemon: it serves the library API,
// runs the synthesis worker and owns the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/papercast-dev/papercast/internal/api"
	"github.com/papercast-dev/papercast/internal/audio"
	"github.com/papercast-dev/papercast/internal/config"
	"github.com/papercast-dev/papercast/internal/ingest"
	"github.com/papercast-dev/papercast/internal/library"
	pclog "github.com/papercast-dev/papercast/internal/log"
	"github.com/papercast-dev/papercast/internal/store"
	"github.com/papercast-dev/papercast/internal/tts"
	"github.com/papercast-dev/papercast/internal/worker"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the real configuration is loaded.
	pclog.Configure(pclog.Config{Level: "info", Service: "papercast", Version: version})
	logger := pclog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	pclog.Configure(pclog.Config{Level: cfg.LogLevel, Service: "papercast", Version: version})
	logger = pclog.WithComponent("daemon")
	logger.Info().
		Str("event", "daemon.start").
		Str("data_dir", cfg.DataDir).
		Str("listen", cfg.ListenAddr).
		Msg("starting papercastd")

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) error {
	for _, dir := range []string{cfg.DataDir, cfg.AudioDir(), cfg.SourcesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	resumable, err := st.RecoverInterrupted(ctx, logger)
	if err != nil {
		return fmt.Errorf("startup recovery: %w", err)
	}

	voices := tts.NewCatalog(cfg.VoicesDir, logger)
	if err := voices.Watch(); err != nil {
		logger.Warn().Err(err).Msg("voice manifest watch unavailable")
	}
	defer func() { _ = voices.Close() }()

	engine, err := tts.NewCommandEngine(cfg.TTSCommand, voices, logger)
	if err != nil {
		return fmt.Errorf("tts engine: %w", err)
	}

	asm := audio.NewAssembler(cfg.AudioDir(), nil, logger)
	wkr := worker.New(st, engine, asm, logger)
	for _, id := range resumable {
		wkr.Enqueue(id)
	}

	ing := ingest.New(ingest.Config{
		FetchTimeout: cfg.FetchTimeout,
		GitTimeout:   cfg.GitTimeout,
		MaxBytes:     cfg.MaxFetchBytes,
	}, logger)
	lib := library.New(st, ing, voices, asm, wkr, cfg.SourcesDir(), cfg.UndoWindow, logger)

	server := api.New(lib, wkr, api.Options{
		IngestRPM: cfg.IngestRPM,
		Metrics:   cfg.MetricsOn,
	}, logger)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wkr.Run(gctx)
		return nil
	})
	g.Go(func() error {
		lib.Janitor(gctx, janitorInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("event", "http.listen").Str("addr", cfg.ListenAddr).Msg("api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
