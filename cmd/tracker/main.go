package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rmoroz/mexc-tracker/internal/bot"
	"github.com/rmoroz/mexc-tracker/internal/config"
	"github.com/rmoroz/mexc-tracker/internal/database"
	"github.com/rmoroz/mexc-tracker/internal/exchange"
	"github.com/rmoroz/mexc-tracker/internal/history"
	"github.com/rmoroz/mexc-tracker/internal/notify"
	"github.com/rmoroz/mexc-tracker/internal/store"
	"github.com/rmoroz/mexc-tracker/internal/stream"
	"github.com/rmoroz/mexc-tracker/internal/telegram"
	"github.com/rmoroz/mexc-tracker/internal/tracker"
	"github.com/rmoroz/mexc-tracker/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/tracker.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("mexc-tracker " + version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting mexc-tracker",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"interval", cfg.Tracker.Interval,
		"data_dir", cfg.Tracker.DataDir,
		"telegram", cfg.Telegram.Token != "",
		"history", cfg.History.Enabled,
		"stream", cfg.Stream.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// State store
	st, err := store.New(cfg.Tracker.DataDir, logger)
	if err != nil {
		logger.Error("failed to open state store", "error", err)
		os.Exit(1)
	}

	// Exchange clients
	mexc := exchange.NewMEXCClient(
		exchange.WithBaseURL(cfg.MEXC.BaseURL),
		exchange.WithTimeout(cfg.MEXC.Timeout),
		exchange.WithRetries(cfg.MEXC.MaxRetries, time.Second),
		exchange.WithLogger(logger),
	)
	binance := exchange.NewBinanceClient(
		exchange.WithBaseURL(cfg.Binance.BaseURL),
		exchange.WithTimeout(cfg.Binance.Timeout),
		exchange.WithRetries(cfg.Binance.MaxRetries, time.Second),
		exchange.WithLogger(logger),
	)
	fetcher := exchange.NewFetcher(mexc, binance, logger)

	// Notification sinks
	var sinks []notify.Sink
	var tgClient *telegram.Client

	if cfg.Telegram.Token != "" {
		tgClient = telegram.NewClient(cfg.Telegram.Token, telegram.WithLogger(logger))
		sinks = append(sinks, notify.NewTelegramSink(tgClient, cfg.Telegram.ChatID))
	} else {
		logger.Warn("no telegram token configured, events go to the log only")
		sinks = append(sinks, notify.NewLogSink(logger))
	}

	// Optional change-history writer
	var histWriter *history.Writer
	if cfg.History.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.History.Database.Host,
			"database", cfg.History.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.History.Database)
		if err != nil {
			logger.Error("failed to connect to history database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		histWriter = history.NewWriter(history.Config{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
			BufferSize:    cfg.History.BufferSize,
		}, pool, logger)

		if err := histWriter.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure history schema", "error", err)
			os.Exit(1)
		}
		if err := histWriter.Start(ctx); err != nil {
			logger.Error("failed to start history writer", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, histWriter)
	}

	sink := notify.NewFanout(logger, sinks...)

	// Tracker
	trackerCfg := tracker.DefaultConfig()
	trackerCfg.Interval = cfg.Tracker.Interval
	trackerCfg.DispatchTimeout = cfg.Tracker.DispatchTimeout
	tr := tracker.New(trackerCfg, fetcher, st, sink, logger)

	// Optional live watch
	var watcher *stream.Watcher
	if cfg.Stream.Enabled {
		streamCfg := stream.DefaultConfig()
		streamCfg.URL = cfg.Stream.URL
		streamCfg.PingInterval = cfg.Stream.PingInterval
		streamCfg.ReadTimeout = cfg.Stream.ReadTimeout
		streamCfg.ReconnectMin = cfg.Stream.ReconnectMin
		streamCfg.ReconnectMax = cfg.Stream.ReconnectMax

		watcher = stream.New(streamCfg, func() {
			if _, err := tr.TriggerCheck(); err != nil {
				logger.Error("early check failed", "error", err)
			}
		}, logger)
		tr.OnCommit(watcher.SetKnown)
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(tr, watcher, histWriter),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Start tracker
	if err := tr.Start(ctx); err != nil {
		logger.Error("failed to start tracker", "error", err)
		os.Exit(1)
	}

	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			logger.Error("failed to start live watch", "error", err)
			os.Exit(1)
		}
	}

	// Optional command bot
	var commandBot *bot.Bot
	if tgClient != nil {
		botCfg := bot.DefaultConfig()
		botCfg.PollTimeout = cfg.Telegram.PollTimeout
		botCfg.CheckInterval = cfg.Tracker.Interval
		botCfg.AllowedChats = cfg.Telegram.AllowedChats

		commandBot = bot.New(botCfg, tgClient, tr, logger)
		if err := commandBot.Start(ctx); err != nil {
			logger.Error("failed to start command bot", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("mexc-tracker running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if commandBot != nil {
		commandBot.Stop(shutdownCtx)
	}
	if watcher != nil {
		watcher.Stop(shutdownCtx)
	}
	if err := tr.Stop(shutdownCtx); err != nil {
		logger.Error("tracker shutdown error", "error", err)
	}
	if histWriter != nil {
		histWriter.Stop(shutdownCtx)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("mexc-tracker stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(tr *tracker.Tracker, watcher *stream.Watcher, histWriter *history.Writer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := tr.Status()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		health.Components["tracker"] = map[string]any{
			"state":          status.State,
			"cycle":          status.Cycle,
			"unique":         status.UniqueCount,
			"last_commit_at": status.LastCommitAt,
		}
		if status.LastError != "" {
			health.Status = "degraded"
			health.Components["tracker"].(map[string]any)["last_error"] = status.LastError
		}

		if watcher != nil {
			connected := watcher.IsConnected()
			health.Components["stream"] = map[string]any{"connected": connected}
			if !connected {
				health.Status = "degraded"
			}
		}

		if histWriter != nil {
			health.Components["history"] = histWriter.Stats()
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/snapshot", func(w http.ResponseWriter, r *http.Request) {
		symbols := tr.UniqueSymbols()
		sort.Strings(symbols)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":   len(symbols),
			"symbols": symbols,
		})
	})

	return mux
}
