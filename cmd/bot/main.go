package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"news_bot/internal/archive"
	"news_bot/internal/bot"
	"news_bot/internal/config"
	"news_bot/internal/matrix"
	"news_bot/internal/store"
)

func main() {
	cfg, err := config.Load(envOrDefault("NEWSBOT_CONFIG", "./config.yaml"))
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	password := os.Getenv("NEWSBOT_PASSWORD")
	if password == "" {
		slog.Error("NEWSBOT_PASSWORD is not set")
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	for _, path := range []string{cfg.StorePath, cfg.ArchivePath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
	}

	newsStore, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Error("open news store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}

	arch, err := archive.Open(cfg.ArchivePath)
	if err != nil {
		log.Error("open report archive", "path", cfg.ArchivePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = arch.Close() }()

	client, err := matrix.NewClient(matrix.ClientConfig{
		HomeserverURL: cfg.HomeserverURL,
		Logger:        log,
	})
	if err != nil {
		log.Error("create matrix client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Login(ctx, cfg.BotUserID, password); err != nil {
		log.Error("matrix login", "error", err)
		os.Exit(1)
	}

	bridge := matrix.NewBridge(client, cfg, log)
	b := bot.New(cfg, newsStore, arch, bridge, log)

	log.Info("starting bot", "user_id", cfg.BotUserID)

	if err := bridge.Run(ctx, b); err != nil && ctx.Err() == nil {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
