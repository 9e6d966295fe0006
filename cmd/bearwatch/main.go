package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/raffaelramalhorosa/bear-watch/internal/config"
	"github.com/raffaelramalhorosa/bear-watch/internal/ingest"
	"github.com/raffaelramalhorosa/bear-watch/internal/metrics"
	"github.com/raffaelramalhorosa/bear-watch/internal/pipeline"
	"github.com/raffaelramalhorosa/bear-watch/internal/resolve"
	"github.com/raffaelramalhorosa/bear-watch/internal/store"
)

// bearwatch performs one full ingest cycle and exits. It takes no flags;
// configuration comes from the YAML file at BEARWATCH_CONFIG (or the XDG
// default) and the optional BEARWATCH_AI_KEY credential. Scheduling is the
// caller's job (cron or similar).
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	resolver, err := resolve.NewFromConfig(cfg.Resolver, cfg.AIKey(), logger)
	if err != nil {
		logger.Error("resolver error", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	st := store.New(cfg.DataFile)
	ingestor := ingest.New(cfg.FeedURL, cfg.Keywords, cfg.FetchTimeout, m, logger)
	pipe := pipeline.New(st, ingestor, resolver, m, logger)

	logger.Info("run starting", "feed", cfg.FeedURL, "resolver", cfg.Resolver.Type)

	added, err := pipe.Run(context.Background())
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Error("metrics write failed", "error", err)
		}
	}

	logger.Info("done", "new_records", added)
}
