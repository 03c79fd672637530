// Command server runs the semstore semantic document store.
//
// Configuration is layered: built-in defaults, an optional YAML config
// file (-config flag, SEMSTORE_CONFIG, ./config.yaml, or
// /etc/semstore/config.yaml), and SEMSTORE_* environment variable
// overrides. See pkg/config for the full reference.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semstore-dev/semstore/pkg/config"
	"github.com/semstore-dev/semstore/pkg/debug"
	"github.com/semstore-dev/semstore/pkg/embedding"
	"github.com/semstore-dev/semstore/pkg/pipeline"
	"github.com/semstore-dev/semstore/pkg/storage/memory"
	"github.com/semstore-dev/semstore/pkg/storage/postgres"
	"github.com/semstore-dev/semstore/pkg/storage/sqlite"
	"github.com/semstore-dev/semstore/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	debug.Init("", "")
	logger := slog.Default()

	embedder := embedding.NewClient(embedding.Config{
		URL:     cfg.Embedding.URL,
		Model:   cfg.Embedding.Model,
		APIKey:  cfg.Embedding.APIKey,
		Timeout: cfg.Embedding.Timeout,
	})

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()
	logger.Info("storage ready", "type", cfg.Storage.Type)

	ingestor := pipeline.NewIngestor(embedder, store, logger)
	retriever := pipeline.NewRetriever(embedder, store, logger)
	lister := pipeline.NewLister(store)

	opts := []transport.ServerOption{
		transport.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transport.WithMaxBodySize(cfg.Server.MaxBodySize),
		transport.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transport.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transport.WithLogger(logger),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transport.WithMetrics(cfg.Observability.Metrics.Path, promhttp.Handler()))
	}

	srv := transport.NewServer(ingestor, retriever, lister, store, opts...)
	return srv.ListenAndServe()
}

// newStore constructs the document store selected by the configuration.
func newStore(cfg *config.Config) (pipeline.DocumentStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Storage.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(ctx, cfg.Storage.SQLite.Path)
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
