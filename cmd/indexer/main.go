package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/cypherlabs/cypher-indexer/service/config"
	"github.com/cypherlabs/cypher-indexer/service/decode"
	"github.com/cypherlabs/cypher-indexer/service/ingest"
	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/nats"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
	"github.com/cypherlabs/cypher-indexer/service/server"
	"github.com/cypherlabs/cypher-indexer/service/solana"
	"github.com/cypherlabs/cypher-indexer/service/state"
	"github.com/cypherlabs/cypher-indexer/service/storage"
	"github.com/cypherlabs/cypher-indexer/service/wasm"
)

func main() {
	// Load and validate configuration from environment.
	// This fails fast if any required config is missing or invalid.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting indexer",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(nil)

	// Optional operator hook runs before anything else touches storage.
	if cfg.WASMModulePath != "" {
		if err := wasm.RunStartup(ctx, cfg.WASMModulePath, logger); err != nil {
			logger.Error("startup wasm module failed", "path", cfg.WASMModulePath, "error", err)
			os.Exit(1)
		}
	}

	// Durable backends.
	clickhouseBackend, err := storage.NewClickHouseBackend(ctx, cfg.ClickHouseURL, logger)
	if err != nil {
		logger.Error("failed to connect to clickhouse", "error", err)
		os.Exit(1)
	}
	defer clickhouseBackend.Close()

	bigtableBackend, err := storage.NewBigtableBackend(ctx, cfg.BigtableProjectID, cfg.BigtableInstanceID, cfg.BigtableAppProfile, logger)
	if err != nil {
		logger.Error("failed to connect to bigtable", "error", err)
		os.Exit(1)
	}
	defer bigtableBackend.Close()

	backends := []storage.Backend{clickhouseBackend, bigtableBackend}

	if cfg.DatabaseURL != "" {
		pgBackend, err := storage.NewPostgresBackend(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgBackend.Close()
		backends = append(backends, pgBackend)
	}

	// Cache and blob store.
	cache, err := storage.NewRedisCache(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	blobs, err := storage.NewMinioBlobStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.MinioBucket,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to blob store", "error", err)
		os.Exit(1)
	}

	facade := storage.NewFacade(backends, bigtableBackend, logger, storage.Options{
		Cache:    cache,
		Blobs:    blobs,
		CacheTTL: cfg.CacheTTL,
		Metrics:  m,
	})

	// Notifications.
	publisher, err := nats.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Pipeline.
	table := state.NewTable()
	processor := pipeline.NewProcessor(facade, table, publisher, logger, m)

	// Ledger clients.
	rpcClient := solana.NewRPCClient(cfg.SolanaRPCURL)
	ledger := solana.NewClient(rpcClient, cfg.SolanaRPCURL, m, logger)

	subscriber, err := solana.NewLogSubscriber(ctx, cfg.SolanaWSURL, logger)
	if err != nil {
		logger.Error("failed to connect to ledger websocket", "error", err)
		os.Exit(1)
	}
	defer subscriber.Close()

	// Ingestion adapters.
	owners := make([]solanago.PublicKey, 0, len(cfg.PluginAccountOwners))
	for _, raw := range cfg.PluginAccountOwners {
		owner, err := solanago.PublicKeyFromBase58(raw)
		if err != nil {
			logger.Error("invalid plugin account owner", "owner", raw, "error", err)
			os.Exit(1)
		}
		owners = append(owners, owner)
	}

	sources := []ingest.Source{
		ingest.NewPluginAdapter(cfg.PluginQueueSize, owners, logger, m),
		ingest.NewBlockPoller(ledger, cfg.PollInterval, cfg.PollStartSlot, logger, m),
		ingest.NewLogListener(subscriber, ledger,
			[]solanago.PublicKey{decode.CypherProgramID, decode.AssociatedCypherProgramID},
			logger, m),
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src ingest.Source) {
			defer wg.Done()
			logger.Info("starting ingestion source", "source", src.Name())
			if err := src.Run(ctx, processor); err != nil && ctx.Err() == nil {
				logger.Error("ingestion source exited", "source", src.Name(), "error", err)
				stop()
			}
		}(src)
	}

	// Query API.
	httpServer := server.New(cfg.ServerAddr, facade, table, m, logger)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}

	wg.Wait()
	logger.Info("indexer shutdown complete")
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
