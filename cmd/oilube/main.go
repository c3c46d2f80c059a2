package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/oilube/internal/alert"
	"github.com/emperorhan/oilube/internal/chain/backend"
	"github.com/emperorhan/oilube/internal/config"
	"github.com/emperorhan/oilube/internal/indexer"
	"github.com/emperorhan/oilube/internal/indexer/api"
	"github.com/emperorhan/oilube/internal/store"
	"github.com/emperorhan/oilube/internal/store/memory"
	"github.com/emperorhan/oilube/internal/store/postgres"
	"github.com/emperorhan/oilube/internal/tracing"
)

// stores groups the repositories the daemon needs from one backend.
type stores struct {
	snapshots store.SnapshotRepository
	cursors   store.CursorRepository
	writer    store.BatchCommitter
	db        *postgres.DB
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func openStores(cfg config.DBConfig, logger *slog.Logger) (*stores, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		mem := memory.New()
		logger.Warn("using in-memory snapshot store; indexed data is lost on exit")
		return &stores{snapshots: mem, cursors: mem, writer: mem}, nil

	case config.StoreDriverPostgres:
		db, err := postgres.New(postgres.Config{
			URL:                cfg.URL,
			MaxOpenConns:       cfg.MaxOpenConns,
			MaxIdleConns:       cfg.MaxIdleConns,
			ConnMaxLifetime:    cfg.ConnMaxLifetime(),
			StatementTimeoutMS: cfg.StatementTimeoutMS,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.RunMigrations(cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		snapshots := postgres.NewSnapshotRepo(db)
		cursors := postgres.NewCursorRepo(db)
		return &stores{
			snapshots: snapshots,
			cursors:   cursors,
			writer:    postgres.NewBatchWriter(db, snapshots, cursors),
			db:        db,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func alertFromConfig(cfg config.AlertConfig, logger *slog.Logger) alert.Alerter {
	return alert.FromSinks(cfg.SlackWebhookURL, cfg.WebhookURL, cfg.Cooldown(), logger)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	logger.Info("starting oilube",
		"ledger_backend", cfg.Ledger.Backend,
		"ledger_network", cfg.Ledger.Network,
		"contract", cfg.Ledger.ContractAddress,
		"store_driver", cfg.DB.Driver,
		"start_block", cfg.Indexer.StartBlock,
		"batch_blocks", cfg.Indexer.BatchBlocks,
		"confirmations", cfg.Indexer.Confirmations,
		"port", cfg.Server.Port,
	)

	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName: "oilube",
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Endpoint != "" {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger, err := backend.Open(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}

	st, err := openStores(cfg.DB, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	pipeline := indexer.New(indexer.Config{
		StartBlock:         cfg.Indexer.StartBlock,
		BatchBlocks:        cfg.Indexer.BatchBlocks,
		Confirmations:      cfg.Indexer.Confirmations,
		PollInterval:       cfg.Indexer.PollInterval(),
		RetryMaxAttempts:   cfg.Indexer.RetryMaxAttempts,
		UnhealthyThreshold: cfg.Indexer.UnhealthyThreshold,
		LagAlertBlocks:     cfg.Indexer.LagAlertBlocks,
	}, ledger, st.cursors, st.writer, alertFromConfig(cfg.Alert, logger), logger)

	limiter := api.NewRateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	server := api.NewServer(st.snapshots, logger,
		api.WithHealthProvider(pipeline.Health()),
		api.WithRateLimit(limiter),
		api.WithSnapshotCache(cfg.Server.SnapshotCacheSize),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runServer(gCtx, cfg.Server.Port, server.Handler(), logger)
	})

	g.Go(func() error {
		return pipeline.Run(gCtx)
	})

	if st.db != nil {
		g.Go(func() error {
			st.db.RunPoolReporter(gCtx, cfg.DB.PoolStatsInterval())
			return nil
		})
	}

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("oilube exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("oilube shut down gracefully")
}

func runServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("query server shutdown error", "error", err)
		}
	}()

	logger.Info("query server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("query server: %w", err)
	}
	return nil
}
