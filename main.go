package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corewar/corewar-api/internal/graphql"
	"github.com/corewar/corewar-api/internal/server"
	"github.com/corewar/corewar-api/internal/telemetry"
	"github.com/corewar/corewar-api/internal/worker"
	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/corewar/corewar-api/pkg/docstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "corewar-api",
	Short:   "Core War hills GraphQL API and event worker",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL server",
	RunE:  runServe,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Apply hill events to the document store",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	schema, err := graphql.LoadSchema(cfg.SchemaPath)
	if err != nil {
		return err
	}

	bus, err := initBroadcaster(cfg, logger, "corewar-api")
	if err != nil {
		return err
	}
	defer bus.Close()

	clients := initClientRegistry(cfg)
	resolver := graphql.NewResolver(clients, bus, logger, metrics)
	api := graphql.NewHandler(graphql.NewExecutor(schema, resolver), logger)

	logger.Info("Starting Core War API",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("hills_url", cfg.HillsServiceURL),
		zap.Strings("query_scopes", clients.Scopes()),
	)

	srv := server.New(server.Config{Port: cfg.Port, Playground: cfg.Playground}, api, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	db, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	bus, err := initBroadcaster(cfg, logger, "corewar-worker")
	if err != nil {
		return err
	}
	defer bus.Close()

	w := worker.New(
		docstore.NewRepo[corewar.Hill](db, worker.HillsCollection),
		docstore.NewRepo[corewar.Challenge](db, worker.ChallengesCollection),
		logger,
		metrics,
	)

	logger.Info("Starting hill worker",
		zap.String("database", db.Name()),
		zap.String("queue", cfg.WorkerQueue),
		zap.String("version", cfg.Version),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx, bus, cfg.WorkerQueue)
	})
	g.Go(func() error {
		srv := server.New(server.Config{Port: cfg.WorkerPort}, nil, logger)
		return srv.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker error: %w", err)
	}
	return nil
}
