package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shardhub/internal/config"
	"shardhub/internal/conn"
	"shardhub/internal/dialect"
	"shardhub/internal/health"
	httpserver "shardhub/internal/http"
	"shardhub/internal/logging"
	"shardhub/internal/migrate"
	"shardhub/internal/routing"
	"shardhub/internal/schema"
	"shardhub/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	tf, err := config.LoadTopologyFile(cfg.TopologyPath)
	if err != nil {
		logger.Error("topology load failed", "path", cfg.TopologyPath, "error", err)
		os.Exit(1)
	}
	topo, err := tf.BuildTopology()
	if err != nil {
		logger.Error("topology build failed", "error", err)
		os.Exit(1)
	}
	strategy, err := tf.BuildStrategy(topo)
	if err != nil {
		logger.Error("routing strategy build failed", "error", err)
		os.Exit(1)
	}
	router := routing.NewRouter(topo, strategy)

	d, err := dialect.ForProvider(tf.Provider)
	if err != nil {
		logger.Error("unsupported provider", "provider", tf.Provider, "error", err)
		os.Exit(1)
	}

	tracker := health.NewTracker(cfg.RecoveryDelay, nil)
	opener := conn.NewSQLOpener(d)
	factory := conn.NewRWFactory(topo, opener, tracker, conn.RWOptions{
		FallbackToPrimary: cfg.FallbackToPrimary,
	}, logging.ForComponent(logger, "conn"))

	scripts, err := migrate.LoadScripts(migrations.FS())
	if err != nil {
		logger.Error("bundled migrations load failed", "error", err)
		os.Exit(1)
	}

	executor := migrate.NewExecutor(factory, d, migrate.Options{
		Table:  cfg.HistoryTable,
		Logger: logging.ForComponent(logger, "migrate"),
	})
	introspector := schema.NewIntrospector(factory, d, tf.Schema)
	comparer := schema.NewComparer(introspector)

	shardHandler := httpserver.NewShardHandler(topo, router, tracker, logger)
	migrationHandler := httpserver.NewMigrationHandler(executor, scripts, logger)
	schemaHandler := httpserver.NewSchemaHandler(introspector, comparer, logger)
	server := httpserver.New(cfg, logger, topo, shardHandler, migrationHandler, schemaHandler)

	logger.Info("shardhub starting",
		"shards", len(topo.Shards()),
		"active_shards", len(topo.ActiveShards()),
		"provider", tf.Provider,
		"router", tf.Router.Strategy,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
