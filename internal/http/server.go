package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shardhub/internal/config"
	"shardhub/internal/topology"
)

type Server struct {
	cfg              config.Config
	logger           requestLogger
	topo             *topology.Topology
	shardHandler     *ShardHandler
	migrationHandler *MigrationHandler
	schemaHandler    *SchemaHandler
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func New(cfg config.Config, logger requestLogger, topo *topology.Topology, shardHandler *ShardHandler, migrationHandler *MigrationHandler, schemaHandler *SchemaHandler) *Server {
	return &Server{
		cfg:              cfg,
		logger:           logger,
		topo:             topo,
		shardHandler:     shardHandler,
		migrationHandler: migrationHandler,
		schemaHandler:    schemaHandler,
	}
}

func (s *Server) Start(ctx context.Context) error {
	r := s.routes()
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.logger))

	r.Route("/api/v1", func(api chi.Router) {
		api.Method(http.MethodGet, "/health", HealthHandler{Topo: s.topo})

		api.Get("/shards", s.shardHandler.List)
		api.Get("/shards/{shard}", s.shardHandler.Get)
		api.Get("/route", s.shardHandler.Route)

		api.Get("/shards/{shard}/migrations", s.migrationHandler.History)
		api.Post("/shards/{shard}/migrations/apply", s.migrationHandler.Apply)
		api.Post("/shards/{shard}/migrations/seed", s.migrationHandler.Seed)
		api.Post("/shards/{shard}/migrations/{id}/rollback", s.migrationHandler.Rollback)

		api.Get("/shards/{shard}/schema", s.schemaHandler.Snapshot)
		api.Get("/schema/diff", s.schemaHandler.Diff)
	})

	return r
}
