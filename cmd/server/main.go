package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/matusita0314/eging-map-app/internal/auth"
	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/firestore"
	"github.com/matusita0314/eging-map-app/internal/gate"
	"github.com/matusita0314/eging-map-app/internal/handler"
	"github.com/matusita0314/eging-map-app/internal/kafka"
	"github.com/matusita0314/eging-map-app/internal/lifecycle"
	"github.com/matusita0314/eging-map-app/internal/memstore"
	"github.com/matusita0314/eging-map-app/internal/metrics"
	"github.com/matusita0314/eging-map-app/internal/postgres"
	"github.com/matusita0314/eging-map-app/internal/ranking"
	"github.com/matusita0314/eging-map-app/internal/redis"
	"github.com/matusita0314/eging-map-app/internal/service"
	"github.com/matusita0314/eging-map-app/internal/websocket"
	"github.com/matusita0314/eging-map-app/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// backend is a document store plus its lifecycle hooks
type backend struct {
	store service.Store
	ping  handler.ReadinessCheck
	close func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := repo.RunMigrations(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return &backend{store: repo, ping: repo.Ping, close: repo.Close}, nil

	case config.DriverFirestore:
		fs, err := firestore.NewStore(ctx, &cfg.Firestore, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: fs,
			ping:  fs.Ping,
			close: func() {
				if err := fs.Close(); err != nil {
					logger.Warn("failed to close firestore client", "error", err)
				}
			},
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; state is lost on restart")
		return &backend{store: memstore.New(), close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

var (
	_ service.Store = (*postgres.Repository)(nil)
	_ service.Store = (*firestore.Store)(nil)
	_ service.Store = (*memstore.Store)(nil)
)

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.close()

	wsHub := websocket.NewHub(cfg.Ranking.DefaultLimit, logger)

	reconciler := ranking.NewReconciler(db.store, &cfg.Ranking, m, logger)
	reconciler.SetBroadcaster(wsHub)

	svc := service.NewTournamentService(
		db.store,
		reconciler,
		gate.New(db.store, m, logger),
		lifecycle.NewController(db.store, loc, m, logger),
		&cfg.Ranking,
		m,
		logger,
	)

	wsHub.SetSnapshotSource(func(ctx context.Context, tournamentID string) ([]domain.RankingEntry, error) {
		return svc.Standings(ctx, tournamentID, 0)
	})

	go wsHub.Run()

	verifier := auth.NewVerifier(&cfg.Auth)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty; admin endpoints will reject every request")
	}

	httpHandler := handler.NewHandler(svc, wsHub, verifier, reg, logger)
	if db.ping != nil {
		httpHandler.AddReadinessCheck("store", db.ping)
	}

	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		cache, err := redis.NewStandingsCache(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, serving standings from the store", "error", err)
		} else {
			defer cache.Close()
			reconciler.SetStandingsCache(cache)
			svc.SetStandingsReader(cache)
			httpHandler.AddReadinessCheck("redis", cache.Ping)
		}
	}

	var scheduler *worker.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = worker.NewScheduler(svc, &cfg.Scheduler, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer, err = kafka.NewConsumer(&cfg.Kafka, svc, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without change events", "error", err)
		} else if err := consumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without change events", "error", err)
			consumer = nil
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("HTTP server error", "error", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	wsHub.Stop()

	logger.Info("server stopped")
	return nil
}
