package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"honeypot-lab/internal/api"
	"honeypot-lab/internal/api/handlers"
	apimiddleware "honeypot-lab/internal/api/middleware"
	"honeypot-lab/internal/config"
	"honeypot-lab/internal/detection"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/internal/grpc/sessionengine"
	"honeypot-lab/internal/infrastructure/cache"
	"honeypot-lab/internal/infrastructure/database"
	"honeypot-lab/internal/infrastructure/database/repository"
	"honeypot-lab/internal/streaming"
	"honeypot-lab/pkg/logger"
)

func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting honeypot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infra := initInfrastructure(ctx, cfg, log)
	defer infra.Close()

	// Detection pipeline
	policy, err := detection.ParsePolicy(cfg.Classifier.ConversationPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid classifier policy")
	}
	patterns := detection.NewPatternLibrary(detection.PatternConfig{
		IntelKeywords:  cfg.Patterns.IntelKeywords,
		ScamKeywords:   cfg.Patterns.ScamKeywords,
		ScoredKeywords: cfg.Patterns.ScoredKeywords,
	})
	extractor := detection.NewExtractor(patterns)
	conversational := detection.NewClassifier(patterns, policy)
	scored := detection.NewClassifier(patterns, detection.PolicyScored)
	decoy := detection.NewDecoyGenerator(patterns, nil)

	// Callback delivery
	dispatcher := services.NewCallbackDispatcher(&services.CallbackDispatcherConfig{
		URL:          cfg.Callback.URL,
		Secret:       cfg.Callback.Secret,
		Timeout:      cfg.Callback.Timeout,
		Workers:      cfg.Callback.Workers,
		QueueSize:    cfg.Callback.QueueSize,
		MaxAttempts:  cfg.Callback.MaxAttempts,
		RetryBackoff: cfg.Callback.RetryBackoff,
	}, infra.hooks(), log)

	store := services.NewMemorySessionStore(cfg.Session.Shards)
	engine := services.NewEngine(store, extractor, conversational, decoy, dispatcher, services.EngineConfig{
		MinMessagesForReport: cfg.Session.MinMessagesForReport,
	}, log)

	go func() {
		if err := engine.RunJanitor(ctx, cfg.Session.TTL, cfg.Session.JanitorInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("session janitor stopped with error")
		}
	}()

	deps := handlers.Dependencies{
		Engine:      engine,
		Scored:      scored,
		Dispatcher:  dispatcher,
		Version:     cfg.App.Version,
		AlwaysReply: cfg.Server.AlwaysReply,
		Logger:      log,
	}
	var limiter apimiddleware.RateLimitStore
	if infra.redis != nil {
		deps.Cache = infra.redis
		limiter = infra.redis
	}
	if infra.db != nil {
		deps.Database = infra.db
		deps.Reports = infra.reports
	}
	h := handlers.NewHandlers(deps)

	router := api.NewRouter(*cfg, h, limiter, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}

	grpcServer := grpc.NewServer()
	healthChecker := sessionengine.NewHealthChecker(infra.pingers(), 0, log)
	healthChecker.Register(grpcServer)
	go healthChecker.Run(ctx)

	go func() {
		log.Info().
			Str("addr", grpcListener.Addr().String()).
			Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// No handler can enqueue any more; deliver what is queued
	dispatcher.Stop()

	log.Info().Msg("shutdown complete")
}

// infrastructure holds the optional backends. Any field may be nil.
type infrastructure struct {
	redis   *cache.RedisCache
	db      *database.PostgresDB
	reports *repository.ReportRepository
	nats    *streaming.NATSPublisher
}

// initInfrastructure connects the enabled backends. Failures are logged and
// the service continues without the backend.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) *infrastructure {
	infra := &infrastructure{}

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without rate limiting and report ledger")
		} else {
			infra.redis = redisCache
		}
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing without report archive")
		} else {
			reports := repository.NewReportRepository(db.Pool())
			if err := reports.EnsureSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to prepare report archive, continuing without it")
				db.Close()
			} else {
				infra.db = db
				infra.reports = reports
			}
		}
	}

	if cfg.NATS.Enabled {
		publisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without delivery events")
		} else {
			infra.nats = publisher
		}
	}

	return infra
}

// hooks returns the dispatcher collaborators backed by the connected stores
func (i *infrastructure) hooks() services.DispatchHooks {
	var hooks services.DispatchHooks
	if i.redis != nil {
		hooks.Ledger = i.redis
	}
	if i.reports != nil {
		hooks.Recorder = i.reports
	}
	if i.nats != nil {
		hooks.Publisher = i.nats
	}
	return hooks
}

// pingers returns the backends the gRPC health service watches
func (i *infrastructure) pingers() map[string]sessionengine.Pinger {
	pingers := make(map[string]sessionengine.Pinger)
	if i.redis != nil {
		pingers["redis"] = i.redis
	}
	if i.db != nil {
		pingers["postgres"] = i.db
	}
	return pingers
}

func (i *infrastructure) Close() {
	if i.nats != nil {
		i.nats.Close()
	}
	if i.db != nil {
		i.db.Close()
	}
	if i.redis != nil {
		i.redis.Close()
	}
}
