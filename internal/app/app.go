package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/config"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/event"
	handler "github.com/Mohammed-Altooq/WebEngineering-sub000/internal/handler/http"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository/postgres"
	redisrepo "github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository/redis"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/service"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/migrations"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/database"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/health"
	pkgkafka "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/kafka"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/tracing"
)

const serviceName = "marketplace"

// App wires together all dependencies and runs the marketplace service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
// Components opened before a failure are closed again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		if err != nil {
			pool.Close()
		}
	}()
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	redisCfg := cfg.Redis()
	rdb, err := database.NewRedisClient(ctx, redisCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		if err != nil {
			_ = rdb.Close()
		}
	}()
	logger.Info("connected to Redis",
		slog.String("addr", redisCfg.Addr()),
		slog.Int("db", redisCfg.DB),
	)

	// Event publishing. Without brokers events are dropped.
	var (
		producer  *pkgkafka.Producer
		publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		breakerCfg := cfg.Breaker("kafka-publisher")
		publisher = pkgkafka.NewBreakerPublisher(producer, breakerCfg, logger)
		logger.Info("kafka producer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic_prefix", cfg.KafkaTopicPrefix),
			slog.Int("breaker_timeout_seconds", cfg.CBTimeout),
		)
	} else {
		logger.Warn("KAFKA_BROKERS is empty, domain events are disabled")
	}
	eventProducer := event.NewProducer(publisher, cfg.KafkaTopicPrefix, logger)

	// Build the dependency graph.
	store := postgres.NewStore(pool)
	carts := redisrepo.NewCartRepository(rdb, cfg.CartTTL())
	idempotency := redisrepo.NewIdempotencyStore(rdb, cfg.IdempotencyTTL())

	svcs := handler.Services{
		Reviews: service.NewReviewService(store, eventProducer, cfg.Mode(), logger),
		Orders: service.NewOrderService(store, carts, idempotency, eventProducer, service.CheckoutConfig{
			Mode:    cfg.Mode(),
			Policy:  cfg.Policy(),
			Timeout: cfg.CheckoutTimeout(),
		}, logger),
		Carts: service.NewCartService(carts, logger),
	}
	logger.Info("checkout configured",
		slog.String("mode", string(cfg.Mode())),
		slog.String("missing_reference_policy", string(cfg.Policy())),
		slog.Duration("timeout", cfg.CheckoutTimeout()),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	router := handler.NewRouter(svcs, healthHandler, handler.RouterConfig{
		RequestTimeout: requestTimeout,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown stops components in order: HTTP server, tracer, Kafka producer,
// Redis client, PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the drain so in-flight request spans are exported.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
