package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/noticias/pkg/api"
	"github.com/platinummonkey/noticias/pkg/cache"
	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/httputil"
	"github.com/platinummonkey/noticias/pkg/media"
	"github.com/platinummonkey/noticias/pkg/middleware"
	"github.com/platinummonkey/noticias/pkg/news"
	"github.com/platinummonkey/noticias/pkg/observability"
	"github.com/platinummonkey/noticias/pkg/rbac"
	"github.com/platinummonkey/noticias/pkg/storage"
	"github.com/platinummonkey/noticias/pkg/storage/postgres"
	"github.com/platinummonkey/noticias/pkg/users"
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "noticias: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
		ExportInterval: cfg.Observability.OTelExportInterval,
	}, logger)
	if err != nil {
		// tracing is optional
		logger.WithError(err).Warn("Failed to initialize OpenTelemetry, continuing without it")
	}

	otelMetrics, err := observability.NewOTelMetrics(nil)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if err := metrics.RegisterDB(db, "noticias"); err != nil {
		logger.WithError(err).Warn("Failed to register database metrics")
	}

	if cfg.Database.AutoMigrate {
		applied, err := storage.Migrate(ctx, db, storage.Postgres)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.WithField("applied", applied).Info("Database schema up to date")
	}

	redisClient, err := postgres.NewRedisClient(ctx, cfg.Redis)
	switch {
	case errors.Is(err, postgres.ErrRedisNotConfigured):
		logger.Info("Redis not configured, rate limits are kept in process")
	case err != nil:
		logger.WithError(err).Warn("Redis unavailable, rate limits are kept in process")
		redisClient = nil
	}

	var objects media.ObjectStore
	var s3Client *postgres.S3Client
	if cfg.S3.Enabled() {
		s3Client, err = postgres.NewS3Client(ctx, cfg.S3, metrics)
		if err == nil {
			err = s3Client.EnsureBucket(ctx)
		}
		if err != nil {
			logger.WithError(err).Warn("Object storage unavailable, image uploads disabled")
			s3Client = nil
		} else {
			objects = s3Client
			logger.WithField("bucket", s3Client.Bucket()).Info("Object storage ready")
		}
	} else {
		logger.Info("Object storage not configured, image uploads disabled")
	}

	appCache := cache.NewStore(cfg.Cache.DefaultTTL)
	if err := metrics.RegisterCache("app", func() observability.CacheSnapshot {
		s := appCache.Stats()
		return observability.CacheSnapshot{Hits: s.Hits, Misses: s.Misses, Expirations: s.Expirations, Items: s.Items}
	}); err != nil {
		logger.WithError(err).Warn("Failed to register cache metrics")
	}
	janitor, err := cache.NewJanitor(appCache, cfg.Cache.CleanupSchedule, logger)
	if err != nil {
		return err
	}
	janitor.Start()

	roles := rbac.NewValidatorRegistry()

	userService := users.NewService(users.NewStore(db, storage.Postgres), appCache,
		users.WithMetrics(otelMetrics),
		users.WithLogger(logger),
	)
	if cfg.Seed.Enabled {
		created, err := userService.SeedDefaultAccounts(ctx, cfg.Seed.DefaultPassword)
		if err != nil {
			return fmt.Errorf("failed to seed default accounts: %w", err)
		}
		if created > 0 {
			logger.WithField("created", created).Warn("Default accounts created; change their passwords")
		}
	}

	newsOpts := []news.Option{news.WithMetrics(otelMetrics), news.WithLogger(logger)}
	if s3Client != nil {
		newsOpts = append(newsOpts, news.WithImageStore(s3Client))
	}
	newsService := news.NewService(news.NewStore(db), appCache, roles, newsOpts...)

	var authLimiter middleware.Limiter = middleware.NewRateLimiter(cfg.RateLimit)
	if redisClient != nil {
		authLimiter = middleware.NewRedisRateLimiter(redisClient, cfg.RateLimit, "noticias:ratelimit:auth")
	}

	server := api.NewServer(api.Deps{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Roles:       roles,
		Users:       userService,
		News:        newsService,
		Objects:     objects,
		AuthLimiter: authLimiter,
	})

	httpServer := &http.Server{
		Addr:         httputil.Addr(cfg.Server.Host, cfg.Server.Port),
		Handler:      httputil.MaxBytesMiddleware(cfg.Upload.MaxBytes + 1<<20)(server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db, redisClient, cfg.App.Version)
	if s3Client != nil {
		health.AddCheck("s3", false, s3Client.HealthCheck)
	}
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              httputil.Addr(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc("cache janitor", janitor.Stop)
	shutdown.RegisterShutdownFunc("database", func(context.Context) error { return db.Close() })
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	if path := config.FilePath(); path != "" {
		watcher, err := config.NewWatcher(path, logger, func(updated *config.Config) {
			logger.SetLevel(updated.Observability.LogLevel)
		})
		if err != nil {
			logger.WithError(err).Warn("Config file changes will not be applied")
		} else {
			watchCtx, stopWatching := context.WithCancel(ctx)
			go watcher.Run(watchCtx)
			shutdown.RegisterShutdownFunc("config watcher", func(context.Context) error {
				stopWatching()
				return nil
			})
		}
	}

	serve(logger, "API", httpServer)
	serve(logger, "health", healthServer)

	return shutdown.WaitForShutdown()
}

func serve(logger *observability.Logger, name string, srv *http.Server) {
	go func() {
		defer observability.RecoverPanic(logger, name+" server")

		logger.WithField("addr", srv.Addr).Infof("Starting %s server", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s server failed", name)
			os.Exit(1)
		}
	}()
}
