// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks and graceful shutdown.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("article_id", id).Info("Noticia creada")
//
// Request scoped loggers travel in the context; FromContext adds the
// request ID and trace identifiers when present.
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RegisterCache("app", snapshotFunc)
//
// Metrics implements the denial recorder used by the permission guard.
//
// # Health
//
//	checker := observability.NewHealthChecker(db, redisClient, "1.0")
//	checker.AddCheck("s3", false, objectStore.HealthCheck)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// Checks run concurrently. A failing critical dependency makes /health/ready
// return 503; optional ones only mark the service degraded.
package observability
