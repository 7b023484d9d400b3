package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry instruments for domain events. HTTP level
// metrics stay in Prometheus.
type OTelMetrics struct {
	articleOperations metric.Int64Counter
	articleDuration   metric.Float64Histogram
	loginAttempts     metric.Int64Counter
	cacheLookups      metric.Int64Counter
}

// NewOTelMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &OTelMetrics{}
	var err error

	m.articleOperations, err = meter.Int64Counter(
		"noticias.article.operations",
		metric.WithDescription("News article operations by kind and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create article operations counter: %w", err)
	}

	m.articleDuration, err = meter.Float64Histogram(
		"noticias.article.duration",
		metric.WithDescription("News article operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create article duration histogram: %w", err)
	}

	m.loginAttempts, err = meter.Int64Counter(
		"noticias.login.attempts",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login attempts counter: %w", err)
	}

	m.cacheLookups, err = meter.Int64Counter(
		"noticias.cache.lookups",
		metric.WithDescription("Read path cache lookups by key family and result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookups counter: %w", err)
	}

	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordArticleOperation records one create, update, delete, list or get
func (m *OTelMetrics) RecordArticleOperation(ctx context.Context, operation, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", kind),
		attribute.String("outcome", outcome(err)),
	)
	m.articleOperations.Add(ctx, 1, attrs)
	m.articleDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLogin records a login attempt
func (m *OTelMetrics) RecordLogin(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCacheLookup records a read path cache lookup
func (m *OTelMetrics) RecordCacheLookup(ctx context.Context, family string, hit bool) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
		attribute.Bool("hit", hit),
	))
}
