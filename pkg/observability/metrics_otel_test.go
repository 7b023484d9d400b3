package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeter creates a meter backed by a manual reader
func setupTestMeter(t *testing.T) (*OTelMetrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewOTelMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collectSum(t *testing.T, reader *metric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok, "metric %s is not an int64 sum", name)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Sum[int64]{}
}

func TestNewOTelMetrics_GlobalMeter(t *testing.T) {
	m, err := NewOTelMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestOTelMetrics_RecordArticleOperation(t *testing.T) {
	m, reader := setupTestMeter(t)
	ctx := context.Background()

	m.RecordArticleOperation(ctx, "create", "general", 10*time.Millisecond, nil)
	m.RecordArticleOperation(ctx, "create", "general", 12*time.Millisecond, nil)
	m.RecordArticleOperation(ctx, "delete", "evento", time.Millisecond, errors.New("boom"))

	sum := collectSum(t, reader, "noticias.article.operations")
	require.Len(t, sum.DataPoints, 2)

	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("operation"))
		switch op.AsString() {
		case "create":
			assert.Equal(t, int64(2), dp.Value)
		case "delete":
			res, _ := dp.Attributes.Value(attribute.Key("outcome"))
			assert.Equal(t, "error", res.AsString())
		default:
			t.Errorf("unexpected operation %q", op.AsString())
		}
	}
}

func TestOTelMetrics_RecordLoginAndCache(t *testing.T) {
	m, reader := setupTestMeter(t)
	ctx := context.Background()

	m.RecordLogin(ctx, true)
	m.RecordLogin(ctx, false)
	m.RecordLogin(ctx, false)
	m.RecordCacheLookup(ctx, "news_list", true)

	logins := collectSum(t, reader, "noticias.login.attempts")
	var failures int64
	for _, dp := range logins.DataPoints {
		if v, _ := dp.Attributes.Value(attribute.Key("success")); !v.AsBool() {
			failures = dp.Value
		}
	}
	assert.Equal(t, int64(2), failures)

	lookups := collectSum(t, reader, "noticias.cache.lookups")
	require.Len(t, lookups.DataPoints, 1)
	assert.Equal(t, int64(1), lookups.DataPoints[0].Value)
}

func TestOTelMetrics_NilSafe(t *testing.T) {
	var m *OTelMetrics
	assert.NotPanics(t, func() {
		m.RecordArticleOperation(context.Background(), "list", "", 0, nil)
		m.RecordLogin(context.Background(), true)
		m.RecordCacheLookup(context.Background(), "users_list", false)
	})
}
