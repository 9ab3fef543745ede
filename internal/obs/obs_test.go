package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn")

	logger.Info("dropped")
	logger.Warn("kept", "order_number", "ORD-20260101-1234")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "ORD-20260101-1234", entry["order_number"])
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.OrderCreated(decimal.RequireFromString("40.50"))
	m.OrderCreated(decimal.RequireFromString("9.50"))
	m.OrderFailed("validation")
	m.LedgerEntry("expense")
	m.ObserveReport("dashboard", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.orderRevenue))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderFailures.WithLabelValues("validation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerEntries.WithLabelValues("income")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerEntries.WithLabelValues("expense")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated(decimal.NewFromInt(1))
		m.OrderFailed("x")
		m.StatusChanged("shipped")
		m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}

func TestInitTelemetry_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), "", "visio", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
