package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics holds the prometheus collectors of the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ordersCreated  prometheus.Counter
	orderFailures  *prometheus.CounterVec
	orderRevenue   prometheus.Counter
	statusChanges  *prometheus.CounterVec
	ledgerEntries  *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visio",
			Name:      "orders_created_total",
			Help:      "Orders committed.",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visio",
			Name:      "order_failures_total",
			Help:      "Order creations that did not commit, by reason.",
		}, []string{"reason"}),
		orderRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visio",
			Name:      "order_revenue_total",
			Help:      "Sum of committed order totals.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visio",
			Name:      "order_status_changes_total",
			Help:      "Order status updates, by target status.",
		}, []string{"status"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visio",
			Name:      "ledger_entries_total",
			Help:      "Ledger entries posted, by type.",
		}, []string{"type"}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visio",
			Name:      "report_duration_seconds",
			Help:      "Time spent computing reports.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"report"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visio",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visio",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.ordersCreated, m.orderFailures, m.orderRevenue, m.statusChanges,
		m.ledgerEntries, m.reportDuration, m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) OrderCreated(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderRevenue.Add(total.InexactFloat64())
	m.ledgerEntries.WithLabelValues("income").Inc()
}

func (m *Metrics) OrderFailed(reason string) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) LedgerEntry(typ string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(typ).Inc()
}

// ObserveReport records how long report took since start.
func (m *Metrics) ObserveReport(report string, start time.Time) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
