// Package obs exposes the process's Prometheus metrics.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter and gauge the audit engine reports.
type Metrics struct {
	SamplesTotal      prometheus.Counter
	SensorFailures    prometheus.Counter
	FindingsTotal     *prometheus.CounterVec
	EventsRejected    prometheus.Counter
	RollupsTotal      prometheus.Counter
	DeliveryFailures  prometheus.Counter
	LedgerWriteErrors prometheus.Counter
	PendingDates      prometheus.Gauge
}

// NewMetrics builds and registers the metric set on a fresh registry and
// returns the handler serving it.
func NewMetrics() (*Metrics, http.Handler) {
	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overseer_samples_total",
		Help: "Metric samples recorded into the audit ledger.",
	})
	sensorFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overseer_sensor_read_failures_total",
		Help: "Individual sensor reads that failed and left a null sample field.",
	})
	findings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overseer_findings_total",
		Help: "Classified upload events by finding kind.",
	}, []string{"kind"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overseer_events_rejected_total",
		Help: "Malformed upload events rejected by the classifier.",
	})
	rollups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overseer_rollups_total",
		Help: "Daily rollups completed and delivered.",
	})
	deliveryFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overseer_delivery_failures_total",
		Help: "Report delivery attempts that failed.",
	})
	ledgerErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overseer_ledger_write_errors_total",
		Help: "Durability failures while appending to the audit ledger.",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overseer_rollups_pending",
		Help: "Dates past their trigger time that still lack a rollup record.",
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(samples, sensorFailures, findings, rejected, rollups, deliveryFailures, ledgerErrors, pending)

	m := &Metrics{
		SamplesTotal:      samples,
		SensorFailures:    sensorFailures,
		FindingsTotal:     findings,
		EventsRejected:    rejected,
		RollupsTotal:      rollups,
		DeliveryFailures:  deliveryFailures,
		LedgerWriteErrors: ledgerErrors,
		PendingDates:      pending,
	}
	return m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
