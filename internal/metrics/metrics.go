package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "statement_editor_"

	// ResultSuccess labels operations that completed.
	ResultSuccess = "success"
)

var (
	registerOnce sync.Once

	uploadTotal   *prometheus.CounterVec
	uploadLatency *prometheus.HistogramVec
	uploadRows    prometheus.Histogram

	editTotal   *prometheus.CounterVec
	editLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	auditEntriesTotal *prometheus.CounterVec
	statementsStored  prometheus.Gauge
)

// Init registers the collectors with reg, or the default registry when reg
// is nil. Only the first call has an effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		uploadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upload_total",
				Help: "Total statement uploads by result",
			},
			[]string{"result"},
		)
		uploadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upload_latency_seconds",
				Help:    "Upload extraction and parse latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		uploadRows = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upload_transactions",
				Help:    "Transactions found per parsed statement",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		)
		editTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "edit_total",
				Help: "Total edit requests by result",
			},
			[]string{"result"},
		)
		editLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "edit_latency_seconds",
				Help:    "Edit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		auditEntriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "audit_entries_total",
				Help: "Audit entries appended by change type",
			},
			[]string{"change_type"},
		)
		statementsStored = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "statements_stored",
				Help: "Statements created minus statements deleted by this process",
			},
		)
		reg.MustRegister(
			uploadTotal,
			uploadLatency,
			uploadRows,
			editTotal,
			editLatency,
			exportTotal,
			exportLatency,
			auditEntriesTotal,
			statementsStored,
		)
	})
}

// ObserveUpload records upload latency and result.
func ObserveUpload(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if uploadTotal != nil {
		uploadTotal.WithLabelValues(result).Inc()
	}
	if uploadLatency != nil {
		uploadLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveTransactions records the row count of a parsed statement.
func ObserveTransactions(n int) {
	if uploadRows != nil {
		uploadRows.Observe(float64(n))
	}
}

// ObserveEdit records edit latency and result.
func ObserveEdit(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if editTotal != nil {
		editTotal.WithLabelValues(result).Inc()
	}
	if editLatency != nil {
		editLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// AddAuditEntries counts appended audit entries.
func AddAuditEntries(changeType string, n int) {
	if n <= 0 {
		return
	}
	if auditEntriesTotal != nil {
		auditEntriesTotal.WithLabelValues(changeType).Add(float64(n))
	}
}

// StatementCreated increments the stored statements gauge.
func StatementCreated() {
	if statementsStored != nil {
		statementsStored.Inc()
	}
}

// StatementDeleted decrements the stored statements gauge.
func StatementDeleted() {
	if statementsStored != nil {
		statementsStored.Dec()
	}
}
