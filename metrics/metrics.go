// Package metrics exposes Prometheus metrics for remote file operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote operation metrics
	remoteOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinas_remote_ops_total",
			Help: "Total number of filesystem operations sent to a connection",
		},
		[]string{"op", "status"},
	)

	remoteOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pinas_remote_op_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Batch metrics
	batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinas_batch_items_total",
			Help: "Total number of batch items by outcome",
		},
		[]string{"op", "outcome"},
	)

	// Transfer metrics
	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pinas_bytes_uploaded_total",
			Help: "Total bytes uploaded to connections",
		},
	)

	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pinas_bytes_downloaded_total",
			Help: "Total bytes downloaded from connections",
		},
	)

	// Connection metrics
	connectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pinas_connects_total",
			Help: "Total connection attempts",
		},
		[]string{"result"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pinas_active_connections",
			Help: "Number of registered connections",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pinas_active_sessions",
			Help: "Number of open websocket sessions",
		},
	)
)

// RecordRemoteOp records the outcome and duration of one gateway call.
func RecordRemoteOp(op string, err error, started time.Time) {
	remoteOpsTotal.WithLabelValues(op, status(err)).Inc()
	remoteOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// RecordBatch records the per-item outcome counts of a finished batch.
func RecordBatch(op string, succeeded, skipped, failed int) {
	batchItemsTotal.WithLabelValues(op, "succeeded").Add(float64(succeeded))
	batchItemsTotal.WithLabelValues(op, "skipped").Add(float64(skipped))
	batchItemsTotal.WithLabelValues(op, "failed").Add(float64(failed))
}

func RecordUpload(n int64) {
	bytesUploaded.Add(float64(n))
}

func RecordDownload(n int64) {
	bytesDownloaded.Add(float64(n))
}

func RecordConnect(err error) {
	connectsTotal.WithLabelValues(status(err)).Inc()
}

func SetActiveConnections(n int) {
	activeConnections.Set(float64(n))
}

func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
