package attachments

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetricsOnce ensures metrics are only registered once.
var storeMetricsOnce sync.Once

// storeMetricsInstance is the singleton instance of store metrics.
var storeMetricsInstance *storeMetrics

// storeMetrics holds Prometheus counters for attachment store operations.
type storeMetrics struct {
	Writes       prometheus.Counter // paseo_attachments_writes_total
	Copies       prometheus.Counter // paseo_attachments_copies_total
	Reads        prometheus.Counter // paseo_attachments_reads_total
	Deletes      prometheus.Counter // paseo_attachments_deletes_total
	BytesWritten prometheus.Counter // paseo_attachments_bytes_written_total
	GCRuns       prometheus.Counter // paseo_attachments_gc_runs_total
	GCCollected  prometheus.Counter // paseo_attachments_gc_collected_total
}

// initStoreMetrics registers the store metrics with the given registry.
// Metrics are only registered once; subsequent calls return the same
// instance. If registry is nil the default Prometheus registry is used.
func initStoreMetrics(registry prometheus.Registerer) *storeMetrics {
	storeMetricsOnce.Do(func() {
		if registry == nil {
			registry = prometheus.DefaultRegisterer
		}
		storeMetricsInstance = &storeMetrics{
			Writes: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_writes_total",
				Help: "Number of inline base64 attachment writes",
			}),
			Copies: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_copies_total",
				Help: "Number of attachment copies from external paths",
			}),
			Reads: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_reads_total",
				Help: "Number of attachment reads served",
			}),
			Deletes: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_deletes_total",
				Help: "Number of attachment files deleted on request",
			}),
			BytesWritten: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_bytes_written_total",
				Help: "Total attachment bytes written to the managed directory",
			}),
			GCRuns: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_gc_runs_total",
				Help: "Number of completed garbage collection passes",
			}),
			GCCollected: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "paseo_attachments_gc_collected_total",
				Help: "Number of unreferenced attachment files garbage collected",
			}),
		}
	})
	return storeMetricsInstance
}
