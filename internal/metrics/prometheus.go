package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/feedsync/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// one never panics on duplicate registration until a metric is recorded.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	sessionMerges        prometheus.Counter
	sessionMergeRetries  prometheus.Histogram
	sessionParseFailures prometheus.Counter

	leaseCreates  *prometheus.CounterVec
	leaseDeletes  prometheus.Counter
	kvOpDurations *prometheus.HistogramVec

	syncDuration   *prometheus.HistogramVec
	partitionCount prometheus.Gauge
	partitionGone  *prometheus.CounterVec
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "feedsync" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "feedsync"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.sessionMerges = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "token_merges_total",
			Help:      "Total per-partition session token merges.",
		})
		p.sessionMergeRetries = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "token_merge_retries",
			Help:      "CAS attempts lost to concurrent writers per merge.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		})
		p.sessionParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "token_parse_failures_total",
			Help:      "Malformed session token components dropped.",
		})

		p.leaseCreates = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "lease",
			Name:      "creates_total",
			Help:      "Lease create-if-not-exist calls by reason and outcome.",
		}, []string{"reason", "outcome"})
		p.leaseDeletes = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "lease",
			Name:      "deletes_total",
			Help:      "Superseded leases deleted.",
		})
		p.kvOpDurations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "lease",
			Name:      "kv_operation_seconds",
			Help:      "Latency of lease KV operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"op"})

		p.syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of lease synchronization runs in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"result"})
		p.partitionCount = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "sync",
			Name:      "partitions",
			Help:      "Partitions seen in the last synchronization.",
		})
		p.partitionGone = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "sync",
			Name:      "partition_gone_total",
			Help:      "Handled partition gone events by kind (split, merge).",
		}, []string{"kind"})

		p.reg.MustRegister(
			p.sessionMerges,
			p.sessionMergeRetries,
			p.sessionParseFailures,
			p.leaseCreates,
			p.leaseDeletes,
			p.kvOpDurations,
			p.syncDuration,
			p.partitionCount,
			p.partitionGone,
		)
	})
}

// RecordSessionTokenMerge counts a merge and observes its CAS retries.
func (p *PrometheusCollector) RecordSessionTokenMerge(retries int) {
	p.ensureRegistered()
	p.sessionMerges.Inc()
	p.sessionMergeRetries.Observe(float64(retries))
}

// RecordSessionTokenParseFailure counts a dropped token component.
func (p *PrometheusCollector) RecordSessionTokenParseFailure() {
	p.ensureRegistered()
	p.sessionParseFailures.Inc()
}

// RecordLeaseCreate counts a create-if-not-exist outcome.
func (p *PrometheusCollector) RecordLeaseCreate(reason, outcome string) {
	p.ensureRegistered()
	p.leaseCreates.WithLabelValues(reason, outcome).Inc()
}

// RecordLeaseDeleted counts a superseded lease deletion.
func (p *PrometheusCollector) RecordLeaseDeleted() {
	p.ensureRegistered()
	p.leaseDeletes.Inc()
}

// RecordKVOperationDuration observes KV latency for the given op.
func (p *PrometheusCollector) RecordKVOperationDuration(operation string, duration float64) {
	p.ensureRegistered()
	p.kvOpDurations.WithLabelValues(operation).Observe(duration)
}

// RecordSyncDuration observes a synchronization run.
func (p *PrometheusCollector) RecordSyncDuration(duration float64, success bool) {
	p.ensureRegistered()
	result := "success"
	if !success {
		result = "failure"
	}
	p.syncDuration.WithLabelValues(result).Observe(duration)
}

// RecordPartitionCount sets the partition gauge.
func (p *PrometheusCollector) RecordPartitionCount(count int) {
	p.ensureRegistered()
	p.partitionCount.Set(float64(count))
}

// RecordPartitionGone counts a handled gone event.
func (p *PrometheusCollector) RecordPartitionGone(kind string) {
	p.ensureRegistered()
	p.partitionGone.WithLabelValues(kind).Inc()
}
