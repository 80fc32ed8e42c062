// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/feedsync/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	p, _ := feedsync.NewProcessor(&cfg, nc, src, feedsync.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// OrNop returns m, or a NopMetrics when m is nil.
func OrNop(m types.MetricsCollector) types.MetricsCollector {
	if m == nil {
		return NewNop()
	}

	return m
}

// SessionMetrics implementation

// RecordSessionTokenMerge discards the merge metric.
func (n *NopMetrics) RecordSessionTokenMerge(_ /* retries */ int) {}

// RecordSessionTokenParseFailure discards the parse failure metric.
func (n *NopMetrics) RecordSessionTokenParseFailure() {}

// LeaseMetrics implementation

// RecordLeaseCreate discards the lease create metric.
func (n *NopMetrics) RecordLeaseCreate(_ /* reason */, _ /* outcome */ string) {}

// RecordLeaseDeleted discards the lease deletion metric.
func (n *NopMetrics) RecordLeaseDeleted() {}

// RecordKVOperationDuration discards the KV latency metric.
func (n *NopMetrics) RecordKVOperationDuration(_ /* operation */ string, _ /* duration */ float64) {}

// SyncMetrics implementation

// RecordSyncDuration discards the sync duration metric.
func (n *NopMetrics) RecordSyncDuration(_ /* duration */ float64, _ /* success */ bool) {}

// RecordPartitionCount discards the partition count metric.
func (n *NopMetrics) RecordPartitionCount(_ /* count */ int) {}

// RecordPartitionGone discards the gone event metric.
func (n *NopMetrics) RecordPartitionGone(_ /* kind */ string) {}
