package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	SessionMetrics
	LeaseMetrics
	SyncMetrics
}

// SessionMetrics defines metrics for the session token cache.
type SessionMetrics interface {
	// RecordSessionTokenMerge records one per-partition merge.
	//
	// Parameters:
	//   - retries: Number of CAS attempts that lost a race before the merge settled
	RecordSessionTokenMerge(retries int)

	// RecordSessionTokenParseFailure records a dropped, malformed token component.
	RecordSessionTokenParseFailure()
}

// LeaseMetrics defines metrics for lease store operations.
type LeaseMetrics interface {
	// RecordLeaseCreate records a create-if-not-exist call.
	//
	// Parameters:
	//   - reason: Why the lease was requested ("sync", "split", "merge")
	//   - outcome: "created", "exists" or "failed"
	RecordLeaseCreate(reason, outcome string)

	// RecordLeaseDeleted records removal of a superseded lease.
	RecordLeaseDeleted()

	// RecordKVOperationDuration records NATS KV operation latency.
	//
	// Parameters:
	//   - operation: Operation type ("get", "create", "update", "delete", "keys")
	//   - duration: Time taken in seconds
	RecordKVOperationDuration(operation string, duration float64)
}

// SyncMetrics defines metrics for topology reconciliation.
type SyncMetrics interface {
	// RecordSyncDuration records one CreateMissingLeases run.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - success: false if topology fetch or any creation failed
	RecordSyncDuration(duration float64, success bool)

	// RecordPartitionCount sets the number of partitions seen in the last sync (gauge).
	RecordPartitionCount(count int)

	// RecordPartitionGone records a handled gone event.
	//
	// Parameters:
	//   - kind: "split" or "merge"
	RecordPartitionGone(kind string)
}
