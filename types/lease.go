package types

import (
	"maps"
	"time"
)

// Lease is the durable record of feed range ownership and consumption progress.
type Lease struct {
	// ID is the store key of the lease, derived from the lease prefix and feed range token.
	ID string

	// FeedRange is the range the lease owns. Its variant never changes.
	FeedRange FeedRange

	// ContinuationToken is the feed position to resume from ("" = start fresh).
	ContinuationToken string

	// Owner identifies the consumer instance holding the lease ("" = unowned).
	Owner string

	// ETag is the store concurrency tag of the version this value was read from.
	ETag string

	// Timestamp is the last time the lease was written.
	Timestamp time.Time

	// Properties is an arbitrary user property bag.
	Properties map[string]string
}

// LeaseToken returns the token of the lease's feed range ("" if the lease has none).
func (l *Lease) LeaseToken() string {
	if l.FeedRange == nil {
		return ""
	}

	return l.FeedRange.Token()
}

// IsPartitionBased reports whether the lease is bound to a physical partition id.
func (l *Lease) IsPartitionBased() bool {
	return l.FeedRange != nil && l.FeedRange.Kind() == FeedRangeKindPartition
}

// Clone returns a copy whose property bag can be modified independently.
func (l *Lease) Clone() *Lease {
	out := *l
	out.Properties = maps.Clone(l.Properties)

	return &out
}
