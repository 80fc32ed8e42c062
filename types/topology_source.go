package types

import "context"

// TopologySource reports the physical partitions of the monitored collection.
//
// Implementations can query various backends:
//   - The data service routing map (production)
//   - NATS KV published topology
//   - Static: fixed list for testing
type TopologySource interface {
	// GetOverlappingRanges returns every partition whose interval overlaps r.
	//
	// Implementations should:
	//   - Return ranges ordered by MinInclusive
	//   - Handle context cancellation gracefully
	//   - Return errors for transient failures (will be retried)
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - r: Interval to look up (FullRange() for the whole collection)
	//
	// Returns:
	//   - []PartitionKeyRange: Overlapping partitions
	//   - error: Lookup error (nil on success)
	GetOverlappingRanges(ctx context.Context, r Range) ([]PartitionKeyRange, error)
}
