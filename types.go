package feedsync

import "github.com/arloliu/feedsync/types"

// Re-export types from the types package.
//
// Internal packages depend on types rather than on the root package, which
// avoids import cycles while still letting users write feedsync.Lease.
type (
	State              = types.State
	Range              = types.Range
	PartitionKeyRange  = types.PartitionKeyRange
	FeedRange          = types.FeedRange
	FeedRangeKind      = types.FeedRangeKind
	PartitionFeedRange = types.PartitionFeedRange
	EffectiveFeedRange = types.EffectiveFeedRange
	Lease              = types.Lease
)

// Re-export interfaces from the types package for convenience.
type (
	LeaseManager     = types.LeaseManager
	TopologySource   = types.TopologySource
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export constants from the types package.
const (
	StateInit     = types.StateInit
	StateStarting = types.StateStarting
	StateRunning  = types.StateRunning
	StateStopping = types.StateStopping
	StateStopped  = types.StateStopped

	FeedRangeKindPartition = types.FeedRangeKindPartition
	FeedRangeKindEffective = types.FeedRangeKindEffective
)
