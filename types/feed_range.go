package types

// FeedRangeKind tags the variant of a FeedRange.
type FeedRangeKind int

const (
	// FeedRangeKindPartition addresses one physical partition by id.
	FeedRangeKindPartition FeedRangeKind = iota + 1

	// FeedRangeKindEffective addresses an effective partition key interval.
	FeedRangeKindEffective
)

// String returns the persisted name of the kind.
func (k FeedRangeKind) String() string {
	switch k {
	case FeedRangeKindPartition:
		return "partition"
	case FeedRangeKindEffective:
		return "effective"
	default:
		return "unknown"
	}
}

// FeedRange is the unit a lease or feed request is addressed to.
//
// It is a closed sum type: the only implementations are PartitionFeedRange and
// EffectiveFeedRange. A lease never changes variant; converting one means
// creating a new lease with a new FeedRange value.
type FeedRange interface {
	// Kind returns the variant tag.
	Kind() FeedRangeKind

	// Range returns the key interval the feed range covers.
	Range() Range

	// Token returns the stable lease token derived from the feed range.
	Token() string

	isFeedRange()
}

// PartitionFeedRange addresses a single physical partition.
//
// KeyRange records the interval the partition owned when the feed range was
// built, so the lease can still be mapped onto the key space once the
// partition id is gone.
type PartitionFeedRange struct {
	PartitionKeyRangeID string
	KeyRange            Range
}

// EffectiveFeedRange addresses an effective partition key interval independent of
// physical partition boundaries.
type EffectiveFeedRange struct {
	KeyRange Range
}

var (
	_ FeedRange = PartitionFeedRange{}
	_ FeedRange = EffectiveFeedRange{}
)

// NewPartitionFeedRange builds a partition feed range from a topology entry.
func NewPartitionFeedRange(pkr PartitionKeyRange) PartitionFeedRange {
	return PartitionFeedRange{PartitionKeyRangeID: pkr.ID, KeyRange: pkr.ToRange()}
}

// Kind implements FeedRange.
func (PartitionFeedRange) Kind() FeedRangeKind { return FeedRangeKindPartition }

// Range implements FeedRange.
func (f PartitionFeedRange) Range() Range { return f.KeyRange }

// Token returns the partition id.
func (f PartitionFeedRange) Token() string { return f.PartitionKeyRangeID }

func (PartitionFeedRange) isFeedRange() {}

// Kind implements FeedRange.
func (EffectiveFeedRange) Kind() FeedRangeKind { return FeedRangeKindEffective }

// Range implements FeedRange.
func (f EffectiveFeedRange) Range() Range { return f.KeyRange }

// Token returns "<min>-<max>".
func (f EffectiveFeedRange) Token() string { return f.KeyRange.Min + "-" + f.KeyRange.Max }

func (EffectiveFeedRange) isFeedRange() {}
