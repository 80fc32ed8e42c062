package types

// PartitionKeyRange describes one physical partition as reported by the data service.
//
// After a split or merge the service assigns new ids; the ids of the partitions a
// range was derived from are kept in Parents, oldest ancestor first.
type PartitionKeyRange struct {
	// ID is the physical partition identifier.
	ID string `json:"id"`

	// MinInclusive is the lower effective partition key bound.
	MinInclusive string `json:"minInclusive"`

	// MaxExclusive is the upper effective partition key bound.
	MaxExclusive string `json:"maxExclusive"`

	// Parents lists ancestor partition ids, oldest first.
	Parents []string `json:"parents,omitempty"`
}

// ToRange returns the key interval owned by the partition.
func (p PartitionKeyRange) ToRange() Range {
	return Range{Min: p.MinInclusive, Max: p.MaxExclusive}
}

// LineageNewestFirst returns the ancestor ids from the most recent parent to the oldest.
//
// Returns:
//   - []string: Reversed copy of Parents (nil if there are none)
func (p PartitionKeyRange) LineageNewestFirst() []string {
	if len(p.Parents) == 0 {
		return nil
	}

	out := make([]string, len(p.Parents))
	for i, id := range p.Parents {
		out[len(p.Parents)-1-i] = id
	}

	return out
}
