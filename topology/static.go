package topology

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/arloliu/feedsync/types"
)

// Static implements a topology source over an in-memory partition list.
type Static struct {
	mu     sync.RWMutex
	ranges []types.PartitionKeyRange
}

var _ types.TopologySource = (*Static)(nil)

// NewStatic creates a topology source with a fixed partition list.
//
// Parameters:
//   - ranges: Initial partitions; the slice is copied
//
// Returns:
//   - *Static: Initialized static source
//
// Example:
//
//	src := topology.NewStatic([]types.PartitionKeyRange{
//	    {ID: "0", MinInclusive: "", MaxExclusive: "80"},
//	    {ID: "1", MinInclusive: "80", MaxExclusive: "FF"},
//	})
//	p, err := feedsync.NewProcessor(&cfg, nc, src)
func NewStatic(ranges []types.PartitionKeyRange) *Static {
	s := &Static{}
	s.Update(ranges)

	return s
}

// GetOverlappingRanges returns the partitions overlapping r, ordered by MinInclusive.
func (s *Static) GetOverlappingRanges(ctx context.Context, r types.Range) ([]types.PartitionKeyRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return overlapping(s.ranges, r), nil
}

// Ranges returns a copy of the current partition list.
func (s *Static) Ranges() []types.PartitionKeyRange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRanges(s.ranges)
}

// Update replaces the partition list.
func (s *Static) Update(ranges []types.PartitionKeyRange) {
	sorted := cloneRanges(ranges)
	sortRanges(sorted)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ranges = sorted
}

// Split replaces partition id with two children divided at key.
//
// The children record id as their newest parent, after id's own ancestors.
//
// Parameters:
//   - id: Partition to split
//   - at: Boundary key; must lie strictly inside the partition
//   - leftID, rightID: Ids of the new partitions
//
// Returns:
//   - error: ErrRangeNotFound if id is unknown, ErrInvalidConfig for a bad boundary
func (s *Static) Split(id, at, leftID, rightID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.ranges, func(p types.PartitionKeyRange) bool { return p.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: partition %s", types.ErrRangeNotFound, id)
	}

	parent := s.ranges[idx]
	if at <= parent.MinInclusive || at >= parent.MaxExclusive {
		return fmt.Errorf("%w: split key %q outside %s", types.ErrInvalidConfig, at, parent.ToRange())
	}

	lineage := append(slices.Clone(parent.Parents), parent.ID)
	left := types.PartitionKeyRange{ID: leftID, MinInclusive: parent.MinInclusive, MaxExclusive: at, Parents: lineage}
	right := types.PartitionKeyRange{ID: rightID, MinInclusive: at, MaxExclusive: parent.MaxExclusive, Parents: slices.Clone(lineage)}

	s.ranges = slices.Replace(s.ranges, idx, idx+1, left, right)

	return nil
}

// Merge replaces two adjacent partitions with one partition spanning both.
// The merged partition inherits the ancestry of both inputs.
//
// Returns:
//   - error: ErrRangeNotFound if either id is unknown, ErrInvalidConfig if they are not adjacent
func (s *Static) Merge(leftID, rightID, mergedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	li := slices.IndexFunc(s.ranges, func(p types.PartitionKeyRange) bool { return p.ID == leftID })
	ri := slices.IndexFunc(s.ranges, func(p types.PartitionKeyRange) bool { return p.ID == rightID })
	if li < 0 || ri < 0 {
		return fmt.Errorf("%w: partitions %s, %s", types.ErrRangeNotFound, leftID, rightID)
	}

	left, right := s.ranges[li], s.ranges[ri]
	if ri != li+1 || left.MaxExclusive != right.MinInclusive {
		return fmt.Errorf("%w: partitions %s and %s are not adjacent", types.ErrInvalidConfig, leftID, rightID)
	}

	lineage := slices.Clone(left.Parents)
	for _, id := range right.Parents {
		if !slices.Contains(lineage, id) {
			lineage = append(lineage, id)
		}
	}
	lineage = append(lineage, leftID, rightID)

	merged := types.PartitionKeyRange{
		ID:           mergedID,
		MinInclusive: left.MinInclusive,
		MaxExclusive: right.MaxExclusive,
		Parents:      lineage,
	}
	s.ranges = slices.Replace(s.ranges, li, ri+1, merged)

	return nil
}

func overlapping(ranges []types.PartitionKeyRange, r types.Range) []types.PartitionKeyRange {
	out := make([]types.PartitionKeyRange, 0, len(ranges))
	for _, p := range ranges {
		if p.ToRange().Overlaps(r) {
			out = append(out, clonePKR(p))
		}
	}

	return out
}

func sortRanges(ranges []types.PartitionKeyRange) {
	slices.SortFunc(ranges, func(a, b types.PartitionKeyRange) int {
		return a.ToRange().Compare(b.ToRange())
	})
}

func cloneRanges(ranges []types.PartitionKeyRange) []types.PartitionKeyRange {
	out := make([]types.PartitionKeyRange, len(ranges))
	for i, p := range ranges {
		out[i] = clonePKR(p)
	}

	return out
}

func clonePKR(p types.PartitionKeyRange) types.PartitionKeyRange {
	p.Parents = slices.Clone(p.Parents)

	return p
}
