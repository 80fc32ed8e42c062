package testutil

import (
	"testing"

	"github.com/arloliu/feedsync/types"
)

// AssertLeasesCoverTopology verifies that every partition key range is owned by some lease.
//
// A range counts as owned when a partition lease names its id or when the union
// of lease intervals contains it, which is the rule lease synchronization uses.
//
// Parameters:
//   - t: testing handle
//   - leases: Leases currently in the store
//   - ranges: Current partition key ranges
func AssertLeasesCoverTopology(t testing.TB, leases []types.Lease, ranges []types.PartitionKeyRange) {
	t.Helper()

	if gaps := UncoveredTopology(leases, ranges); len(gaps) > 0 {
		t.Fatalf("partition key ranges without a lease: %v", gaps)
	}
}

// UncoveredTopology returns the key intervals of ranges that no lease owns.
func UncoveredTopology(leases []types.Lease, ranges []types.PartitionKeyRange) []types.Range {
	byID := make(map[string]struct{}, len(leases))
	intervals := make([]types.Range, 0, len(leases))
	for _, l := range leases {
		if l.FeedRange == nil {
			continue
		}
		if l.IsPartitionBased() {
			byID[l.LeaseToken()] = struct{}{}
		}
		intervals = append(intervals, l.FeedRange.Range())
	}

	var gaps []types.Range
	for _, pkr := range ranges {
		if _, ok := byID[pkr.ID]; ok {
			continue
		}
		gaps = append(gaps, types.UncoveredRanges(pkr.ToRange(), intervals)...)
	}

	return gaps
}

// AssertUniqueLeaseIDs verifies that no two leases share an id.
func AssertUniqueLeaseIDs(t testing.TB, leases []types.Lease) {
	t.Helper()

	seen := make(map[string]struct{}, len(leases))
	for _, l := range leases {
		if _, ok := seen[l.ID]; ok {
			t.Fatalf("duplicate lease detected: %s", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
}
