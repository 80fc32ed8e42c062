package synchronizer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/feedsync/types"
)

// SplitHandler replaces a lease whose partition split into several children.
type SplitHandler struct {
	handlerState

	sync     *Synchronizer
	lease    *types.Lease
	children []types.PartitionKeyRange
}

var _ GoneHandler = (*SplitHandler)(nil)

func newSplitHandler(s *Synchronizer, l *types.Lease, children []types.PartitionKeyRange) *SplitHandler {
	return &SplitHandler{sync: s, lease: l.Clone(), children: children}
}

// Kind implements GoneHandler.
func (h *SplitHandler) Kind() string { return "split" }

// ShouldDeleteCurrentLease is always true: the parent is superseded by its children.
func (h *SplitHandler) ShouldDeleteCurrentLease() bool { return true }

// ChildFeedRanges returns one feed range per child, in topology order.
//
// A partition lease yields partition feed ranges for the child ids; an
// effective-range lease yields the intersection of its interval with each child.
func (h *SplitHandler) ChildFeedRanges() []types.FeedRange {
	parent := h.lease.FeedRange.Range()
	out := make([]types.FeedRange, 0, len(h.children))
	for _, child := range h.children {
		if h.lease.IsPartitionBased() {
			out = append(out, types.NewPartitionFeedRange(child))
			continue
		}
		if in, ok := parent.Intersect(child.ToRange()); ok {
			out = append(out, types.EffectiveFeedRange{KeyRange: in})
		}
	}

	return out
}

// HandlePartitionGone creates one lease per child concurrently.
//
// Every child is attempted even when a sibling fails. Children that already
// exist are returned alongside the new ones. If any creation fails the split
// fails with ErrLeaseCreationFailed, and the children obtained so far are
// still returned; they are not rolled back.
//
// Returns:
//   - []types.Lease: Child leases in topology order
//   - error: ErrGoneAlreadyHandled, ErrLeaseCreationFailed
func (h *SplitHandler) HandlePartitionGone(ctx context.Context) ([]types.Lease, error) {
	if err := h.begin(); err != nil {
		return nil, err
	}
	h.sync.metrics.RecordPartitionGone(h.Kind())

	continuation := ""
	if h.sync.inheritOnSplit {
		continuation = h.lease.ContinuationToken
	}

	feedRanges := h.ChildFeedRanges()
	results := make([]*types.Lease, len(feedRanges))
	fresh := make([]*types.Lease, len(feedRanges))
	errs := make([]error, len(feedRanges))

	var g errgroup.Group
	g.SetLimit(h.sync.maxConcurrent)
	for i, fr := range feedRanges {
		g.Go(func() error {
			l, created, err := h.sync.replacement(ctx, "split", fr, continuation, h.lease.Properties)
			results[i], errs[i] = l, err
			if created {
				fresh[i] = l
			}

			return nil
		})
	}
	_ = g.Wait()

	children := collect(results)
	h.created = collect(fresh)
	if err := errors.Join(errs...); err != nil {
		return children, fmt.Errorf("split of lease %s: %w", h.lease.ID, err)
	}

	h.sync.logger.Info("lease split", "lease_id", h.lease.ID, "children", len(children), "created", len(h.created))

	return children, nil
}
