package synchronizer

import (
	"context"
	"fmt"

	"github.com/arloliu/feedsync/types"
)

// MergeHandler handles a lease whose partition was merged into a wider one.
//
// A partition lease is bound to an id that no longer exists, so it is
// converted into an effective-range lease over its own interval. An
// effective-range lease already tolerates any interval and is kept as is.
type MergeHandler struct {
	handlerState

	sync  *Synchronizer
	lease *types.Lease
}

var _ GoneHandler = (*MergeHandler)(nil)

func newMergeHandler(s *Synchronizer, l *types.Lease) *MergeHandler {
	return &MergeHandler{sync: s, lease: l.Clone()}
}

// Kind implements GoneHandler.
func (h *MergeHandler) Kind() string { return "merge" }

// ShouldDeleteCurrentLease is true only when the lease was converted.
func (h *MergeHandler) ShouldDeleteCurrentLease() bool {
	return h.lease.IsPartitionBased()
}

// HandlePartitionGone converts a partition lease or returns an effective-range lease unchanged.
//
// The converted lease covers the gone lease's own interval, not the merged
// partition's, and keeps its continuation token and properties. If the
// converted lease already exists (a retried merge) it is returned as stored.
//
// Returns:
//   - []types.Lease: The converted lease, or the unchanged effective-range lease
//   - error: ErrGoneAlreadyHandled, ErrLeaseCreationFailed
func (h *MergeHandler) HandlePartitionGone(ctx context.Context) ([]types.Lease, error) {
	if err := h.begin(); err != nil {
		return nil, err
	}
	h.sync.metrics.RecordPartitionGone(h.Kind())

	if !h.lease.IsPartitionBased() {
		h.sync.logger.Debug("effective range lease kept after merge", "lease_id", h.lease.ID)
		return []types.Lease{*h.lease.Clone()}, nil
	}

	fr := types.EffectiveFeedRange{KeyRange: h.lease.FeedRange.Range()}
	l, created, err := h.sync.replacement(ctx, "merge", fr, h.lease.ContinuationToken, h.lease.Properties)
	if err != nil {
		return nil, fmt.Errorf("merge of lease %s: %w", h.lease.ID, err)
	}
	if l == nil {
		return nil, nil
	}

	if created {
		h.created = []types.Lease{*l}
		h.sync.logger.Info("lease converted after merge", "lease_id", h.lease.ID, "new_lease_id", l.ID, "range", fr.KeyRange.String())
	} else {
		h.sync.logger.Info("converted lease already exists", "lease_id", h.lease.ID, "new_lease_id", l.ID)
	}

	return []types.Lease{*l}, nil
}
