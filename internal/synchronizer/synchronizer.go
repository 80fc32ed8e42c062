package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/internal/metrics"
	"github.com/arloliu/feedsync/types"
)

// DefaultMaxConcurrentCreates bounds lease creation fan-out when Config leaves it unset.
const DefaultMaxConcurrentCreates = 4

// Config holds synchronizer dependencies and tuning.
type Config struct {
	// Topology reports the current physical partitions. Required.
	Topology types.TopologySource

	// Leases persists lease records. Required.
	Leases types.LeaseManager

	// MaxConcurrentCreates bounds concurrent create calls (default 4).
	MaxConcurrentCreates int

	// CreateEffectiveRangeLeases makes gap-fill leases effective-range based
	// instead of bound to a partition id.
	CreateEffectiveRangeLeases bool

	// SplitInheritsContinuation starts split children from the parent's
	// continuation token instead of from the beginning of the feed.
	SplitInheritsContinuation bool

	Logger  types.Logger
	Metrics types.MetricsCollector
}

// Synchronizer creates, splits and merges leases to follow the partition topology.
type Synchronizer struct {
	topology             types.TopologySource
	leases               types.LeaseManager
	maxConcurrent        int
	effectiveRangeLeases bool
	inheritOnSplit       bool
	logger               types.Logger
	metrics              types.MetricsCollector
}

// New creates a synchronizer.
//
// Returns:
//   - *Synchronizer: Ready to use synchronizer
//   - error: ErrTopologySourceRequired or ErrInvalidConfig for missing dependencies
func New(cfg Config) (*Synchronizer, error) {
	if cfg.Topology == nil {
		return nil, types.ErrTopologySourceRequired
	}
	if cfg.Leases == nil {
		return nil, fmt.Errorf("%w: lease manager is required", types.ErrInvalidConfig)
	}

	maxConcurrent := cfg.MaxConcurrentCreates
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCreates
	}

	return &Synchronizer{
		topology:             cfg.Topology,
		leases:               cfg.Leases,
		maxConcurrent:        maxConcurrent,
		effectiveRangeLeases: cfg.CreateEffectiveRangeLeases,
		inheritOnSplit:       cfg.SplitInheritsContinuation,
		logger:               logging.OrNop(cfg.Logger),
		metrics:              metrics.OrNop(cfg.Metrics),
	}, nil
}

// CreateMissingLeases creates a lease for every partition range no lease covers.
//
// A range is covered when a partition lease names its id or when the union of
// all lease intervals contains it. A partially covered range gets
// effective-range leases for its gaps only. New leases start with an empty
// continuation token.
//
// Creations run concurrently. A failed creation does not stop the others and
// successful creations are never rolled back. Leases another process created
// first are skipped silently.
//
// Returns:
//   - []types.Lease: Leases created by this call, in topology order
//   - error: ErrTopologyFetchFailed if ranges could not be listed, or a join of
//     ErrLeaseCreationFailed errors for the failed ranges
func (s *Synchronizer) CreateMissingLeases(ctx context.Context) ([]types.Lease, error) {
	start := time.Now()

	created, err := s.createMissingLeases(ctx)
	s.metrics.RecordSyncDuration(time.Since(start).Seconds(), err == nil)

	return created, err
}

func (s *Synchronizer) createMissingLeases(ctx context.Context) ([]types.Lease, error) {
	ranges, err := s.topology.GetOverlappingRanges(ctx, types.FullRange())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrTopologyFetchFailed, err)
	}
	s.metrics.RecordPartitionCount(len(ranges))

	existing, err := s.leases.ListLeases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}

	missing := s.missingFeedRanges(ranges, existing)
	if len(missing) == 0 {
		s.logger.Debug("all partition ranges covered", "partitions", len(ranges), "leases", len(existing))
		return nil, nil
	}

	s.logger.Info("creating missing leases", "missing", len(missing), "partitions", len(ranges), "leases", len(existing))

	results := make([]*types.Lease, len(missing))
	errs := make([]error, len(missing))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, fr := range missing {
		g.Go(func() error {
			l, created, err := s.create(ctx, "sync", fr, "", nil)
			if created {
				results[i] = l
			}
			errs[i] = err

			return nil
		})
	}
	_ = g.Wait()

	created := collect(results)
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("some leases could not be created", "created", len(created), "error", err)
		return created, err
	}

	return created, nil
}

// missingFeedRanges returns the feed ranges to create, in topology order.
func (s *Synchronizer) missingFeedRanges(ranges []types.PartitionKeyRange, existing []types.Lease) []types.FeedRange {
	leasedIDs := make(map[string]struct{}, len(existing))
	intervals := make([]types.Range, 0, len(existing))
	for i := range existing {
		l := &existing[i]
		if l.FeedRange == nil {
			continue
		}
		if pk, ok := l.FeedRange.(types.PartitionFeedRange); ok {
			leasedIDs[pk.PartitionKeyRangeID] = struct{}{}
		}
		intervals = append(intervals, l.FeedRange.Range())
	}

	var missing []types.FeedRange
	for _, pkr := range ranges {
		if _, ok := leasedIDs[pkr.ID]; ok {
			continue
		}

		r := pkr.ToRange()
		gaps := types.UncoveredRanges(r, intervals)
		switch {
		case len(gaps) == 0:
			continue
		case len(gaps) == 1 && gaps[0] == r:
			missing = append(missing, s.freshFeedRange(pkr))
		default:
			for _, gap := range gaps {
				missing = append(missing, types.EffectiveFeedRange{KeyRange: gap})
			}
		}
	}

	return missing
}

func (s *Synchronizer) freshFeedRange(pkr types.PartitionKeyRange) types.FeedRange {
	if s.effectiveRangeLeases {
		return types.EffectiveFeedRange{KeyRange: pkr.ToRange()}
	}

	return types.NewPartitionFeedRange(pkr)
}

// create calls CreateLeaseIfNotExist and records the outcome.
//
// When the lease already existed the stored record is returned with created
// set to false.
func (s *Synchronizer) create(ctx context.Context, reason string, fr types.FeedRange, continuation string, properties map[string]string) (*types.Lease, bool, error) {
	l, created, err := s.leases.CreateLeaseIfNotExist(ctx, fr, continuation, properties)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			s.metrics.RecordLeaseCreate(reason, "canceled")
			return nil, false, fmt.Errorf("%w: %s %s: %w", types.ErrLeaseCreationFailed, fr.Kind(), fr.Token(), err)
		}
		s.metrics.RecordLeaseCreate(reason, "failed")
		s.logger.Error("lease creation failed", "reason", reason, "range", fr.Range().String(), "kind", fr.Kind().String(), "error", err)

		return nil, false, fmt.Errorf("%w: %s %s: %w", types.ErrLeaseCreationFailed, fr.Kind(), fr.Token(), err)
	case !created:
		s.metrics.RecordLeaseCreate(reason, "exists")
		return l, false, nil
	default:
		s.metrics.RecordLeaseCreate(reason, "created")
		return l, true, nil
	}
}

// replacement returns the lease for fr, creating it if needed.
//
// Stores that do not hand back the existing record are searched by feed range.
func (s *Synchronizer) replacement(ctx context.Context, reason string, fr types.FeedRange, continuation string, properties map[string]string) (*types.Lease, bool, error) {
	l, created, err := s.create(ctx, reason, fr, continuation, properties)
	if err != nil || l != nil {
		return l, created, err
	}

	existing, err := s.leases.ListLeases(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: lookup of existing %s %s: %w", types.ErrLeaseCreationFailed, fr.Kind(), fr.Token(), err)
	}
	for i := range existing {
		if f := existing[i].FeedRange; f != nil && f.Kind() == fr.Kind() && f.Token() == fr.Token() {
			return &existing[i], false, nil
		}
	}

	// Deleted between the create attempt and the lookup.
	return nil, false, nil
}

// GoneHandler returns the handler for a lease whose feed range was reported gone.
//
// The topology under the lease interval decides the handler: several
// overlapping partitions mean a split, exactly one means a merge.
//
// Returns:
//   - GoneHandler: SplitHandler or MergeHandler in HandlerPending state
//   - error: ErrInvalidLease for a lease without feed range, ErrTopologyFetchFailed
//     (wrapping ErrRangeNotFound when nothing overlaps)
func (s *Synchronizer) GoneHandler(ctx context.Context, l *types.Lease) (GoneHandler, error) {
	if l == nil || l.FeedRange == nil {
		return nil, fmt.Errorf("%w: lease has no feed range", types.ErrInvalidLease)
	}

	r := l.FeedRange.Range()
	ranges, err := s.topology.GetOverlappingRanges(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrTopologyFetchFailed, err)
	}

	switch len(ranges) {
	case 0:
		return nil, fmt.Errorf("%w: %w: lease %s %s", types.ErrTopologyFetchFailed, types.ErrRangeNotFound, l.ID, r)
	case 1:
		s.logger.Info("feed range merged", "lease_id", l.ID, "range", r.String(), "partition", ranges[0].ID)
		return newMergeHandler(s, l), nil
	default:
		s.logger.Info("feed range split", "lease_id", l.ID, "range", r.String(), "children", len(ranges))
		return newSplitHandler(s, l, ranges), nil
	}
}

// collect returns the non-nil leases in order.
func collect(results []*types.Lease) []types.Lease {
	out := make([]types.Lease, 0, len(results))
	for _, l := range results {
		if l != nil {
			out = append(out, *l)
		}
	}

	return out
}
