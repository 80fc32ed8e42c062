package synchronizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/feedsync/lease"
	fstest "github.com/arloliu/feedsync/testing"
	"github.com/arloliu/feedsync/topology"
	"github.com/arloliu/feedsync/types"
)

func createLease(t *testing.T, store types.LeaseManager, fr types.FeedRange, continuation string) *types.Lease {
	t.Helper()

	l, created, err := store.CreateLeaseIfNotExist(t.Context(), fr, continuation, map[string]string{"app": "orders"})
	require.NoError(t, err)
	require.True(t, created)

	return l
}

func TestGoneHandler_SplitPartitionLease(t *testing.T) {
	ctx := t.Context()
	store := lease.NewMemory("feed")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("1", "AA", "CC")})
	parent := createLease(t, store, types.NewPartitionFeedRange(pkr("1", "AA", "CC")), "\"c1\"")

	require.NoError(t, src.Split("1", "BB", "2", "3"))
	s := newSync(t, src, store)

	h, err := s.GoneHandler(ctx, parent)
	require.NoError(t, err)
	require.Equal(t, "split", h.Kind())
	require.Equal(t, HandlerPending, h.State())

	children, err := h.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Equal(t, HandlerHandled, h.State())
	require.True(t, h.ShouldDeleteCurrentLease())

	require.Equal(t, []string{"feed..2", "feed..3"}, leaseIDs(children))
	require.Equal(t, types.Range{Min: "AA", Max: "BB"}, children[0].FeedRange.Range())
	require.Equal(t, types.Range{Min: "BB", Max: "CC"}, children[1].FeedRange.Range())
	for _, c := range children {
		require.True(t, c.IsPartitionBased())
		require.Empty(t, c.ContinuationToken)
		require.Equal(t, "orders", c.Properties["app"])
	}

	_, err = h.HandlePartitionGone(ctx)
	require.ErrorIs(t, err, types.ErrGoneAlreadyHandled)
}

func TestGoneHandler_SplitEffectiveLease(t *testing.T) {
	ctx := t.Context()
	store := lease.NewMemory("feed")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("2", "", "BB"), pkr("3", "BB", "FF")})
	parent := createLease(t, store, types.EffectiveFeedRange{KeyRange: types.Range{Min: "AA", Max: "CC"}}, "\"c1\"")

	s := newSync(t, src, store)
	h, err := s.GoneHandler(ctx, parent)
	require.NoError(t, err)

	split, ok := h.(*SplitHandler)
	require.True(t, ok)
	require.Equal(t, []types.FeedRange{
		types.EffectiveFeedRange{KeyRange: types.Range{Min: "AA", Max: "BB"}},
		types.EffectiveFeedRange{KeyRange: types.Range{Min: "BB", Max: "CC"}},
	}, split.ChildFeedRanges())

	children, err := h.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"feed..AA-BB", "feed..BB-CC"}, leaseIDs(children))
	require.False(t, children[0].IsPartitionBased())
	require.True(t, h.ShouldDeleteCurrentLease())
}

func TestGoneHandler_SplitInheritsContinuation(t *testing.T) {
	ctx := t.Context()
	store := lease.NewMemory("feed")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("2", "AA", "BB", "1"), pkr("3", "BB", "CC", "1")})
	parent := createLease(t, store, types.NewPartitionFeedRange(pkr("1", "AA", "CC")), "\"c1\"")

	s := newSync(t, src, store, func(c *Config) { c.SplitInheritsContinuation = true })
	h, err := s.GoneHandler(ctx, parent)
	require.NoError(t, err)

	children, err := h.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Len(t, children, 2)
	for _, c := range children {
		require.Equal(t, "\"c1\"", c.ContinuationToken)
	}
}

func TestGoneHandler_SplitFailureKeepsCreatedChildren(t *testing.T) {
	ctx := t.Context()
	inner := lease.NewMemory("feed")
	store := fstest.NewFaultyLeaseManager(inner)
	store.FailCreateFor("3")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("2", "AA", "BB", "1"), pkr("3", "BB", "CC", "1")})
	parent := createLease(t, inner, types.NewPartitionFeedRange(pkr("1", "AA", "CC")), "")

	s := newSync(t, src, store, func(c *Config) { c.MaxConcurrentCreates = 1 })
	h, err := s.GoneHandler(ctx, parent)
	require.NoError(t, err)

	children, err := h.HandlePartitionGone(ctx)
	require.ErrorIs(t, err, types.ErrLeaseCreationFailed)
	require.ErrorIs(t, err, fstest.ErrInjected)
	require.Equal(t, []string{"feed..2"}, leaseIDs(children))
	require.Equal(t, []string{"feed..2"}, leaseIDs(h.CreatedLeases()))
	require.Equal(t, HandlerHandled, h.State())

	// A fresh handler retries idempotently: every child is returned, only the missing one is created.
	retry := newSync(t, src, inner)
	h2, err := retry.GoneHandler(ctx, parent)
	require.NoError(t, err)
	children, err = h2.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"feed..2", "feed..3"}, leaseIDs(children))
	require.Equal(t, []string{"feed..3"}, leaseIDs(h2.CreatedLeases()))
}

func TestGoneHandler_SplitFailureAttemptsEverySibling(t *testing.T) {
	ctx := t.Context()
	inner := lease.NewMemory("feed")
	store := fstest.NewFaultyLeaseManager(inner)
	store.FailCreateFor("2")
	src := topology.NewStatic([]types.PartitionKeyRange{
		pkr("2", "AA", "B0", "1"), pkr("3", "B0", "BB", "1"), pkr("4", "BB", "CC", "1"),
	})
	parent := createLease(t, inner, types.NewPartitionFeedRange(pkr("1", "AA", "CC")), "")

	s := newSync(t, src, store, func(c *Config) { c.MaxConcurrentCreates = 1 })
	h, err := s.GoneHandler(ctx, parent)
	require.NoError(t, err)

	children, err := h.HandlePartitionGone(ctx)
	require.ErrorIs(t, err, types.ErrLeaseCreationFailed)
	require.Equal(t, []string{"feed..3", "feed..4"}, leaseIDs(children))
	require.Equal(t, 3, store.CreateCalls())
}

func TestGoneHandler_MergeRetryReturnsConvertedLease(t *testing.T) {
	ctx := t.Context()
	store := lease.NewMemory("feed")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("1", "AA", "BB"), pkr("2", "BB", "CC")})
	gone := createLease(t, store, types.NewPartitionFeedRange(pkr("1", "AA", "BB")), "\"c7\"")

	require.NoError(t, src.Merge("1", "2", "5"))
	s := newSync(t, src, store)

	first, err := s.GoneHandler(ctx, gone)
	require.NoError(t, err)
	out, err := first.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, leaseIDs(out), leaseIDs(first.CreatedLeases()))

	// The gone lease was not deleted, so the merge is handled again.
	second, err := s.GoneHandler(ctx, gone)
	require.NoError(t, err)
	again, err := second.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Equal(t, out, again)
	require.Empty(t, second.CreatedLeases())
	require.True(t, second.ShouldDeleteCurrentLease())
}

func TestGoneHandler_MergePartitionLease(t *testing.T) {
	ctx := t.Context()
	store := lease.NewMemory("feed")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("1", "AA", "BB"), pkr("2", "BB", "CC")})
	gone := createLease(t, store, types.NewPartitionFeedRange(pkr("1", "AA", "BB")), "\"c7\"")

	require.NoError(t, src.Merge("1", "2", "5"))
	s := newSync(t, src, store)

	h, err := s.GoneHandler(ctx, gone)
	require.NoError(t, err)
	require.Equal(t, "merge", h.Kind())

	out, err := h.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, h.ShouldDeleteCurrentLease())

	converted := out[0]
	require.Equal(t, "feed..AA-BB", converted.ID)
	require.Equal(t, types.FeedRangeKindEffective, converted.FeedRange.Kind())
	require.Equal(t, types.Range{Min: "AA", Max: "BB"}, converted.FeedRange.Range())
	require.Equal(t, "\"c7\"", converted.ContinuationToken)
	require.Equal(t, "orders", converted.Properties["app"])
}

func TestGoneHandler_MergeEffectiveLease(t *testing.T) {
	ctx := t.Context()
	store := lease.NewMemory("feed")
	src := topology.NewStatic([]types.PartitionKeyRange{pkr("5", "AA", "CC", "1", "2")})
	current := createLease(t, store, types.EffectiveFeedRange{KeyRange: types.Range{Min: "AA", Max: "BB"}}, "\"c9\"")

	s := newSync(t, src, store)
	h, err := s.GoneHandler(ctx, current)
	require.NoError(t, err)

	out, err := h.HandlePartitionGone(ctx)
	require.NoError(t, err)
	require.Equal(t, []types.Lease{*current}, out)
	require.False(t, h.ShouldDeleteCurrentLease())
	require.Equal(t, 1, store.Len())
}

func TestGoneHandler_NoOverlappingRange(t *testing.T) {
	s := newSync(t, topology.NewStatic([]types.PartitionKeyRange{pkr("0", "", "10")}), lease.NewMemory("feed"))

	l := &types.Lease{ID: "feed..AA-BB", FeedRange: types.EffectiveFeedRange{KeyRange: types.Range{Min: "AA", Max: "BB"}}}
	_, err := s.GoneHandler(t.Context(), l)
	require.ErrorIs(t, err, types.ErrTopologyFetchFailed)
	require.ErrorIs(t, err, types.ErrRangeNotFound)

	_, err = s.GoneHandler(t.Context(), &types.Lease{ID: "x"})
	require.ErrorIs(t, err, types.ErrInvalidLease)
}

func TestHandlerState_String(t *testing.T) {
	require.Equal(t, "Pending", HandlerPending.String())
	require.Equal(t, "Handled", HandlerHandled.String())
	require.Equal(t, "Unknown", HandlerState(9).String())
}
