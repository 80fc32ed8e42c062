package topology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/feedsync/types"
)

func twoPartitions() []types.PartitionKeyRange {
	return []types.PartitionKeyRange{
		{ID: "1", MinInclusive: "80", MaxExclusive: "FF"},
		{ID: "0", MinInclusive: "", MaxExclusive: "80"},
	}
}

func TestStatic_GetOverlappingRanges(t *testing.T) {
	src := NewStatic(twoPartitions())
	ctx := context.Background()

	t.Run("full range is sorted", func(t *testing.T) {
		got, err := src.GetOverlappingRanges(ctx, types.FullRange())
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "0", got[0].ID)
		require.Equal(t, "1", got[1].ID)
	})

	t.Run("sub range", func(t *testing.T) {
		got, err := src.GetOverlappingRanges(ctx, types.Range{Min: "90", Max: "A0"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "1", got[0].ID)
	})

	t.Run("touching boundary does not overlap", func(t *testing.T) {
		got, err := src.GetOverlappingRanges(ctx, types.Range{Min: "", Max: "80"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "0", got[0].ID)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		got, err := src.GetOverlappingRanges(ctx, types.FullRange())
		require.NoError(t, err)
		got[0].ID = "mutated"

		again, err := src.GetOverlappingRanges(ctx, types.FullRange())
		require.NoError(t, err)
		require.Equal(t, "0", again[0].ID)
	})
}

func TestStatic_Split(t *testing.T) {
	src := NewStatic([]types.PartitionKeyRange{{ID: "1", MinInclusive: "AA", MaxExclusive: "CC", Parents: []string{"0"}}})

	require.NoError(t, src.Split("1", "BB", "2", "3"))

	got := src.Ranges()
	require.Equal(t, []types.PartitionKeyRange{
		{ID: "2", MinInclusive: "AA", MaxExclusive: "BB", Parents: []string{"0", "1"}},
		{ID: "3", MinInclusive: "BB", MaxExclusive: "CC", Parents: []string{"0", "1"}},
	}, got)

	require.ErrorIs(t, src.Split("1", "BB", "4", "5"), types.ErrRangeNotFound)
	require.ErrorIs(t, src.Split("2", "AA", "4", "5"), types.ErrInvalidConfig)
}

func TestStatic_Merge(t *testing.T) {
	src := NewStatic([]types.PartitionKeyRange{
		{ID: "1", MinInclusive: "AA", MaxExclusive: "BB"},
		{ID: "2", MinInclusive: "BB", MaxExclusive: "CC"},
		{ID: "3", MinInclusive: "CC", MaxExclusive: "DD"},
	})

	require.ErrorIs(t, src.Merge("1", "3", "9"), types.ErrInvalidConfig)
	require.ErrorIs(t, src.Merge("1", "7", "9"), types.ErrRangeNotFound)
	require.NoError(t, src.Merge("1", "2", "4"))

	got := src.Ranges()
	require.Len(t, got, 2)
	require.Equal(t, types.PartitionKeyRange{ID: "4", MinInclusive: "AA", MaxExclusive: "CC", Parents: []string{"1", "2"}}, got[0])
	require.Equal(t, "3", got[1].ID)
}

func TestStatic_MergeKeepsLineage(t *testing.T) {
	src := NewStatic([]types.PartitionKeyRange{
		{ID: "1", MinInclusive: "AA", MaxExclusive: "CC", Parents: []string{"0"}},
		{ID: "5", MinInclusive: "CC", MaxExclusive: "DD", Parents: []string{"0", "4"}},
	})

	require.NoError(t, src.Split("1", "BB", "2", "3"))
	require.NoError(t, src.Merge("3", "5", "6"))

	got := src.Ranges()
	require.Len(t, got, 2)
	require.Equal(t, []string{"0", "1"}, got[0].Parents)
	require.Equal(t, types.PartitionKeyRange{
		ID:           "6",
		MinInclusive: "BB",
		MaxExclusive: "DD",
		Parents:      []string{"0", "1", "4", "3", "5"},
	}, got[1])
}

func TestStatic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic(twoPartitions()).GetOverlappingRanges(ctx, types.FullRange())
	require.ErrorIs(t, err, context.Canceled)
}
