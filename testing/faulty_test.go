package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/feedsync/types"
)

type memoryStub struct {
	types.LeaseManager

	deletes int
}

func (m *memoryStub) Delete(_ context.Context, _ *types.Lease) error {
	m.deletes++
	return nil
}

func TestFaultyLeaseManager_FailDeletes(t *testing.T) {
	inner := &memoryStub{}
	f := NewFaultyLeaseManager(inner)
	l := &types.Lease{ID: "feed..0"}

	f.FailDeletes(true)
	require.ErrorIs(t, f.Delete(t.Context(), l), ErrInjected)
	require.Equal(t, 0, inner.deletes)

	f.Reset()
	require.NoError(t, f.Delete(t.Context(), l))
	require.Equal(t, 1, inner.deletes)
	require.Equal(t, 2, f.DeleteCalls())
}

func TestFaultyLeaseManager_FailCreateFor(t *testing.T) {
	f := NewFaultyLeaseManager(&memoryStub{})
	f.FailCreateFor("7")

	_, created, err := f.CreateLeaseIfNotExist(t.Context(), types.NewPartitionFeedRange(types.PartitionKeyRange{ID: "7", MaxExclusive: "FF"}), "", nil)
	require.ErrorIs(t, err, ErrInjected)
	require.False(t, created)
	require.Equal(t, 1, f.CreateCalls())
}
