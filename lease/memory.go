package lease

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/arloliu/feedsync/types"
)

// Memory is an in-process lease store.
//
// It has the same create and concurrency-tag semantics as KVStore and is used
// by tests and single-process deployments.
type Memory struct {
	mu       sync.Mutex
	prefix   string
	revision uint64
	records  map[string]*types.Lease
	storeOptions
}

var _ types.LeaseManager = (*Memory)(nil)

// NewMemory creates an empty in-process lease store.
func NewMemory(prefix string, opts ...Option) *Memory {
	m := &Memory{
		prefix:       prefix,
		records:      make(map[string]*types.Lease),
		storeOptions: defaultStoreOptions(),
	}
	for _, opt := range opts {
		opt(&m.storeOptions)
	}

	return m
}

// CreateLeaseIfNotExist implements types.LeaseManager.
func (m *Memory) CreateLeaseIfNotExist(ctx context.Context, feedRange types.FeedRange, continuationToken string, properties map[string]string) (*types.Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if feedRange == nil {
		return nil, false, fmt.Errorf("%w: feed range is required", types.ErrInvalidLease)
	}

	id := LeaseID(m.prefix, feedRange)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records[id]; ok {
		return existing.Clone(), false, nil
	}

	m.revision++
	l := &types.Lease{
		ID:                id,
		FeedRange:         feedRange,
		ContinuationToken: continuationToken,
		ETag:              FormatETag(m.revision),
		Timestamp:         m.now(),
		Properties:        maps.Clone(properties),
	}
	m.records[id] = l
	m.logger.Debug("lease created", "lease_id", id)

	return l.Clone(), true, nil
}

// GetLease implements types.LeaseManager.
func (m *Memory) GetLease(ctx context.Context, id string) (*types.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrLeaseNotFound, id)
	}

	return l.Clone(), nil
}

// ListLeases implements types.LeaseManager. Leases are ordered by id.
func (m *Memory) ListLeases(ctx context.Context) ([]types.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := slices.Sorted(maps.Keys(m.records))
	out := make([]types.Lease, 0, len(ids))
	for _, id := range ids {
		if !strings.HasPrefix(id, m.prefix+"..") {
			continue
		}
		out = append(out, *m.records[id].Clone())
	}

	return out, nil
}

// Checkpoint implements types.LeaseManager.
func (m *Memory) Checkpoint(ctx context.Context, l *types.Lease, continuationToken string) (*types.Lease, error) {
	return m.update(ctx, l, func(next *types.Lease) {
		next.ContinuationToken = continuationToken
	})
}

// Acquire implements types.LeaseManager.
func (m *Memory) Acquire(ctx context.Context, l *types.Lease, owner string) (*types.Lease, error) {
	return m.update(ctx, l, func(next *types.Lease) {
		next.Owner = owner
	})
}

// Release implements types.LeaseManager.
func (m *Memory) Release(ctx context.Context, l *types.Lease) (*types.Lease, error) {
	return m.update(ctx, l, func(next *types.Lease) {
		next.Owner = ""
	})
}

func (m *Memory) update(ctx context.Context, l *types.Lease, mutate func(*types.Lease)) (*types.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w: lease is required", types.ErrInvalidLease)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[l.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrLeaseNotFound, l.ID)
	}
	if current.ETag != l.ETag {
		return nil, fmt.Errorf("%w: %s has etag %s, caller holds %s", types.ErrLeaseLost, l.ID, current.ETag, l.ETag)
	}

	next := current.Clone()
	mutate(next)
	m.revision++
	next.ETag = FormatETag(m.revision)
	next.Timestamp = m.now()
	m.records[l.ID] = next

	return next.Clone(), nil
}

// Delete implements types.LeaseManager.
func (m *Memory) Delete(ctx context.Context, l *types.Lease) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil || l.ID == "" {
		return fmt.Errorf("%w: lease id is required", types.ErrInvalidLease)
	}

	m.mu.Lock()
	delete(m.records, l.ID)
	m.mu.Unlock()

	m.logger.Debug("lease deleted", "lease_id", l.ID)

	return nil
}

// Len returns the number of stored leases.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}
