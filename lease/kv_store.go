package lease

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/feedsync/internal/natsutil"
	"github.com/arloliu/feedsync/types"
)

// KVStore persists leases in a NATS JetStream KeyValue bucket.
//
// Creation uses KV Create, which fails with ErrKeyExists when the record is
// already present, giving at-most-one-winner semantics across processes. Every
// update passes the lease ETag as the expected revision.
type KVStore struct {
	kv     jetstream.KeyValue
	prefix string
	storeOptions
}

var _ types.LeaseManager = (*KVStore)(nil)

// NewKVStore creates a lease store on an existing KV bucket.
//
// Parameters:
//   - kv: JetStream KV bucket (see kvutil.EnsureKVBucketWithRetry)
//   - prefix: Lease id prefix; stores with different prefixes can share a bucket
//   - opts: Optional logger, metrics and clock
//
// Example:
//
//	kv, _ := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "feedsync-leases"})
//	store := lease.NewKVStore(kv, "orders-feed", lease.WithLogger(logger))
//	l, created, err := store.CreateLeaseIfNotExist(ctx, fr, "", nil)
func NewKVStore(kv jetstream.KeyValue, prefix string, opts ...Option) *KVStore {
	s := &KVStore{kv: kv, prefix: prefix, storeOptions: defaultStoreOptions()}
	for _, opt := range opts {
		opt(&s.storeOptions)
	}

	return s
}

// CreateLeaseIfNotExist implements types.LeaseManager.
func (s *KVStore) CreateLeaseIfNotExist(ctx context.Context, feedRange types.FeedRange, continuationToken string, properties map[string]string) (*types.Lease, bool, error) {
	if feedRange == nil {
		return nil, false, fmt.Errorf("%w: feed range is required", types.ErrInvalidLease)
	}

	l := &types.Lease{
		ID:                LeaseID(s.prefix, feedRange),
		FeedRange:         feedRange,
		ContinuationToken: continuationToken,
		Timestamp:         s.now(),
		Properties:        maps.Clone(properties),
	}
	data, err := Encode(l)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	rev, err := s.kv.Create(ctx, KeyFor(l.ID), data)
	s.metrics.RecordKVOperationDuration("create", time.Since(start).Seconds())

	if errors.Is(err, jetstream.ErrKeyExists) {
		s.logger.Debug("lease already exists", "lease_id", l.ID)

		existing, err := s.GetLease(ctx, l.ID)
		if errors.Is(err, types.ErrLeaseNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}

		return existing, false, nil
	}
	if err != nil {
		return nil, false, s.wrap("failed to create lease "+l.ID, err)
	}

	l.ETag = FormatETag(rev)
	s.logger.Info("lease created", "lease_id", l.ID, "range", feedRange.Range().String(), "kind", feedRange.Kind().String(), "revision", rev)

	return l, true, nil
}

// GetLease implements types.LeaseManager.
func (s *KVStore) GetLease(ctx context.Context, id string) (*types.Lease, error) {
	start := time.Now()
	entry, err := s.kv.Get(ctx, KeyFor(id))
	s.metrics.RecordKVOperationDuration("get", time.Since(start).Seconds())

	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrLeaseNotFound, id)
	}
	if err != nil {
		return nil, s.wrap("failed to read lease "+id, err)
	}

	l, err := Decode(entry.Value(), entry.Revision())
	if err != nil {
		return nil, err
	}
	if l.ID != id {
		return nil, fmt.Errorf("%w: key %s holds lease %s", types.ErrInvalidLease, entry.Key(), l.ID)
	}

	return l, nil
}

// ListLeases implements types.LeaseManager.
//
// Records that disappear between listing and reading are skipped, as are
// documents that cannot be decoded.
func (s *KVStore) ListLeases(ctx context.Context) ([]types.Lease, error) {
	start := time.Now()
	keys, err := s.kv.Keys(ctx)
	s.metrics.RecordKVOperationDuration("keys", time.Since(start).Seconds())

	if errors.Is(err, jetstream.ErrNoKeysFound) || types.IsNoKeysFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("failed to list lease keys", err)
	}

	idPrefix := s.prefix + ".."
	leases := make([]types.Lease, 0, len(keys))
	for _, key := range keys {
		if !isLeaseKey(key) {
			continue
		}

		entry, err := s.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, s.wrap("failed to read lease key "+key, err)
		}

		l, err := Decode(entry.Value(), entry.Revision())
		if err != nil {
			s.logger.Warn("skipping malformed lease document", "key", key, "error", err)
			continue
		}
		if !strings.HasPrefix(l.ID, idPrefix) {
			continue
		}
		leases = append(leases, *l)
	}

	return leases, nil
}

// Checkpoint implements types.LeaseManager.
func (s *KVStore) Checkpoint(ctx context.Context, l *types.Lease, continuationToken string) (*types.Lease, error) {
	return s.update(ctx, l, func(next *types.Lease) {
		next.ContinuationToken = continuationToken
	})
}

// Acquire implements types.LeaseManager.
func (s *KVStore) Acquire(ctx context.Context, l *types.Lease, owner string) (*types.Lease, error) {
	return s.update(ctx, l, func(next *types.Lease) {
		next.Owner = owner
	})
}

// Release implements types.LeaseManager.
func (s *KVStore) Release(ctx context.Context, l *types.Lease) (*types.Lease, error) {
	return s.update(ctx, l, func(next *types.Lease) {
		next.Owner = ""
	})
}

func (s *KVStore) update(ctx context.Context, l *types.Lease, mutate func(*types.Lease)) (*types.Lease, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: lease is required", types.ErrInvalidLease)
	}
	rev, err := ParseETag(l.ETag)
	if err != nil {
		return nil, err
	}

	next := l.Clone()
	mutate(next)
	next.Timestamp = s.now()

	data, err := Encode(next)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	newRev, err := s.kv.Update(ctx, KeyFor(next.ID), data, rev)
	s.metrics.RecordKVOperationDuration("update", time.Since(start).Seconds())

	// A wrong last sequence is reported as ErrKeyExists.
	if errors.Is(err, jetstream.ErrKeyExists) {
		return nil, fmt.Errorf("%w: %s at revision %d", types.ErrLeaseLost, l.ID, rev)
	}
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrLeaseNotFound, l.ID)
	}
	if err != nil {
		return nil, s.wrap("failed to update lease "+l.ID, err)
	}

	next.ETag = FormatETag(newRev)

	return next, nil
}

// Delete implements types.LeaseManager.
func (s *KVStore) Delete(ctx context.Context, l *types.Lease) error {
	if l == nil || l.ID == "" {
		return fmt.Errorf("%w: lease id is required", types.ErrInvalidLease)
	}

	start := time.Now()
	err := s.kv.Delete(ctx, KeyFor(l.ID))
	s.metrics.RecordKVOperationDuration("delete", time.Since(start).Seconds())

	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return s.wrap("failed to delete lease "+l.ID, err)
	}
	s.logger.Info("lease deleted", "lease_id", l.ID)

	return nil
}

// wrap adds types.ErrConnectivity to errors caused by the NATS connection.
func (s *KVStore) wrap(msg string, err error) error {
	if natsutil.IsConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", msg, types.ErrConnectivity, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
