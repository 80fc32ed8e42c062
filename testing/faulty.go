package testing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/arloliu/feedsync/types"
)

// ErrInjected is the error returned by FaultyLeaseManager for injected failures.
var ErrInjected = errors.New("injected lease store failure")

// FaultyLeaseManager wraps a LeaseManager and fails selected calls.
//
// The zero configuration passes every call through. It is safe for concurrent use.
type FaultyLeaseManager struct {
	types.LeaseManager

	mu          sync.Mutex
	failCreate  map[string]bool
	failDelete  bool
	createCalls atomic.Int64
	deleteCalls atomic.Int64
}

var _ types.LeaseManager = (*FaultyLeaseManager)(nil)

// NewFaultyLeaseManager wraps inner.
func NewFaultyLeaseManager(inner types.LeaseManager) *FaultyLeaseManager {
	return &FaultyLeaseManager{LeaseManager: inner, failCreate: make(map[string]bool)}
}

// FailCreateFor makes CreateLeaseIfNotExist fail for feed ranges with the given token.
func (f *FaultyLeaseManager) FailCreateFor(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failCreate[token] = true
}

// FailDeletes makes every Delete call fail.
func (f *FaultyLeaseManager) FailDeletes(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failDelete = fail
}

// Reset removes every injected failure.
func (f *FaultyLeaseManager) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	clear(f.failCreate)
	f.failDelete = false
}

// CreateCalls returns how many create calls were made.
func (f *FaultyLeaseManager) CreateCalls() int {
	return int(f.createCalls.Load())
}

// DeleteCalls returns how many delete calls were made.
func (f *FaultyLeaseManager) DeleteCalls() int {
	return int(f.deleteCalls.Load())
}

// CreateLeaseIfNotExist fails for configured tokens and delegates otherwise.
func (f *FaultyLeaseManager) CreateLeaseIfNotExist(ctx context.Context, feedRange types.FeedRange, continuationToken string, properties map[string]string) (*types.Lease, bool, error) {
	f.createCalls.Add(1)

	f.mu.Lock()
	fail := feedRange != nil && f.failCreate[feedRange.Token()]
	f.mu.Unlock()

	if fail {
		return nil, false, ErrInjected
	}

	return f.LeaseManager.CreateLeaseIfNotExist(ctx, feedRange, continuationToken, properties)
}

// Delete fails when configured and delegates otherwise.
func (f *FaultyLeaseManager) Delete(ctx context.Context, l *types.Lease) error {
	f.deleteCalls.Add(1)

	f.mu.Lock()
	fail := f.failDelete
	f.mu.Unlock()

	if fail {
		return ErrInjected
	}

	return f.LeaseManager.Delete(ctx, l)
}
