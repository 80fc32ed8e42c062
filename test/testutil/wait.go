package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/feedsync/types"
)

// LeaseLister is the subset of Processor methods needed for waiting.
type LeaseLister interface {
	Leases(ctx context.Context) ([]types.Lease, error)
}

// WaitForLeases polls l until cond accepts the lease list or the timeout expires.
//
// Parameters:
//   - ctx: Context for cancellation
//   - l: Processor or lease store to poll
//   - timeout: Maximum time to wait
//   - cond: Predicate over the current lease list
//
// Returns:
//   - []types.Lease: The accepted lease list
//   - error: Timeout error carrying the last observed count, or ctx error
//
// Example:
//
//	leases, err := testutil.WaitForLeases(ctx, p, 5*time.Second, func(ls []types.Lease) bool {
//	    return len(ls) == 4
//	})
func WaitForLeases(ctx context.Context, l LeaseLister, timeout time.Duration, cond func([]types.Lease) bool) ([]types.Lease, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		leases, err := l.Leases(ctx)
		if err == nil {
			if cond(leases) {
				return leases, nil
			}
			last = len(leases)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("condition not met within %v (last lease count %d): %w", timeout, last, ctx.Err())
		case <-ticker.C:
		}
	}
}
