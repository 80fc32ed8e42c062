package types

import "context"

// LeaseManager persists lease records in a backing store.
//
// Cross-process coordination happens only through the store primitives:
// creation has at-most-one-winner semantics and every update is guarded by the
// lease ETag. Implementations must be safe for concurrent use.
type LeaseManager interface {
	// CreateLeaseIfNotExist creates the lease for feedRange unless one already exists.
	//
	// Safe to call concurrently from many consumer instances for the same range:
	// exactly one call creates the lease, the others observe created == false and
	// the stored record, so a retried caller still gets a handle on the lease.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - feedRange: Range the new lease owns
	//   - continuationToken: Starting position ("" = start fresh)
	//   - properties: Initial property bag (may be nil)
	//
	// Returns:
	//   - *Lease: The created lease, or the existing one when created is false
	//     (nil only if it was deleted before it could be read)
	//   - bool: true if this call created the lease
	//   - error: Store error (nil on success or already-exists)
	CreateLeaseIfNotExist(ctx context.Context, feedRange FeedRange, continuationToken string, properties map[string]string) (*Lease, bool, error)

	// GetLease reads one lease by id. Returns ErrLeaseNotFound if it does not exist.
	GetLease(ctx context.Context, id string) (*Lease, error)

	// ListLeases returns every lease in the store, in no particular order.
	ListLeases(ctx context.Context) ([]Lease, error)

	// Checkpoint records a new continuation token. Returns ErrLeaseLost if the lease
	// changed since it was read.
	Checkpoint(ctx context.Context, lease *Lease, continuationToken string) (*Lease, error)

	// Acquire sets the lease owner. Returns ErrLeaseLost if the lease changed since it was read.
	Acquire(ctx context.Context, lease *Lease, owner string) (*Lease, error)

	// Release clears the lease owner. Returns ErrLeaseLost if the lease changed since it was read.
	Release(ctx context.Context, lease *Lease) (*Lease, error)

	// Delete removes the lease. Deleting a lease that no longer exists is not an error.
	Delete(ctx context.Context, lease *Lease) error
}
