package synchronizer

import (
	"context"
	"sync/atomic"

	"github.com/arloliu/feedsync/types"
)

// HandlerState is the lifecycle state of a gone handler.
type HandlerState int32

const (
	// HandlerPending means HandlePartitionGone has not been called yet.
	HandlerPending HandlerState = iota

	// HandlerHandled is terminal; the handler cannot run again.
	HandlerHandled
)

// String returns a human readable state name.
func (s HandlerState) String() string {
	switch s {
	case HandlerPending:
		return "Pending"
	case HandlerHandled:
		return "Handled"
	default:
		return "Unknown"
	}
}

// GoneHandler computes the lease mutation for a feed range that no longer exists.
//
// A handler runs once. There is no internal retry: after a failure the caller
// re-checks topology and builds a new handler, which is safe because lease
// creation is create-if-not-exists.
type GoneHandler interface {
	// HandlePartitionGone creates the replacement leases.
	//
	// Replacement leases that already exist, for example after a retry, are
	// returned too, so the result is the same however often the gone range
	// is handled.
	//
	// Returns:
	//   - []types.Lease: Leases the consumer should continue with
	//   - error: ErrLeaseCreationFailed, ErrGoneAlreadyHandled on a second call
	HandlePartitionGone(ctx context.Context) ([]types.Lease, error)

	// CreatedLeases returns the leases HandlePartitionGone created itself.
	//
	// Valid after HandlePartitionGone returned; a subset of its result.
	CreatedLeases() []types.Lease

	// ShouldDeleteCurrentLease reports whether the gone lease is superseded.
	ShouldDeleteCurrentLease() bool

	// State returns the handler state.
	State() HandlerState

	// Kind returns "split" or "merge".
	Kind() string
}

// handlerState is the shared PENDING to HANDLED transition.
type handlerState struct {
	state   atomic.Int32
	created []types.Lease
}

// begin moves the handler to HandlerHandled, failing if it already was.
func (h *handlerState) begin() error {
	if !h.state.CompareAndSwap(int32(HandlerPending), int32(HandlerHandled)) {
		return types.ErrGoneAlreadyHandled
	}

	return nil
}

// State implements GoneHandler.
func (h *handlerState) State() HandlerState {
	return HandlerState(h.state.Load())
}

// CreatedLeases implements GoneHandler.
func (h *handlerState) CreatedLeases() []types.Lease {
	return h.created
}
