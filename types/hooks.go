package types

import "context"

// Hooks defines callbacks for Processor lease lifecycle events.
//
// All hooks are optional. Hooks receive the processor's lifecycle context which
// is cancelled during shutdown. Hook errors are logged but never fail the
// operation that triggered them.
//
// Example:
//
//	hooks := &feedsync.Hooks{
//	    OnLeasesCreated: func(ctx context.Context, leases []feedsync.Lease) error {
//	        for _, l := range leases {
//	            startPump(ctx, l)
//	        }
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnLeasesCreated is called with leases created by synchronization or gone handling.
	OnLeasesCreated func(ctx context.Context, leases []Lease) error

	// OnLeaseDeleted is called after a superseded lease was removed.
	OnLeaseDeleted func(ctx context.Context, lease Lease) error

	// OnError is called when a recoverable error occurs in the background loop.
	OnError func(ctx context.Context, err error) error
}
