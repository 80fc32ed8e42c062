// Package hooks provides defaults for types.Hooks callbacks.
package hooks

import (
	"context"

	"github.com/arloliu/feedsync/types"
)

// NopHooks implements every hook callback as a no-op.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, []types.Lease) error = (*NopHooks)(nil).OnLeasesCreated
	_ func(context.Context, types.Lease) error   = (*NopHooks)(nil).OnLeaseDeleted
	_ func(context.Context, error) error         = (*NopHooks)(nil).OnError
)

// NewNop creates hooks whose callbacks all do nothing.
func NewNop() types.Hooks {
	return Fill(nil)
}

// Fill returns a copy of h with every nil callback replaced by a no-op.
//
// Callers can invoke any callback on the result without nil checks.
//
// Parameters:
//   - h: User hooks (may be nil)
//
// Returns:
//   - types.Hooks: Hooks with all callbacks set
func Fill(h *types.Hooks) types.Hooks {
	nop := &NopHooks{}

	var out types.Hooks
	if h != nil {
		out = *h
	}
	if out.OnLeasesCreated == nil {
		out.OnLeasesCreated = nop.OnLeasesCreated
	}
	if out.OnLeaseDeleted == nil {
		out.OnLeaseDeleted = nop.OnLeaseDeleted
	}
	if out.OnError == nil {
		out.OnError = nop.OnError
	}

	return out
}

// OnLeasesCreated is a no-op implementation.
func (h *NopHooks) OnLeasesCreated(_ context.Context, _ []types.Lease) error {
	return nil
}

// OnLeaseDeleted is a no-op implementation.
func (h *NopHooks) OnLeaseDeleted(_ context.Context, _ types.Lease) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
