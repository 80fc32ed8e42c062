package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the feedsync library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).

// Processor errors - Public API errors returned by the Processor.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNATSConnectionRequired is returned when NATS connection is nil.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")

	// ErrTopologySourceRequired is returned when the topology source is nil.
	ErrTopologySourceRequired = errors.New("topology source is required")

	// ErrAlreadyStarted is returned when Start is called on an already running processor.
	ErrAlreadyStarted = errors.New("processor already started")

	// ErrNotStarted is returned when operations require a started processor.
	ErrNotStarted = errors.New("processor not started")

	// ErrConnectivity indicates a NATS/KV connectivity issue.
	ErrConnectivity = errors.New("connectivity issue")
)

// Session errors - Session token parsing and resolution.
var (
	// ErrInvalidSessionToken is returned when a session token is malformed or
	// cannot be compared with another token.
	ErrInvalidSessionToken = errors.New("invalid session token")

	// ErrPartitionRangeIDAbsent is returned when partition-local resolution is
	// requested without a resolved partition key range id.
	ErrPartitionRangeIDAbsent = errors.New("partition key range id absent")
)

// Lease errors - Lease store and lease mutation failures.
var (
	// ErrLeaseCreationFailed is returned when a lease could not be persisted.
	// Retrying is safe because creation is create-if-not-exists.
	ErrLeaseCreationFailed = errors.New("lease creation failed")

	// ErrLeaseNotFound is returned when a lease does not exist in the store.
	ErrLeaseNotFound = errors.New("lease not found")

	// ErrLeaseLost is returned when a lease changed in the store since it was read.
	ErrLeaseLost = errors.New("lease lost: concurrency tag mismatch")

	// ErrInvalidLease is returned when a lease or its stored document is malformed.
	ErrInvalidLease = errors.New("invalid lease")
)

// Synchronizer errors - Topology reconciliation failures.
var (
	// ErrTopologyFetchFailed is returned when current partition ranges could not be enumerated.
	ErrTopologyFetchFailed = errors.New("topology fetch failed")

	// ErrRangeNotFound is returned when no partition overlaps a lease interval.
	ErrRangeNotFound = errors.New("no overlapping partition key range")

	// ErrGoneAlreadyHandled is returned when a gone handler is invoked twice.
	ErrGoneAlreadyHandled = errors.New("feed range gone already handled")
)

// Common errors - Shared errors used across multiple components.
var (
	// ErrNoKeysFound is returned when NATS KV returns no keys (expected condition).
	ErrNoKeysFound = errors.New("no keys found")
)

// IsNoKeysFoundError checks if an error indicates that no keys were found in NATS KV.
//
// This function handles NATS-specific "no keys found" errors which may come as:
//   - Direct error: "nats: no keys found"
//   - Wrapped error: "failed to list KV keys: nats: no keys found"
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error indicates no keys were found, false otherwise
func IsNoKeysFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoKeysFound) {
		return true
	}

	return strings.Contains(err.Error(), "no keys found")
}
