package feedsync

import "github.com/arloliu/feedsync/types"

// Sentinel errors re-exported from the types package.
var (
	ErrInvalidConfig          = types.ErrInvalidConfig
	ErrNATSConnectionRequired = types.ErrNATSConnectionRequired
	ErrTopologySourceRequired = types.ErrTopologySourceRequired
	ErrAlreadyStarted         = types.ErrAlreadyStarted
	ErrNotStarted             = types.ErrNotStarted
	ErrConnectivity           = types.ErrConnectivity

	ErrInvalidSessionToken    = types.ErrInvalidSessionToken
	ErrPartitionRangeIDAbsent = types.ErrPartitionRangeIDAbsent

	ErrLeaseCreationFailed = types.ErrLeaseCreationFailed
	ErrLeaseNotFound       = types.ErrLeaseNotFound
	ErrLeaseLost           = types.ErrLeaseLost
	ErrInvalidLease        = types.ErrInvalidLease

	ErrTopologyFetchFailed = types.ErrTopologyFetchFailed
	ErrRangeNotFound       = types.ErrRangeNotFound
	ErrGoneAlreadyHandled  = types.ErrGoneAlreadyHandled
)
