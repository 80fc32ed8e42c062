package session

import (
	"strings"

	"github.com/arloliu/feedsync/types"
)

// Header names exchanged with the data service.
const (
	// SessionTokenHeader carries "<range>:<lsn>[,<range>:<lsn>...]".
	SessionTokenHeader = "x-ms-session-token"

	// OwnerIDHeader carries the resource id of the collection that served the request.
	OwnerIDHeader = "x-ms-content-path"

	// OwnerFullNameHeader carries the name-based path of the collection.
	OwnerFullNameHeader = "x-ms-alt-content-path"
)

// localRangePlaceholder is the range id sent upstream with a resolved partition-local token.
const localRangePlaceholder = "0"

// Request is the part of an outgoing request the session cache needs.
type Request struct {
	// IsMasterResource marks requests for databases, collections and other
	// metadata resources; their responses never update the cache.
	IsMasterResource bool

	// ResourceAddress is the name-based collection path, e.g. "dbs/app/colls/orders".
	ResourceAddress string

	// CollectionRID is the collection resource id when already resolved.
	CollectionRID string

	// PartitionKeyRange is the partition the request was routed to.
	PartitionKeyRange *types.PartitionKeyRange
}

// collectionRef returns the best identifier available for the target collection.
func (r *Request) collectionRef() string {
	if r.CollectionRID != "" {
		return r.CollectionRID
	}

	return normalizeName(r.ResourceAddress)
}

func normalizeName(name string) string {
	return strings.Trim(name, "/")
}
