package lease

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/xxh3"
)

// keyPrefix is the subject token every lease key starts with.
const keyPrefix = "lease."

// KeyFor maps a lease id onto a NATS KV key.
//
// Lease ids embed effective partition keys and user prefixes, which may be
// empty or contain characters KV keys reject, so the key is the 128-bit xxh3
// digest of the id. The id itself is kept inside the document.
func KeyFor(leaseID string) string {
	sum := xxh3.HashString128(leaseID).Bytes()

	return keyPrefix + hex.EncodeToString(sum[:])
}

// isLeaseKey reports whether a KV key belongs to a lease record.
func isLeaseKey(key string) bool {
	return strings.HasPrefix(key, keyPrefix)
}
