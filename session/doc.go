// Package session implements the session token cache used for read-your-own-write
// consistency.
//
// Every response from the data service carries a session token header listing, per
// physical partition, the highest log sequence number (LSN) the write or read was
// served at:
//
//	x-ms-session-token: 0:120,1:87
//
// Container remembers the maximum LSN ever observed per collection and partition.
// Before a request is sent, the partition-local token is resolved (falling back to
// the partition's ancestors after a split or merge) and sent upstream as "0:<lsn>".
//
// The cache holds no global lock: collections and partitions live in xsync maps and
// each partition slot is an atomic pointer updated with a compare-and-swap loop, so
// writers on unrelated partitions never serialize and concurrent writers on the same
// partition never lose an update.
package session
