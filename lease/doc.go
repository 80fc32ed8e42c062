// Package lease provides types.LeaseManager implementations.
//
//   - KVStore: durable leases in a NATS JetStream KeyValue bucket
//   - Memory: process-local leases for tests and single-instance deployments
//
// Both derive the lease id from the feed range token, so creating a lease for
// the same range twice always targets the same record and create-if-not-exist
// has at-most-one-winner semantics across competing consumers.
package lease
