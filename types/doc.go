// Package types provides core type definitions and interfaces for the feedsync library.
//
// This package contains shared types that are used across multiple packages in the
// library. By keeping these types in a separate package, we avoid import cycles
// between the root feedsync package and its internal implementations.
//
// Key types:
//   - Range: Half-open effective partition key interval
//   - PartitionKeyRange: Physical partition and its ancestry
//   - FeedRange: Partition-based or effective-range-based lease target
//   - Lease: Durable record of feed range ownership and progress
//   - LeaseManager, TopologySource: Collaborator interfaces
//   - Logger, MetricsCollector: Observability interfaces
package types
