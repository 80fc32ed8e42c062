// Package topology provides types.TopologySource implementations.
//
//   - Static: in-memory partition list with split and merge helpers for tests
//   - KVSource: partition list published to a NATS JetStream KeyValue bucket
//
// Custom sources can be implemented by satisfying the types.TopologySource interface.
package topology
