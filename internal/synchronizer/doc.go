// Package synchronizer reconciles partition topology against the lease store.
//
// Synchronizer.CreateMissingLeases fills coverage gaps at startup and on every
// sync tick. When a feed pull reports that its range is gone,
// Synchronizer.GoneHandler inspects the topology under the lease and returns a
// SplitHandler (several partitions now overlap the lease) or a MergeHandler
// (one wider partition replaced it). Loop drives periodic reconciliation.
package synchronizer
