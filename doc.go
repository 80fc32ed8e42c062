// Package feedsync keeps the durable lease set of a partitioned change feed
// consistent with a partition topology that splits and merges, and caches
// session tokens for read-your-own-write consistency.
//
// # Quick Start
//
//	cfg := feedsync.DefaultConfig()
//	cfg.LeasePrefix = "orders"
//
//	src := topology.NewStatic(ranges)
//	p, err := feedsync.NewProcessor(&cfg, natsConn, src,
//	    feedsync.WithLogger(feedsync.NewSlogLogger(nil)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop(context.Background())
//
// # Leases
//
// A lease binds a feed range to a continuation token and an owner. A feed
// range either names one physical partition (PartitionFeedRange) or an
// effective partition key interval (EffectiveFeedRange). The variant of a
// lease never changes; converting one creates a new lease.
//
// Leases live in a NATS JetStream KV bucket. Creation uses KV Create so that
// competing processors never create the same lease twice, and every update
// carries the revision it was read at.
//
// # Topology changes
//
// The processor creates leases for uncovered partitions at startup and every
// SyncInterval. When a feed pull reports that its range is gone, call
// HandleGone:
//
//	res, err := p.HandleGone(ctx, &l)
//	for _, next := range res.Leases {
//	    startPump(ctx, next)
//	}
//
// A split creates one lease per child partition. A merge converts a partition
// lease into an effective-range lease over the same interval, keeping its
// continuation token; an effective-range lease is kept as is.
//
// # Session tokens
//
// Processor.Sessions returns a session.Container. Feed every response through
// SetSessionToken and ask RequestSessionToken for the header of the next request.
package feedsync
