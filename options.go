package feedsync

// Option configures a Processor with optional dependencies.
type Option func(*processorOptions)

// processorOptions holds optional Processor configuration.
type processorOptions struct {
	leaseManager LeaseManager
	hooks        *Hooks
	metrics      MetricsCollector
	logger       Logger
}

// WithLeaseManager replaces the NATS KV lease store.
//
// When set, Start does not create the lease bucket and the NATS connection
// passed to NewProcessor may be nil.
//
// Parameters:
//   - leases: LeaseManager implementation
//
// Returns:
//   - Option: Functional option for NewProcessor
//
// Example:
//
//	p, err := feedsync.NewProcessor(&cfg, nil, src, feedsync.WithLeaseManager(lease.NewMemory("orders")))
func WithLeaseManager(leases LeaseManager) Option {
	return func(o *processorOptions) {
		o.leaseManager = leases
	}
}

// WithHooks sets lease lifecycle hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions; nil callbacks are ignored
//
// Returns:
//   - Option: Functional option for NewProcessor
//
// Example:
//
//	hooks := &feedsync.Hooks{
//	    OnLeaseDeleted: func(ctx context.Context, l feedsync.Lease) error {
//	        stopPump(l.ID)
//	        return nil
//	    },
//	}
//	p, err := feedsync.NewProcessor(&cfg, nc, src, feedsync.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *processorOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Example:
//
//	p, err := feedsync.NewProcessor(&cfg, nc, src, feedsync.WithMetrics(feedsync.NewPrometheusMetrics(reg, "")))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *processorOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewProcessor
func WithLogger(logger Logger) Option {
	return func(o *processorOptions) {
		o.logger = logger
	}
}
