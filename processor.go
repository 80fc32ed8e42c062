package feedsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/feedsync/internal/hash"
	"github.com/arloliu/feedsync/internal/hooks"
	"github.com/arloliu/feedsync/internal/kvutil"
	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/internal/metrics"
	"github.com/arloliu/feedsync/internal/natsutil"
	"github.com/arloliu/feedsync/internal/synchronizer"
	"github.com/arloliu/feedsync/lease"
	"github.com/arloliu/feedsync/session"
	"github.com/arloliu/feedsync/topology"
)

// GoneResult describes how a gone feed range was handled.
type GoneResult struct {
	// Kind is "split" or "merge".
	Kind string

	// Leases are the leases the consumer should continue with: the children
	// of a split, the converted lease of a merge, or the unchanged
	// effective-range lease of a merge. Replacements left by an earlier
	// attempt are included.
	Leases []Lease

	// Deleted reports whether the gone lease was removed from the store.
	Deleted bool
}

// Processor keeps the lease set of a change feed aligned with its partition topology.
//
// Processor is the main entry point of the library. It handles:
//   - Lease bucket bootstrap on NATS JetStream KV
//   - Initial and periodic creation of missing leases
//   - Split and merge handling when a feed pull reports a gone range
//   - Continuation checkpoints and lease ownership
//   - A process-wide session token cache for session consistency
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//
// Lifecycle:
//   - Create with NewProcessor()
//   - Call Start() to prepare storage and run the first synchronization
//   - Call HandleGone() whenever a feed pull reports its range is gone
//   - Call Stop() for graceful shutdown
type Processor struct {
	cfg      Config
	conn     *nats.Conn
	topology TopologySource

	hooks   Hooks
	metrics MetricsCollector
	logger  Logger

	sessions *session.Container

	mu     sync.RWMutex
	leases LeaseManager
	sync   *synchronizer.Synchronizer
	loop   *synchronizer.Loop
	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32
}

// NewProcessor creates a new Processor with the provided configuration.
//
// Parameters:
//   - cfg: Configuration; missing values are filled with defaults
//   - conn: NATS connection for the lease bucket (may be nil with WithLeaseManager)
//   - src: Source of the current partition key ranges
//   - opts: Optional configuration (lease manager, hooks, metrics, logger)
//
// Returns:
//   - *Processor: Initialized processor in StateInit
//   - error: ErrInvalidConfig, ErrNATSConnectionRequired, ErrTopologySourceRequired
//
// Example:
//
//	cfg := feedsync.DefaultConfig()
//	cfg.LeasePrefix = "orders"
//	src := topology.NewStatic(ranges)
//	p, err := feedsync.NewProcessor(&cfg, nc, src)
func NewProcessor(cfg *Config, conn *nats.Conn, src TopologySource, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if src == nil {
		return nil, ErrTopologySourceRequired
	}

	options := &processorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if conn == nil && options.leaseManager == nil {
		return nil, ErrNATSConnectionRequired
	}

	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logger := logging.OrNop(options.logger)
	cfg.ValidateWithWarnings(logger)
	collector := metrics.OrNop(options.metrics)

	p := &Processor{
		cfg:      *cfg,
		conn:     conn,
		topology: src,
		hooks:    hooks.Fill(options.hooks),
		metrics:  collector,
		logger:   logger,
		leases:   options.leaseManager,
		sessions: session.NewContainer(session.WithLogger(logger), session.WithMetrics(collector)),
	}
	p.state.Store(int32(StateInit))

	return p, nil
}

// Start prepares lease storage, runs the first synchronization and starts the sync loop.
//
// If the first synchronization fails the processor returns to StateInit and
// Start may be called again; lease creation is idempotent.
//
// Parameters:
//   - ctx: Context for cancellation; StartupTimeout is applied on top
//
// Returns:
//   - error: ErrAlreadyStarted, bucket errors, or the first synchronization error
func (p *Processor) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateInit), int32(StateStarting)) {
		return ErrAlreadyStarted
	}
	p.logger.Info("state transition", "from", StateInit.String(), "to", StateStarting.String(), "owner", p.cfg.Owner)

	if err := p.start(ctx); err != nil {
		p.state.Store(int32(StateInit))
		return err
	}

	p.state.Store(int32(StateRunning))
	p.logger.Info("state transition", "from", StateStarting.String(), "to", StateRunning.String(), "owner", p.cfg.Owner)

	return nil
}

func (p *Processor) start(ctx context.Context) error {
	startupCtx, cancel := context.WithTimeout(ctx, p.cfg.StartupTimeout)
	defer cancel()

	leases, err := p.ensureLeaseManager(startupCtx)
	if err != nil {
		return err
	}

	s, err := synchronizer.New(synchronizer.Config{
		Topology:                   p.topology,
		Leases:                     leases,
		MaxConcurrentCreates:       p.cfg.MaxConcurrentLeaseCreates,
		CreateEffectiveRangeLeases: p.cfg.CreateEffectiveRangeLeases,
		SplitInheritsContinuation:  p.cfg.SplitInheritsContinuation,
		Logger:                     p.logger,
		Metrics:                    p.metrics,
	})
	if err != nil {
		return err
	}

	lifecycleCtx, lifecycleCancel := context.WithCancel(context.Background())

	created, err := s.CreateMissingLeases(startupCtx)
	p.notifyCreated(lifecycleCtx, created)
	if err != nil {
		lifecycleCancel()
		return fmt.Errorf("initial lease synchronization failed: %w", err)
	}

	loop := synchronizer.NewLoop(p.cfg.SyncInterval, p.cfg.OperationTimeout, func(ctx context.Context) error {
		created, err := s.CreateMissingLeases(ctx)
		p.notifyCreated(ctx, created)

		return err
	}, p.reportError, p.logger)

	if err := loop.Start(lifecycleCtx); err != nil {
		lifecycleCancel()
		return fmt.Errorf("failed to start sync loop: %w", err)
	}

	p.mu.Lock()
	p.leases = leases
	p.sync = s
	p.loop = loop
	p.ctx = lifecycleCtx
	p.cancel = lifecycleCancel
	p.mu.Unlock()

	p.logger.Info("processor started", "lease_prefix", p.cfg.LeasePrefix, "initial_leases_created", len(created))

	return nil
}

// ensureLeaseManager returns the configured lease manager or builds a KV store.
func (p *Processor) ensureLeaseManager(ctx context.Context) (LeaseManager, error) {
	p.mu.RLock()
	leases := p.leases
	p.mu.RUnlock()

	if leases != nil {
		return leases, nil
	}

	js, err := jetstream.New(p.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      p.cfg.LeaseBucket,
		Description: "feedsync leases",
		History:     1,
	}, p.cfg.KVCreateRetries, p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create lease KV: %w", err)
	}

	return lease.NewKVStore(kv, p.cfg.LeasePrefix, lease.WithLogger(p.logger), lease.WithMetrics(p.metrics)), nil
}

// Stop stops the sync loop and waits for an in-flight run.
//
// Leases are left in the store so another processor can continue from their
// checkpoints.
//
// Parameters:
//   - ctx: Context for shutdown; ShutdownTimeout is applied on top
//
// Returns:
//   - error: ErrNotStarted if not running, or the context error on timeout
func (p *Processor) Stop(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrNotStarted
	}
	p.logger.Info("state transition", "from", StateRunning.String(), "to", StateStopping.String())

	p.mu.RLock()
	loop, cancel := p.loop, p.cancel
	p.mu.RUnlock()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan error, 1)
	go func() {
		done <- loop.Stop()
	}()

	var stopErr error
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, ErrNotStarted) {
			stopErr = err
		}
	case <-shutdownCtx.Done():
		p.logger.Error("shutdown timeout exceeded, sync loop may still be running")
		stopErr = shutdownCtx.Err()
	}

	cancel()
	p.state.Store(int32(StateStopped))
	p.logger.Info("processor stopped", "owner", p.cfg.Owner)

	return stopErr
}

// Sync runs one lease synchronization immediately.
//
// Returns:
//   - []Lease: Leases created by this run
//   - error: ErrNotStarted, ErrTopologyFetchFailed or joined ErrLeaseCreationFailed errors
func (p *Processor) Sync(ctx context.Context) ([]Lease, error) {
	s, err := p.synchronizer()
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	created, err := s.CreateMissingLeases(opCtx)
	p.notifyCreated(ctx, created)

	return created, err
}

// HandleGone replaces a lease whose feed range the feed service reported as gone.
//
// The topology decides between split and merge. When the handler reports the
// lease as superseded it is deleted from the store and OnLeaseDeleted fires.
// A failed split returns the children obtained so far together with the
// error; the gone lease is kept so the caller can retry. A retry returns the
// same replacement leases, including those an earlier attempt created, and
// OnLeasesCreated fires only for leases the current call created.
//
// Parameters:
//   - ctx: Context for cancellation; OperationTimeout is applied on top
//   - l: The lease whose range is gone
//
// Returns:
//   - GoneResult: Handler kind, leases to continue with, and whether l was deleted
//   - error: ErrNotStarted, ErrTopologyFetchFailed, ErrLeaseCreationFailed
func (p *Processor) HandleGone(ctx context.Context, l *Lease) (GoneResult, error) {
	s, err := p.synchronizer()
	if err != nil {
		return GoneResult{}, err
	}

	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	h, err := s.GoneHandler(opCtx, l)
	if err != nil {
		return GoneResult{}, err
	}

	result := GoneResult{Kind: h.Kind()}
	leases, err := h.HandlePartitionGone(opCtx)
	result.Leases = leases
	p.notifyCreated(ctx, h.CreatedLeases())
	if err != nil {
		return result, err
	}

	if !h.ShouldDeleteCurrentLease() {
		return result, nil
	}

	if err := p.leaseManager().Delete(opCtx, l); err != nil {
		return result, fmt.Errorf("failed to delete superseded lease %s: %w", l.ID, err)
	}
	result.Deleted = true
	p.metrics.RecordLeaseDeleted()

	if err := p.hooks.OnLeaseDeleted(p.lifecycleContext(), *l); err != nil {
		p.logger.Error("lease deleted hook error", "lease_id", l.ID, "error", err)
	}

	return result, nil
}

// Checkpoint stores a new continuation token on a lease.
//
// Returns:
//   - *Lease: Updated lease carrying the new ETag
//   - error: ErrNotStarted, ErrLeaseLost if the lease changed since it was read
func (p *Processor) Checkpoint(ctx context.Context, l *Lease, continuationToken string) (*Lease, error) {
	leases := p.leaseManager()
	if leases == nil {
		return nil, ErrNotStarted
	}

	return leases.Checkpoint(ctx, l, continuationToken)
}

// Acquire takes ownership of a lease for this processor's Owner.
func (p *Processor) Acquire(ctx context.Context, l *Lease) (*Lease, error) {
	leases := p.leaseManager()
	if leases == nil {
		return nil, ErrNotStarted
	}

	return leases.Acquire(ctx, l, p.cfg.Owner)
}

// Release clears the owner of a lease.
func (p *Processor) Release(ctx context.Context, l *Lease) (*Lease, error) {
	leases := p.leaseManager()
	if leases == nil {
		return nil, ErrNotStarted
	}

	return leases.Release(ctx, l)
}

// Leases lists every lease under the configured prefix.
func (p *Processor) Leases(ctx context.Context) ([]Lease, error) {
	leases := p.leaseManager()
	if leases == nil {
		return nil, ErrNotStarted
	}

	return leases.ListLeases(ctx)
}

// AssignedLeases returns the leases this processor should hold among a set of owners.
//
// Leases are spread over owners with a consistent hash ring, so every instance
// that sees the same lease set and owner list computes the same assignment.
// This processor's Owner is always part of the ring.
//
// Parameters:
//   - ctx: Context for cancellation
//   - owners: Identities of all live consumer instances
//
// Returns:
//   - []Lease: Leases mapped to Owner(), sorted by id
//   - error: ErrNotStarted or a store error
//
// Example:
//
//	mine, err := p.AssignedLeases(ctx, []string{"host-a", "host-b", p.Owner()})
//	for i := range mine {
//	    owned, err := p.Acquire(ctx, &mine[i])
//	    ...
//	}
func (p *Processor) AssignedLeases(ctx context.Context, owners []string) ([]Lease, error) {
	all, err := p.Leases(ctx)
	if err != nil {
		return nil, err
	}

	ring := hash.NewRing(append(slices.Clone(owners), p.cfg.Owner), hash.DefaultVirtualNodes, 0)

	return ring.Assign(all)[p.cfg.Owner], nil
}

// Sessions returns the process-wide session token cache.
func (p *Processor) Sessions() *session.Container {
	return p.sessions
}

// Owner returns the owner identity written on acquired leases.
func (p *Processor) Owner() string {
	return p.cfg.Owner
}

// State returns the current lifecycle state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

func (p *Processor) synchronizer() (*synchronizer.Synchronizer, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.sync == nil || p.State() != StateRunning {
		return nil, ErrNotStarted
	}

	return p.sync, nil
}

func (p *Processor) leaseManager() LeaseManager {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.leases
}

func (p *Processor) lifecycleContext() context.Context {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.ctx == nil {
		return context.Background()
	}

	return p.ctx
}

func (p *Processor) notifyCreated(ctx context.Context, created []Lease) {
	if len(created) == 0 {
		return
	}
	if err := p.hooks.OnLeasesCreated(ctx, created); err != nil {
		p.logger.Error("leases created hook error", "count", len(created), "error", err)
	}
}

// reportError logs a background error and forwards it to the OnError hook.
func (p *Processor) reportError(ctx context.Context, err error) {
	if natsutil.IsConnectivityError(err) {
		p.logger.Warn("lease synchronization degraded, retrying next tick", "error", err)
	} else {
		p.logger.Error("lease synchronization failed", "error", err)
	}
	if hookErr := p.hooks.OnError(ctx, err); hookErr != nil {
		p.logger.Error("error hook failed", "error", hookErr)
	}
}

// NewKVTopology opens cfg.TopologyBucket and returns a topology source reading from it.
//
// Parameters:
//   - ctx: Context for bucket creation
//   - cfg: Configuration (defaults are applied to a copy)
//   - conn: NATS connection
//   - logger: Optional logger
//
// Returns:
//   - *topology.KVSource: Source whose Publish method can also write the topology
//   - error: ErrNATSConnectionRequired or bucket error
//
// Example:
//
//	src, err := feedsync.NewKVTopology(ctx, &cfg, nc, nil)
//	_ = src.Publish(ctx, ranges)
//	p, err := feedsync.NewProcessor(&cfg, nc, src)
func NewKVTopology(ctx context.Context, cfg *Config, conn *nats.Conn, logger Logger) (*topology.KVSource, error) {
	if conn == nil {
		return nil, ErrNATSConnectionRequired
	}

	resolved := DefaultConfig()
	if cfg != nil {
		resolved = *cfg
	}
	SetDefaults(&resolved)

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      resolved.TopologyBucket,
		Description: "feedsync partition topology",
		History:     1,
	}, resolved.KVCreateRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create topology KV: %w", err)
	}

	return topology.NewKVSource(kv, topology.WithLogger(logger)), nil
}
