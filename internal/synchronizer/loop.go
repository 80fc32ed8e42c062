package synchronizer

import (
	"context"
	"sync"
	"time"

	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/types"
)

// Loop runs a reconciliation function at a fixed interval.
//
// Each run gets its own timeout-bound context derived from the context passed
// to Start, so cancelling that context also aborts an in-flight run.
type Loop struct {
	interval time.Duration
	timeout  time.Duration
	run      func(ctx context.Context) error
	onError  func(ctx context.Context, err error)
	logger   types.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewLoop creates a periodic runner.
//
// Parameters:
//   - interval: Time between runs
//   - timeout: Upper bound for a single run (0 = no bound)
//   - run: Function executed on every tick
//   - onError: Optional callback for run errors
//   - logger: Optional logger
//
// Example:
//
//	loop := synchronizer.NewLoop(30*time.Second, 10*time.Second, func(ctx context.Context) error {
//	    _, err := s.CreateMissingLeases(ctx)
//	    return err
//	}, nil, logger)
//	_ = loop.Start(ctx)
//	defer loop.Stop()
func NewLoop(interval, timeout time.Duration, run func(ctx context.Context) error, onError func(ctx context.Context, err error), logger types.Logger) *Loop {
	return &Loop{
		interval: interval,
		timeout:  timeout,
		run:      run,
		onError:  onError,
		logger:   logging.OrNop(logger),
	}
}

// Start begins running in the background. The first run happens after one interval.
//
// Returns:
//   - error: ErrAlreadyStarted if running, ErrInvalidConfig for a non-positive interval
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return types.ErrAlreadyStarted
	}
	if l.interval <= 0 {
		return types.ErrInvalidConfig
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.started = true
	l.cancel = cancel
	l.doneCh = make(chan struct{})

	go l.loop(loopCtx, l.doneCh)

	return nil
}

// Stop stops the loop and waits for an in-flight run to return.
//
// Returns:
//   - error: ErrNotStarted if not running
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return types.ErrNotStarted
	}

	l.cancel()
	l.started = false
	done := l.doneCh
	l.mu.Unlock()

	<-done

	return nil
}

// IsStarted reports whether the loop is running.
func (l *Loop) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.started
}

func (l *Loop) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	runCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	err := l.run(runCtx)
	if err == nil || ctx.Err() != nil {
		return
	}

	l.logger.Warn("periodic run failed", "error", err)
	if l.onError != nil {
		l.onError(ctx, err)
	}
}
