package lease

import (
	"time"

	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/internal/metrics"
	"github.com/arloliu/feedsync/types"
)

// Option configures a lease store.
type Option func(*storeOptions)

type storeOptions struct {
	logger  types.Logger
	metrics types.LeaseMetrics
	now     func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
		now:     time.Now,
	}
}

// WithLogger sets the store logger.
func WithLogger(logger types.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logging.OrNop(logger)
	}
}

// WithMetrics sets the store metrics sink.
func WithMetrics(m types.LeaseMetrics) Option {
	return func(o *storeOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the clock used for lease timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}
