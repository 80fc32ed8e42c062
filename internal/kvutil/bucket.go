// Package kvutil provides helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/internal/natsutil"
	"github.com/arloliu/feedsync/types"
)

// DefaultRetries is used when EnsureKVBucketWithRetry gets a non-positive retry count.
const DefaultRetries = 3

// EnsureKVBucketWithRetry creates or opens a KV bucket, retrying transient failures.
//
// Several processors usually start at once and race to create the lease
// bucket; the losers see ErrBucketExists and open the existing bucket instead.
// Other failures are retried with exponential backoff (10ms, 20ms, 40ms, ...).
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: KV bucket configuration
//   - maxRetries: Maximum number of attempts (DefaultRetries if <= 0)
//   - logger: Optional logger for retry diagnostics
//
// Returns:
//   - jetstream.KeyValue: The KV bucket
//   - error: Last error after all attempts, wrapping ErrConnectivity for network failures
//
// Example:
//
//	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
//	    Bucket:  "feedsync-leases",
//	    History: 1,
//	}, 5, logger)
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	cfg jetstream.KeyValueConfig,
	maxRetries int,
	logger types.Logger,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultRetries
	}
	logger = logging.OrNop(logger)

	var lastErr error
	for attempt := range maxRetries {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during KV bucket creation: %w", ctx.Err())
		}
		if attempt == maxRetries-1 {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by maxRetries
		logger.Debug("retrying KV bucket creation", "bucket", cfg.Bucket, "attempt", attempt+1, "backoff", backoff, "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if natsutil.IsConnectivityError(lastErr) {
		lastErr = fmt.Errorf("%w: %w", types.ErrConnectivity, lastErr)
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w", cfg.Bucket, maxRetries, lastErr)
}
