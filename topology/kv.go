package topology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/internal/natsutil"
	"github.com/arloliu/feedsync/types"
)

// keyPrefix is the KV key prefix of partition records: "pkrange.<id>".
const keyPrefix = "pkrange."

// KVSource reads the partition list from a NATS JetStream KeyValue bucket.
//
// Each partition is stored as a JSON types.PartitionKeyRange under
// "pkrange.<id>". Publish writes a complete topology; any process holding the
// bucket can act as the topology publisher.
type KVSource struct {
	kv     jetstream.KeyValue
	logger types.Logger
}

var _ types.TopologySource = (*KVSource)(nil)

// KVOption configures a KVSource.
type KVOption func(*KVSource)

// WithLogger sets the logger used to report skipped records.
func WithLogger(logger types.Logger) KVOption {
	return func(s *KVSource) {
		s.logger = logging.OrNop(logger)
	}
}

// NewKVSource creates a topology source backed by kv.
func NewKVSource(kv jetstream.KeyValue, opts ...KVOption) *KVSource {
	s := &KVSource{kv: kv, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetOverlappingRanges implements types.TopologySource.
//
// Records that fail to decode are skipped. Connectivity failures are wrapped
// with types.ErrConnectivity.
func (s *KVSource) GetOverlappingRanges(ctx context.Context, r types.Range) ([]types.PartitionKeyRange, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return overlapping(all, r), nil
}

// Publish replaces the stored topology with ranges.
//
// Records of partitions missing from ranges are deleted after the new records
// are written, so readers never observe a gap in coverage.
func (s *KVSource) Publish(ctx context.Context, ranges []types.PartitionKeyRange) error {
	keep := make(map[string]struct{}, len(ranges))
	for _, p := range ranges {
		if p.ID == "" {
			return fmt.Errorf("%w: partition without id", types.ErrInvalidConfig)
		}

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode partition %s: %w", p.ID, err)
		}
		if _, err := s.kv.Put(ctx, keyPrefix+p.ID, data); err != nil {
			return s.wrap(fmt.Sprintf("failed to publish partition %s", p.ID), err)
		}
		keep[keyPrefix+p.ID] = struct{}{}
	}

	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, ok := keep[key]; ok {
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return s.wrap("failed to remove retired partition "+key, err)
		}
	}

	s.logger.Info("topology published", "partitions", len(ranges))

	return nil
}

func (s *KVSource) load(ctx context.Context) ([]types.PartitionKeyRange, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.PartitionKeyRange, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, s.wrap("failed to read partition "+key, err)
		}

		var p types.PartitionKeyRange
		if err := json.Unmarshal(entry.Value(), &p); err != nil || p.ID == "" {
			s.logger.Warn("skipping malformed partition record", "key", key, "error", err)
			continue
		}
		out = append(out, p)
	}
	sortRanges(out)

	return out, nil
}

func (s *KVSource) keys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) || types.IsNoKeysFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("failed to list partitions", err)
	}

	out := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, keyPrefix) {
			out = append(out, key)
		}
	}

	return out, nil
}

func (s *KVSource) wrap(msg string, err error) error {
	if natsutil.IsConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", msg, types.ErrConnectivity, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
