//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/feedsync"
	"github.com/arloliu/feedsync/topology"
	fstest "github.com/arloliu/feedsync/testing"
)

func quarters() []feedsync.PartitionKeyRange {
	return []feedsync.PartitionKeyRange{
		{ID: "0", MinInclusive: "", MaxExclusive: "40"},
		{ID: "1", MinInclusive: "40", MaxExclusive: "80"},
		{ID: "2", MinInclusive: "80", MaxExclusive: "C0"},
		{ID: "3", MinInclusive: "C0", MaxExclusive: "FF"},
	}
}

func integrationConfig() feedsync.Config {
	cfg := feedsync.TestConfig()
	cfg.LeasePrefix = "orders"
	cfg.LeaseBucket = "it-leases"
	cfg.TopologyBucket = "it-topology"

	return cfg
}

// publishTopology opens the shared topology bucket and writes ranges into it.
func publishTopology(t *testing.T, nc *nats.Conn, ranges []feedsync.PartitionKeyRange) *topology.KVSource {
	t.Helper()

	cfg := integrationConfig()
	src, err := feedsync.NewKVTopology(t.Context(), &cfg, nc, fstest.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, src.Publish(t.Context(), ranges))

	return src
}

func newProcessor(t *testing.T, nc *nats.Conn, src feedsync.TopologySource, opts ...feedsync.Option) *feedsync.Processor {
	t.Helper()

	cfg := integrationConfig()
	opts = append([]feedsync.Option{feedsync.WithLogger(fstest.NewTestLogger(t))}, opts...)
	p, err := feedsync.NewProcessor(&cfg, nc, src, opts...)
	require.NoError(t, err)

	return p
}

func stopOnCleanup(t *testing.T, p *feedsync.Processor) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Stop(ctx)
	})
}

func findLease(t *testing.T, leases []feedsync.Lease, token string) *feedsync.Lease {
	t.Helper()

	for i := range leases {
		if leases[i].LeaseToken() == token {
			return &leases[i]
		}
	}
	t.Fatalf("no lease with token %q", token)

	return nil
}
