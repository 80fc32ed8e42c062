package session

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/feedsync/types"
)

const (
	testRID  = "rid-orders"
	testName = "dbs/app/colls/orders"
)

func responseHeaders(token string) http.Header {
	h := http.Header{}
	h.Set(SessionTokenHeader, token)
	h.Set(OwnerIDHeader, testRID)
	h.Set(OwnerFullNameHeader, testName)

	return h
}

func requestFor(pkr *types.PartitionKeyRange) *Request {
	return &Request{ResourceAddress: testName, CollectionRID: testRID, PartitionKeyRange: pkr}
}

func sortedComponents(s string) []string {
	parts := strings.Split(s, ",")
	slices.Sort(parts)

	return parts
}

func TestContainer_SetAndResolveGlobal(t *testing.T) {
	c := NewContainer()

	c.SetSessionToken(requestFor(nil), responseHeaders("0:10,1:20"))
	c.SetSessionToken(requestFor(nil), responseHeaders("1:15,2:7"))

	want := []string{"0:10", "1:20", "2:7"}
	require.Equal(t, want, sortedComponents(c.ResolveGlobalToken(testRID)))
	require.Equal(t, want, sortedComponents(c.ResolveGlobalToken(testName)), "name index resolves too")
	require.Equal(t, want, sortedComponents(c.ResolveGlobalToken("/"+testName+"/")))
	require.Equal(t, "", c.ResolveGlobalToken("dbs/app/colls/unknown"))
	require.Equal(t, "", c.ResolveGlobalToken(""))
	require.Equal(t, 1, c.Collections())
}

func TestContainer_SetSessionToken_NoOps(t *testing.T) {
	t.Run("master resource", func(t *testing.T) {
		c := NewContainer()
		c.SetSessionToken(&Request{IsMasterResource: true, CollectionRID: testRID}, responseHeaders("0:1"))
		require.Equal(t, 0, c.Collections())
	})

	t.Run("missing header", func(t *testing.T) {
		c := NewContainer()
		h := responseHeaders("")
		h.Del(SessionTokenHeader)
		c.SetSessionToken(requestFor(nil), h)
		require.Equal(t, 0, c.Collections())
	})

	t.Run("no owner rid", func(t *testing.T) {
		c := NewContainer()
		h := http.Header{}
		h.Set(SessionTokenHeader, "0:1")
		c.SetSessionToken(&Request{ResourceAddress: testName}, h)
		require.Equal(t, 0, c.Collections())
	})

	t.Run("nil request", func(t *testing.T) {
		c := NewContainer()
		c.SetSessionToken(nil, responseHeaders("0:1"))
		require.Equal(t, 0, c.Collections())
	})
}

func TestContainer_SetSessionToken_FallsBackToRequestIdentity(t *testing.T) {
	c := NewContainer()

	h := http.Header{}
	h.Set(SessionTokenHeader, "4:99")
	c.SetSessionToken(requestFor(nil), h)

	require.Equal(t, "4:99", c.ResolveGlobalToken(testRID))
	require.Equal(t, "4:99", c.ResolveGlobalToken(testName))
}

func TestContainer_MalformedComponentsSkipped(t *testing.T) {
	c := NewContainer()

	c.SetSessionToken(requestFor(nil), responseHeaders("0:10,garbage,1:x,,2:3"))

	require.Equal(t, []string{"0:10", "2:3"}, sortedComponents(c.ResolveGlobalToken(testRID)))
}

func TestContainer_ResolvePartitionLocalToken(t *testing.T) {
	c := NewContainer()
	c.SetSessionToken(requestFor(nil), responseHeaders("0:10,1:20,3:30"))

	t.Run("exact match", func(t *testing.T) {
		tok, ok, err := c.ResolvePartitionLocalToken(requestFor(&types.PartitionKeyRange{ID: "1"}))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(20), tok.LSN())
	})

	t.Run("nearest ancestor wins", func(t *testing.T) {
		// 5 was split from 3, which was split from 0; 3 is the most recent ancestor.
		pkr := &types.PartitionKeyRange{ID: "5", Parents: []string{"0", "3"}}
		tok, ok, err := c.ResolvePartitionLocalToken(requestFor(pkr))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(30), tok.LSN())
	})

	t.Run("older ancestor when recent one unknown", func(t *testing.T) {
		pkr := &types.PartitionKeyRange{ID: "9", Parents: []string{"1", "7"}}
		tok, ok, err := c.ResolvePartitionLocalToken(requestFor(pkr))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(20), tok.LSN())
	})

	t.Run("no lineage match", func(t *testing.T) {
		pkr := &types.PartitionKeyRange{ID: "9", Parents: []string{"7", "8"}}
		_, ok, err := c.ResolvePartitionLocalToken(requestFor(pkr))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown collection", func(t *testing.T) {
		req := &Request{CollectionRID: "other", PartitionKeyRange: &types.PartitionKeyRange{ID: "0"}}
		_, ok, err := c.ResolvePartitionLocalToken(req)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("by name only", func(t *testing.T) {
		req := &Request{ResourceAddress: testName, PartitionKeyRange: &types.PartitionKeyRange{ID: "0"}}
		tok, ok, err := c.ResolvePartitionLocalToken(req)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(10), tok.LSN())
	})

	t.Run("range id absent", func(t *testing.T) {
		_, _, err := c.ResolvePartitionLocalToken(requestFor(nil))
		require.ErrorIs(t, err, types.ErrPartitionRangeIDAbsent)

		_, _, err = c.ResolvePartitionLocalToken(requestFor(&types.PartitionKeyRange{}))
		require.ErrorIs(t, err, types.ErrPartitionRangeIDAbsent)
	})
}

func TestContainer_RequestSessionToken(t *testing.T) {
	c := NewContainer()
	c.SetSessionToken(requestFor(nil), responseHeaders("2:77"))

	hdr, err := c.RequestSessionToken(requestFor(&types.PartitionKeyRange{ID: "2"}))
	require.NoError(t, err)
	require.Equal(t, "0:77", hdr)

	hdr, err = c.RequestSessionToken(requestFor(&types.PartitionKeyRange{ID: "8"}))
	require.NoError(t, err)
	require.Equal(t, "", hdr, "unknown partition omits the header")

	_, err = c.RequestSessionToken(requestFor(nil))
	require.ErrorIs(t, err, types.ErrPartitionRangeIDAbsent)
}

func TestContainer_ClearToken(t *testing.T) {
	t.Run("by request", func(t *testing.T) {
		c := NewContainer()
		c.SetSessionToken(requestFor(nil), responseHeaders("0:1"))

		c.ClearToken(requestFor(nil))
		require.Equal(t, "", c.ResolveGlobalToken(testRID))
		require.Equal(t, "", c.ResolveGlobalToken(testName))
		require.Equal(t, 0, c.Collections())
	})

	t.Run("by rid removes name mapping", func(t *testing.T) {
		c := NewContainer()
		c.SetSessionToken(requestFor(nil), responseHeaders("0:1"))

		c.ClearTokenByRID(testRID)
		require.Equal(t, "", c.ResolveGlobalToken(testName))
	})

	t.Run("by name only", func(t *testing.T) {
		c := NewContainer()
		c.SetSessionToken(requestFor(nil), responseHeaders("0:1"))

		c.ClearToken(&Request{ResourceAddress: "/" + testName})
		require.Equal(t, "", c.ResolveGlobalToken(testRID))
	})

	t.Run("nil request", func(t *testing.T) {
		c := NewContainer()
		require.NotPanics(t, func() { c.ClearToken(nil) })
	})
}

func TestContainer_RecreatedCollectionDropsOldTokens(t *testing.T) {
	c := NewContainer()
	c.SetSessionToken(requestFor(nil), responseHeaders("0:500"))

	h := http.Header{}
	h.Set(SessionTokenHeader, "0:3")
	h.Set(OwnerIDHeader, "rid-orders-v2")
	h.Set(OwnerFullNameHeader, testName)
	c.SetSessionToken(&Request{ResourceAddress: testName}, h)

	require.Equal(t, "", c.ResolveGlobalToken(testRID))
	require.Equal(t, "0:3", c.ResolveGlobalToken(testName))
	require.Equal(t, 1, c.Collections())
}

func TestContainer_ConcurrentMergeConverges(t *testing.T) {
	for round := range 50 {
		c := NewContainer()

		var wg sync.WaitGroup
		start := make(chan struct{})
		order := []string{"0:5", "0:9"}
		if round%2 == 1 {
			order = []string{"0:9", "0:5"}
		}
		for _, tok := range order {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				c.SetSessionToken(requestFor(nil), responseHeaders(tok))
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, "0:9", c.ResolveGlobalToken(testRID))
	}
}

func TestContainer_ConcurrentWritersNeverLoseMaximum(t *testing.T) {
	c := NewContainer()

	const writers = 16
	const perWriter = 200

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				lsn := w*perWriter + i
				c.SetSessionToken(requestFor(nil), responseHeaders("0:"+itoa(lsn)+",1:"+itoa(i)))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, []string{"0:" + itoa(writers*perWriter-1), "1:" + itoa(perWriter-1)},
		sortedComponents(c.ResolveGlobalToken(testRID)))
}

func itoa(i int) string {
	tok, _ := NewSessionToken(int64(i))
	return tok.String()
}

type recordingMetrics struct {
	mu            sync.Mutex
	merges        int
	parseFailures int
}

func (m *recordingMetrics) RecordSessionTokenMerge(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merges++
}

func (m *recordingMetrics) RecordSessionTokenParseFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseFailures++
}

func TestContainer_Metrics(t *testing.T) {
	m := &recordingMetrics{}
	c := NewContainer(WithMetrics(m), WithLogger(nil))

	c.SetSessionToken(requestFor(nil), responseHeaders("0:1,bad,1:2"))

	require.Equal(t, 2, m.merges)
	require.Equal(t, 1, m.parseFailures)
}
