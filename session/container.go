package session

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/feedsync/internal/logging"
	"github.com/arloliu/feedsync/internal/metrics"
	"github.com/arloliu/feedsync/types"
)

// Container caches, per collection and partition, the highest session token observed
// by this process.
//
// Container is safe for concurrent use. The zero value is not usable; call NewContainer.
type Container struct {
	byRID     *xsync.Map[string, *partitionTokens]
	nameToRID *xsync.Map[string, string]

	logger  types.Logger
	metrics types.SessionMetrics
}

// partitionTokens maps partition key range ids to their token slot.
type partitionTokens struct {
	slots *xsync.Map[string, *tokenSlot]
}

// tokenSlot is a stable per-partition cell whose value is replaced, never mutated.
type tokenSlot struct {
	current atomic.Pointer[SessionToken]
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used to report dropped token components.
func WithLogger(logger types.Logger) Option {
	return func(c *Container) {
		c.logger = logging.OrNop(logger)
	}
}

// WithMetrics sets the metrics sink for merges and parse failures.
func WithMetrics(m types.SessionMetrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewContainer creates an empty session token cache.
//
// Example:
//
//	sessions := session.NewContainer(session.WithLogger(logger))
//	sessions.SetSessionToken(req, resp.Header)
//	hdr, _ := sessions.RequestSessionToken(nextReq)
func NewContainer(opts ...Option) *Container {
	c := &Container{
		byRID:     xsync.NewMap[string, *partitionTokens](),
		nameToRID: xsync.NewMap[string, string](),
		logger:    logging.NewNop(),
		metrics:   metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetSessionToken merges the session token returned in a response into the cache.
//
// The call is a no-op when the request targeted a master resource, when the
// response carries no session token, or when no owner collection id can be
// determined. Malformed components are logged and skipped; the others are merged.
//
// Parameters:
//   - req: The request the response belongs to
//   - headers: Response headers
func (c *Container) SetSessionToken(req *Request, headers http.Header) {
	if req == nil || req.IsMasterResource {
		return
	}

	tokenHeader := headers.Get(SessionTokenHeader)
	if tokenHeader == "" {
		return
	}

	rid := headers.Get(OwnerIDHeader)
	if rid == "" {
		rid = req.CollectionRID
	}
	if rid == "" {
		return
	}

	name := headers.Get(OwnerFullNameHeader)
	if name == "" {
		name = req.ResourceAddress
	}
	if name = normalizeName(name); name != "" {
		if prev, loaded := c.nameToRID.LoadAndStore(name, rid); loaded && prev != rid {
			// The name now points at a recreated collection; the old tokens are meaningless.
			c.byRID.Delete(prev)
			c.logger.Debug("collection recreated, dropping stale session tokens", "name", name, "old_rid", prev, "rid", rid)
		}
	}

	c.merge(rid, tokenHeader)
}

func (c *Container) merge(rid, header string) {
	tokens, ok := c.byRID.Load(rid)
	if !ok {
		tokens, _ = c.byRID.LoadOrStore(rid, &partitionTokens{slots: xsync.NewMap[string, *tokenSlot]()})
	}

	for _, part := range strings.Split(header, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}

		rangeID, tok, err := ParseSessionToken(part)
		if err != nil {
			c.logger.Warn("dropping malformed session token component", "rid", rid, "component", part, "error", err)
			c.metrics.RecordSessionTokenParseFailure()

			continue
		}

		c.metrics.RecordSessionTokenMerge(tokens.slot(rangeID).merge(tok))
	}
}

func (p *partitionTokens) slot(rangeID string) *tokenSlot {
	if s, ok := p.slots.Load(rangeID); ok {
		return s
	}
	s, _ := p.slots.LoadOrStore(rangeID, &tokenSlot{})

	return s
}

// merge folds tok into the slot and returns how many CAS attempts lost a race.
func (s *tokenSlot) merge(tok SessionToken) int {
	for retries := 0; ; retries++ {
		cur := s.current.Load()
		if cur != nil && cur.IsAtLeast(tok) {
			return retries
		}

		next := tok
		if cur != nil {
			// Both sides are valid here, Merge cannot fail.
			next, _ = cur.Merge(tok)
		}
		if s.current.CompareAndSwap(cur, &next) {
			return retries
		}
	}
}

func (s *tokenSlot) load() (SessionToken, bool) {
	cur := s.current.Load()
	if cur == nil {
		return SessionToken{}, false
	}

	return *cur, true
}

// lookup finds a collection's tokens by resource id or by name.
func (c *Container) lookup(nameOrID string) (*partitionTokens, bool) {
	if nameOrID == "" {
		return nil, false
	}
	if tokens, ok := c.byRID.Load(nameOrID); ok {
		return tokens, true
	}

	rid, ok := c.nameToRID.Load(normalizeName(nameOrID))
	if !ok {
		return nil, false
	}

	return c.byRID.Load(rid)
}

// ResolveGlobalToken returns every known partition token of a collection as a
// comma-joined "<range>:<lsn>" list.
//
// The order of components is unspecified and may differ between calls and
// processes; treat the result as an opaque blob.
//
// Parameters:
//   - collectionNameOrID: Collection resource id or name-based path
//
// Returns:
//   - string: Combined token, "" if the collection is unknown
func (c *Container) ResolveGlobalToken(collectionNameOrID string) string {
	tokens, ok := c.lookup(collectionNameOrID)
	if !ok {
		return ""
	}

	var b strings.Builder
	tokens.slots.Range(func(rangeID string, s *tokenSlot) bool {
		tok, ok := s.load()
		if !ok {
			return true
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(tok.Format(rangeID))

		return true
	})

	return b.String()
}

// ResolvePartitionLocalToken returns the token for the request's partition.
//
// On an exact miss the partition's ancestors are tried from the most recent
// parent to the oldest, so a token captured before a split or merge still
// resolves against the new partition.
//
// Returns:
//   - SessionToken: The resolved token
//   - bool: false if neither the partition nor any ancestor has a token
//   - error: ErrPartitionRangeIDAbsent if the request has no resolved partition
func (c *Container) ResolvePartitionLocalToken(req *Request) (SessionToken, bool, error) {
	if req == nil || req.PartitionKeyRange == nil || req.PartitionKeyRange.ID == "" {
		return SessionToken{}, false, types.ErrPartitionRangeIDAbsent
	}

	tokens, ok := c.lookup(req.collectionRef())
	if !ok {
		return SessionToken{}, false, nil
	}

	pkr := req.PartitionKeyRange
	if s, ok := tokens.slots.Load(pkr.ID); ok {
		if tok, ok := s.load(); ok {
			return tok, true, nil
		}
	}

	for _, parentID := range pkr.LineageNewestFirst() {
		if s, ok := tokens.slots.Load(parentID); ok {
			if tok, ok := s.load(); ok {
				return tok, true, nil
			}
		}
	}

	return SessionToken{}, false, nil
}

// RequestSessionToken returns the session header value to send with req.
//
// Returns:
//   - string: "0:<lsn>" for the resolved partition-local token, "" to omit the header
//   - error: ErrPartitionRangeIDAbsent if the request has no resolved partition
func (c *Container) RequestSessionToken(req *Request) (string, error) {
	tok, ok, err := c.ResolvePartitionLocalToken(req)
	if err != nil || !ok {
		return "", err
	}

	return tok.Format(localRangePlaceholder), nil
}

// ClearToken removes every token of the request's collection.
//
// Used when a collection is deleted or its name mapping is suspected stale.
func (c *Container) ClearToken(req *Request) {
	if req == nil {
		return
	}

	if req.CollectionRID != "" {
		c.ClearTokenByRID(req.CollectionRID)
	}
	if name := normalizeName(req.ResourceAddress); name != "" {
		c.ClearTokenByName(name)
	}
}

// ClearTokenByRID removes a collection's tokens and every name pointing at it.
func (c *Container) ClearTokenByRID(rid string) {
	c.byRID.Delete(rid)
	c.nameToRID.Range(func(name, mapped string) bool {
		if mapped == rid {
			c.nameToRID.Delete(name)
		}

		return true
	})
}

// ClearTokenByName removes the tokens of the collection currently bound to name.
func (c *Container) ClearTokenByName(name string) {
	if rid, ok := c.nameToRID.LoadAndDelete(normalizeName(name)); ok {
		c.byRID.Delete(rid)
	}
}

// Collections returns the number of collections with cached tokens.
func (c *Container) Collections() int {
	return c.byRID.Size()
}
