package lease

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/arloliu/feedsync/types"
)

// document is the persisted form of a lease.
//
// The concurrency tag is not stored: it is the revision of the record in the
// backing store and is attached when the document is read.
type document struct {
	ID                string            `json:"id"`
	FeedRange         feedRangeDocument `json:"feedRange"`
	ContinuationToken string            `json:"continuationToken,omitempty"`
	Owner             string            `json:"owner,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	Properties        map[string]string `json:"properties,omitempty"`
}

type feedRangeDocument struct {
	Kind                string `json:"kind"`
	PartitionKeyRangeID string `json:"partitionKeyRangeId,omitempty"`
	Min                 string `json:"min"`
	Max                 string `json:"max"`
}

// LeaseID returns the id of the lease owning feedRange under prefix.
func LeaseID(prefix string, feedRange types.FeedRange) string {
	return prefix + ".." + feedRange.Token()
}

// Encode serializes a lease into its stored JSON document.
//
// Returns:
//   - []byte: JSON document
//   - error: ErrInvalidLease if the lease has no id or feed range
func Encode(l *types.Lease) ([]byte, error) {
	if l == nil || l.ID == "" || l.FeedRange == nil {
		return nil, fmt.Errorf("%w: id and feed range are required", types.ErrInvalidLease)
	}

	doc := document{
		ID:                l.ID,
		ContinuationToken: l.ContinuationToken,
		Owner:             l.Owner,
		Timestamp:         l.Timestamp.UTC(),
		Properties:        l.Properties,
	}

	switch fr := l.FeedRange.(type) {
	case types.PartitionFeedRange:
		doc.FeedRange = feedRangeDocument{
			Kind:                fr.Kind().String(),
			PartitionKeyRangeID: fr.PartitionKeyRangeID,
			Min:                 fr.KeyRange.Min,
			Max:                 fr.KeyRange.Max,
		}
	case types.EffectiveFeedRange:
		doc.FeedRange = feedRangeDocument{
			Kind: fr.Kind().String(),
			Min:  fr.KeyRange.Min,
			Max:  fr.KeyRange.Max,
		}
	default:
		return nil, fmt.Errorf("%w: unsupported feed range %T", types.ErrInvalidLease, l.FeedRange)
	}

	return json.Marshal(doc)
}

// Decode parses a stored document and attaches the store revision as ETag.
//
// Returns:
//   - *types.Lease: Decoded lease
//   - error: ErrInvalidLease if the document is malformed or has an unknown variant
func Decode(data []byte, revision uint64) (*types.Lease, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidLease, err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document has no id", types.ErrInvalidLease)
	}

	keyRange := types.Range{Min: doc.FeedRange.Min, Max: doc.FeedRange.Max}

	var fr types.FeedRange
	switch doc.FeedRange.Kind {
	case types.FeedRangeKindPartition.String():
		if doc.FeedRange.PartitionKeyRangeID == "" {
			return nil, fmt.Errorf("%w: partition lease %s has no partition id", types.ErrInvalidLease, doc.ID)
		}
		fr = types.PartitionFeedRange{PartitionKeyRangeID: doc.FeedRange.PartitionKeyRangeID, KeyRange: keyRange}
	case types.FeedRangeKindEffective.String():
		fr = types.EffectiveFeedRange{KeyRange: keyRange}
	default:
		return nil, fmt.Errorf("%w: lease %s has unknown feed range kind %q", types.ErrInvalidLease, doc.ID, doc.FeedRange.Kind)
	}

	return &types.Lease{
		ID:                doc.ID,
		FeedRange:         fr,
		ContinuationToken: doc.ContinuationToken,
		Owner:             doc.Owner,
		ETag:              FormatETag(revision),
		Timestamp:         doc.Timestamp,
		Properties:        maps.Clone(doc.Properties),
	}, nil
}

// FormatETag renders a store revision as a lease ETag.
func FormatETag(revision uint64) string {
	return strconv.FormatUint(revision, 10)
}

// ParseETag parses a lease ETag back into a store revision.
func ParseETag(etag string) (uint64, error) {
	rev, err := strconv.ParseUint(etag, 10, 64)
	if err != nil || rev == 0 {
		return 0, fmt.Errorf("%w: bad etag %q", types.ErrInvalidLease, etag)
	}

	return rev, nil
}
