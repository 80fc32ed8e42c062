package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/feedsync/types"
)

// SessionToken is an immutable read-position marker for one partition.
//
// The zero value is not a valid token; use ParseSessionToken or NewSessionToken.
type SessionToken struct {
	lsn   int64
	valid bool
}

// NewSessionToken creates a token for the given LSN.
//
// Returns:
//   - SessionToken: The token
//   - error: ErrInvalidSessionToken if lsn is negative
func NewSessionToken(lsn int64) (SessionToken, error) {
	if lsn < 0 {
		return SessionToken{}, fmt.Errorf("%w: negative lsn %d", types.ErrInvalidSessionToken, lsn)
	}

	return SessionToken{lsn: lsn, valid: true}, nil
}

// ParseSessionToken parses one "<partition-range-id>:<lsn>" component.
//
// Parameters:
//   - s: Token component, e.g. "3:1042"
//
// Returns:
//   - string: Partition key range id
//   - SessionToken: Parsed token
//   - error: ErrInvalidSessionToken if s is not "<id>:<non-negative integer>"
func ParseSessionToken(s string) (string, SessionToken, error) {
	rangeID, lsnPart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || rangeID == "" || lsnPart == "" {
		return "", SessionToken{}, fmt.Errorf("%w: %q is not <range>:<lsn>", types.ErrInvalidSessionToken, s)
	}

	lsn, err := strconv.ParseInt(lsnPart, 10, 64)
	if err != nil {
		return "", SessionToken{}, fmt.Errorf("%w: %q: %w", types.ErrInvalidSessionToken, s, err)
	}

	tok, err := NewSessionToken(lsn)
	if err != nil {
		return "", SessionToken{}, err
	}

	return rangeID, tok, nil
}

// Merge returns the token with the greater LSN.
//
// Merge is commutative, associative and idempotent and never decreases a value.
//
// Returns:
//   - SessionToken: The dominating token
//   - error: ErrInvalidSessionToken if either token is not valid
func (t SessionToken) Merge(other SessionToken) (SessionToken, error) {
	if !t.valid || !other.valid {
		return SessionToken{}, fmt.Errorf("%w: cannot merge uninitialized token", types.ErrInvalidSessionToken)
	}
	if other.lsn > t.lsn {
		return other, nil
	}

	return t, nil
}

// IsAtLeast reports whether t already dominates other.
func (t SessionToken) IsAtLeast(other SessionToken) bool {
	return t.valid && t.lsn >= other.lsn
}

// LSN returns the log sequence number.
func (t SessionToken) LSN() int64 { return t.lsn }

// IsValid reports whether the token was produced by NewSessionToken or ParseSessionToken.
func (t SessionToken) IsValid() bool { return t.valid }

// String returns the LSN in decimal.
func (t SessionToken) String() string {
	return strconv.FormatInt(t.lsn, 10)
}

// Format renders the token as a "<rangeID>:<lsn>" header component.
func (t SessionToken) Format(rangeID string) string {
	return rangeID + ":" + t.String()
}
