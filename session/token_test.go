package session

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/feedsync/types"
)

func mustToken(t *testing.T, lsn int64) SessionToken {
	t.Helper()

	tok, err := NewSessionToken(lsn)
	require.NoError(t, err)

	return tok
}

func TestParseSessionToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		rangeID string
		lsn     int64
		wantErr bool
	}{
		{in: "0:120", rangeID: "0", lsn: 120},
		{in: " 17:5 ", rangeID: "17", lsn: 5},
		{in: "3:0", rangeID: "3", lsn: 0},
		{in: "", wantErr: true},
		{in: "120", wantErr: true},
		{in: ":120", wantErr: true},
		{in: "0:", wantErr: true},
		{in: "0:abc", wantErr: true},
		{in: "0:-1", wantErr: true},
		{in: "0:1:2", wantErr: true},
		{in: "0:1#2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			rangeID, tok, err := ParseSessionToken(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, types.ErrInvalidSessionToken)
				require.False(t, tok.IsValid())

				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.rangeID, rangeID)
			require.Equal(t, tt.lsn, tok.LSN())
			require.True(t, tok.IsValid())
		})
	}
}

func TestNewSessionToken_Negative(t *testing.T) {
	t.Parallel()

	_, err := NewSessionToken(-5)
	require.ErrorIs(t, err, types.ErrInvalidSessionToken)
}

func TestSessionToken_Merge(t *testing.T) {
	t.Parallel()

	five, nine := mustToken(t, 5), mustToken(t, 9)

	got, err := five.Merge(nine)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.LSN())

	got, err = nine.Merge(five)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.LSN(), "merge never decreases")

	_, err = five.Merge(SessionToken{})
	require.ErrorIs(t, err, types.ErrInvalidSessionToken)
	_, err = SessionToken{}.Merge(five)
	require.ErrorIs(t, err, types.ErrInvalidSessionToken)
}

func TestSessionToken_MergeProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // deterministic test data
	for range 200 {
		a := mustToken(t, rng.Int64N(1000))
		b := mustToken(t, rng.Int64N(1000))
		c := mustToken(t, rng.Int64N(1000))

		ab, _ := a.Merge(b)
		ba, _ := b.Merge(a)
		require.Equal(t, ab, ba, "commutative")

		abc1, _ := ab.Merge(c)
		bc, _ := b.Merge(c)
		abc2, _ := a.Merge(bc)
		require.Equal(t, abc1, abc2, "associative")

		aa, _ := a.Merge(a)
		require.Equal(t, a, aa, "idempotent")

		require.Equal(t, max(a.LSN(), b.LSN(), c.LSN()), abc1.LSN(), "merge equals max")
	}
}

func TestSessionToken_Format(t *testing.T) {
	t.Parallel()

	tok := mustToken(t, 42)
	require.Equal(t, "42", tok.String())
	require.Equal(t, "3:42", tok.Format("3"))
	require.True(t, tok.IsAtLeast(mustToken(t, 42)))
	require.False(t, tok.IsAtLeast(mustToken(t, 43)))
	require.False(t, SessionToken{}.IsAtLeast(SessionToken{}))
}
