package tokenstore_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/jrsteele09/temoins-console/tokenstore/memstore"
	"github.com/stretchr/testify/require"
)

func TestMillis(t *testing.T) {
	ts := time.UnixMilli(1760781600123)

	encoded := tokenstore.FormatMillis(ts)
	require.Equal(t, "1760781600123", encoded)

	decoded, ok := tokenstore.ParseMillis(encoded)
	require.True(t, ok)
	require.True(t, ts.Equal(decoded))

	_, ok = tokenstore.ParseMillis("yesterday")
	require.False(t, ok)
	_, ok = tokenstore.ParseMillis("")
	require.False(t, ok)
}

func TestExpiry_BrowserFormat(t *testing.T) {
	// As written by new Date(exp * 1000).toString() in a browser
	parsed, ok := tokenstore.ParseExpiry("Sun Oct 18 2026 14:00:00 GMT+0200 (Central European Summer Time)")
	require.True(t, ok)
	require.Equal(t, int64(1792324800), parsed.Unix())
}

func TestExpiry_FormatParse(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2026, time.October, 18, 14, 0, 0, 0, loc)

	encoded := tokenstore.FormatExpiry(ts)
	require.Equal(t, "Sun Oct 18 2026 14:00:00 GMT+0200 (CEST)", encoded)

	decoded, ok := tokenstore.ParseExpiry(encoded)
	require.True(t, ok)
	require.True(t, ts.Equal(decoded))
}

func TestTouch(t *testing.T) {
	s := memstore.New()
	_, ok := tokenstore.LastActivityTime(s)
	require.False(t, ok)

	now := time.UnixMilli(1760781600000)
	tokenstore.Touch(s, now)

	got, ok := tokenstore.LastActivityTime(s)
	require.True(t, ok)
	require.True(t, now.Equal(got))
}
