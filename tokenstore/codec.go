package tokenstore

import (
	"strconv"
	"strings"
	"time"
)

// expiryLayout is the JavaScript Date.toString() format without the trailing zone name.
const expiryLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

// FormatMillis encodes t as Date.now() would: milliseconds since the epoch.
func FormatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseMillis decodes a value written by FormatMillis.
func ParseMillis(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// FormatExpiry encodes t as Date.toString(), e.g.
// "Sun Oct 18 2026 14:00:00 GMT+0200 (CEST)".
func FormatExpiry(t time.Time) string {
	name, _ := t.Zone()
	return t.Format(expiryLayout) + " (" + name + ")"
}

// ParseExpiry decodes a value written by FormatExpiry or by a browser. The parenthesised
// zone name is ignored; the numeric offset is authoritative.
func ParseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " ("); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(expiryLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Touch records user activity at now.
func Touch(s Store, now time.Time) {
	s.Set(LastActivity, FormatMillis(now))
}

// LastActivityTime returns the stored activity timestamp, if any.
func LastActivityTime(s Store) (time.Time, bool) {
	return ParseMillis(s.Get(LastActivity))
}

// Expiry returns the stored access token expiry, if any.
func Expiry(s Store) (time.Time, bool) {
	return ParseExpiry(s.Get(TokenExpiry))
}
