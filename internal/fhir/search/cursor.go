package search

import (
	"strings"
	"time"
)

// EncodeCursor renders the opaque `(lastUpdated, id)` pagination cursor for
// the last row of a page (§4.7 Pagination).
func EncodeCursor(lastUpdated time.Time, id string) string {
	return lastUpdated.Format(time.RFC3339Nano) + "," + id
}

func parseCursor(raw string) (time.Time, string, bool) {
	idx := strings.LastIndex(raw, ",")
	if idx < 0 {
		return time.Time{}, "", false
	}
	t, err := time.Parse(time.RFC3339Nano, raw[:idx])
	if err != nil {
		return time.Time{}, "", false
	}
	id := raw[idx+1:]
	if id == "" {
		return time.Time{}, "", false
	}
	return t, id, true
}
