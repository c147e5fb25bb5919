package search

import (
	"strconv"
	"strings"
	"time"
)

// comparator is a FHIR search value prefix for ordered types (§4.7 point 3).
type comparator string

const (
	cmpEq comparator = "eq"
	cmpNe comparator = "ne"
	cmpGt comparator = "gt"
	cmpLt comparator = "lt"
	cmpGe comparator = "ge"
	cmpLe comparator = "le"
	cmpSa comparator = "sa"
	cmpEb comparator = "eb"
	cmpAp comparator = "ap"
)

var comparators = map[comparator]bool{
	cmpEq: true, cmpNe: true, cmpGt: true, cmpLt: true,
	cmpGe: true, cmpLe: true, cmpSa: true, cmpEb: true, cmpAp: true,
}

// splitComparator extracts a two-letter comparator prefix from a search
// value, defaulting to eq.
func splitComparator(raw string) (comparator, string) {
	if len(raw) >= 2 {
		c := comparator(strings.ToLower(raw[:2]))
		if comparators[c] {
			return c, raw[2:]
		}
	}
	return cmpEq, raw
}

// dateLayouts are the FHIR date/dateTime precisions the compiler accepts,
// most to least precise.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseFlexDate parses a FHIR date value at whatever precision it was
// given and returns the instant plus the width of the implied range: a
// year-only value spans the whole year, a full timestamp spans a single
// instant (§8 boundary: `eq2024` matches the whole year but not the next).
func parseFlexDate(s string) (start time.Time, width time.Duration, ok bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		switch layout {
		case "2006":
			return t, 365 * 24 * time.Hour, true // overridden below for leap years
		case "2006-01":
			return t, monthWidth(t), true
		case "2006-01-02":
			return t, 24 * time.Hour, true
		default:
			return t, 0, true
		}
	}
	return time.Time{}, 0, false
}

func monthWidth(t time.Time) time.Duration {
	next := t.AddDate(0, 1, 0)
	return next.Sub(t)
}

func yearWidth(t time.Time) time.Duration {
	next := t.AddDate(1, 0, 0)
	return next.Sub(t)
}

// dateClause renders the SQL predicate and bound arguments for one date
// search value against column, starting argument numbering at argIdx.
func dateClause(column, rawValue string, argIdx int) (string, []interface{}, int, bool) {
	cmp, value := splitComparator(rawValue)
	t, width, ok := parseFlexDate(value)
	if !ok {
		return "", nil, argIdx, false
	}
	if len(value) == 4 { // year-only: recompute width using real calendar length
		width = yearWidth(t)
	}

	switch cmp {
	case cmpGt, cmpSa:
		return column + " > $" + strconv.Itoa(argIdx), []interface{}{t.Add(width)}, argIdx + 1, true
	case cmpLt, cmpEb:
		return column + " < $" + strconv.Itoa(argIdx), []interface{}{t}, argIdx + 1, true
	case cmpGe:
		return column + " >= $" + strconv.Itoa(argIdx), []interface{}{t}, argIdx + 1, true
	case cmpLe:
		return column + " <= $" + strconv.Itoa(argIdx), []interface{}{t.Add(width)}, argIdx + 1, true
	case cmpNe:
		if width == 0 {
			return column + " != $" + strconv.Itoa(argIdx), []interface{}{t}, argIdx + 1, true
		}
		clause := "(" + column + " < $" + strconv.Itoa(argIdx) + " OR " + column + " >= $" + strconv.Itoa(argIdx+1) + ")"
		return clause, []interface{}{t, t.Add(width)}, argIdx + 2, true
	case cmpAp:
		low := t.Add(-24 * time.Hour)
		high := t.Add(width + 24*time.Hour)
		clause := "(" + column + " >= $" + strconv.Itoa(argIdx) + " AND " + column + " <= $" + strconv.Itoa(argIdx+1) + ")"
		return clause, []interface{}{low, high}, argIdx + 2, true
	default: // eq
		if width == 0 {
			return column + " = $" + strconv.Itoa(argIdx), []interface{}{t}, argIdx + 1, true
		}
		clause := "(" + column + " >= $" + strconv.Itoa(argIdx) + " AND " + column + " < $" + strconv.Itoa(argIdx+1) + ")"
		return clause, []interface{}{t, t.Add(width)}, argIdx + 2, true
	}
}

// numberClause renders the SQL predicate for one number search value.
func numberClause(column, rawValue string, argIdx int) (string, []interface{}, int) {
	cmp, value := splitComparator(rawValue)
	switch cmp {
	case cmpGt, cmpSa:
		return column + " > $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1
	case cmpLt, cmpEb:
		return column + " < $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1
	case cmpGe:
		return column + " >= $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1
	case cmpLe:
		return column + " <= $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1
	case cmpNe:
		return column + " != $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1
	default:
		return column + " = $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1
	}
}

// quantityValue is a parsed `value|system|code` quantity search value
// (§4.7 point 4). System and Code are optional.
type quantityValue struct {
	Value  string
	System string
	Code   string
}

func parseQuantity(raw string) quantityValue {
	parts := strings.SplitN(raw, "|", 3)
	q := quantityValue{Value: parts[0]}
	if len(parts) > 1 {
		q.System = parts[1]
	}
	if len(parts) > 2 {
		q.Code = parts[2]
	}
	return q
}

// tokenValue is a parsed `system|code`, `|code`, or bare `code` token
// search value.
type tokenValue struct {
	System    string
	Code      string
	HasSystem bool
}

func parseToken(raw string) tokenValue {
	if !strings.Contains(raw, "|") {
		return tokenValue{Code: raw}
	}
	parts := strings.SplitN(raw, "|", 2)
	return tokenValue{System: parts[0], Code: parts[1], HasSystem: true}
}
