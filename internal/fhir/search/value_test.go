package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitComparator(t *testing.T) {
	cmp, v := splitComparator("gt2024-01-01")
	assert.Equal(t, cmpGt, cmp)
	assert.Equal(t, "2024-01-01", v)

	cmp, v = splitComparator("2024-01-01")
	assert.Equal(t, cmpEq, cmp)
	assert.Equal(t, "2024-01-01", v)
}

func TestParseFlexDate_YearOnly(t *testing.T) {
	start, width, ok := parseFlexDate("2024")
	require.True(t, ok)
	assert.Equal(t, 2024, start.Year())
	assert.True(t, width > 350*24*time.Hour)
}

func TestParseFlexDate_FullTimestamp(t *testing.T) {
	_, width, ok := parseFlexDate("2024-03-15T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), width)
}

func TestDateClause_EqYearExpandsToRange(t *testing.T) {
	clause, args, next, ok := dateClause(`"birthDate"`, "2024", 1)
	require.True(t, ok)
	assert.Contains(t, clause, ">=")
	assert.Contains(t, clause, "<")
	require.Len(t, args, 2)
	assert.Equal(t, 3, next)
}

func TestDateClause_Gt(t *testing.T) {
	clause, args, next, ok := dateClause(`"date"`, "gt2024-01-01", 5)
	require.True(t, ok)
	assert.Equal(t, `"date" > $5`, clause)
	require.Len(t, args, 1)
	assert.Equal(t, 6, next)
}

func TestNumberClause(t *testing.T) {
	clause, args, next := numberClause(`"value"`, "ge5", 1)
	assert.Equal(t, `"value" >= $1`, clause)
	assert.Equal(t, []interface{}{"5"}, args)
	assert.Equal(t, 2, next)
}

func TestParseQuantity(t *testing.T) {
	q := parseQuantity("5.4|http://unitsofmeasure.org|mg")
	assert.Equal(t, "5.4", q.Value)
	assert.Equal(t, "http://unitsofmeasure.org", q.System)
	assert.Equal(t, "mg", q.Code)

	q = parseQuantity("5.4")
	assert.Equal(t, "5.4", q.Value)
	assert.Empty(t, q.System)
}

func TestParseToken(t *testing.T) {
	tok := parseToken("http://loinc.org|1234-5")
	assert.True(t, tok.HasSystem)
	assert.Equal(t, "http://loinc.org", tok.System)
	assert.Equal(t, "1234-5", tok.Code)

	tok = parseToken("final")
	assert.False(t, tok.HasSystem)
	assert.Equal(t, "final", tok.Code)
}
