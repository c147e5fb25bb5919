package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_BasicParams(t *testing.T) {
	req := ParseRequest("Patient", url.Values{
		"name":   {"Smith"},
		"gender": {"male"},
	})
	require.Len(t, req.Params, 2)
	assert.Equal(t, DefaultCount, req.Count)
}

func TestParseRequest_ModifierSplit(t *testing.T) {
	req := ParseRequest("Patient", url.Values{"name:exact": {"Smith"}})
	require.Len(t, req.Params, 1)
	assert.Equal(t, "name", req.Params[0].Code)
	assert.Equal(t, "exact", req.Params[0].Modifier)
}

func TestParseRequest_CommaSplitsValues(t *testing.T) {
	req := ParseRequest("Patient", url.Values{"_id": {"a,b,c"}})
	require.Len(t, req.Params, 1)
	assert.Equal(t, []string{"a", "b", "c"}, req.Params[0].Values)
}

func TestParseRequest_SortIncludeCountOffset(t *testing.T) {
	req := ParseRequest("Patient", url.Values{
		"_sort":       {"-birthdate,name"},
		"_include":    {"Patient:general-practitioner"},
		"_revinclude": {"Observation:patient"},
		"_count":      {"50"},
		"_offset":     {"10"},
	})
	require.Len(t, req.Sort, 2)
	assert.Equal(t, "birthdate", req.Sort[0].Code)
	assert.True(t, req.Sort[0].Descending)
	assert.Equal(t, "name", req.Sort[1].Code)
	assert.False(t, req.Sort[1].Descending)

	require.Len(t, req.Include, 1)
	assert.Equal(t, "Patient", req.Include[0].SourceType)
	assert.Equal(t, "general-practitioner", req.Include[0].Code)

	require.Len(t, req.RevInclude, 1)
	assert.Equal(t, "Observation", req.RevInclude[0].SourceType)

	assert.Equal(t, 50, req.Count)
	assert.Equal(t, 10, req.Offset)
}

func TestParseRequest_CountClamped(t *testing.T) {
	req := ParseRequest("Patient", url.Values{"_count": {"10000"}})
	assert.Equal(t, MaxCount, req.Count)

	req = ParseRequest("Patient", url.Values{"_count": {"-5"}})
	assert.Equal(t, DefaultCount, req.Count)
}

func TestParseRawQuery(t *testing.T) {
	req, err := ParseRawQuery("Patient", "name=Smith&_count=5")
	require.NoError(t, err)
	assert.Equal(t, 5, req.Count)
	require.Len(t, req.Params, 1)
	assert.Equal(t, "name", req.Params[0].Code)
}

func TestParseIncludeSpec_WithTargetType(t *testing.T) {
	spec, ok := parseIncludeSpec("Observation:patient:Patient")
	require.True(t, ok)
	assert.Equal(t, "Observation", spec.SourceType)
	assert.Equal(t, "patient", spec.Code)
	assert.Equal(t, "Patient", spec.TargetType)
}

func TestParseIncludeSpec_Malformed(t *testing.T) {
	_, ok := parseIncludeSpec("Observation")
	assert.False(t, ok)
}
