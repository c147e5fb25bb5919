package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleBundle_MatchAndIncludeModes(t *testing.T) {
	result := Result{
		Matches: []ResultRow{
			{ID: "1", Content: map[string]interface{}{"resourceType": "Patient", "id": "1"}, LastUpdated: time.Now()},
		},
		Included: []IncludedRow{
			{ResourceType: "Practitioner", ID: "2", Content: `{"resourceType":"Practitioner","id":"2"}`},
		},
	}
	req := Request{ResourceType: "Patient", Count: 20}
	bundle, err := AssembleBundle("http://example.org/fhir", req, result)
	require.NoError(t, err)
	require.Len(t, bundle.Entry, 2)
	assert.Equal(t, "match", bundle.Entry[0].Search.Mode)
	assert.Equal(t, "include", bundle.Entry[1].Search.Mode)
	assert.Equal(t, "http://example.org/fhir/Patient/1", bundle.Entry[0].FullURL)
	assert.Equal(t, "http://example.org/fhir/Practitioner/2", bundle.Entry[1].FullURL)
}

func TestAssembleBundle_TotalPopulatedOnlyWhenRequested(t *testing.T) {
	var total int64 = 3
	bundle, err := AssembleBundle("http://x", Request{ResourceType: "Patient", Count: 20}, Result{Total: &total})
	require.NoError(t, err)
	require.NotNil(t, bundle.Total)
	assert.Equal(t, 3, *bundle.Total)
}

func TestAssembleBundle_NextLinkWhenPageFull(t *testing.T) {
	now := time.Now()
	result := Result{Matches: []ResultRow{{ID: "1", Content: map[string]interface{}{"id": "1"}, LastUpdated: now}}}
	req := Request{ResourceType: "Patient", Count: 1}
	bundle, err := AssembleBundle("http://x/fhir", req, result)
	require.NoError(t, err)
	var hasNext bool
	for _, l := range bundle.Link {
		if l.Relation == "next" {
			hasNext = true
		}
	}
	assert.True(t, hasNext)
}

func TestAssembleBundle_NoNextLinkWhenPageShort(t *testing.T) {
	result := Result{Matches: []ResultRow{{ID: "1", Content: map[string]interface{}{"id": "1"}, LastUpdated: time.Now()}}}
	req := Request{ResourceType: "Patient", Count: 20}
	bundle, err := AssembleBundle("http://x/fhir", req, result)
	require.NoError(t, err)
	for _, l := range bundle.Link {
		assert.NotEqual(t, "next", l.Relation)
	}
}

func TestAssembleBundle_EntryResourceIsValidJSON(t *testing.T) {
	result := Result{Matches: []ResultRow{{ID: "1", Content: map[string]interface{}{"resourceType": "Patient", "id": "1"}, LastUpdated: time.Now()}}}
	bundle, err := AssembleBundle("http://x", Request{ResourceType: "Patient", Count: 20}, result)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(bundle.Entry[0].Resource, &parsed))
	assert.Equal(t, "Patient", parsed["resourceType"])
}
