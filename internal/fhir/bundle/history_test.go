package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistoryBundle_OldestIsPost(t *testing.T) {
	now := time.Now()
	entries := []HistoryEntry{
		{ResourceType: "Patient", ResourceID: "1", VersionID: "3", LastUpdated: now, Resource: map[string]interface{}{"id": "1"}},
		{ResourceType: "Patient", ResourceID: "1", VersionID: "2", LastUpdated: now.Add(-time.Hour), Resource: map[string]interface{}{"id": "1"}},
		{ResourceType: "Patient", ResourceID: "1", VersionID: "1", LastUpdated: now.Add(-2 * time.Hour), Resource: map[string]interface{}{"id": "1"}},
	}
	bundle, err := BuildHistoryBundle("http://x/fhir", entries, "")
	require.NoError(t, err)
	require.Len(t, bundle.Entry, 3)
	assert.Equal(t, "PUT", bundle.Entry[0].Request.Method)
	assert.Equal(t, "PUT", bundle.Entry[1].Request.Method)
	assert.Equal(t, "POST", bundle.Entry[2].Request.Method)
	assert.Equal(t, "201 Created", bundle.Entry[2].Response.Status)
}

func TestBuildHistoryBundle_TombstoneIsDelete(t *testing.T) {
	now := time.Now()
	entries := []HistoryEntry{
		{ResourceType: "Patient", ResourceID: "1", VersionID: "2", LastUpdated: now, Resource: nil},
		{ResourceType: "Patient", ResourceID: "1", VersionID: "1", LastUpdated: now.Add(-time.Hour), Resource: map[string]interface{}{"id": "1"}},
	}
	bundle, err := BuildHistoryBundle("http://x/fhir", entries, "")
	require.NoError(t, err)
	assert.Equal(t, "DELETE", bundle.Entry[0].Request.Method)
	assert.Equal(t, "204 No Content", bundle.Entry[0].Response.Status)
	assert.Nil(t, bundle.Entry[0].Resource)
	assert.Equal(t, "POST", bundle.Entry[1].Request.Method)
}

func TestBuildHistoryBundle_NextCursorLink(t *testing.T) {
	bundle, err := BuildHistoryBundle("http://x/fhir", nil, "cursor-value")
	require.NoError(t, err)
	require.Len(t, bundle.Link, 1)
	assert.Equal(t, "next", bundle.Link[0].Relation)
	assert.Contains(t, bundle.Link[0].URL, "cursor-value")
}
