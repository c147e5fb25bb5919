package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhirerr"
)

func TestParseEntryURL_PlainType(t *testing.T) {
	rt, id, query, isSearch := parseEntryURL("Patient")
	assert.Equal(t, "Patient", rt)
	assert.Empty(t, id)
	assert.Empty(t, query)
	assert.False(t, isSearch)
}

func TestParseEntryURL_WithID(t *testing.T) {
	rt, id, _, isSearch := parseEntryURL("Patient/123")
	assert.Equal(t, "Patient", rt)
	assert.Equal(t, "123", id)
	assert.False(t, isSearch)
}

func TestParseEntryURL_WithQuery(t *testing.T) {
	rt, id, query, isSearch := parseEntryURL("Patient?name=Smith")
	assert.Equal(t, "Patient", rt)
	assert.Empty(t, id)
	assert.Equal(t, "name=Smith", query)
	assert.True(t, isSearch)
}

func TestResolveRefs_ReplacesURNReference(t *testing.T) {
	resource := map[string]interface{}{
		"resourceType": "Observation",
		"subject": map[string]interface{}{
			"reference": "urn:uuid:abc",
		},
	}
	idMap := map[string]string{"urn:uuid:abc": "Patient/1"}
	resolveRefs(resource, idMap)
	subject := resource["subject"].(map[string]interface{})
	assert.Equal(t, "Patient/1", subject["reference"])
}

func TestResolveRefs_WalksArrays(t *testing.T) {
	resource := map[string]interface{}{
		"link": []interface{}{
			map[string]interface{}{"reference": "urn:uuid:x"},
		},
	}
	idMap := map[string]string{"urn:uuid:x": "Patient/9"}
	resolveRefs(resource, idMap)
	links := resource["link"].([]interface{})
	first := links[0].(map[string]interface{})
	assert.Equal(t, "Patient/9", first["reference"])
}

func TestReplaceURNRefs(t *testing.T) {
	idMap := map[string]string{"urn:uuid:abc": "Patient/1"}
	assert.Equal(t, "Patient/1/_history/2", replaceURNRefs("urn:uuid:abc/_history/2", idMap))
}

func TestCreatedEntry_StatusAndLocation(t *testing.T) {
	resource := map[string]interface{}{
		"id":   "1",
		"meta": map[string]interface{}{"versionId": "2", "lastUpdated": "2024-01-01T00:00:00Z"},
	}
	entry := createdEntry("Patient", resource, true)
	require.NotNil(t, entry.Response)
	assert.Equal(t, "201 Created", entry.Response.Status)
	assert.Equal(t, "Patient/1", entry.Response.Location)
	assert.Equal(t, `W/"2"`, entry.Response.Etag)
	require.NotNil(t, entry.Response.LastModified)
}

func TestErrorEntry_MapsKindToStatus(t *testing.T) {
	entry := errorEntry(fhirerr.New(fhirerr.NotFound, "resource not found"))
	require.NotNil(t, entry.Response)
	assert.Equal(t, "404 Not Found", entry.Response.Status)
}
