package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

func TestExtractReferences_MatchesTypeUUIDForm(t *testing.T) {
	resource := map[string]interface{}{
		"subject": map[string]interface{}{"reference": "Patient/3fa85f64-5717-4562-b3fc-2c963f66afa6"},
	}
	params := []*classify.ParamImpl{
		{Code: "subject", ValueType: "reference", Paths: []classify.Path{{Steps: []string{"subject"}}}},
	}
	rows := ExtractReferences(resource, "res-1", params)
	require.Len(t, rows, 1)
	assert.Equal(t, "res-1", rows[0].ResourceID)
	assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", rows[0].TargetID)
	assert.Equal(t, "subject", rows[0].Code)
}

func TestExtractReferences_SkipsNonUUIDReferences(t *testing.T) {
	resource := map[string]interface{}{
		"subject": map[string]interface{}{"reference": "http://example.org/fhir/Patient/abc"},
	}
	params := []*classify.ParamImpl{
		{Code: "subject", ValueType: "reference", Paths: []classify.Path{{Steps: []string{"subject"}}}},
	}
	rows := ExtractReferences(resource, "res-1", params)
	assert.Empty(t, rows)
}

func TestExtractReferences_SkipsNonReferenceParams(t *testing.T) {
	resource := map[string]interface{}{"status": "final"}
	params := []*classify.ParamImpl{
		{Code: "status", ValueType: "token", Paths: []classify.Path{{Steps: []string{"status"}}}},
	}
	rows := ExtractReferences(resource, "res-1", params)
	assert.Empty(t, rows)
}
