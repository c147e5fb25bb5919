package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

func TestIndexResource_TokenColumnAndSharedRollup(t *testing.T) {
	resource := map[string]interface{}{
		"resourceType": "Encounter",
		"status":       "finished",
		"meta": map[string]interface{}{
			"tag": []interface{}{
				map[string]interface{}{"system": "http://example.org/tags", "code": "urgent"},
			},
		},
	}
	params := []*classify.ParamImpl{
		{Code: "status", Strategy: classify.StrategyTokenColumn, ValueType: "token",
			Paths: []classify.Path{{Steps: []string{"status"}}}},
	}

	row := IndexResource("Encounter", resource, "res-1", params)

	statusHashes, ok := row.Columns["__status"].([]string)
	require.True(t, ok)
	require.Len(t, statusHashes, 1)

	tagHashes, ok := row.Columns["___tag"].([]string)
	require.True(t, ok)
	require.Len(t, tagHashes, 1)

	shared, ok := row.Columns["__sharedTokens"].([]string)
	require.True(t, ok)
	assert.Contains(t, shared, statusHashes[0])
	assert.Contains(t, shared, tagHashes[0])
}

func TestIndexResource_ScalarColumn(t *testing.T) {
	resource := map[string]interface{}{"birthDate": "1990-05-01"}
	params := []*classify.ParamImpl{
		{Code: "birthdate", Strategy: classify.StrategyColumn, Column: "birthdate", ValueType: "date",
			Paths: []classify.Path{{Steps: []string{"birthDate"}}}},
	}
	row := IndexResource("Patient", resource, "res-1", params)
	assert.Equal(t, "1990-05-01", row.Columns["birthdate"])
}

func TestIndexResource_MultiTargetReferenceArrayColumn(t *testing.T) {
	resource := map[string]interface{}{
		"subject": map[string]interface{}{"reference": "Patient/3fa85f64-5717-4562-b3fc-2c963f66afa6"},
	}
	params := []*classify.ParamImpl{
		{Code: "subject", Strategy: classify.StrategyColumn, Column: "subject", ValueType: "reference",
			Array: true, Paths: []classify.Path{{Steps: []string{"subject"}}}},
	}
	row := IndexResource("Observation", resource, "res-1", params)
	refs, ok := row.Columns["subject"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"Patient/3fa85f64-5717-4562-b3fc-2c963f66afa6"}, refs)
}

func TestIndexResource_IncludesReferencesAndLookups(t *testing.T) {
	resource := map[string]interface{}{
		"name":    map[string]interface{}{"family": "Smith"},
		"subject": map[string]interface{}{"reference": "Patient/3fa85f64-5717-4562-b3fc-2c963f66afa6"},
	}
	params := []*classify.ParamImpl{
		{Code: "name", Strategy: classify.StrategyLookupTable, LookupTable: "HumanName",
			Paths: []classify.Path{{Steps: []string{"name"}}}},
		{Code: "subject", Strategy: classify.StrategyColumn, Column: "subject", ValueType: "reference",
			Paths: []classify.Path{{Steps: []string{"subject"}}}},
	}
	row := IndexResource("Observation", resource, "res-1", params)
	require.Len(t, row.Lookups, 1)
	require.Len(t, row.References, 1)
	assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", row.References[0].TargetID)
}

func TestIndexResource_PatientCompartmentIsSelf(t *testing.T) {
	row := IndexResource("Patient", map[string]interface{}{}, "pat-1", nil)
	assert.Equal(t, []string{"pat-1"}, row.Columns["compartments"])
}
