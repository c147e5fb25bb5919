package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

func TestExtractLookupRows_HumanNameConcatenation(t *testing.T) {
	resource := map[string]interface{}{
		"name": map[string]interface{}{
			"family": "Smith",
			"given":  []interface{}{"John", "Jacob"},
			"prefix": []interface{}{"Dr."},
		},
	}
	params := []*classify.ParamImpl{
		{Code: "name", Strategy: classify.StrategyLookupTable, LookupTable: "HumanName",
			Paths: []classify.Path{{Steps: []string{"name"}}}},
	}
	rows := ExtractLookupRows(resource, "res-1", params)
	require.Len(t, rows, 1)
	assert.Equal(t, "HumanName", rows[0].Table)
	assert.Equal(t, "Smith John Jacob Dr.", rows[0].Columns["name"])
	assert.Equal(t, "John Jacob", rows[0].Columns["given"])
	assert.Equal(t, "Smith", rows[0].Columns["family"])
}

func TestExtractLookupRows_AddressConcatenation(t *testing.T) {
	resource := map[string]interface{}{
		"address": map[string]interface{}{
			"line":       []interface{}{"123 Main St"},
			"city":       "Springfield",
			"state":      "IL",
			"postalCode": "62704",
			"country":    "US",
		},
	}
	params := []*classify.ParamImpl{
		{Code: "address", Strategy: classify.StrategyLookupTable, LookupTable: "Address",
			Paths: []classify.Path{{Steps: []string{"address"}}}},
	}
	rows := ExtractLookupRows(resource, "res-1", params)
	require.Len(t, rows, 1)
	assert.Equal(t, "123 Main St Springfield IL 62704 US", rows[0].Columns["address"])
}

func TestExtractLookupRows_SkipsNonLookupParams(t *testing.T) {
	resource := map[string]interface{}{"status": "active"}
	params := []*classify.ParamImpl{
		{Code: "status", Strategy: classify.StrategyColumn, Paths: []classify.Path{{Steps: []string{"status"}}}},
	}
	rows := ExtractLookupRows(resource, "res-1", params)
	assert.Empty(t, rows)
}
