package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/meta"
)

func newRegistries() (*meta.ProfileRegistry, *meta.SearchParameterRegistry) {
	profiles := meta.NewProfileRegistry()
	meta.RegisterBaseProfiles(profiles)
	params := meta.NewSearchParameterRegistry()
	meta.RegisterBaseSearchParameters(params)
	return profiles, params
}

func TestBuild_ListsEveryRegisteredResourceType(t *testing.T) {
	profiles, params := newRegistries()
	stmt := Build(profiles, params)

	require.Len(t, stmt.Rest, 1)
	names := map[string]bool{}
	for _, r := range stmt.Rest[0].Resource {
		names[r.Type] = true
	}
	assert.True(t, names["Patient"])
	assert.True(t, names["Observation"])
}

func TestBuild_ResourceCarriesItsClassifiedSearchParams(t *testing.T) {
	profiles, params := newRegistries()
	stmt := Build(profiles, params)

	var patient *ResourceCapability
	for i := range stmt.Rest[0].Resource {
		if stmt.Rest[0].Resource[i].Type == "Patient" {
			patient = &stmt.Rest[0].Resource[i]
		}
	}
	require.NotNil(t, patient)

	codes := map[string]bool{}
	for _, sp := range patient.SearchParam {
		codes[sp.Name] = true
	}
	assert.True(t, codes["family"])
	assert.True(t, codes["identifier"])
}

func TestBuild_StampsFHIRVersionAndFormats(t *testing.T) {
	profiles, params := newRegistries()
	stmt := Build(profiles, params)

	assert.Equal(t, "4.0.1", stmt.FHIRVersion)
	assert.Equal(t, "CapabilityStatement", stmt.ResourceType)
	assert.Contains(t, stmt.Format, "application/fhir+json")
}
