package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/meta"
)

func TestBuildAll_SynthesizesEveryRegisteredResourceType(t *testing.T) {
	profiles := meta.NewProfileRegistry()
	meta.RegisterBaseProfiles(profiles)
	params := meta.NewSearchParameterRegistry()
	meta.RegisterBaseSearchParameters(params)

	tables := BuildAll(profiles, params)

	require.Contains(t, tables, "Patient")
	patient := tables["Patient"]
	assert.Equal(t, "Patient", patient.Main.Name)
	assert.NotEmpty(t, patient.Params)
}
