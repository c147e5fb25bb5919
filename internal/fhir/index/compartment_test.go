package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCompartments_PatientIsOwnMember(t *testing.T) {
	got := ExtractCompartments("Patient", "pat-1", nil)
	assert.Equal(t, []string{"pat-1"}, got)
}

func TestExtractCompartments_ObservationUsesPatientOrSubjectRef(t *testing.T) {
	refs := []ReferenceRow{
		{ResourceID: "obs-1", TargetID: "pat-1", Code: "subject"},
		{ResourceID: "obs-1", TargetID: "enc-1", Code: "encounter"},
	}
	got := ExtractCompartments("Observation", "obs-1", refs)
	assert.Equal(t, []string{"pat-1"}, got)
}

func TestExtractCompartments_UnknownTypeIsEmpty(t *testing.T) {
	got := ExtractCompartments("CapabilityStatement", "cs-1", nil)
	assert.Empty(t, got)
}
