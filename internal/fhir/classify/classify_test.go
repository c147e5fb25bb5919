package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/meta"
)

func TestParseExpression_KeepsEveryMatchingBranch(t *testing.T) {
	paths := ParseExpression("Patient.deceasedBoolean | Patient.deceasedDateTime", "Patient")
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"deceasedBoolean"}, paths[0].Steps)
	assert.Equal(t, []string{"deceasedDateTime"}, paths[1].Steps)
}

func TestParseExpression_FiltersByResourceType(t *testing.T) {
	paths := ParseExpression("Patient.name | Practitioner.name", "Patient")
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"name"}, paths[0].Steps)
}

func TestParseExpression_StripsWhereAsResolve(t *testing.T) {
	paths := ParseExpression("Observation.value.where(resolve() is Quantity).as(Quantity)", "Observation")
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"value"}, paths[0].Steps)
}

func TestClassify_TokenStrategy(t *testing.T) {
	def := &meta.SearchParameterDef{Code: "status", Type: "token", Expression: "status", Base: []string{"Encounter"}}
	impl := Classify(def, "Encounter", nil)
	assert.Equal(t, StrategyTokenColumn, impl.Strategy)
	assert.Equal(t, "__status", impl.Column)
	assert.Equal(t, SQLUUIDArray, impl.SQLType)
}

func TestClassify_LookupTableForHumanName(t *testing.T) {
	profile := &meta.Profile{
		Name: "Patient",
		Elements: []meta.ElementDefinition{
			{Path: "Patient.name", Types: []string{"HumanName"}},
		},
	}
	def := &meta.SearchParameterDef{Code: "name", Type: "string", Expression: "name", Base: []string{"Patient"}}
	impl := Classify(def, "Patient", profile)
	assert.Equal(t, StrategyLookupTable, impl.Strategy)
	assert.Equal(t, "HumanName", impl.LookupTable)
	assert.Equal(t, "__nameSort", impl.Column)
}

func TestClassify_PlainStringIsColumn(t *testing.T) {
	def := &meta.SearchParameterDef{Code: "name", Type: "string", Expression: "name", Base: []string{"Organization"}}
	impl := Classify(def, "Organization", nil)
	assert.Equal(t, StrategyColumn, impl.Strategy)
	assert.Equal(t, SQLText, impl.SQLType)
}

func TestClassify_ReferenceMultiTargetIsArray(t *testing.T) {
	def := &meta.SearchParameterDef{Code: "subject", Type: "reference", Expression: "subject", Target: []string{"Patient", "Group"}}
	impl := Classify(def, "Observation", nil)
	assert.True(t, impl.Array)
	assert.Equal(t, SQLTextArray, impl.SQLType)
}

func TestClassify_CompositeIsStub(t *testing.T) {
	def := &meta.SearchParameterDef{Code: "code-value-quantity", Type: "composite"}
	impl := Classify(def, "Observation", nil)
	assert.Equal(t, StrategyComposite, impl.Strategy)
}
