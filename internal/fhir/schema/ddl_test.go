package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

func TestEmitDDL_TablesBeforeIndexes(t *testing.T) {
	params := []*classify.ParamImpl{
		{Code: "status", Strategy: classify.StrategyTokenColumn, Column: "__status", SQLType: classify.SQLUUIDArray},
	}
	set := Synthesize("Encounter", params)
	stmts := EmitDDL(set)
	require.NotEmpty(t, stmts)

	var lastTableIdx, firstIndexIdx = -1, -1
	for i, s := range stmts {
		if strings.HasPrefix(s, "CREATE TABLE") {
			lastTableIdx = i
		}
		if strings.HasPrefix(s, "CREATE INDEX") && firstIndexIdx == -1 {
			firstIndexIdx = i
		}
	}
	assert.True(t, lastTableIdx < firstIndexIdx, "all tables must precede all indexes")
}

func TestEmitDDL_QuotesIdentifiers(t *testing.T) {
	set := Synthesize("Patient", nil)
	stmts := EmitDDL(set)
	assert.Contains(t, stmts[0], `"Patient"`)
	assert.Contains(t, stmts[0], `"lastUpdated"`)
}

func TestEmitDDL_TokenColumnGetsGinAndTrigramIndexes(t *testing.T) {
	params := []*classify.ParamImpl{
		{Code: "status", Strategy: classify.StrategyTokenColumn, Column: "__status", SQLType: classify.SQLUUIDArray},
	}
	set := Synthesize("Encounter", params)
	stmts := EmitDDL(set)

	var ginFound, trgmFound bool
	for _, s := range stmts {
		if strings.Contains(s, `USING gin ("__status")`) {
			ginFound = true
		}
		if strings.Contains(s, "gin_trgm_ops") && strings.Contains(s, "__statusText") {
			trgmFound = true
		}
	}
	assert.True(t, ginFound, "expected a gin index on the token hash column")
	assert.True(t, trgmFound, "expected a trigram index on the token text column")
}

func TestEmitDDL_ArrayColumnUsesGin(t *testing.T) {
	params := []*classify.ParamImpl{
		{Code: "subject", Strategy: classify.StrategyColumn, Column: "subject", SQLType: classify.SQLTextArray, Array: true},
	}
	set := Synthesize("Observation", params)
	stmts := EmitDDL(set)

	found := false
	for _, s := range stmts {
		if strings.Contains(s, `USING gin ("subject")`) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEmitDDL_CompositeEmitsNoColumn(t *testing.T) {
	params := []*classify.ParamImpl{
		{Code: "code-value-quantity", Strategy: classify.StrategyComposite},
	}
	set := Synthesize("Observation", params)
	stmts := EmitDDL(set)
	for _, s := range stmts {
		assert.NotContains(t, s, "code-value-quantity")
	}
}

func TestEmitGlobalLookupDDL_IncludesAllFourTables(t *testing.T) {
	stmts := EmitGlobalLookupDDL()
	joined := strings.Join(stmts, "\n")
	for _, name := range []string{"HumanName", "Address", "ContactPoint", "Identifier"} {
		assert.Contains(t, joined, `"`+name+`"`)
	}
}
