package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceTokens_Boolean(t *testing.T) {
	tokens := CoerceTokens(true)
	require.Len(t, tokens, 1)
	assert.Equal(t, "", tokens[0].System)
	assert.Equal(t, "true", tokens[0].Code)

	tokens = CoerceTokens(false)
	require.Len(t, tokens, 1)
	assert.Equal(t, "false", tokens[0].Code)
}

func TestCoerceTokens_PlainCode(t *testing.T) {
	tokens := CoerceTokens("final")
	require.Len(t, tokens, 1)
	assert.Equal(t, "", tokens[0].System)
	assert.Equal(t, "final", tokens[0].Code)
}

func TestCoerceTokens_Coding(t *testing.T) {
	tokens := CoerceTokens(map[string]interface{}{
		"system": "http://loinc.org", "code": "1234-5", "display": "Test",
	})
	require.Len(t, tokens, 1)
	assert.Equal(t, "http://loinc.org", tokens[0].System)
	assert.Equal(t, "1234-5", tokens[0].Code)
	assert.Equal(t, "Test", tokens[0].Display)
}

func TestCoerceTokens_CodeableConceptMultipleCodings(t *testing.T) {
	tokens := CoerceTokens(map[string]interface{}{
		"coding": []interface{}{
			map[string]interface{}{"system": "sys1", "code": "a"},
			map[string]interface{}{"system": "sys2", "code": "b"},
		},
	})
	require.Len(t, tokens, 2)
	assert.Equal(t, "a", tokens[0].Code)
	assert.Equal(t, "b", tokens[1].Code)
}

func TestCoerceTokens_CodeableConceptFallsBackToText(t *testing.T) {
	tokens := CoerceTokens(map[string]interface{}{"text": "some condition"})
	require.Len(t, tokens, 1)
	assert.Equal(t, "some condition", tokens[0].Code)
}

func TestCoerceTokens_Identifier(t *testing.T) {
	tokens := CoerceTokens(map[string]interface{}{
		"system": "http://example.org/mrn", "value": "12345",
	})
	require.Len(t, tokens, 1)
	assert.Equal(t, "http://example.org/mrn", tokens[0].System)
	assert.Equal(t, "12345", tokens[0].Code)
}

func TestToken_HashIsDeterministic(t *testing.T) {
	a := Token{System: "http://loinc.org", Code: "1234-5"}
	b := Token{System: "http://loinc.org", Code: "1234-5"}
	assert.Equal(t, a.Hash(), b.Hash())

	c := Token{System: "http://loinc.org", Code: "9999-9"}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestToken_TextOmitsEmptySystem(t *testing.T) {
	assert.Equal(t, "final", Token{Code: "final"}.Text())
	assert.Equal(t, "http://loinc.org|1234-5", Token{System: "http://loinc.org", Code: "1234-5"}.Text())
}

func TestToken_SortTextPrefersDisplay(t *testing.T) {
	assert.Equal(t, "Test", Token{System: "sys", Code: "c", Display: "Test"}.SortText())
	assert.Equal(t, "sys|c", Token{System: "sys", Code: "c"}.SortText())
}
