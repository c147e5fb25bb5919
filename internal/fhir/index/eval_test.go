package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

func TestEval_WalksObjectPath(t *testing.T) {
	resource := map[string]interface{}{
		"name": map[string]interface{}{"family": "Smith"},
	}
	values := Eval(resource, classify.Path{Steps: []string{"name", "family"}})
	assert.Equal(t, []interface{}{"Smith"}, values)
}

func TestEval_FlattensArrays(t *testing.T) {
	resource := map[string]interface{}{
		"name": []interface{}{
			map[string]interface{}{"family": "Smith"},
			map[string]interface{}{"family": "Jones"},
		},
	}
	values := Eval(resource, classify.Path{Steps: []string{"name", "family"}})
	assert.Equal(t, []interface{}{"Smith", "Jones"}, values)
}

func TestEval_MissingYieldsEmpty(t *testing.T) {
	resource := map[string]interface{}{}
	values := Eval(resource, classify.Path{Steps: []string{"name", "family"}})
	assert.Nil(t, values)
}

func TestEval_NullYieldsEmpty(t *testing.T) {
	resource := map[string]interface{}{"name": nil}
	values := Eval(resource, classify.Path{Steps: []string{"name", "family"}})
	assert.Nil(t, values)
}
