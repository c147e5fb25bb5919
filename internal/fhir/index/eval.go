// Package index implements the row indexer, reference extractor, and
// lookup-table extractor (components E/F/G): given a decoded resource and
// its classified search parameters, it computes everything the repository
// writes alongside the canonical content — search columns, reference rows,
// and lookup-table rows.
package index

import (
	"github.com/ehr/fhirengine/internal/fhir/classify"
)

// Eval walks resource along path and returns the sequence of values reached.
// At every step: an array applies the remaining path to each element and
// concatenates the results; an object looks up the next property; nil or a
// missing key yields the empty sequence (§4.4).
func Eval(resource map[string]interface{}, path classify.Path) []interface{} {
	values := []interface{}{resource}
	for _, step := range path.Steps {
		var next []interface{}
		for _, v := range values {
			next = append(next, evalStep(v, step)...)
		}
		values = next
		if len(values) == 0 {
			return nil
		}
	}
	return values
}

func evalStep(node interface{}, step string) []interface{} {
	switch n := node.(type) {
	case map[string]interface{}:
		v, ok := n[step]
		if !ok || v == nil {
			return nil
		}
		return []interface{}{v}
	case []interface{}:
		var out []interface{}
		for _, elem := range n {
			out = append(out, evalStep(elem, step)...)
		}
		return out
	default:
		return nil
	}
}

// EvalAll evaluates every path of a classified parameter and concatenates
// the results, since a parameter's expression may have multiple `|` branches
// matching the same resource type.
func EvalAll(resource map[string]interface{}, paths []classify.Path) []interface{} {
	var out []interface{}
	for _, p := range paths {
		out = append(out, Eval(resource, p)...)
	}
	return out
}
