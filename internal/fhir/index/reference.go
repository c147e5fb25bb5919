package index

import (
	"regexp"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

// referencePattern matches the `<Type>/<uuid>` reference form the engine
// assigns its own ids in (§4.4); references in any other shape — external
// URLs, contained-resource `#id`, non-UUID local ids from upstream systems —
// are recorded in content but not indexed.
var referencePattern = regexp.MustCompile(`^[A-Z][a-zA-Z]*/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`)

// conditionalReferencePattern matches a conditional reference, `<Type>?query`
// (e.g. `Patient?identifier=http://example.org|42`). Its target id isn't
// known until the query is resolved against the target type's table, which
// needs a database round trip the row indexer itself cannot make — the
// repository resolves ConditionalQuery rows at write time (§5).
var conditionalReferencePattern = regexp.MustCompile(`^([A-Z][a-zA-Z]*)\?(.+)$`)

// ReferenceRow is one row of a resource type's References table. A row
// produced from a conditional reference carries TargetType/ConditionalQuery
// instead of TargetID until the repository resolves it.
type ReferenceRow struct {
	ResourceID       string
	TargetID         string
	Code             string
	TargetType       string
	ConditionalQuery string
}

// ExtractReferences walks every reference-typed parameter's path and emits
// a References row for each value matching the `<Type>/<uuid>` pattern, or
// an unresolved row for a conditional reference.
func ExtractReferences(resource map[string]interface{}, resourceID string, params []*classify.ParamImpl) []ReferenceRow {
	var rows []ReferenceRow
	for _, p := range params {
		if p.ValueType != "reference" {
			continue
		}
		for _, v := range EvalAll(resource, p.Paths) {
			ref, ok := referenceString(v)
			if !ok {
				continue
			}
			if m := referencePattern.FindStringSubmatch(ref); m != nil {
				rows = append(rows, ReferenceRow{ResourceID: resourceID, TargetID: m[1], Code: p.Code})
				continue
			}
			if m := conditionalReferencePattern.FindStringSubmatch(ref); m != nil {
				rows = append(rows, ReferenceRow{
					ResourceID:       resourceID,
					Code:             p.Code,
					TargetType:       m[1],
					ConditionalQuery: m[2],
				})
			}
		}
	}
	return rows
}

func referenceString(value interface{}) (string, bool) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return "", false
	}
	ref, ok := obj["reference"].(string)
	if !ok || ref == "" {
		return "", false
	}
	return ref, true
}
