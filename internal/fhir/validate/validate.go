// Package validate adapts the external resource-validator collaborator
// (§6 "Resource validator") behind a narrow interface, plus a built-in
// structural check the core applies on its own so `$validate` and the
// optional pre-write hook have something to call even when no external
// validator is wired.
package validate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ehr/fhirengine/internal/fhir/meta"
)

// Issue is one OperationOutcome.issue entry a validator produced.
type Issue struct {
	Severity    string // error | warning | information
	Code        string
	Diagnostics string
	Expression  []string
}

// Result is the external validator's contract: §6 "(resource) -> { valid,
// issues[] }".
type Result struct {
	Valid  bool
	Issues []Issue
}

// Validator is the external collaborator interface; the HTTP boundary's
// `$validate` operation and (optionally) the repository's pre-write hook
// call through it. The core never implements full FHIR structural/profile
// validation itself (§1, out of scope).
type Validator interface {
	Validate(ctx context.Context, resourceType string, resource map[string]interface{}) (Result, error)
}

// StructuralValidator is a minimal built-in Validator grounded on the
// teacher's ValidateResource: it checks resourceType is present and known to
// the profile registry, and that any `reference` string fields look like
// `Type/id`. It exists so the engine is usable before a real external
// validator (terminology-aware, profile-aware) is wired in; it is not a
// substitute for one.
type StructuralValidator struct {
	Profiles *meta.ProfileRegistry
}

func NewStructuralValidator(profiles *meta.ProfileRegistry) *StructuralValidator {
	return &StructuralValidator{Profiles: profiles}
}

var referencePattern = regexp.MustCompile(`^[A-Z][a-zA-Z]+/[A-Za-z0-9\-.]+$`)

func (v *StructuralValidator) Validate(_ context.Context, resourceType string, resource map[string]interface{}) (Result, error) {
	result := Result{Valid: true}

	rt, _ := resource["resourceType"].(string)
	if rt == "" {
		result.Valid = false
		result.Issues = append(result.Issues, Issue{
			Severity: "error", Code: "structure",
			Diagnostics: "resourceType is required", Expression: []string{"resourceType"},
		})
	} else if _, ok := v.Profiles.ByType(rt); !ok {
		result.Valid = false
		result.Issues = append(result.Issues, Issue{
			Severity: "error", Code: "not-supported",
			Diagnostics: fmt.Sprintf("unknown resource type %q", rt),
			Expression:  []string{"resourceType"},
		})
	} else if resourceType != "" && rt != resourceType {
		result.Valid = false
		result.Issues = append(result.Issues, Issue{
			Severity: "error", Code: "invalid",
			Diagnostics: fmt.Sprintf("resourceType %q does not match requested type %q", rt, resourceType),
		})
	}

	walkReferences(resource, nil, &result)
	return result, nil
}

// walkReferences recurses into the resource tree looking for `reference`
// string fields and flags any that are neither `Type/id` nor a conditional
// reference (`Type?params`) nor a contained-resource (`#id`) nor a urn
// (resolved earlier by the bundle processor).
func walkReferences(node interface{}, path []string, result *Result) {
	switch v := node.(type) {
	case map[string]interface{}:
		if ref, ok := v["reference"].(string); ok && ref != "" {
			if !looksLikeReference(ref) {
				result.Valid = false
				result.Issues = append(result.Issues, Issue{
					Severity:    "warning",
					Code:        "value",
					Diagnostics: fmt.Sprintf("reference %q is not of the form Type/id", ref),
					Expression:  []string{joinPath(path, "reference")},
				})
			}
		}
		for k, child := range v {
			walkReferences(child, append(path, k), result)
		}
	case []interface{}:
		for _, item := range v {
			walkReferences(item, path, result)
		}
	}
}

func looksLikeReference(ref string) bool {
	if len(ref) == 0 {
		return false
	}
	switch ref[0] {
	case '#':
		return true
	}
	if len(ref) > 4 && ref[:4] == "urn:" {
		return true
	}
	if referencePattern.MatchString(ref) {
		return true
	}
	for i, c := range ref {
		if c == '?' {
			return i > 0
		}
	}
	return false
}

func joinPath(path []string, leaf string) string {
	out := ""
	for _, p := range path {
		if out != "" {
			out += "."
		}
		out += p
	}
	if out != "" {
		return out + "." + leaf
	}
	return leaf
}
