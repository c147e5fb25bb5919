// Package capability builds the `GET /metadata` CapabilityStatement from
// the metadata registries, rather than a hand-maintained per-resource list.
package capability

import (
	"sort"

	"github.com/ehr/fhirengine/internal/fhir/classify"
	"github.com/ehr/fhirengine/internal/fhir/meta"
)

// SearchParamCapability is one entry of a resource's CapabilityStatement
// search-param list.
type SearchParamCapability struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResourceCapability is one `rest.resource[]` entry.
type ResourceCapability struct {
	Type              string                  `json:"type"`
	Interaction       []InteractionCapability `json:"interaction"`
	SearchParam       []SearchParamCapability `json:"searchParam,omitempty"`
	Versioning        string                  `json:"versioning"`
	ConditionalCreate bool                    `json:"conditionalCreate"`
	ConditionalUpdate bool                    `json:"conditionalUpdate"`
	ConditionalDelete string                  `json:"conditionalDelete"`
}

type InteractionCapability struct {
	Code string `json:"code"`
}

// Statement is the subset of CapabilityStatement the engine populates.
type Statement struct {
	ResourceType string `json:"resourceType"`
	Status       string `json:"status"`
	Kind         string `json:"kind"`
	FHIRVersion  string `json:"fhirVersion"`
	Format       []string `json:"format"`
	Rest         []Rest `json:"rest"`
}

type Rest struct {
	Mode     string               `json:"mode"`
	Resource []ResourceCapability `json:"resource"`
}

// defaultInteractions lists the full CRUD+history+search set every
// synthesized resource table set supports.
var defaultInteractions = []InteractionCapability{
	{Code: "read"}, {Code: "vread"}, {Code: "update"}, {Code: "patch"},
	{Code: "delete"}, {Code: "history-instance"}, {Code: "history-type"},
	{Code: "create"}, {Code: "search-type"},
}

// Build produces a CapabilityStatement describing every registered resource
// type and its classified search parameters, driven entirely by the
// metadata registries and the classifier instead of a hand-written list.
func Build(profiles *meta.ProfileRegistry, params *meta.SearchParameterRegistry) Statement {
	stmt := Statement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Kind:         "instance",
		FHIRVersion:  "4.0.1",
		Format:       []string{"application/fhir+json", "json"},
	}

	types := append([]string(nil), profiles.ResourceTypes()...)
	sort.Strings(types)

	rest := Rest{Mode: "server"}
	for _, rt := range types {
		profile, _ := profiles.ByType(rt)
		impls := classify.ClassifyAll(params, profiles, rt)

		rc := ResourceCapability{
			Type:              rt,
			Interaction:       defaultInteractions,
			Versioning:        "versioned",
			ConditionalCreate: true,
			ConditionalUpdate: true,
			ConditionalDelete: "multiple",
		}
		for _, impl := range impls {
			rc.SearchParam = append(rc.SearchParam, SearchParamCapability{Name: impl.Code, Type: impl.ValueType})
		}
		_ = profile
		rest.Resource = append(rest.Resource, rc)
	}
	stmt.Rest = []Rest{rest}
	return stmt
}
