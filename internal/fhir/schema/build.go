package schema

import (
	"github.com/ehr/fhirengine/internal/fhir/classify"
	"github.com/ehr/fhirengine/internal/fhir/meta"
)

// BuildAll classifies every registered resource type's search parameters
// and synthesizes its table set, in one call — the setup-time pipeline of
// §2 ("Schema synthesizer") from the metadata registries through to the
// table model the repository, compiler, and DDL emitter all key off of.
func BuildAll(profiles *meta.ProfileRegistry, params *meta.SearchParameterRegistry) map[string]ResourceTableSet {
	tables := make(map[string]ResourceTableSet)
	for _, rt := range profiles.ResourceTypes() {
		impls := classify.ClassifyAll(params, profiles, rt)
		tables[rt] = Synthesize(rt, impls)
	}
	return tables
}
