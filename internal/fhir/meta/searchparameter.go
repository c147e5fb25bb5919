package meta

import "sync"

// SearchParameterDef is the FHIR SearchParameter metadata as loaded from a
// bundle, before classification. Base lists every resource type the
// parameter applies to; Expression is the raw (unparsed) FHIRPath-ish
// extraction expression from the FHIR spec.
type SearchParameterDef struct {
	Code         string
	Base         []string
	Type         string // string|token|reference|date|number|uri|quantity|composite|special
	Expression   string
	Target       []string // candidate resource types for reference params
	MultipleOr   bool
	MultipleAnd  bool
	Modifier     []string
	Component    []CompositeComponentDef // non-empty only for type=composite
}

// CompositeComponentDef names one leg of a composite search parameter: the
// code of an existing SearchParameter this component reuses, and the
// FHIRPath expression relative to the composite's own root that selects the
// sub-value the leg matches against.
type CompositeComponentDef struct {
	DefinitionCode string
	Expression     string
}

// SearchParameterRegistry indexes parameter definitions per resource type.
// Indexing is idempotent: re-indexing the same (resourceType, code) pair
// overwrites the previous entry, which is how a platform overlay bundle
// extends or replaces the base FHIR R4 SearchParameter set (§4.1).
type SearchParameterRegistry struct {
	mu      sync.RWMutex
	byType  map[string]map[string]*SearchParameterDef
	order   map[string][]string // resourceType -> codes in first-seen order
}

func NewSearchParameterRegistry() *SearchParameterRegistry {
	return &SearchParameterRegistry{
		byType: make(map[string]map[string]*SearchParameterDef),
		order:  make(map[string][]string),
	}
}

// Index registers defs, fanning each one out across every resource type in
// its Base list.
func (r *SearchParameterRegistry) Index(defs []SearchParameterDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range defs {
		def := defs[i]
		for _, rt := range def.Base {
			r.put(rt, &def)
		}
	}
}

func (r *SearchParameterRegistry) put(resourceType string, def *SearchParameterDef) {
	m, ok := r.byType[resourceType]
	if !ok {
		m = make(map[string]*SearchParameterDef)
		r.byType[resourceType] = m
	}
	if _, exists := m[def.Code]; !exists {
		r.order[resourceType] = append(r.order[resourceType], def.Code)
	}
	m[def.Code] = def
}

func (r *SearchParameterRegistry) Get(resourceType, code string) (*SearchParameterDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byType[resourceType]
	if !ok {
		return nil, false
	}
	def, ok := m[code]
	return def, ok
}

// ForType returns every parameter definition applicable to resourceType, in
// first-registered order.
func (r *SearchParameterRegistry) ForType(resourceType string) []*SearchParameterDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := r.order[resourceType]
	out := make([]*SearchParameterDef, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.byType[resourceType][code])
	}
	return out
}
