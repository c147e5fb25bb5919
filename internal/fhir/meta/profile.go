// Package meta holds the two in-memory metadata registries the rest of the
// engine is built from: StructureDefinitions (profiles) and SearchParameter
// implementations. Both are built once at startup and are read-only
// thereafter (§5 "Shared resources").
package meta

import "sync"

// ElementDefinition is the slice of a profile's element tree the core
// actually consults: its path, cardinality, and declared type(s). Slicing
// and binding strength are intentionally not modeled — the core never
// validates terminology bindings itself (§6, terminology is an external
// collaborator).
type ElementDefinition struct {
	Path     string
	Min      int
	Max      string // "1" or "*"
	Types    []string
}

// Profile is an immutable snapshot of a StructureDefinition: canonical URL,
// resource-type name, and its ordered element list.
type Profile struct {
	URL          string
	Name         string
	Type         string // resource / complex-type / primitive-type
	Kind         string
	Abstract     bool
	Elements     []ElementDefinition
}

// ProfileRegistry maps canonical URL and resource-type name to a Profile.
// Registration is idempotent: registering the same URL twice overwrites,
// matching the SearchParameter registry's "later overlay wins" semantics
// (§4.1) so a platform profile can supersede a base one.
type ProfileRegistry struct {
	mu        sync.RWMutex
	byURL     map[string]*Profile
	byType    map[string]*Profile
	typeOrder []string
}

func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{
		byURL:  make(map[string]*Profile),
		byType: make(map[string]*Profile),
	}
}

func (r *ProfileRegistry) Register(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.URL != "" {
		r.byURL[p.URL] = p
	}
	if _, exists := r.byType[p.Name]; !exists {
		r.typeOrder = append(r.typeOrder, p.Name)
	}
	r.byType[p.Name] = p
}

func (r *ProfileRegistry) ByURL(url string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byURL[url]
	return p, ok
}

func (r *ProfileRegistry) ByType(resourceType string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byType[resourceType]
	return p, ok
}

// ResourceTypes returns every concrete resource-type name registered, in
// registration order — the schema synthesizer iterates this list to decide
// which resource table sets to emit.
func (r *ProfileRegistry) ResourceTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.typeOrder))
	for _, name := range r.typeOrder {
		if p := r.byType[name]; p != nil && p.Kind == "resource" && !p.Abstract {
			out = append(out, name)
		}
	}
	return out
}
