package classify

import (
	"strings"

	"github.com/ehr/fhirengine/internal/fhir/meta"
)

// Strategy is the storage strategy assigned to a search parameter (§3).
type Strategy string

const (
	StrategyColumn      Strategy = "column"
	StrategyTokenColumn Strategy = "token-column"
	StrategyLookupTable Strategy = "lookup-table"
	StrategyComposite   Strategy = "composite" // compile path is a stub, §9 open question
)

// SQLType is the column type chosen for a `column` or `token-column`
// strategy (§4.2 point 3).
type SQLType string

const (
	SQLTimestamptz SQLType = "TIMESTAMPTZ"
	SQLDouble      SQLType = "DOUBLE PRECISION"
	SQLText        SQLType = "TEXT"
	SQLTextArray   SQLType = "TEXT[]"
	SQLUUIDArray   SQLType = "UUID[]"
)

// lookupStructuredTypes names the FHIR complex types that force a
// lookup-table strategy for `string`-typed search parameters (§3).
var lookupStructuredTypes = map[string]string{
	"HumanName":    "HumanName",
	"Address":      "Address",
	"ContactPoint": "ContactPoint",
}

// ParamImpl is the classified "search-parameter implementation" entity of
// §3: everything the schema synthesizer, row indexer, and search compiler
// need, derived once from a SearchParameterDef and its resource type's
// profile.
type ParamImpl struct {
	Code         string
	ResourceType string
	ValueType    string // token|string|reference|date|number|uri|quantity|composite|special
	Paths        []Path
	Strategy     Strategy
	Column       string  // main-table column name (__<code>Sort for lookup-table, "" for composite)
	SQLType      SQLType
	Array        bool
	Target       []string // candidate target resource types, for reference params
	LookupTable  string   // populated when Strategy == lookup-table
	Component    []*ParamImpl // populated when Strategy == composite
}

// Classify derives the ParamImpl for one SearchParameterDef against one
// resource type, consulting the profile for the leaf property's declared
// FHIR type.
func Classify(def *meta.SearchParameterDef, resourceType string, profile *meta.Profile) *ParamImpl {
	paths := ParseExpression(def.Expression, resourceType)
	impl := &ParamImpl{
		Code:         def.Code,
		ResourceType: resourceType,
		ValueType:    def.Type,
		Paths:        paths,
		Target:       def.Target,
		Array:        len(def.Target) > 1,
	}

	leafType := leafDeclaredType(profile, paths)

	switch def.Type {
	case "composite":
		impl.Strategy = StrategyComposite
		return impl
	case "token":
		impl.Strategy = StrategyTokenColumn
		impl.Column = "__" + def.Code
		impl.SQLType = SQLUUIDArray
	case "reference":
		impl.Strategy = StrategyColumn
		impl.Column = def.Code
		if impl.Array {
			impl.SQLType = SQLTextArray
		} else {
			impl.SQLType = SQLText
		}
	case "date":
		impl.Strategy = StrategyColumn
		impl.Column = def.Code
		impl.SQLType = SQLTimestamptz
	case "number", "quantity":
		impl.Strategy = StrategyColumn
		impl.Column = def.Code
		impl.SQLType = SQLDouble
	case "uri":
		impl.Strategy = StrategyColumn
		impl.Column = def.Code
		impl.SQLType = SQLText
	case "string":
		if table, ok := lookupStructuredTypes[leafType]; ok {
			impl.Strategy = StrategyLookupTable
			impl.LookupTable = table
			impl.Column = "__" + def.Code + "Sort"
			impl.SQLType = SQLText
		} else {
			impl.Strategy = StrategyColumn
			impl.Column = def.Code
			impl.SQLType = SQLText
		}
	default:
		// "special" and anything unrecognized falls back to a text column
		// rather than failing classification — unknown codes are ignored at
		// search time (§4.7 point 1), not at classification time.
		impl.Strategy = StrategyColumn
		impl.Column = def.Code
		impl.SQLType = SQLText
	}
	return impl
}

// ClassifyAll classifies every registered parameter for resourceType.
func ClassifyAll(sp *meta.SearchParameterRegistry, profiles *meta.ProfileRegistry, resourceType string) []*ParamImpl {
	profile, _ := profiles.ByType(resourceType)
	defs := sp.ForType(resourceType)
	impls := make([]*ParamImpl, 0, len(defs))
	byCode := make(map[string]*ParamImpl, len(defs))
	for _, def := range defs {
		impl := Classify(def, resourceType, profile)
		impls = append(impls, impl)
		byCode[impl.Code] = impl
	}
	for i, def := range defs {
		if def.Type != "composite" {
			continue
		}
		for _, comp := range def.Component {
			if sub, ok := byCode[comp.DefinitionCode]; ok {
				impls[i].Component = append(impls[i].Component, sub)
			}
		}
	}
	return impls
}

func leafDeclaredType(profile *meta.Profile, paths []Path) string {
	if profile == nil || len(paths) == 0 || len(paths[0].Steps) == 0 {
		return ""
	}
	want := profile.Name + "." + strings.Join(paths[0].Steps, ".")
	for _, el := range profile.Elements {
		if el.Path == want && len(el.Types) > 0 {
			return el.Types[0]
		}
	}
	return ""
}
