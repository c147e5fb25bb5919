// Package schema synthesizes the relational schema from classified search
// parameters (components C/D) and renders it to DDL.
package schema

import "github.com/ehr/fhirengine/internal/fhir/classify"

// Column is one column of a table.
type Column struct {
	Name string
	Type string
	NotNull bool
}

// Index is one index on a table.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Using   string // "btree" (default), "gin", "gin_trgm_ops"
	Where   string // optional partial-index predicate
}

// Table is a single emitted table: the resource's main table, its history
// table, its references table, or one of the four global lookup tables.
type Table struct {
	Name    string
	Columns []Column
	PrimaryKey []string
}

// ResourceTableSet is everything synthesized for one concrete resource type.
type ResourceTableSet struct {
	ResourceType string
	Main         Table
	History      Table
	References   Table
	Indexes      []Index
	Params       []*classify.ParamImpl
}

// fixedMainColumns are the columns every main table carries regardless of
// its search parameters (§3).
func fixedMainColumns(resourceType string) []Column {
	cols := []Column{
		{Name: "id", Type: "UUID", NotNull: true},
		{Name: "content", Type: "TEXT", NotNull: true},
		{Name: "lastUpdated", Type: "TIMESTAMPTZ", NotNull: true},
		{Name: "deleted", Type: "BOOLEAN", NotNull: true},
		{Name: "projectId", Type: "UUID", NotNull: true},
		{Name: "__version", Type: "INTEGER", NotNull: true},
		{Name: "_source", Type: "TEXT"},
		{Name: "_profile", Type: "TEXT[]"},
		{Name: "___tag", Type: "UUID[]"},
		{Name: "___tagText", Type: "TEXT[]"},
		{Name: "___tagSort", Type: "TEXT"},
		{Name: "___security", Type: "UUID[]"},
		{Name: "___securityText", Type: "TEXT[]"},
		{Name: "___securitySort", Type: "TEXT"},
		{Name: "__sharedTokens", Type: "UUID[]"},
		{Name: "__sharedTokensText", Type: "TEXT[]"},
	}
	if resourceType != "Binary" {
		cols = append(cols, Column{Name: "compartments", Type: "UUID[]"})
	}
	return cols
}

// GlobalLookupTables are the four shared decomposition tables (§3), fixed
// regardless of resource type.
func GlobalLookupTables() []Table {
	return []Table{
		{
			Name: "HumanName",
			Columns: []Column{
				{Name: "resourceId", Type: "UUID", NotNull: true},
				{Name: "name", Type: "TEXT"},
				{Name: "given", Type: "TEXT"},
				{Name: "family", Type: "TEXT"},
			},
		},
		{
			Name: "Address",
			Columns: []Column{
				{Name: "resourceId", Type: "UUID", NotNull: true},
				{Name: "address", Type: "TEXT"},
				{Name: "city", Type: "TEXT"},
				{Name: "country", Type: "TEXT"},
				{Name: "postalCode", Type: "TEXT"},
				{Name: "state", Type: "TEXT"},
				{Name: "use", Type: "TEXT"},
			},
		},
		{
			Name: "ContactPoint",
			Columns: []Column{
				{Name: "resourceId", Type: "UUID", NotNull: true},
				{Name: "system", Type: "TEXT"},
				{Name: "value", Type: "TEXT"},
				{Name: "use", Type: "TEXT"},
			},
		},
		{
			Name: "Identifier",
			Columns: []Column{
				{Name: "resourceId", Type: "UUID", NotNull: true},
				{Name: "system", Type: "TEXT"},
				{Name: "value", Type: "TEXT"},
			},
		},
	}
}
