package schema

import "github.com/ehr/fhirengine/internal/fhir/classify"

// Synthesize produces the full ResourceTableSet for one resource type from
// its classified search parameters, per the column layout table in §3 and
// the indexing rules in §4.3.
func Synthesize(resourceType string, params []*classify.ParamImpl) ResourceTableSet {
	main := Table{
		Name:       resourceType,
		Columns:    fixedMainColumns(resourceType),
		PrimaryKey: []string{"id"},
	}

	indexes := []Index{
		{Name: idxName(resourceType, "lastUpdated"), Table: resourceType, Columns: []string{"lastUpdated"}},
		{Name: idxName(resourceType, "projectId"), Table: resourceType, Columns: []string{"projectId"}},
		{Name: idxName(resourceType, "compartments"), Table: resourceType, Columns: []string{"compartments"}, Using: "gin"},
		{Name: idxName(resourceType, "reindex"), Table: resourceType, Columns: []string{"lastUpdated", "__version"}, Where: `"deleted" = false`},
		// Redundant with the primary key index; kept for parity (§9).
		{Name: idxName(resourceType, "id_btree"), Table: resourceType, Columns: []string{"id"}},
	}

	for _, p := range params {
		switch p.Strategy {
		case classify.StrategyColumn:
			col := Column{Name: p.Column, Type: string(p.SQLType)}
			main.Columns = append(main.Columns, col)
			if p.Array {
				indexes = append(indexes, Index{Name: idxName(resourceType, p.Code), Table: resourceType, Columns: []string{p.Column}, Using: "gin"})
			} else {
				indexes = append(indexes, Index{Name: idxName(resourceType, p.Code), Table: resourceType, Columns: []string{p.Column}})
			}
		case classify.StrategyTokenColumn:
			main.Columns = append(main.Columns,
				Column{Name: "__" + p.Code, Type: "UUID[]"},
				Column{Name: "__" + p.Code + "Text", Type: "TEXT[]"},
				Column{Name: "__" + p.Code + "Sort", Type: "TEXT"},
			)
			indexes = append(indexes,
				Index{Name: idxName(resourceType, p.Code), Table: resourceType, Columns: []string{"__" + p.Code}, Using: "gin"},
				Index{Name: idxName(resourceType, p.Code+"_text"), Table: resourceType, Columns: []string{"__" + p.Code + "Text"}, Using: "gin_trgm_ops"},
			)
		case classify.StrategyLookupTable:
			main.Columns = append(main.Columns, Column{Name: p.Column, Type: "TEXT"})
			indexes = append(indexes, Index{Name: idxName(resourceType, p.Code+"_sort"), Table: resourceType, Columns: []string{p.Column}})
		case classify.StrategyComposite:
			// Compile path is a stub (§9); no columns are emitted for a
			// composite parameter itself, only for its underlying components,
			// which are classified and synthesized independently.
		}
	}

	history := Table{
		Name: resourceType + "_History",
		Columns: []Column{
			{Name: "versionId", Type: "UUID", NotNull: true},
			{Name: "id", Type: "UUID", NotNull: true},
			{Name: "content", Type: "TEXT", NotNull: true},
			{Name: "lastUpdated", Type: "TIMESTAMPTZ", NotNull: true},
		},
		PrimaryKey: []string{"versionId"},
	}

	references := Table{
		Name: resourceType + "_References",
		Columns: []Column{
			{Name: "resourceId", Type: "UUID", NotNull: true},
			{Name: "targetId", Type: "UUID", NotNull: true},
			{Name: "code", Type: "TEXT", NotNull: true},
		},
		PrimaryKey: []string{"resourceId", "targetId", "code"},
	}

	return ResourceTableSet{
		ResourceType: resourceType,
		Main:         main,
		History:      history,
		References:   references,
		Indexes:      indexes,
		Params:       params,
	}
}

func idxName(resourceType, suffix string) string {
	return resourceType + "_" + suffix + "_idx"
}
