package schema

import (
	"fmt"
	"strings"
)

// EmitDDL renders a ResourceTableSet to CREATE TABLE/INDEX statements. It is
// a pure function of the table model: tables are emitted before indexes, and
// every identifier is double-quoted to preserve FHIR case (e.g. "lastUpdated").
func EmitDDL(set ResourceTableSet) []string {
	var stmts []string
	stmts = append(stmts, createTable(set.Main))
	stmts = append(stmts, createTable(set.History))
	stmts = append(stmts, createTable(set.References))
	for _, idx := range set.Indexes {
		stmts = append(stmts, createIndex(idx))
	}
	return stmts
}

// EmitGlobalLookupDDL renders the four shared lookup tables, plus a
// trigram text index on each one's decomposed text columns (§4.3).
func EmitGlobalLookupDDL() []string {
	var stmts []string
	trigramCols := map[string][]string{
		"HumanName":    {"name", "given", "family"},
		"Address":      {"address", "city", "state", "postalCode", "country"},
		"ContactPoint": {"value"},
		"Identifier":   {"value"},
	}
	for _, t := range GlobalLookupTables() {
		stmts = append(stmts, createTable(t))
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s ("resourceId")`,
			quote(t.Name+"_resourceId_idx"), quote(t.Name)))
		for _, col := range trigramCols[t.Name] {
			stmts = append(stmts, fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS %s ON %s USING gin (%s gin_trgm_ops)`,
				quote(t.Name+"_"+col+"_trgm_idx"), quote(t.Name), quote(col)))
		}
	}
	return stmts
}

func createTable(t Table) string {
	var cols []string
	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", quote(c.Name), c.Type)
		if c.NotNull {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if len(t.PrimaryKey) > 0 {
		quoted := make([]string, len(t.PrimaryKey))
		for i, k := range t.PrimaryKey {
			quoted[i] = quote(k)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quote(t.Name), strings.Join(cols, ",\n  "))
}

func createIndex(idx Index) string {
	using := idx.Using
	cols := make([]string, len(idx.Columns))
	if using == "gin_trgm_ops" {
		for i, c := range idx.Columns {
			cols[i] = fmt.Sprintf("%s gin_trgm_ops", quote(c))
		}
		using = "gin"
	} else {
		for i, c := range idx.Columns {
			cols[i] = quote(c)
		}
	}
	stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s`, quote(idx.Name), quote(idx.Table))
	if using != "" {
		stmt += " USING " + using
	}
	stmt += fmt.Sprintf(" (%s)", strings.Join(cols, ", "))
	if idx.Where != "" {
		stmt += " WHERE " + idx.Where
	}
	return stmt
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
