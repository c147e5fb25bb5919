package repo

import (
	"fmt"
	"strings"

	"github.com/ehr/fhirengine/internal/fhir/schema"
)

// upsertSQL renders an INSERT ... ON CONFLICT (id) DO UPDATE statement for
// the main table's full column set, in column order, with every value
// explicitly cast to its declared SQL type so pgx's generic interface{}
// binding is unambiguous for both NULL and array parameters.
func upsertSQL(table string, columns []schema.Column) (string, []string) {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	var sets []string
	for i, c := range columns {
		names[i] = quoteIdent(c.Name)
		placeholders[i] = fmt.Sprintf("$%d::%s", i+1, c.Type)
		if c.Name != "id" {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(c.Name), quoteIdent(c.Name)))
		}
	}
	sql := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT ("id") DO UPDATE SET %s`,
		quoteIdent(table), strings.Join(names, ", "), strings.Join(placeholders, ", "), strings.Join(sets, ", "),
	)
	colNames := make([]string, len(columns))
	for i, c := range columns {
		colNames[i] = c.Name
	}
	return sql, colNames
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
