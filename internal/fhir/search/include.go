package search

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IncludedRow is one resource brought in by `_include`/`_revinclude`; the
// bundle assembler emits every IncludedRow with search.mode=include (§4.7).
type IncludedRow struct {
	ResourceType string
	ID           string
	Content      string
}

// ResolveIncludes runs one secondary query per IncludeSpec against the
// primary result set's ids, returning the union of resources reachable by
// a forward reference from a primary result (§4.7 "Include / revinclude").
func (c *Compiler) ResolveIncludes(ctx context.Context, pool *pgxpool.Pool, sourceType string, primaryIDs []string, specs []IncludeSpec) ([]IncludedRow, error) {
	var out []IncludedRow
	for _, spec := range specs {
		rows, err := c.resolveInclude(ctx, pool, spec.SourceType, primaryIDs, spec.Code)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// resolveInclude joins sourceType's References table (keyed by the primary
// set's ids) to the target table named by the reference column's classified
// target type(s).
func (c *Compiler) resolveInclude(ctx context.Context, pool *pgxpool.Pool, sourceType string, primaryIDs []string, code string) ([]IncludedRow, error) {
	if len(primaryIDs) == 0 {
		return nil, nil
	}
	byCode := c.paramsByCode(sourceType)
	impl, ok := byCode[code]
	if !ok || impl.ValueType != "reference" {
		return nil, nil
	}
	var out []IncludedRow
	for _, targetType := range impl.Target {
		if _, ok := c.tables[targetType]; !ok {
			continue
		}
		sql := `SELECT t."id", t."content" FROM ` + quoteIdent(targetType) + ` t ` +
			`JOIN ` + quoteIdent(sourceType+"_References") + ` r ON r."targetId" = t."id" ` +
			`WHERE r."code" = $1 AND r."resourceId" = ANY($2) AND t."deleted" = false`
		rows, err := pool.Query(ctx, sql, code, primaryIDs)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id, content string
			if err := rows.Scan(&id, &content); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, IncludedRow{ResourceType: targetType, ID: id, Content: content})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ResolveRevIncludes is the symmetric reverse direction: rows of sourceType
// that reference any primary-set id through the named parameter.
func (c *Compiler) ResolveRevIncludes(ctx context.Context, pool *pgxpool.Pool, primaryType string, primaryIDs []string, specs []IncludeSpec) ([]IncludedRow, error) {
	var out []IncludedRow
	for _, spec := range specs {
		rows, err := c.resolveRevInclude(ctx, pool, primaryIDs, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (c *Compiler) resolveRevInclude(ctx context.Context, pool *pgxpool.Pool, primaryIDs []string, spec IncludeSpec) ([]IncludedRow, error) {
	if len(primaryIDs) == 0 {
		return nil, nil
	}
	if _, ok := c.tables[spec.SourceType]; !ok {
		return nil, nil
	}
	sql := `SELECT s."id", s."content" FROM ` + quoteIdent(spec.SourceType) + ` s ` +
		`JOIN ` + quoteIdent(spec.SourceType+"_References") + ` r ON r."resourceId" = s."id" ` +
		`WHERE r."code" = $1 AND r."targetId" = ANY($2) AND s."deleted" = false`
	rows, err := pool.Query(ctx, sql, spec.Code, primaryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IncludedRow
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, err
		}
		out = append(out, IncludedRow{ResourceType: spec.SourceType, ID: id, Content: content})
	}
	return out, rows.Err()
}
