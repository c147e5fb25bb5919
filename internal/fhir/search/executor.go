package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirengine/internal/fhirerr"
)

// ResultRow is one matched resource plus the lastUpdated/id pair the caller
// needs to build the next page's cursor.
type ResultRow struct {
	ID          string
	Content     map[string]interface{}
	LastUpdated time.Time
}

// Result is everything the bundle assembler needs: the primary match set in
// rank order, the resources `_include`/`_revinclude` pulled in, and an
// optional accurate total.
type Result struct {
	Matches  []ResultRow
	Included []IncludedRow
	Total    *int64
}

// Execute runs req against pool: compiles it, executes the primary query,
// resolves any requested includes against the primary id set, and (when
// `_total=accurate`) runs the count query (§4.7).
func (c *Compiler) Execute(ctx context.Context, pool *pgxpool.Pool, req Request) (Result, error) {
	compiled, err := c.Compile(req)
	if err != nil {
		return Result{}, err
	}

	rows, err := pool.Query(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		return Result{}, err
	}
	var result Result
	var ids []string
	for rows.Next() {
		var id, content string
		var lastUpdated time.Time
		if err := rows.Scan(&id, &content, &lastUpdated); err != nil {
			rows.Close()
			return Result{}, err
		}
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			rows.Close()
			return Result{}, fhirerr.Wrap(fhirerr.Internal, "unmarshal stored resource", err)
		}
		result.Matches = append(result.Matches, ResultRow{ID: id, Content: parsed, LastUpdated: lastUpdated})
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return Result{}, err
	}

	if len(req.Include) > 0 {
		included, err := c.ResolveIncludes(ctx, pool, req.ResourceType, ids, req.Include)
		if err != nil {
			return Result{}, err
		}
		result.Included = append(result.Included, included...)
	}
	if len(req.RevInclude) > 0 {
		included, err := c.ResolveRevIncludes(ctx, pool, req.ResourceType, ids, req.RevInclude)
		if err != nil {
			return Result{}, err
		}
		result.Included = append(result.Included, included...)
	}

	if compiled.CountSQL != "" {
		var total int64
		if err := pool.QueryRow(ctx, compiled.CountSQL, compiled.CountArgs...).Scan(&total); err != nil {
			return Result{}, err
		}
		result.Total = &total
	}

	return result, nil
}
