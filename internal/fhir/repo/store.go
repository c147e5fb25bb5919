// Package repo implements the transactional resource repository (component
// H): the only component permitted to mutate the database, plus its LRU
// read cache (component L).
package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirengine/internal/fhir/classify"
	"github.com/ehr/fhirengine/internal/fhir/meta"
	"github.com/ehr/fhirengine/internal/fhir/schema"
	"github.com/ehr/fhirengine/internal/platform/db"
)

// currentSchemaEpoch is the live-row sentinel for the main table's
// `__version` column; -1 marks a tombstoned row (§3).
const currentSchemaEpoch = 1
const tombstoneEpoch = -1

// queryable is satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx,
// letting every repository method run against whichever is in scope.
type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ConditionalSearcher compiles a FHIR search query string (the part after
// `?` in `Type?query`) into a SQL statement selecting matching ids, for the
// repository to run with `FOR UPDATE` inside its own transaction. The
// search compiler (component J) supplies the real implementation.
type ConditionalSearcher interface {
	CompileIDQuery(resourceType, rawQuery string) (sql string, args []interface{}, err error)
}

// Store is the resource repository.
type Store struct {
	pool     *pgxpool.Pool
	cache    *Cache
	tables   map[string]schema.ResourceTableSet
	profiles *meta.ProfileRegistry
	searcher ConditionalSearcher
}

// NewStore builds a repository over the synthesized table set for every
// registered resource type.
func NewStore(pool *pgxpool.Pool, tables map[string]schema.ResourceTableSet, profiles *meta.ProfileRegistry, cache *Cache, searcher ConditionalSearcher) *Store {
	return &Store{pool: pool, cache: cache, tables: tables, profiles: profiles, searcher: searcher}
}

// Pool exposes the underlying connection pool for the search compiler
// (component J/K), which runs read-only queries outside the write
// transaction and so does not need the queryable/tx-context plumbing.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

// searchColumns returns the ordered list of search-parameter column names
// for resourceType's column and token-column parameters; composite
// parameters (no column) and the `__<code>Sort` column of lookup-table
// parameters are not included.
func (s *Store) searchColumns(resourceType string) []string {
	set, ok := s.tables[resourceType]
	if !ok {
		return nil
	}
	var cols []string
	for _, p := range set.Params {
		switch p.Strategy {
		case classify.StrategyColumn:
			cols = append(cols, p.Column)
		case classify.StrategyTokenColumn:
			cols = append(cols, "__"+p.Code, "__"+p.Code+"Text", "__"+p.Code+"Sort")
		}
	}
	return cols
}
