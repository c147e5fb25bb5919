package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/fhirengine/internal/fhirerr"
	"github.com/ehr/fhirengine/internal/platform/db"
)

// conditionalMatches runs the searcher's compiled id query inside tx, row
// locked, and returns the matching ids (§4.5 "compile the supplied search,
// execute it inside the transaction with FOR UPDATE").
func (s *Store) conditionalMatches(ctx context.Context, tx pgx.Tx, resourceType, rawQuery string) ([]string, error) {
	if s.searcher == nil {
		return nil, fhirerr.New(fhirerr.Internal, "no search compiler wired for conditional operations")
	}
	sql, args, err := s.searcher.CompileIDQuery(resourceType, rawQuery)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, sql+" FOR UPDATE", args...)
	if err != nil {
		return nil, fmt.Errorf("conditional match query: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ConditionalCreate implements §4.5 conditionalCreate: zero matches creates
// the resource; exactly one match returns the existing resource unchanged
// (no write); more than one match is a PreconditionFailed.
func (s *Store) ConditionalCreate(ctx context.Context, resourceType string, resource map[string]interface{}, rawQuery string) (map[string]interface{}, bool, error) {
	owned := db.TxFromContext(ctx) == nil
	ctx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if owned && !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	ids, err := s.conditionalMatches(ctx, tx, resourceType, rawQuery)
	if err != nil {
		return nil, false, err
	}
	switch len(ids) {
	case 0:
		created, err := s.Create(ctx, resourceType, resource, "")
		if err != nil {
			return nil, false, err
		}
		if owned {
			if err := tx.Commit(ctx); err != nil {
				return nil, false, err
			}
			committed = true
		}
		return created, true, nil
	case 1:
		existing, err := s.Read(ctx, resourceType, ids[0])
		if err != nil {
			return nil, false, err
		}
		if owned {
			if err := tx.Commit(ctx); err != nil {
				return nil, false, err
			}
			committed = true
		}
		return existing, false, nil
	default:
		return nil, false, fhirerr.New(fhirerr.PreconditionFailed, "conditional create matched more than one resource")
	}
}

// ConditionalUpdate implements §4.5 conditionalUpdate: zero matches creates
// (with resource's own id, or a fresh one); exactly one match updates that
// resource; more than one match is a PreconditionFailed.
func (s *Store) ConditionalUpdate(ctx context.Context, resourceType string, resource map[string]interface{}, rawQuery string) (map[string]interface{}, bool, error) {
	owned := db.TxFromContext(ctx) == nil
	ctx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if owned && !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	ids, err := s.conditionalMatches(ctx, tx, resourceType, rawQuery)
	if err != nil {
		return nil, false, err
	}

	var result map[string]interface{}
	created := false
	switch len(ids) {
	case 0:
		result, err = s.Create(ctx, resourceType, resource, "")
		created = true
	case 1:
		resource["id"] = ids[0]
		result, err = s.Update(ctx, resourceType, resource, "")
	default:
		return nil, false, fhirerr.New(fhirerr.PreconditionFailed, "conditional update matched more than one resource")
	}
	if err != nil {
		return nil, false, err
	}
	if owned {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		committed = true
	}
	return result, created, nil
}

// ConditionalDelete implements §4.5 conditionalDelete: tombstones every
// matching resource (0..n), inside one transaction.
func (s *Store) ConditionalDelete(ctx context.Context, resourceType, rawQuery string) (int, error) {
	owned := db.TxFromContext(ctx) == nil
	ctx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if owned && !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	ids, err := s.conditionalMatches(ctx, tx, resourceType, rawQuery)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Delete(ctx, resourceType, id); err != nil {
			return 0, err
		}
	}
	if owned {
		if err := tx.Commit(ctx); err != nil {
			return 0, err
		}
		committed = true
	}
	return len(ids), nil
}
