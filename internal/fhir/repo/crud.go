package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/fhirengine/internal/fhir/index"
	"github.com/ehr/fhirengine/internal/fhirerr"
	"github.com/ehr/fhirengine/internal/platform/db"
)

// Create persists a new resource, per §4.5: generates id and versionId
// when absent, writes the main row, a history row, and the
// reference/lookup satellite rows in one transaction.
func (s *Store) Create(ctx context.Context, resourceType string, resource map[string]interface{}, assignedID string) (map[string]interface{}, error) {
	id := assignedID
	if id == "" {
		if existing, ok := resource["id"].(string); ok && existing != "" {
			id = existing
		} else {
			id = uuid.New().String()
		}
	}
	resource["id"] = id
	resource["resourceType"] = resourceType

	return s.write(ctx, resourceType, id, resource, nil)
}

// Update persists a new version of an existing resource. ifMatch, when
// non-empty, must equal the current row's meta.versionId or the write
// fails with VersionConflict.
func (s *Store) Update(ctx context.Context, resourceType string, resource map[string]interface{}, ifMatch string) (map[string]interface{}, error) {
	id, _ := resource["id"].(string)
	if id == "" {
		return nil, fhirerr.New(fhirerr.BadRequest, "update requires a resource id")
	}
	resource["resourceType"] = resourceType
	return s.write(ctx, resourceType, id, resource, &ifMatch)
}

// write implements the shared UPSERT/INSERT/DELETE+INSERT sequence used by
// both create and update, taking a row-level lock first when ifMatch is
// supplied (i.e. on update) to enforce optimistic concurrency.
func (s *Store) write(ctx context.Context, resourceType, id string, resource map[string]interface{}, ifMatch *string) (map[string]interface{}, error) {
	set, ok := s.tables[resourceType]
	if !ok {
		return nil, fhirerr.New(fhirerr.BadRequest, "unknown resource type: "+resourceType)
	}

	owned := db.TxFromContext(ctx) == nil
	ctx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if owned && !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if ifMatch != nil {
		var currentContent string
		err := tx.QueryRow(ctx, `SELECT "content" FROM `+quoteIdent(resourceType)+` WHERE "id" = $1 FOR UPDATE`, id).Scan(&currentContent)
		switch {
		case err == pgx.ErrNoRows:
			return nil, fhirerr.New(fhirerr.NotFound, "resource not found: "+resourceType+"/"+id)
		case err != nil:
			return nil, err
		}
		if *ifMatch != "" {
			current, parseErr := unmarshalResource(currentContent)
			if parseErr == nil && metaString(current, "versionId") != *ifMatch {
				return nil, fhirerr.New(fhirerr.VersionConflict, "version mismatch on "+resourceType+"/"+id)
			}
		}
	}

	versionID, lastUpdated := stampVersion(resource)
	content, err := marshalResource(resource)
	if err != nil {
		return nil, fhirerr.Wrap(fhirerr.BadRequest, "marshal resource", err)
	}

	row := index.IndexResource(resourceType, resource, id, set.Params)
	resolvedRefs, err := s.resolveConditionalReferences(ctx, tx, row.References)
	if err != nil {
		return nil, err
	}
	row.References = resolvedRefs
	row.Columns["compartments"] = index.ExtractCompartments(resourceType, id, resolvedRefs)
	row.Columns["id"] = id
	row.Columns["content"] = content
	row.Columns["lastUpdated"] = lastUpdated
	row.Columns["deleted"] = false
	row.Columns["projectId"] = db.ProjectIDFromContext(ctx)
	row.Columns["__version"] = currentSchemaEpoch
	row.Columns["_source"] = metaString(resource, "source")
	row.Columns["_profile"] = stringArrayField(resource, "profile")

	sql, colNames := upsertSQL(resourceType, set.Main.Columns)
	args := make([]interface{}, len(colNames))
	for i, name := range colNames {
		args[i] = row.Columns[name]
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("upsert main row: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO `+quoteIdent(resourceType+"_History")+` ("versionId","id","content","lastUpdated") VALUES ($1,$2,$3,$4)`,
		versionID, id, content, lastUpdated,
	); err != nil {
		return nil, fmt.Errorf("insert history row: %w", err)
	}

	if err := s.rewriteReferences(ctx, tx, resourceType, id, row.References); err != nil {
		return nil, err
	}
	if err := s.rewriteLookups(ctx, tx, id, row.Lookups); err != nil {
		return nil, err
	}

	s.cache.Invalidate(resourceType, id)
	if owned {
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		s.cache.Put(resourceType, id, content)
	}
	return resource, nil
}

// resolveConditionalReferences resolves every `TargetType?query` row against
// the target type's table inside tx, replacing it with the matching row's
// id (§5 "conditional reference resolution"). A query matching zero or more
// than one row is dropped rather than failing the write, the same
// un-indexable-shape policy ExtractReferences already applies to reference
// strings it can't parse.
func (s *Store) resolveConditionalReferences(ctx context.Context, tx pgx.Tx, refs []index.ReferenceRow) ([]index.ReferenceRow, error) {
	resolved := make([]index.ReferenceRow, 0, len(refs))
	for _, r := range refs {
		if r.ConditionalQuery == "" {
			resolved = append(resolved, r)
			continue
		}
		sql, args, err := s.searcher.CompileIDQuery(r.TargetType, r.ConditionalQuery)
		if err != nil {
			continue
		}
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("resolve conditional reference: %w", err)
		}
		var targetID string
		matched := 0
		for rows.Next() {
			matched++
			if matched == 1 {
				if scanErr := rows.Scan(&targetID); scanErr != nil {
					rows.Close()
					return nil, fmt.Errorf("scan conditional reference target: %w", scanErr)
				}
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if matched == 1 {
			r.TargetID = targetID
			r.ConditionalQuery = ""
			r.TargetType = ""
			resolved = append(resolved, r)
		}
	}
	return resolved, nil
}

func (s *Store) rewriteReferences(ctx context.Context, tx pgx.Tx, resourceType, id string, refs []index.ReferenceRow) error {
	table := quoteIdent(resourceType + "_References")
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE "resourceId" = $1`, id); err != nil {
		return fmt.Errorf("clear references: %w", err)
	}
	for _, r := range refs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+table+` ("resourceId","targetId","code") VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`,
			r.ResourceID, r.TargetID, r.Code,
		); err != nil {
			return fmt.Errorf("insert reference row: %w", err)
		}
	}
	return nil
}

func (s *Store) rewriteLookups(ctx context.Context, tx pgx.Tx, id string, rows []index.LookupRow) error {
	touched := make(map[string]bool)
	for _, r := range rows {
		if touched[r.Table] {
			continue
		}
		touched[r.Table] = true
		if _, err := tx.Exec(ctx, `DELETE FROM `+quoteIdent(r.Table)+` WHERE "resourceId" = $1`, id); err != nil {
			return fmt.Errorf("clear lookup rows: %w", err)
		}
	}
	for _, r := range rows {
		cols := []string{`"resourceId"`}
		placeholders := []string{"$1"}
		args := []interface{}{id}
		i := 2
		for col, val := range r.Columns {
			cols = append(cols, quoteIdent(col))
			placeholders = append(placeholders, fmt.Sprintf("$%d", i))
			args = append(args, val)
			i++
		}
		sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quoteIdent(r.Table), joinComma(cols), joinComma(placeholders))
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert lookup row: %w", err)
		}
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// Read returns the live resource at (type, id). A missing row is NotFound;
// a tombstoned row is Gone.
func (s *Store) Read(ctx context.Context, resourceType, id string) (map[string]interface{}, error) {
	if content, ok := s.cache.Get(resourceType, id); ok {
		return unmarshalResource(content)
	}

	var content string
	var deleted bool
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT "content","deleted" FROM `+quoteIdent(resourceType)+` WHERE "id" = $1`, id,
	).Scan(&content, &deleted)
	switch {
	case err == pgx.ErrNoRows:
		return nil, fhirerr.New(fhirerr.NotFound, "resource not found: "+resourceType+"/"+id)
	case err != nil:
		return nil, err
	case deleted:
		return nil, fhirerr.New(fhirerr.Gone, "resource deleted: "+resourceType+"/"+id)
	}

	resource, err := unmarshalResource(content)
	if err != nil {
		return nil, err
	}
	s.cache.Put(resourceType, id, content)
	return resource, nil
}

// Delete tombstones the row at (type, id): clears content, marks deleted,
// sets the schema-epoch sentinel to -1, appends an empty-content history
// row, and clears the satellite rows. Idempotent on an already-tombstoned
// row.
func (s *Store) Delete(ctx context.Context, resourceType, id string) error {
	set, ok := s.tables[resourceType]
	if !ok {
		return fhirerr.New(fhirerr.BadRequest, "unknown resource type: "+resourceType)
	}

	owned := db.TxFromContext(ctx) == nil
	ctx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if owned && !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var deleted bool
	err = tx.QueryRow(ctx, `SELECT "deleted" FROM `+quoteIdent(resourceType)+` WHERE "id" = $1 FOR UPDATE`, id).Scan(&deleted)
	if err == pgx.ErrNoRows {
		return fhirerr.New(fhirerr.NotFound, "resource not found: "+resourceType+"/"+id)
	}
	if err != nil {
		return err
	}
	if deleted {
		if owned {
			return tx.Commit(ctx)
		}
		return nil
	}

	versionID := uuid.New().String()
	lastUpdated := time.Now().UTC()

	sql := fmt.Sprintf(
		`UPDATE %s SET "content"=$2::TEXT, "lastUpdated"=$3::TIMESTAMPTZ, "deleted"=$4::BOOLEAN, "__version"=$5::INTEGER WHERE "id"=$1::UUID`,
		quoteIdent(resourceType),
	)
	if _, err := tx.Exec(ctx, sql, id, "", lastUpdated, true, tombstoneEpoch); err != nil {
		return fmt.Errorf("tombstone main row: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO `+quoteIdent(resourceType+"_History")+` ("versionId","id","content","lastUpdated") VALUES ($1,$2,$3,$4)`,
		versionID, id, "", lastUpdated,
	); err != nil {
		return fmt.Errorf("insert tombstone history row: %w", err)
	}

	if err := s.rewriteReferences(ctx, tx, resourceType, id, nil); err != nil {
		return err
	}
	if err := s.clearLookupRows(ctx, tx, id); err != nil {
		return err
	}

	s.cache.Invalidate(resourceType, id)
	if owned {
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		committed = true
	}
	return nil
}

func (s *Store) clearLookupRows(ctx context.Context, tx pgx.Tx, id string) error {
	for _, table := range []string{"HumanName", "Address", "ContactPoint", "Identifier"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+quoteIdent(table)+` WHERE "resourceId" = $1`, id); err != nil {
			return fmt.Errorf("clear %s rows: %w", table, err)
		}
	}
	return nil
}
