package repo

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/fhirengine/internal/fhirerr"
)

// VersionEntry is one row of a resource's history, newest-first per §4.5
// readVersion/readHistory.
type VersionEntry struct {
	VersionID   string
	ResourceID  string
	Content     string // empty for a tombstone version
	LastUpdated time.Time
}

// ReadVersion reads a single historical version directly from the history
// table. An empty content column means that version is the tombstone
// entry, surfaced as Gone (§4.5 readVersion).
func (s *Store) ReadVersion(ctx context.Context, resourceType, id, versionID string) (map[string]interface{}, error) {
	var content string
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT "content" FROM `+quoteIdent(resourceType+"_History")+` WHERE "id" = $1 AND "versionId" = $2`,
		id, versionID,
	).Scan(&content)
	switch {
	case err == pgx.ErrNoRows:
		return nil, fhirerr.New(fhirerr.NotFound, "version not found: "+resourceType+"/"+id+"/_history/"+versionID)
	case err != nil:
		return nil, err
	case content == "":
		return nil, fhirerr.New(fhirerr.Gone, "version deleted: "+resourceType+"/"+id+"/_history/"+versionID)
	}
	return unmarshalResource(content)
}

// HistoryPage is a cursor-paginated slice of history entries, newest-first.
type HistoryPage struct {
	Entries []VersionEntry
	Cursor  string // lastUpdated of the final entry, for the next page; "" when exhausted
}

// ReadHistory returns the version history of a single resource (type,id),
// newest first, honoring an optional _since floor, an opaque cursor equal
// to the previous page's last lastUpdated, and a page size (§4.5).
func (s *Store) ReadHistory(ctx context.Context, resourceType, id string, since *time.Time, cursor string, count int) (HistoryPage, error) {
	return s.readHistoryQuery(ctx,
		`SELECT "versionId","id","content","lastUpdated" FROM `+quoteIdent(resourceType+"_History")+` WHERE "id" = $1`,
		[]interface{}{id}, since, cursor, count, 2,
	)
}

// ReadTypeHistory returns the version history across every resource of
// resourceType, newest first (§4.5 readTypeHistory).
func (s *Store) ReadTypeHistory(ctx context.Context, resourceType string, since *time.Time, cursor string, count int) (HistoryPage, error) {
	return s.readHistoryQuery(ctx,
		`SELECT "versionId","id","content","lastUpdated" FROM `+quoteIdent(resourceType+"_History"),
		nil, since, cursor, count, 1,
	)
}

func (s *Store) readHistoryQuery(ctx context.Context, base string, args []interface{}, since *time.Time, cursor string, count, nextArg int) (HistoryPage, error) {
	sql := base
	where := "WHERE"
	if len(args) > 0 {
		where = "AND"
	}
	if since != nil {
		sql += " " + where + " \"lastUpdated\" >= $" + strconv.Itoa(nextArg)
		args = append(args, *since)
		nextArg++
		where = "AND"
	}
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return HistoryPage{}, fhirerr.New(fhirerr.BadRequest, "invalid history cursor")
		}
		sql += " " + where + " \"lastUpdated\" < $" + strconv.Itoa(nextArg)
		args = append(args, t)
		nextArg++
	}
	sql += " ORDER BY \"lastUpdated\" DESC LIMIT $" + strconv.Itoa(nextArg)
	args = append(args, count)

	rows, err := s.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return HistoryPage{}, err
	}
	defer rows.Close()

	var page HistoryPage
	for rows.Next() {
		var e VersionEntry
		if err := rows.Scan(&e.VersionID, &e.ResourceID, &e.Content, &e.LastUpdated); err != nil {
			return HistoryPage{}, err
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return HistoryPage{}, err
	}
	if len(page.Entries) == count {
		page.Cursor = page.Entries[len(page.Entries)-1].LastUpdated.Format(time.RFC3339Nano)
	}
	return page, nil
}

