package bundle

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirengine/internal/fhir/fhirtypes"
	"github.com/ehr/fhirengine/internal/fhirerr"
	"github.com/ehr/fhirengine/internal/platform/db"
)

// Store is the subset of the repository the bundle processor calls. An
// interface here (rather than importing internal/fhir/repo directly) avoids
// a cycle, since repo already imports this package for PatchOperation.
type Store interface {
	Create(ctx context.Context, resourceType string, resource map[string]interface{}, assignedID string) (map[string]interface{}, error)
	Update(ctx context.Context, resourceType string, resource map[string]interface{}, ifMatch string) (map[string]interface{}, error)
	Read(ctx context.Context, resourceType, id string) (map[string]interface{}, error)
	Delete(ctx context.Context, resourceType, id string) error
	PatchMerge(ctx context.Context, resourceType, id string, patch map[string]interface{}, ifMatch string) (map[string]interface{}, error)
	ConditionalCreate(ctx context.Context, resourceType string, resource map[string]interface{}, rawQuery string) (map[string]interface{}, bool, error)
	ConditionalUpdate(ctx context.Context, resourceType string, resource map[string]interface{}, rawQuery string) (map[string]interface{}, bool, error)
	ConditionalDelete(ctx context.Context, resourceType, rawQuery string) (int, error)
}

// Searcher runs a GET search/read bundle entry. The search compiler
// (component J/K) supplies the real implementation.
type Searcher interface {
	Search(ctx context.Context, resourceType, rawQuery string) (fhirtypes.Bundle, error)
}

// Processor executes submitted batch and transaction Bundles (component I).
type Processor struct {
	Pool     *pgxpool.Pool
	Store    Store
	Searcher Searcher
}

func NewProcessor(pool *pgxpool.Pool, store Store, searcher Searcher) *Processor {
	return &Processor{Pool: pool, Store: store, Searcher: searcher}
}

// Process dispatches a submitted Bundle by its declared type (§4.6).
func (p *Processor) Process(ctx context.Context, submitted fhirtypes.Bundle) (fhirtypes.Bundle, error) {
	switch submitted.Type {
	case "transaction":
		return p.processTransaction(ctx, submitted)
	case "batch":
		return p.processBatch(ctx, submitted), nil
	default:
		return fhirtypes.Bundle{}, fhirerr.New(fhirerr.BadRequest, "bundle type must be 'transaction' or 'batch'")
	}
}

// processTransaction runs every entry inside one database transaction, in
// the order submitted. Entries are NOT re-sorted by method priority
// (DELETE/POST/PUT/PATCH/GET) the way some Bundle processors do: urn:uuid
// forward references must resolve in given order, which a
// DELETE-first/POST-next re-sort would break. Any entry failure rolls back
// the whole bundle.
func (p *Processor) processTransaction(ctx context.Context, submitted fhirtypes.Bundle) (fhirtypes.Bundle, error) {
	ctx, tx, err := db.WithTx(ctx, p.Pool)
	if err != nil {
		return fhirtypes.Bundle{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	idMap := make(map[string]string)
	entries := make([]fhirtypes.BundleEntry, len(submitted.Entry))

	for i, entry := range submitted.Entry {
		resp, err := p.executeEntry(ctx, entry, idMap)
		if err != nil {
			return fhirtypes.Bundle{}, fhirerr.Wrap(fhirerr.Conflict, "transaction failed at entry "+strconv.Itoa(i), err)
		}
		entries[i] = resp
		if entry.FullURL != "" && strings.HasPrefix(entry.FullURL, "urn:uuid:") {
			if loc := locationOf(resp); loc != "" {
				idMap[entry.FullURL] = loc
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fhirtypes.Bundle{}, err
	}
	committed = true

	now := time.Now().UTC()
	return fhirtypes.Bundle{ResourceType: "Bundle", Type: "transaction-response", Timestamp: &now, Entry: entries}, nil
}

// processBatch runs every entry independently with no shared transaction;
// a failing entry's outcome is captured in its own response entry and the
// rest of the bundle still runs.
func (p *Processor) processBatch(ctx context.Context, submitted fhirtypes.Bundle) fhirtypes.Bundle {
	idMap := make(map[string]string)
	entries := make([]fhirtypes.BundleEntry, len(submitted.Entry))

	for i, entry := range submitted.Entry {
		resp, err := p.executeEntry(ctx, entry, idMap)
		if err != nil {
			entries[i] = errorEntry(err)
			continue
		}
		entries[i] = resp
		if entry.FullURL != "" && strings.HasPrefix(entry.FullURL, "urn:uuid:") {
			if loc := locationOf(resp); loc != "" {
				idMap[entry.FullURL] = loc
			}
		}
	}

	now := time.Now().UTC()
	return fhirtypes.Bundle{ResourceType: "Bundle", Type: "batch-response", Timestamp: &now, Entry: entries}
}

