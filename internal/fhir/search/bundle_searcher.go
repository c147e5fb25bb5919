package search

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/fhirengine/internal/fhir/fhirtypes"
)

// BundleSearcher adapts a Compiler, pool, and base URL to the shape the
// bundle processor's Searcher interface expects for GET search/read entries
// (§4.6).
type BundleSearcher struct {
	Compiler *Compiler
	Pool     *pgxpool.Pool
	BaseURL  string
}

func (b *BundleSearcher) Search(ctx context.Context, resourceType, rawQuery string) (fhirtypes.Bundle, error) {
	req, err := ParseRawQuery(resourceType, rawQuery)
	if err != nil {
		return fhirtypes.Bundle{}, err
	}
	result, err := b.Compiler.Execute(ctx, b.Pool, req)
	if err != nil {
		return fhirtypes.Bundle{}, err
	}
	return AssembleBundle(b.BaseURL, req, result)
}
