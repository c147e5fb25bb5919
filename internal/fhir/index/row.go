package index

import (
	"github.com/ehr/fhirengine/internal/fhir/classify"
)

// Row is everything the row indexer computes for one resource: the main
// table's search columns, the fixed metadata columns, the shared-token
// roll-up, and the satellite References/lookup-table rows (§4.4).
type Row struct {
	Columns    map[string]interface{}
	References []ReferenceRow
	Lookups    []LookupRow
}

// IndexResource computes the full Row for resource against its resource
// type's classified parameters. resourceID is the resource's own id, used
// to key the satellite rows.
func IndexResource(resourceType string, resource map[string]interface{}, resourceID string, params []*classify.ParamImpl) Row {
	columns := make(map[string]interface{})

	var sharedHashes []string
	var sharedTexts []string

	for _, p := range params {
		switch p.Strategy {
		case classify.StrategyColumn:
			indexColumnParam(resource, p, columns)
		case classify.StrategyTokenColumn:
			hashes, texts, sortText := indexTokenParam(resource, p)
			columns["__"+p.Code] = hashes
			columns["__"+p.Code+"Text"] = texts
			columns["__"+p.Code+"Sort"] = sortText
			sharedHashes = append(sharedHashes, hashes...)
			sharedTexts = append(sharedTexts, texts...)
		case classify.StrategyLookupTable:
			// The satellite rows (Lookups, below) carry the full decomposed
			// shape; the main table only mirrors a display string into
			// __<code>Sort so an ordinary equality/sort search on the
			// parameter doesn't require the join.
			columns[p.Column] = lookupSortText(resource, p)
		case classify.StrategyComposite:
			// Composite classification is a stub (§9).
		}
	}

	tagHashes, tagTexts, tagSort := indexMetaTokens(resource, "tag")
	columns["___tag"] = tagHashes
	columns["___tagText"] = tagTexts
	columns["___tagSort"] = tagSort

	secHashes, secTexts, secSort := indexMetaTokens(resource, "security")
	columns["___security"] = secHashes
	columns["___securityText"] = secTexts
	columns["___securitySort"] = secSort

	sharedHashes = append(sharedHashes, tagHashes...)
	sharedHashes = append(sharedHashes, secHashes...)
	sharedTexts = append(sharedTexts, tagTexts...)
	sharedTexts = append(sharedTexts, secTexts...)

	columns["__sharedTokens"] = sharedHashes
	columns["__sharedTokensText"] = sharedTexts

	refs := ExtractReferences(resource, resourceID, params)
	columns["compartments"] = ExtractCompartments(resourceType, resourceID, refs)

	return Row{
		Columns:    columns,
		References: refs,
		Lookups:    ExtractLookupRows(resource, resourceID, params),
	}
}

func indexColumnParam(resource map[string]interface{}, p *classify.ParamImpl, columns map[string]interface{}) {
	values := EvalAll(resource, p.Paths)
	if p.Array {
		strs := make([]string, 0, len(values))
		for _, v := range values {
			strs = append(strs, scalarText(v))
		}
		columns[p.Column] = strs
		return
	}
	if len(values) == 0 {
		columns[p.Column] = nil
		return
	}
	columns[p.Column] = values[0]
}

// scalarText renders a value for an array column (e.g. a multi-target
// reference), preferring the reference string when the value is a
// Reference object.
func scalarText(v interface{}) string {
	if ref, ok := referenceString(v); ok {
		return ref
	}
	s, _ := v.(string)
	return s
}

// indexTokenParam coerces every value reached by a token-column parameter
// into tokens and flattens them into parallel hash/text slices, taking the
// first token's sort text as the column's sort value (§4.4 is silent on
// multi-valued sort precedence; the first occurrence order is stable and
// matches path-evaluation order).
func indexTokenParam(resource map[string]interface{}, p *classify.ParamImpl) ([]string, []string, string) {
	var hashes, texts []string
	sortText := ""
	for _, v := range EvalAll(resource, p.Paths) {
		for _, tok := range CoerceTokens(v) {
			hashes = append(hashes, tok.Hash().String())
			texts = append(texts, tok.Text())
			if sortText == "" {
				sortText = tok.SortText()
			}
		}
	}
	return hashes, texts, sortText
}

// indexMetaTokens indexes `meta.tag` or `meta.security`, both arrays of
// Coding, into the fixed metadata token columns.
func indexMetaTokens(resource map[string]interface{}, field string) ([]string, []string, string) {
	meta, _ := resource["meta"].(map[string]interface{})
	if meta == nil {
		return nil, nil, ""
	}
	items, _ := meta[field].([]interface{})
	var hashes, texts []string
	sortText := ""
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tok := codingToken(obj)
		hashes = append(hashes, tok.Hash().String())
		texts = append(texts, tok.Text())
		if sortText == "" {
			sortText = tok.SortText()
		}
	}
	return hashes, texts, sortText
}
