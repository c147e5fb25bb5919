package search

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/ehr/fhirengine/internal/fhir/fhirtypes"
)

// AssembleBundle renders a Result into a searchset Bundle: one entry per
// match (search.mode=match) followed by one entry per included resource
// (search.mode=include), with self/next pagination links (§4.7 Pagination,
// §4.7 "Include / revinclude").
func AssembleBundle(baseURL string, req Request, result Result) (fhirtypes.Bundle, error) {
	bundle := fhirtypes.Bundle{ResourceType: "Bundle", Type: "searchset"}

	if result.Total != nil {
		total := int(*result.Total)
		bundle.Total = &total
	}

	for _, m := range result.Matches {
		raw, err := json.Marshal(m.Content)
		if err != nil {
			return fhirtypes.Bundle{}, err
		}
		bundle.Entry = append(bundle.Entry, fhirtypes.BundleEntry{
			FullURL:  baseURL + "/" + req.ResourceType + "/" + m.ID,
			Resource: raw,
			Search:   &fhirtypes.BundleSearch{Mode: "match"},
		})
	}
	for _, inc := range result.Included {
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(inc.Content), &parsed); err != nil {
			return fhirtypes.Bundle{}, err
		}
		raw, err := json.Marshal(parsed)
		if err != nil {
			return fhirtypes.Bundle{}, err
		}
		bundle.Entry = append(bundle.Entry, fhirtypes.BundleEntry{
			FullURL:  baseURL + "/" + inc.ResourceType + "/" + inc.ID,
			Resource: raw,
			Search:   &fhirtypes.BundleSearch{Mode: "include"},
		})
	}

	bundle.Link = append(bundle.Link, fhirtypes.BundleLink{Relation: "self", URL: selfURL(baseURL, req)})
	if len(result.Matches) == req.Count {
		last := result.Matches[len(result.Matches)-1]
		nextReq := req
		nextReq.Cursor = EncodeCursor(last.LastUpdated, last.ID)
		nextReq.Offset = 0
		bundle.Link = append(bundle.Link, fhirtypes.BundleLink{Relation: "next", URL: selfURL(baseURL, nextReq)})
	}

	return bundle, nil
}

// selfURL rebuilds the query string a Request implies, so pagination links
// round-trip the original search plus whatever cursor/offset was added.
func selfURL(baseURL string, req Request) string {
	values := url.Values{}
	for _, pq := range req.Params {
		key := pq.Code
		if pq.Modifier != "" {
			key += ":" + pq.Modifier
		}
		values[key] = pq.Values
	}
	if len(req.Sort) > 0 {
		var parts []string
		for _, s := range req.Sort {
			if s.Descending {
				parts = append(parts, "-"+s.Code)
			} else {
				parts = append(parts, s.Code)
			}
		}
		values.Set("_sort", joinComma(parts))
	}
	for _, inc := range req.Include {
		values.Add("_include", inc.SourceType+":"+inc.Code)
	}
	for _, inc := range req.RevInclude {
		values.Add("_revinclude", inc.SourceType+":"+inc.Code)
	}
	values.Set("_count", strconv.Itoa(req.Count))
	if req.Offset > 0 {
		values.Set("_offset", strconv.Itoa(req.Offset))
	}
	if req.Cursor != "" {
		values.Set("_cursor", req.Cursor)
	}
	if req.Total != "" {
		values.Set("_total", req.Total)
	}
	return baseURL + "/" + req.ResourceType + "?" + values.Encode()
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
