package bundle

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ehr/fhirengine/internal/fhir/fhirtypes"
	"github.com/ehr/fhirengine/internal/fhirerr"
)

// executeEntry resolves any urn:uuid references the prior entries produced,
// dispatches the entry's method against Store/Searcher, and renders the
// result as a response BundleEntry (§4.6).
func (p *Processor) executeEntry(ctx context.Context, entry fhirtypes.BundleEntry, idMap map[string]string) (fhirtypes.BundleEntry, error) {
	if entry.Request == nil {
		return fhirtypes.BundleEntry{}, fhirerr.New(fhirerr.BadRequest, "bundle entry missing request")
	}

	var resource map[string]interface{}
	if len(entry.Resource) > 0 {
		if err := json.Unmarshal(entry.Resource, &resource); err != nil {
			return fhirtypes.BundleEntry{}, fhirerr.Wrap(fhirerr.BadRequest, "unmarshal entry resource", err)
		}
		if len(idMap) > 0 {
			resolveRefs(resource, idMap)
		}
	}
	url := replaceURNRefs(entry.Request.URL, idMap)
	resourceType, id, rawQuery, isSearch := parseEntryURL(url)

	method := strings.ToUpper(entry.Request.Method)
	switch method {
	case "POST":
		if entry.Request.IfNoneExist != "" {
			result, created, err := p.Store.ConditionalCreate(ctx, resourceType, resource, entry.Request.IfNoneExist)
			if err != nil {
				return fhirtypes.BundleEntry{}, err
			}
			return createdEntry(resourceType, result, created), nil
		}
		result, err := p.Store.Create(ctx, resourceType, resource, "")
		if err != nil {
			return fhirtypes.BundleEntry{}, err
		}
		return createdEntry(resourceType, result, true), nil

	case "PUT":
		if id == "" && isSearch {
			result, created, err := p.Store.ConditionalUpdate(ctx, resourceType, resource, rawQuery)
			if err != nil {
				return fhirtypes.BundleEntry{}, err
			}
			return createdEntry(resourceType, result, created), nil
		}
		resource["id"] = id
		result, err := p.Store.Update(ctx, resourceType, resource, entry.Request.IfMatch)
		if err != nil {
			return fhirtypes.BundleEntry{}, err
		}
		return createdEntry(resourceType, result, false), nil

	case "PATCH":
		result, err := p.Store.PatchMerge(ctx, resourceType, id, resource, entry.Request.IfMatch)
		if err != nil {
			return fhirtypes.BundleEntry{}, err
		}
		return createdEntry(resourceType, result, false), nil

	case "DELETE":
		if id == "" && isSearch {
			if _, err := p.Store.ConditionalDelete(ctx, resourceType, rawQuery); err != nil {
				return fhirtypes.BundleEntry{}, err
			}
			return fhirtypes.BundleEntry{Response: &fhirtypes.BundleResponse{Status: "204 No Content"}}, nil
		}
		if err := p.Store.Delete(ctx, resourceType, id); err != nil {
			return fhirtypes.BundleEntry{}, err
		}
		return fhirtypes.BundleEntry{Response: &fhirtypes.BundleResponse{Status: "204 No Content"}}, nil

	case "GET":
		if isSearch || id == "" {
			if p.Searcher == nil {
				return fhirtypes.BundleEntry{}, fhirerr.New(fhirerr.Internal, "no search compiler wired for bundle GET entries")
			}
			result, err := p.Searcher.Search(ctx, resourceType, rawQuery)
			if err != nil {
				return fhirtypes.BundleEntry{}, err
			}
			raw, err := json.Marshal(result)
			if err != nil {
				return fhirtypes.BundleEntry{}, err
			}
			return fhirtypes.BundleEntry{Resource: raw, Response: &fhirtypes.BundleResponse{Status: "200 OK"}}, nil
		}
		result, err := p.Store.Read(ctx, resourceType, id)
		if err != nil {
			return fhirtypes.BundleEntry{}, err
		}
		return createdEntry(resourceType, result, false), nil

	default:
		return fhirtypes.BundleEntry{}, fhirerr.New(fhirerr.BadRequest, "unsupported bundle entry method: "+entry.Request.Method)
	}
}

// createdEntry renders a resource write/read result as a response
// BundleEntry, choosing 201 vs 200 based on created.
func createdEntry(resourceType string, resource map[string]interface{}, created bool) fhirtypes.BundleEntry {
	raw, _ := json.Marshal(resource)
	id, _ := resource["id"].(string)
	status := "200 OK"
	if created {
		status = "201 Created"
	}
	resp := &fhirtypes.BundleResponse{
		Status:   status,
		Location: resourceType + "/" + id,
		Etag:     etagOf(resource),
	}
	if lu := lastUpdatedOf(resource); lu != nil {
		resp.LastModified = lu
	}
	return fhirtypes.BundleEntry{
		FullURL:  resourceType + "/" + id,
		Resource: raw,
		Response: resp,
	}
}

func errorEntry(err error) fhirtypes.BundleEntry {
	kind := fhirerr.KindOf(err)
	status := "400 Bad Request"
	switch kind {
	case fhirerr.NotFound:
		status = "404 Not Found"
	case fhirerr.Gone:
		status = "410 Gone"
	case fhirerr.VersionConflict, fhirerr.PreconditionFailed, fhirerr.Conflict:
		status = "409 Conflict"
	case fhirerr.Internal:
		status = "500 Internal Server Error"
	}
	oo := fhirtypes.NewOperationOutcome("error", kind.IssueCode(), err.Error())
	return fhirtypes.BundleEntry{Response: &fhirtypes.BundleResponse{Status: status, Outcome: oo}}
}

func locationOf(entry fhirtypes.BundleEntry) string {
	if entry.Response == nil {
		return ""
	}
	return entry.Response.Location
}

func etagOf(resource map[string]interface{}) string {
	meta, _ := resource["meta"].(map[string]interface{})
	if meta == nil {
		return ""
	}
	versionID, _ := meta["versionId"].(string)
	if versionID == "" {
		return ""
	}
	return `W/"` + versionID + `"`
}

func lastUpdatedOf(resource map[string]interface{}) *time.Time {
	meta, _ := resource["meta"].(map[string]interface{})
	if meta == nil {
		return nil
	}
	raw, _ := meta["lastUpdated"].(string)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}

// parseEntryURL splits a Bundle entry's relative request URL into
// resourceType, id (if present), the raw query string (if present), and
// whether it carries one (§4.6).
func parseEntryURL(url string) (resourceType, id, rawQuery string, isSearch bool) {
	if idx := strings.Index(url, "?"); idx >= 0 {
		return url[:idx], "", url[idx+1:], true
	}
	parts := strings.SplitN(url, "/", 2)
	resourceType = parts[0]
	if len(parts) == 2 {
		id = parts[1]
	}
	return resourceType, id, "", false
}

// resolveRefs walks resource, replacing any "reference" string value found
// under idMap's original urn:uuid keys with the resolved Type/id (§4.6
// urn:uuid resolution).
func resolveRefs(node interface{}, idMap map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			if k == "reference" {
				if ref, ok := child.(string); ok {
					if resolved, found := idMap[ref]; found {
						v[k] = resolved
						continue
					}
				}
			}
			resolveRefs(child, idMap)
		}
	case []interface{}:
		for _, item := range v {
			resolveRefs(item, idMap)
		}
	}
}

func replaceURNRefs(s string, idMap map[string]string) string {
	for urn, actual := range idMap {
		s = strings.ReplaceAll(s, urn, actual)
	}
	return s
}
