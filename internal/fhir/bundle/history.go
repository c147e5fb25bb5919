package bundle

import (
	"encoding/json"
	"time"

	"github.com/ehr/fhirengine/internal/fhir/fhirtypes"
)

// HistoryEntry is one version of a resource's history, already unmarshaled,
// in the shape the builder needs — decoupled from the repository's own
// VersionEntry so this package (already depended on by the repository for
// patch application) never has to import it back.
type HistoryEntry struct {
	ResourceType string
	ResourceID   string
	VersionID    string
	LastUpdated  time.Time
	Resource     map[string]interface{} // nil for a tombstoned version
}

// BuildHistoryBundle assembles a history-type Bundle from entries ordered
// newest-first, mapping each version to its implied HTTP method per §4.5:
// the oldest non-deleted version is POST, later non-deleted versions are
// PUT, and a tombstone version is DELETE.
func BuildHistoryBundle(baseURL string, entries []HistoryEntry, nextCursor string) (fhirtypes.Bundle, error) {
	bundle := fhirtypes.Bundle{ResourceType: "Bundle", Type: "history"}

	for i, e := range entries {
		method := "PUT"
		if e.Resource == nil {
			method = "DELETE"
		} else if isOldest(entries, i) {
			method = "POST"
		}

		location := e.ResourceType + "/" + e.ResourceID + "/_history/" + e.VersionID
		entry := fhirtypes.BundleEntry{
			FullURL: baseURL + "/" + e.ResourceType + "/" + e.ResourceID,
			Request: &fhirtypes.BundleRequest{Method: method, URL: e.ResourceType + "/" + e.ResourceID},
		}

		status := "200 OK"
		switch method {
		case "POST":
			status = "201 Created"
		case "DELETE":
			status = "204 No Content"
		}
		lastUpdated := e.LastUpdated
		entry.Response = &fhirtypes.BundleResponse{
			Status:       status,
			Location:     location,
			Etag:         `W/"` + e.VersionID + `"`,
			LastModified: &lastUpdated,
		}

		if e.Resource != nil {
			raw, err := json.Marshal(e.Resource)
			if err != nil {
				return fhirtypes.Bundle{}, err
			}
			entry.Resource = raw
		}

		bundle.Entry = append(bundle.Entry, entry)
	}

	if nextCursor != "" {
		bundle.Link = append(bundle.Link, fhirtypes.BundleLink{
			Relation: "next",
			URL:      baseURL + "?_cursor=" + nextCursor,
		})
	}
	return bundle, nil
}

// isOldest reports whether entries[i] is the earliest non-deleted version in
// the (newest-first) slice — i.e. no later index holds a non-deleted version
// of the same resource.
func isOldest(entries []HistoryEntry, i int) bool {
	for j := i + 1; j < len(entries); j++ {
		if entries[j].ResourceID == entries[i].ResourceID && entries[j].Resource != nil {
			return false
		}
	}
	return true
}
