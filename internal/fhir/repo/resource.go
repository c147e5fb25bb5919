package repo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// getMeta returns resource's `meta` object, creating it if absent.
func getMeta(resource map[string]interface{}) map[string]interface{} {
	m, ok := resource["meta"].(map[string]interface{})
	if !ok {
		m = make(map[string]interface{})
		resource["meta"] = m
	}
	return m
}

// stampVersion assigns a fresh versionId and lastUpdated instant, per the
// create/update contract in §4.5.
func stampVersion(resource map[string]interface{}) (versionID string, lastUpdated time.Time) {
	versionID = uuid.New().String()
	lastUpdated = time.Now().UTC()
	m := getMeta(resource)
	m["versionId"] = versionID
	m["lastUpdated"] = lastUpdated.Format(time.RFC3339Nano)
	return versionID, lastUpdated
}

func marshalResource(resource map[string]interface{}) (string, error) {
	data, err := json.Marshal(resource)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalResource(content string) (map[string]interface{}, error) {
	var resource map[string]interface{}
	if err := json.Unmarshal([]byte(content), &resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func metaString(resource map[string]interface{}, field string) string {
	m, _ := resource["meta"].(map[string]interface{})
	if m == nil {
		return ""
	}
	s, _ := m[field].(string)
	return s
}

func stringArrayField(resource map[string]interface{}, path ...string) []string {
	m, _ := resource["meta"].(map[string]interface{})
	if m == nil {
		return nil
	}
	raw, _ := m[path[0]].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
