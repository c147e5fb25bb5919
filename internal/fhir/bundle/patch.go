// Package bundle implements the transaction/batch processor (component I)
// and the JSON Patch / JSON Merge Patch application the repository's patch
// operation delegates to.
package bundle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PatchOperation is a single JSON Patch (RFC 6902) operation.
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
	From  string      `json:"from,omitempty"`
}

// ApplyJSONPatch applies ops to resource in order. A failing "test" (or any
// other) operation aborts the whole patch — the caller sees the original
// resource untouched.
func ApplyJSONPatch(resource map[string]interface{}, ops []PatchOperation) (map[string]interface{}, error) {
	result := deepCopyMap(resource)
	for i, op := range ops {
		var err error
		switch op.Op {
		case "add":
			err = patchAdd(result, op.Path, op.Value)
		case "remove":
			err = patchRemove(result, op.Path)
		case "replace":
			err = patchReplace(result, op.Path, op.Value)
		case "move":
			err = patchMove(result, op.From, op.Path)
		case "copy":
			err = patchCopy(result, op.From, op.Path)
		case "test":
			err = patchTest(result, op.Path, op.Value)
		default:
			err = fmt.Errorf("unknown patch operation: %s", op.Op)
		}
		if err != nil {
			return nil, fmt.Errorf("patch operation %d (%s): %w", i, op.Op, err)
		}
	}
	return result, nil
}

// ApplyMergePatch applies a JSON Merge Patch (RFC 7386) to resource.
func ApplyMergePatch(resource map[string]interface{}, patch map[string]interface{}) (map[string]interface{}, error) {
	result := deepCopyMap(resource)
	mergePatchRecursive(result, patch)
	return result, nil
}

func mergePatchRecursive(target, patch map[string]interface{}) {
	for key, patchVal := range patch {
		if patchVal == nil {
			delete(target, key)
			continue
		}
		if patchMap, ok := patchVal.(map[string]interface{}); ok {
			if targetMap, ok := target[key].(map[string]interface{}); ok {
				mergePatchRecursive(targetMap, patchMap)
				continue
			}
			target[key] = deepCopyMap(patchMap)
			continue
		}
		target[key] = patchVal
	}
}

// ParseJSONPatch parses a JSON Patch document from raw bytes.
func ParseJSONPatch(data []byte) ([]PatchOperation, error) {
	var ops []PatchOperation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("invalid JSON Patch document: %w", err)
	}
	for i, op := range ops {
		if op.Op == "" {
			return nil, fmt.Errorf("patch operation %d: missing 'op'", i)
		}
		if op.Path == "" && op.Op != "test" {
			return nil, fmt.Errorf("patch operation %d: missing 'path'", i)
		}
	}
	return ops, nil
}

// ParseMergePatch parses a JSON Merge Patch document from raw bytes.
func ParseMergePatch(data []byte) (map[string]interface{}, error) {
	var patch map[string]interface{}
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, fmt.Errorf("invalid JSON Merge Patch document: %w", err)
	}
	return patch, nil
}

func patchAdd(doc map[string]interface{}, path string, value interface{}) error {
	if path == "" || path == "/" {
		return fmt.Errorf("cannot replace root document")
	}
	parent, lastKey, err := resolvePath(doc, path, true)
	if err != nil {
		return err
	}
	switch p := parent.(type) {
	case map[string]interface{}:
		p[lastKey] = value
	case []interface{}:
		if lastKey == "-" {
			parentMap, parentKey := resolveParentOfPath(doc, path)
			if parentMap != nil {
				parentMap[parentKey] = append(p, value)
			}
			return nil
		}
		idx, err := strconv.Atoi(lastKey)
		if err != nil {
			return fmt.Errorf("invalid array index: %s", lastKey)
		}
		if idx < 0 || idx > len(p) {
			return fmt.Errorf("array index out of bounds: %d", idx)
		}
		newArr := make([]interface{}, len(p)+1)
		copy(newArr, p[:idx])
		newArr[idx] = value
		copy(newArr[idx+1:], p[idx:])
		parentMap, parentKey := resolveParentOfPath(doc, path)
		if parentMap != nil {
			parentMap[parentKey] = newArr
		}
	}
	return nil
}

func patchRemove(doc map[string]interface{}, path string) error {
	parent, lastKey, err := resolvePath(doc, path, false)
	if err != nil {
		return err
	}
	switch p := parent.(type) {
	case map[string]interface{}:
		if _, ok := p[lastKey]; !ok {
			return fmt.Errorf("path not found: %s", path)
		}
		delete(p, lastKey)
	case []interface{}:
		idx, err := strconv.Atoi(lastKey)
		if err != nil {
			return fmt.Errorf("invalid array index: %s", lastKey)
		}
		if idx < 0 || idx >= len(p) {
			return fmt.Errorf("array index out of bounds: %d", idx)
		}
		newArr := append(p[:idx], p[idx+1:]...)
		parentMap, parentKey := resolveParentOfPath(doc, path)
		if parentMap != nil {
			parentMap[parentKey] = newArr
		}
	}
	return nil
}

func patchReplace(doc map[string]interface{}, path string, value interface{}) error {
	parent, lastKey, err := resolvePath(doc, path, false)
	if err != nil {
		return err
	}
	switch p := parent.(type) {
	case map[string]interface{}:
		if _, ok := p[lastKey]; !ok {
			return fmt.Errorf("path not found: %s", path)
		}
		p[lastKey] = value
	case []interface{}:
		idx, err := strconv.Atoi(lastKey)
		if err != nil {
			return fmt.Errorf("invalid array index: %s", lastKey)
		}
		if idx < 0 || idx >= len(p) {
			return fmt.Errorf("array index out of bounds: %d", idx)
		}
		p[idx] = value
	}
	return nil
}

func patchMove(doc map[string]interface{}, from, path string) error {
	parent, lastKey, err := resolvePath(doc, from, false)
	if err != nil {
		return fmt.Errorf("move from: %w", err)
	}
	value := readAt(parent, lastKey)
	if err := patchRemove(doc, from); err != nil {
		return fmt.Errorf("move remove: %w", err)
	}
	if err := patchAdd(doc, path, value); err != nil {
		return fmt.Errorf("move add: %w", err)
	}
	return nil
}

func patchCopy(doc map[string]interface{}, from, path string) error {
	parent, lastKey, err := resolvePath(doc, from, false)
	if err != nil {
		return fmt.Errorf("copy from: %w", err)
	}
	return patchAdd(doc, path, readAt(parent, lastKey))
}

func patchTest(doc map[string]interface{}, path string, expected interface{}) error {
	parent, lastKey, err := resolvePath(doc, path, false)
	if err != nil {
		return fmt.Errorf("test path not found: %w", err)
	}
	actual := readAt(parent, lastKey)
	actualJSON, _ := json.Marshal(actual)
	expectedJSON, _ := json.Marshal(expected)
	if string(actualJSON) != string(expectedJSON) {
		return fmt.Errorf("test failed at %s: expected %s, got %s", path, expectedJSON, actualJSON)
	}
	return nil
}

func readAt(container interface{}, key string) interface{} {
	switch c := container.(type) {
	case map[string]interface{}:
		return c[key]
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil
		}
		return c[idx]
	}
	return nil
}

// resolvePath traverses to the parent of path's final segment, per RFC 6901
// JSON Pointer syntax (`~1` → `/`, `~0` → `~`).
func resolvePath(doc map[string]interface{}, path string, createMissing bool) (interface{}, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, "", fmt.Errorf("empty path")
	}
	var current interface{} = doc
	for i := 0; i < len(parts)-1; i++ {
		switch c := current.(type) {
		case map[string]interface{}:
			next, ok := c[parts[i]]
			if !ok {
				if createMissing {
					newMap := make(map[string]interface{})
					c[parts[i]] = newMap
					current = newMap
					continue
				}
				return nil, "", fmt.Errorf("path not found at segment: %s", parts[i])
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(parts[i])
			if err != nil {
				return nil, "", fmt.Errorf("invalid array index: %s", parts[i])
			}
			if idx < 0 || idx >= len(c) {
				return nil, "", fmt.Errorf("array index out of bounds: %d", idx)
			}
			current = c[idx]
		default:
			return nil, "", fmt.Errorf("cannot traverse into non-container at: %s", parts[i])
		}
	}
	return current, parts[len(parts)-1], nil
}

func resolveParentOfPath(doc map[string]interface{}, path string) (map[string]interface{}, string) {
	parts := splitPath(path)
	if len(parts) <= 1 {
		return doc, parts[0]
	}
	parentPath := "/" + strings.Join(encodeParts(parts[:len(parts)-1]), "/")
	parent, _, err := resolvePath(doc, parentPath, false)
	if err != nil {
		return nil, ""
	}
	parentMap, ok := parent.(map[string]interface{})
	if !ok {
		return nil, ""
	}
	return parentMap, parts[len(parts)-2]
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	raw := strings.Split(path, "/")
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}

func encodeParts(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~", "~0"), "/", "~1")
	}
	return out
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	data, _ := json.Marshal(m)
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	return result
}
