package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyJSONPatch_Replace(t *testing.T) {
	resource := map[string]interface{}{"status": "active"}
	result, err := ApplyJSONPatch(resource, []PatchOperation{
		{Op: "replace", Path: "/status", Value: "inactive"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inactive", result["status"])
	assert.Equal(t, "active", resource["status"], "original must be untouched")
}

func TestApplyJSONPatch_AddAppendsToArray(t *testing.T) {
	resource := map[string]interface{}{"tag": []interface{}{"a"}}
	result, err := ApplyJSONPatch(resource, []PatchOperation{
		{Op: "add", Path: "/tag/-", Value: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, result["tag"])
}

func TestApplyJSONPatch_RemovePath(t *testing.T) {
	resource := map[string]interface{}{"note": "temp"}
	result, err := ApplyJSONPatch(resource, []PatchOperation{
		{Op: "remove", Path: "/note"},
	})
	require.NoError(t, err)
	_, exists := result["note"]
	assert.False(t, exists)
}

func TestApplyJSONPatch_FailingTestAbortsWholeOperation(t *testing.T) {
	resource := map[string]interface{}{"status": "active"}
	_, err := ApplyJSONPatch(resource, []PatchOperation{
		{Op: "replace", Path: "/status", Value: "inactive"},
		{Op: "test", Path: "/status", Value: "something-else"},
	})
	assert.Error(t, err)
}

func TestApplyJSONPatch_EscapedPointerSegments(t *testing.T) {
	resource := map[string]interface{}{"a/b": map[string]interface{}{"c~d": "x"}}
	result, err := ApplyJSONPatch(resource, []PatchOperation{
		{Op: "replace", Path: "/a~1b/c~0d", Value: "y"},
	})
	require.NoError(t, err)
	inner := result["a/b"].(map[string]interface{})
	assert.Equal(t, "y", inner["c~d"])
}

func TestApplyMergePatch_DeletesNullFields(t *testing.T) {
	resource := map[string]interface{}{"status": "active", "note": "keep"}
	result, err := ApplyMergePatch(resource, map[string]interface{}{"status": nil, "extra": "added"})
	require.NoError(t, err)
	_, exists := result["status"]
	assert.False(t, exists)
	assert.Equal(t, "keep", result["note"])
	assert.Equal(t, "added", result["extra"])
}

func TestApplyMergePatch_MergesNestedObjects(t *testing.T) {
	resource := map[string]interface{}{
		"meta": map[string]interface{}{"versionId": "1", "source": "x"},
	}
	result, err := ApplyMergePatch(resource, map[string]interface{}{
		"meta": map[string]interface{}{"source": "y"},
	})
	require.NoError(t, err)
	meta := result["meta"].(map[string]interface{})
	assert.Equal(t, "1", meta["versionId"])
	assert.Equal(t, "y", meta["source"])
}
