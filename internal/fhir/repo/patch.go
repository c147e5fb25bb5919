package repo

import (
	"context"

	"github.com/ehr/fhirengine/internal/fhir/bundle"
	"github.com/ehr/fhirengine/internal/fhirerr"
)

// PatchJSON applies a JSON Patch (RFC 6902) document to the resource at
// (type, id) and writes the result as a new version. id and resourceType
// are restored after the patch regardless of what the patch operations did
// to them, since a patch must never change a resource's identity.
func (s *Store) PatchJSON(ctx context.Context, resourceType, id string, ops []bundle.PatchOperation, ifMatch string) (map[string]interface{}, error) {
	current, err := s.Read(ctx, resourceType, id)
	if err != nil {
		return nil, err
	}
	patched, err := bundle.ApplyJSONPatch(current, ops)
	if err != nil {
		return nil, fhirerr.Wrap(fhirerr.BadRequest, "apply JSON patch", err)
	}
	patched["id"] = id
	patched["resourceType"] = resourceType
	return s.Update(ctx, resourceType, patched, ifMatch)
}

// PatchMerge applies a JSON Merge Patch (RFC 7386) document to the resource
// at (type, id) and writes the result as a new version.
func (s *Store) PatchMerge(ctx context.Context, resourceType, id string, patch map[string]interface{}, ifMatch string) (map[string]interface{}, error) {
	current, err := s.Read(ctx, resourceType, id)
	if err != nil {
		return nil, err
	}
	patched, err := bundle.ApplyMergePatch(current, patch)
	if err != nil {
		return nil, fhirerr.Wrap(fhirerr.BadRequest, "apply merge patch", err)
	}
	patched["id"] = id
	patched["resourceType"] = resourceType
	return s.Update(ctx, resourceType, patched, ifMatch)
}
