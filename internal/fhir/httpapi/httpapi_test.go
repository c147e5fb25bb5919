package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/ehr/fhirengine/internal/fhirerr"
)

func TestIfMatchValue_StripsWeakETagQuoting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/Patient/1", nil)
	req.Header.Set("If-Match", `W/"v2"`)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "v2", ifMatchValue(c))
}

func TestIfMatchValue_EmptyWhenHeaderAbsent(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/Patient/1", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "", ifMatchValue(c))
}

func TestSplitComma(t *testing.T) {
	assert.Equal(t, []string{"Condition", "Observation"}, splitComma("Condition,Observation"))
	assert.Equal(t, []string(nil), splitComma(""))
	assert.Equal(t, []string{"Condition"}, splitComma("Condition,"))
}

func TestStatusForKind(t *testing.T) {
	cases := map[fhirerr.Kind]int{
		fhirerr.NotFound:           http.StatusNotFound,
		fhirerr.Gone:               http.StatusGone,
		fhirerr.VersionConflict:    http.StatusConflict,
		fhirerr.PreconditionFailed: http.StatusPreconditionFailed,
		fhirerr.BadRequest:         http.StatusBadRequest,
		fhirerr.Unauthorized:       http.StatusUnauthorized,
		fhirerr.Forbidden:          http.StatusForbidden,
		fhirerr.Conflict:           http.StatusConflict,
		fhirerr.Internal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusForKind(kind), "kind=%s", kind)
	}
}

func TestSetVersionHeaders_PopulatesETagAndLastModified(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/Patient/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	resource := map[string]interface{}{
		"resourceType": "Patient",
		"id":           "1",
		"meta": map[string]interface{}{
			"versionId":   "v3",
			"lastUpdated": "2026-01-01T00:00:00Z",
		},
	}
	setVersionHeaders(c, resource)

	assert.Equal(t, `W/"v3"`, rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))
}

func TestSetVersionHeaders_NoMetaIsNoop(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/Patient/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setVersionHeaders(c, map[string]interface{}{"resourceType": "Patient", "id": "1"})

	assert.Empty(t, rec.Header().Get("ETag"))
}
