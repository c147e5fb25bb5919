// Package httpapi is the thin echo adapter over the core: it maps the HTTP
// surface table of SPEC_FULL.md §6 onto the repository, search compiler,
// and bundle processor, and renders fhirerr.Kind failures as OperationOutcome
// responses (§7). Routing/auth/AccessPolicy enforcement proper are external
// collaborators (§1); this package only does the minimal parameter
// extraction and status-code mapping the core's own error taxonomy implies.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirengine/internal/fhir/bundle"
	"github.com/ehr/fhirengine/internal/fhir/capability"
	"github.com/ehr/fhirengine/internal/fhir/fhirtypes"
	"github.com/ehr/fhirengine/internal/fhir/meta"
	"github.com/ehr/fhirengine/internal/fhir/repo"
	"github.com/ehr/fhirengine/internal/fhir/search"
	"github.com/ehr/fhirengine/internal/fhir/validate"
	"github.com/ehr/fhirengine/internal/fhirerr"
)

// Handler wires the core's four subsystems (repository, search compiler,
// bundle processor, validator) to echo.HandlerFunc routes.
type Handler struct {
	Store     *repo.Store
	Compiler  *search.Compiler
	Processor *bundle.Processor
	Validator validate.Validator
	Profiles  *meta.ProfileRegistry
	Params    *meta.SearchParameterRegistry
	BaseURL   string
}

// RegisterRoutes binds every HTTP surface entry of SPEC_FULL.md §6 onto e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/metadata", h.Capability)
	e.POST("/", h.Bundle)

	e.POST("/:type", h.Create)
	e.GET("/:type", h.Search)
	e.PUT("/:type", h.ConditionalUpdate)
	e.DELETE("/:type", h.ConditionalDelete)
	e.GET("/:type/_history", h.HistoryType)
	e.POST("/:type/$validate", h.Validate)

	e.GET("/:type/:id", h.Read)
	e.PUT("/:type/:id", h.Update)
	e.PATCH("/:type/:id", h.Patch)
	e.DELETE("/:type/:id", h.Delete)
	e.GET("/:type/:id/_history", h.HistoryInstance)
	e.GET("/:type/:id/_history/:vid", h.VRead)

	e.GET("/Patient/:id/$everything", h.Everything)
}

func (h *Handler) Create(c echo.Context) error {
	resourceType := c.Param("type")
	var resource map[string]interface{}
	if err := c.Bind(&resource); err != nil {
		return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid resource body", err))
	}
	ifNoneExist := c.Request().Header.Get("If-None-Exist")
	if ifNoneExist != "" {
		result, created, err := h.Store.ConditionalCreate(c.Request().Context(), resourceType, resource, ifNoneExist)
		if err != nil {
			return writeOutcome(c, err)
		}
		return writeResource(c, result, created)
	}
	result, err := h.Store.Create(c.Request().Context(), resourceType, resource, "")
	if err != nil {
		return writeOutcome(c, err)
	}
	return writeResource(c, result, true)
}

func (h *Handler) Read(c echo.Context) error {
	resourceType, id := c.Param("type"), c.Param("id")
	result, err := h.Store.Read(c.Request().Context(), resourceType, id)
	if err != nil {
		return writeOutcome(c, err)
	}
	setVersionHeaders(c, result)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Update(c echo.Context) error {
	resourceType, id := c.Param("type"), c.Param("id")
	var resource map[string]interface{}
	if err := c.Bind(&resource); err != nil {
		return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid resource body", err))
	}
	resource["id"] = id
	ifMatch := ifMatchValue(c)
	result, err := h.Store.Update(c.Request().Context(), resourceType, resource, ifMatch)
	if err != nil {
		return writeOutcome(c, err)
	}
	setVersionHeaders(c, result)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Patch(c echo.Context) error {
	resourceType, id := c.Param("type"), c.Param("id")
	body, err := bodyBytes(c)
	if err != nil {
		return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "read request body", err))
	}
	ifMatch := ifMatchValue(c)

	ct := c.Request().Header.Get("Content-Type")
	var result map[string]interface{}
	switch {
	case ct == "application/merge-patch+json":
		var patch map[string]interface{}
		if err := json.Unmarshal(body, &patch); err != nil {
			return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid merge patch body", err))
		}
		result, err = h.Store.PatchMerge(c.Request().Context(), resourceType, id, patch, ifMatch)
	default:
		ops, parseErr := bundle.ParseJSONPatch(body)
		if parseErr != nil {
			return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid JSON Patch body", parseErr))
		}
		result, err = h.Store.PatchJSON(c.Request().Context(), resourceType, id, ops, ifMatch)
	}
	if err != nil {
		return writeOutcome(c, err)
	}
	setVersionHeaders(c, result)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Delete(c echo.Context) error {
	resourceType, id := c.Param("type"), c.Param("id")
	if err := h.Store.Delete(c.Request().Context(), resourceType, id); err != nil {
		return writeOutcome(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ConditionalUpdate implements `PUT Type?query` (§4.6): update the single
// match, create if none, fail with PreconditionFailed if more than one.
func (h *Handler) ConditionalUpdate(c echo.Context) error {
	resourceType := c.Param("type")
	var resource map[string]interface{}
	if err := c.Bind(&resource); err != nil {
		return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid resource body", err))
	}
	result, created, err := h.Store.ConditionalUpdate(c.Request().Context(), resourceType, resource, c.Request().URL.RawQuery)
	if err != nil {
		return writeOutcome(c, err)
	}
	return writeResource(c, result, created)
}

// ConditionalDelete implements `DELETE Type?query` (§4.6): tombstones every
// matching resource.
func (h *Handler) ConditionalDelete(c echo.Context) error {
	resourceType := c.Param("type")
	n, err := h.Store.ConditionalDelete(c.Request().Context(), resourceType, c.Request().URL.RawQuery)
	if err != nil {
		return writeOutcome(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}

func (h *Handler) VRead(c echo.Context) error {
	resourceType, id, vid := c.Param("type"), c.Param("id"), c.Param("vid")
	result, err := h.Store.ReadVersion(c.Request().Context(), resourceType, id, vid)
	if err != nil {
		return writeOutcome(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) HistoryInstance(c echo.Context) error {
	resourceType, id := c.Param("type"), c.Param("id")
	since, cursor, count := historyParams(c)
	page, err := h.Store.ReadHistory(c.Request().Context(), resourceType, id, since, cursor, count)
	if err != nil {
		return writeOutcome(c, err)
	}
	return h.writeHistoryBundle(c, page)
}

func (h *Handler) HistoryType(c echo.Context) error {
	resourceType := c.Param("type")
	since, cursor, count := historyParams(c)
	page, err := h.Store.ReadTypeHistory(c.Request().Context(), resourceType, since, cursor, count)
	if err != nil {
		return writeOutcome(c, err)
	}
	return h.writeHistoryBundle(c, page)
}

func (h *Handler) writeHistoryBundle(c echo.Context, page repo.HistoryPage) error {
	var entries []bundle.HistoryEntry
	for _, v := range page.Entries {
		e := bundle.HistoryEntry{
			ResourceType: c.Param("type"),
			ResourceID:   v.ResourceID,
			VersionID:    v.VersionID,
			LastUpdated:  v.LastUpdated,
		}
		if v.Content != "" {
			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(v.Content), &parsed); err != nil {
				return writeOutcome(c, fhirerr.Wrap(fhirerr.Internal, "decode history entry", err))
			}
			e.Resource = parsed
		}
		entries = append(entries, e)
	}
	out, err := bundle.BuildHistoryBundle(h.BaseURL, entries, page.Cursor)
	if err != nil {
		return writeOutcome(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Search(c echo.Context) error {
	resourceType := c.Param("type")
	req := search.ParseRequest(resourceType, c.QueryParams())
	result, err := h.Compiler.Execute(c.Request().Context(), h.Store.Pool(), req)
	if err != nil {
		return writeOutcome(c, err)
	}
	out, err := search.AssembleBundle(h.BaseURL, req, result)
	if err != nil {
		return writeOutcome(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Bundle(c echo.Context) error {
	var submitted fhirtypes.Bundle
	if err := c.Bind(&submitted); err != nil {
		return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid bundle body", err))
	}
	out, err := h.Processor.Process(c.Request().Context(), submitted)
	if err != nil {
		return writeOutcome(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Everything(c echo.Context) error {
	patientID := c.Param("id")
	targets := c.QueryParam("_type")
	types := defaultEverythingTypes
	if targets != "" {
		types = splitComma(targets)
	}
	resources, err := h.Store.Everything(c.Request().Context(), patientID, types)
	if err != nil {
		return writeOutcome(c, err)
	}
	out := fhirtypes.Bundle{ResourceType: "Bundle", Type: "searchset"}
	total := len(resources)
	out.Total = &total
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return writeOutcome(c, fhirerr.Wrap(fhirerr.Internal, "marshal compartment resource", err))
		}
		rt, _ := r["resourceType"].(string)
		id, _ := r["id"].(string)
		out.Entry = append(out.Entry, fhirtypes.BundleEntry{
			FullURL:  h.BaseURL + "/" + rt + "/" + id,
			Resource: raw,
			Search:   &fhirtypes.BundleSearch{Mode: "match"},
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Validate(c echo.Context) error {
	resourceType := c.Param("type")
	var resource map[string]interface{}
	if err := c.Bind(&resource); err != nil {
		return writeOutcome(c, fhirerr.Wrap(fhirerr.BadRequest, "invalid resource body", err))
	}
	result, err := h.Validator.Validate(c.Request().Context(), resourceType, resource)
	if err != nil {
		return writeOutcome(c, err)
	}
	outcome := fhirtypes.OperationOutcome{ResourceType: "OperationOutcome"}
	for _, issue := range result.Issues {
		outcome.Issue = append(outcome.Issue, fhirtypes.OperationOutcomeIssue{
			Severity: issue.Severity, Code: issue.Code,
			Diagnostics: issue.Diagnostics, Expression: issue.Expression,
		})
	}
	if len(outcome.Issue) == 0 {
		outcome.Issue = []fhirtypes.OperationOutcomeIssue{{Severity: "information", Code: "informational", Diagnostics: "resource is valid"}}
	}
	return c.JSON(http.StatusOK, outcome)
}

func (h *Handler) Capability(c echo.Context) error {
	return c.JSON(http.StatusOK, capability.Build(h.Profiles, h.Params))
}

var defaultEverythingTypes = []string{
	"Encounter", "Condition", "Observation", "AllergyIntolerance",
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func ifMatchValue(c echo.Context) string {
	raw := c.Request().Header.Get("If-Match")
	if len(raw) >= 2 && raw[0] == 'W' && raw[1] == '/' {
		raw = raw[2:]
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	return raw
}

func bodyBytes(c echo.Context) ([]byte, error) {
	defer c.Request().Body.Close()
	return io.ReadAll(c.Request().Body)
}

func historyParams(c echo.Context) (since *time.Time, cursor string, count int) {
	if raw := c.QueryParam("_since"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			since = &t
		}
	}
	cursor = c.QueryParam("_cursor")
	count = search.DefaultCount
	if raw := c.QueryParam("_count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}
	return
}

func setVersionHeaders(c echo.Context, resource map[string]interface{}) {
	metaVal, ok := resource["meta"].(map[string]interface{})
	if !ok {
		return
	}
	if vid, ok := metaVal["versionId"].(string); ok && vid != "" {
		c.Response().Header().Set("ETag", `W/"`+vid+`"`)
	}
	if lu, ok := metaVal["lastUpdated"].(string); ok && lu != "" {
		if t, err := time.Parse(time.RFC3339, lu); err == nil {
			c.Response().Header().Set("Last-Modified", t.UTC().Format(http.TimeFormat))
		}
	}
}

func writeResource(c echo.Context, resource map[string]interface{}, created bool) error {
	setVersionHeaders(c, resource)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, resource)
}

// writeOutcome maps a fhirerr.Kind to its HTTP status and renders the
// OperationOutcome vocabulary of §7.
func writeOutcome(c echo.Context, err error) error {
	kind := fhirerr.KindOf(err)
	status := statusForKind(kind)
	msg := err.Error()
	outcome := fhirtypes.NewOperationOutcome(kind.Severity(), kind.IssueCode(), msg)
	return c.JSON(status, outcome)
}

func statusForKind(kind fhirerr.Kind) int {
	switch kind {
	case fhirerr.NotFound:
		return http.StatusNotFound
	case fhirerr.Gone:
		return http.StatusGone
	case fhirerr.VersionConflict:
		return http.StatusConflict
	case fhirerr.PreconditionFailed:
		return http.StatusPreconditionFailed
	case fhirerr.BadRequest:
		return http.StatusBadRequest
	case fhirerr.Unauthorized:
		return http.StatusUnauthorized
	case fhirerr.Forbidden:
		return http.StatusForbidden
	case fhirerr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
