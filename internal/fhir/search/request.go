// Package search implements the FHIR search compiler and executor
// (components J/K): translating parsed search-parameter queries into
// parameterized SQL against the synthesized schema, running them, and
// assembling the resulting searchset Bundle.
package search

import (
	"net/url"
	"strconv"
	"strings"
)

// ParamQuery is one `code[:modifier]=value` occurrence from the request.
// Repeated occurrences of the same code combine with OR (§4.7).
type ParamQuery struct {
	Code     string
	Modifier string
	Values   []string // comma-separated values for one occurrence are OR'd too
}

// SortSpec is one entry of the `_sort` list.
type SortSpec struct {
	Code       string
	Descending bool
}

// IncludeSpec is one `_include`/`_revinclude` directive: `Type:param[:target]`.
type IncludeSpec struct {
	SourceType string
	Code       string
	TargetType string // optional third segment
}

// Request is the parsed search request the compiler consumes (§4.7).
type Request struct {
	ResourceType   string
	Params         []ParamQuery
	Sort           []SortSpec
	Include        []IncludeSpec
	RevInclude     []IncludeSpec
	Count          int
	Offset         int
	Cursor         string // opaque "<lastUpdated RFC3339Nano>,<id>" cursor
	Total          string // "" | "none" | "estimate" | "accurate"
	IncludeDeleted bool   // _deleted=true, reserved for admin tooling
}

const (
	DefaultCount = 20
	MaxCount     = 200
)

// ParseRequest parses already-decoded query `url.Values` into a Request
// (ParseRawQuery takes the raw string). Unknown parameter codes are
// kept here and only dropped during compilation (§4.7 point 1: "the search
// does not fail").
func ParseRequest(resourceType string, values url.Values) Request {
	req := Request{ResourceType: resourceType, Count: DefaultCount}
	for key, vals := range values {
		code, modifier := splitModifier(key)
		switch code {
		case "_sort":
			for _, v := range vals {
				req.Sort = append(req.Sort, parseSort(v)...)
			}
			continue
		case "_include":
			for _, v := range vals {
				if spec, ok := parseIncludeSpec(v); ok {
					req.Include = append(req.Include, spec)
				}
			}
			continue
		case "_revinclude":
			for _, v := range vals {
				if spec, ok := parseIncludeSpec(v); ok {
					req.RevInclude = append(req.RevInclude, spec)
				}
			}
			continue
		case "_count":
			if len(vals) > 0 {
				if n, err := strconv.Atoi(vals[0]); err == nil {
					req.Count = clampCount(n)
				}
			}
			continue
		case "_offset":
			if len(vals) > 0 {
				if n, err := strconv.Atoi(vals[0]); err == nil && n >= 0 {
					req.Offset = n
				}
			}
			continue
		case "_cursor":
			if len(vals) > 0 {
				req.Cursor = vals[0]
			}
			continue
		case "_total":
			if len(vals) > 0 {
				req.Total = vals[0]
			}
			continue
		case "_deleted":
			if len(vals) > 0 && vals[0] == "true" {
				req.IncludeDeleted = true
			}
			continue
		}
		for _, v := range vals {
			req.Params = append(req.Params, ParamQuery{Code: code, Modifier: modifier, Values: strings.Split(v, ",")})
		}
	}
	return req
}

// ParseRawQuery parses a raw, unescaped `a=b&c=d` query string (as appears
// after `?` in a conditional-operation URL, §4.5/§4.6) into a Request.
func ParseRawQuery(resourceType, raw string) (Request, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Request{}, err
	}
	return ParseRequest(resourceType, values), nil
}

func clampCount(n int) int {
	if n <= 0 {
		return DefaultCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

func splitModifier(key string) (code, modifier string) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func parseSort(raw string) []SortSpec {
	var specs []SortSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spec := SortSpec{}
		if strings.HasPrefix(part, "-") {
			spec.Descending = true
			spec.Code = part[1:]
		} else {
			spec.Code = part
		}
		specs = append(specs, spec)
	}
	return specs
}

func parseIncludeSpec(raw string) (IncludeSpec, bool) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return IncludeSpec{}, false
	}
	spec := IncludeSpec{SourceType: parts[0], Code: parts[1]}
	if len(parts) == 3 {
		spec.TargetType = parts[2]
	}
	return spec, true
}
