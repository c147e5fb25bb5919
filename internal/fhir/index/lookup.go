package index

import (
	"strings"

	"github.com/ehr/fhirengine/internal/fhir/classify"
)

// LookupRow is one decomposed row for a global lookup table, keyed by which
// table it belongs to.
type LookupRow struct {
	Table      string
	ResourceID string
	Columns    map[string]string
}

// ExtractLookupRows decomposes every value reached by a lookup-table
// parameter's path into the row shape of its global table (§3/§4.4).
func ExtractLookupRows(resource map[string]interface{}, resourceID string, params []*classify.ParamImpl) []LookupRow {
	var rows []LookupRow
	for _, p := range params {
		if p.Strategy != classify.StrategyLookupTable {
			continue
		}
		for _, v := range EvalAll(resource, p.Paths) {
			obj, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			switch p.LookupTable {
			case "HumanName":
				rows = append(rows, humanNameRow(resourceID, obj))
			case "Address":
				rows = append(rows, addressRow(resourceID, obj))
			case "ContactPoint":
				rows = append(rows, contactPointRow(resourceID, obj))
			case "Identifier":
				rows = append(rows, identifierRow(resourceID, obj))
			}
		}
	}
	return rows
}

// LookupDisplayColumn names the row column each lookup table uses as its
// plain-text display/sort value. The search compiler uses the same mapping
// to target its join predicate at the right column.
var LookupDisplayColumn = map[string]string{
	"HumanName":    "name",
	"Address":      "address",
	"ContactPoint": "value",
	"Identifier":   "value",
}

// lookupSortText computes the __<code>Sort mirror value for a lookup-table
// parameter: the display column of the first matching structured value, in
// path-evaluation order. Resources with no matching value leave the column
// empty, same as an absent column-strategy parameter.
func lookupSortText(resource map[string]interface{}, p *classify.ParamImpl) string {
	display := LookupDisplayColumn[p.LookupTable]
	for _, v := range EvalAll(resource, p.Paths) {
		obj, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		var row LookupRow
		switch p.LookupTable {
		case "HumanName":
			row = humanNameRow("", obj)
		case "Address":
			row = addressRow("", obj)
		case "ContactPoint":
			row = contactPointRow("", obj)
		case "Identifier":
			row = identifierRow("", obj)
		default:
			continue
		}
		return row.Columns[display]
	}
	return ""
}

// humanNameRow concatenates name = family + given + text + prefix + suffix
// joined by single spaces, per §4.4.
func humanNameRow(resourceID string, hn map[string]interface{}) LookupRow {
	var parts []string
	if family := strVal(hn["family"]); family != "" {
		parts = append(parts, family)
	}
	parts = append(parts, stringArray(hn["given"])...)
	if text := strVal(hn["text"]); text != "" {
		parts = append(parts, text)
	}
	parts = append(parts, stringArray(hn["prefix"])...)
	parts = append(parts, stringArray(hn["suffix"])...)
	given := strings.Join(stringArray(hn["given"]), " ")
	return LookupRow{
		Table:      "HumanName",
		ResourceID: resourceID,
		Columns: map[string]string{
			"name":   strings.Join(parts, " "),
			"given":  given,
			"family": strVal(hn["family"]),
		},
	}
}

// addressRow concatenates address = line + city + state + postalCode +
// country joined by single spaces, per §4.4.
func addressRow(resourceID string, addr map[string]interface{}) LookupRow {
	var parts []string
	parts = append(parts, stringArray(addr["line"])...)
	for _, field := range []string{"city", "state", "postalCode", "country"} {
		if v := strVal(addr[field]); v != "" {
			parts = append(parts, v)
		}
	}
	return LookupRow{
		Table:      "Address",
		ResourceID: resourceID,
		Columns: map[string]string{
			"address":    strings.Join(parts, " "),
			"city":       strVal(addr["city"]),
			"state":      strVal(addr["state"]),
			"postalCode": strVal(addr["postalCode"]),
			"country":    strVal(addr["country"]),
			"use":        strVal(addr["use"]),
		},
	}
}

func contactPointRow(resourceID string, cp map[string]interface{}) LookupRow {
	return LookupRow{
		Table:      "ContactPoint",
		ResourceID: resourceID,
		Columns: map[string]string{
			"system": strVal(cp["system"]),
			"value":  strVal(cp["value"]),
			"use":    strVal(cp["use"]),
		},
	}
}

func identifierRow(resourceID string, id map[string]interface{}) LookupRow {
	return LookupRow{
		Table:      "Identifier",
		ResourceID: resourceID,
		Columns: map[string]string{
			"system": strVal(id["system"]),
			"value":  strVal(id["value"]),
		},
	}
}

func stringArray(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
