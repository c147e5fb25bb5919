package search

import (
	"strconv"
	"strings"

	"github.com/ehr/fhirengine/internal/fhir/classify"
	"github.com/ehr/fhirengine/internal/fhir/index"
	"github.com/ehr/fhirengine/internal/fhir/schema"
	"github.com/ehr/fhirengine/internal/fhirerr"
)

// Compiled is a parameterized SQL statement plus its positional argument
// list, ready to run against the pool (§4.7).
type Compiled struct {
	SQL       string
	Args      []interface{}
	CountSQL  string        // non-empty only when Total requested an accurate count
	CountArgs []interface{}
}

// Compiler compiles Requests against the synthesized schema, consulting the
// classified parameters of every registered resource type. It is built once
// from the same table-set map the repository and schema applier use.
type Compiler struct {
	tables map[string]schema.ResourceTableSet
}

func NewCompiler(tables map[string]schema.ResourceTableSet) *Compiler {
	return &Compiler{tables: tables}
}

func (c *Compiler) paramsByCode(resourceType string) map[string]*classify.ParamImpl {
	set, ok := c.tables[resourceType]
	if !ok {
		return nil
	}
	byCode := make(map[string]*classify.ParamImpl, len(set.Params))
	for _, p := range set.Params {
		byCode[p.Code] = p
	}
	return byCode
}

// Compile renders req into a SELECT over req.ResourceType's main table,
// selecting every column the executor needs to assemble a resource
// (id, content, lastUpdated) plus a deterministic ORDER BY and a page-size
// LIMIT/OFFSET or cursor predicate (§4.7 Pagination).
func (c *Compiler) Compile(req Request) (Compiled, error) {
	if _, ok := c.tables[req.ResourceType]; !ok {
		return Compiled{}, fhirerr.New(fhirerr.BadRequest, "unknown resource type: "+req.ResourceType)
	}

	where, args, err := c.compileWhere(req, 1)
	if err != nil {
		return Compiled{}, err
	}

	argIdx := len(args) + 1
	if req.Cursor != "" && !req.IncludeDeleted {
		lastUpdated, id, ok := parseCursor(req.Cursor)
		if !ok {
			return Compiled{}, fhirerr.New(fhirerr.BadRequest, "invalid search cursor")
		}
		where = append(where, "(\"lastUpdated\", \"id\") < ($"+strconv.Itoa(argIdx)+", $"+strconv.Itoa(argIdx+1)+")")
		args = append(args, lastUpdated, id)
		argIdx += 2
	}

	table := quoteIdent(req.ResourceType)
	sql := `SELECT "id","content","lastUpdated" FROM ` + table
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += c.orderBy(req)
	sql += " LIMIT $" + strconv.Itoa(argIdx) + " OFFSET $" + strconv.Itoa(argIdx+1)
	args = append(args, req.Count, req.Offset)

	compiled := Compiled{SQL: sql, Args: args}
	if req.Total == "accurate" {
		countWhere, countArgs, _ := c.compileWhere(req, 1)
		countSQL := `SELECT count(*) FROM ` + table
		if len(countWhere) > 0 {
			countSQL += " WHERE " + strings.Join(countWhere, " AND ")
		}
		compiled.CountSQL = countSQL
		compiled.CountArgs = countArgs
	}
	return compiled, nil
}

// CompileIDQuery renders just the matching ids for resourceType and a raw
// `a=b&c=d` query string, with no LIMIT/ORDER BY — the shape the repository
// needs for conditional operations (§4.5), which append `FOR UPDATE`
// themselves inside their own transaction.
func (c *Compiler) CompileIDQuery(resourceType, rawQuery string) (string, []interface{}, error) {
	req, err := ParseRawQuery(resourceType, rawQuery)
	if err != nil {
		return "", nil, fhirerr.Wrap(fhirerr.BadRequest, "parse conditional query", err)
	}
	if _, ok := c.tables[resourceType]; !ok {
		return "", nil, fhirerr.New(fhirerr.BadRequest, "unknown resource type: "+resourceType)
	}
	where, args, err := c.compileWhere(req, 1)
	if err != nil {
		return "", nil, err
	}
	sql := `SELECT "id" FROM ` + quoteIdent(resourceType)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	return sql, args, nil
}

// compileWhere renders every clause req.Params and the soft-delete filter
// imply, starting positional argument numbering at argIdx.
func (c *Compiler) compileWhere(req Request, argIdx int) ([]string, []interface{}, error) {
	var where []string
	var args []interface{}

	if !req.IncludeDeleted {
		where = append(where, `"deleted" = false`)
	}

	grouped := make(map[string][]ParamQuery)
	var order []string
	for _, pq := range req.Params {
		if _, seen := grouped[pq.Code+":"+pq.Modifier]; !seen {
			order = append(order, pq.Code+":"+pq.Modifier)
		}
		grouped[pq.Code+":"+pq.Modifier] = append(grouped[pq.Code+":"+pq.Modifier], pq)
	}

	for _, key := range order {
		occurrences := grouped[key]
		code := occurrences[0].Code
		modifier := occurrences[0].Modifier

		clause, clauseArgs, next, err := c.compileParamOrChain(req.ResourceType, code, modifier, flattenValues(occurrences), argIdx)
		if err != nil {
			return nil, nil, err
		}
		if clause != "" {
			where = append(where, clause)
			args = append(args, clauseArgs...)
			argIdx = next
		}
	}

	return where, args, nil
}

func flattenValues(occurrences []ParamQuery) []string {
	var out []string
	for _, pq := range occurrences {
		out = append(out, pq.Values...)
	}
	return out
}

// compileParam renders one predicate for a single classified parameter and
// value, dispatching on strategy per §4.7 point 2.
func (c *Compiler) compileParam(resourceType string, impl *classify.ParamImpl, modifier, value string, argIdx int) (string, []interface{}, int, bool) {
	if modifier == "missing" {
		present := value != "true"
		col := mainColumnFor(impl)
		if present {
			return col + " IS NOT NULL", nil, argIdx, true
		}
		return col + " IS NULL", nil, argIdx, true
	}

	switch impl.Strategy {
	case classify.StrategyColumn:
		return c.compileColumnParam(resourceType, impl, modifier, value, argIdx)
	case classify.StrategyTokenColumn:
		return compileTokenParam(impl, modifier, value, argIdx)
	case classify.StrategyLookupTable:
		return compileLookupJoin(impl, modifier, value, argIdx)
	default:
		return "", nil, argIdx, false
	}
}

func mainColumnFor(impl *classify.ParamImpl) string {
	switch impl.Strategy {
	case classify.StrategyTokenColumn:
		return quoteIdent("__" + impl.Code)
	case classify.StrategyLookupTable:
		return quoteIdent(impl.Column)
	default:
		return quoteIdent(impl.Column)
	}
}

func (c *Compiler) compileColumnParam(resourceType string, impl *classify.ParamImpl, modifier, value string, argIdx int) (string, []interface{}, int, bool) {
	col := quoteIdent(impl.Column)
	switch impl.ValueType {
	case "date":
		clause, args, next, ok := dateClause(col, value, argIdx)
		return clause, args, next, ok
	case "number", "quantity":
		if impl.ValueType == "quantity" {
			q := parseQuantity(value)
			clause, args, next := numberClause(col, q.Value, argIdx)
			return clause, args, next, true
		}
		clause, args, next := numberClause(col, value, argIdx)
		return clause, args, next, true
	case "reference":
		if modifier == "identifier" {
			return c.compileReferenceIdentifier(impl, value, argIdx)
		}
		refVal := value
		if idx := strings.LastIndex(refVal, "/"); modifier == "" && idx < 0 && len(impl.Target) == 1 {
			refVal = impl.Target[0] + "/" + refVal
		}
		if impl.Array {
			return col + " && $" + strconv.Itoa(argIdx) + "::TEXT[]", []interface{}{[]string{refVal}}, argIdx + 1, true
		}
		return col + " = $" + strconv.Itoa(argIdx), []interface{}{refVal}, argIdx + 1, true
	case "string":
		return stringClause(col, modifier, value, argIdx), []interface{}{stringArg(modifier, value)}, argIdx + 1, true
	default: // uri and anything else column-backed
		return col + " = $" + strconv.Itoa(argIdx), []interface{}{value}, argIdx + 1, true
	}
}

// compileReferenceIdentifier renders the `:identifier` modifier for a
// reference parameter (§4.7 point 2, a MUST): rather than matching the
// stored `Type/id` string against the raw `system|value`, it resolves which
// candidate target row carries that identifier token (via its own
// `__identifier` token column) and matches this resource's reference column
// against that row's `Type/id`.
func (c *Compiler) compileReferenceIdentifier(impl *classify.ParamImpl, value string, argIdx int) (string, []interface{}, int, bool) {
	tok := parseToken(value)
	hash := index.Token{System: tok.System, Code: tok.Code}.Hash().String()

	col := quoteIdent(impl.Column)
	var unions []string
	for _, target := range impl.Target {
		if _, ok := c.tables[target]; !ok {
			continue
		}
		unions = append(unions, `SELECT '`+target+`/' || "id" FROM `+quoteIdent(target)+
			` WHERE "__identifier" @> ARRAY[$`+strconv.Itoa(argIdx)+`::UUID]`)
	}
	if len(unions) == 0 {
		return "", nil, argIdx, false
	}
	sub := strings.Join(unions, " UNION ALL ")
	if impl.Array {
		return col + " && ARRAY(" + sub + ")::TEXT[]", []interface{}{hash}, argIdx + 1, true
	}
	return col + " IN (" + sub + ")", []interface{}{hash}, argIdx + 1, true
}

func stringClause(col, modifier, value string, argIdx int) string {
	switch modifier {
	case "exact":
		return col + " = $" + strconv.Itoa(argIdx)
	default:
		return col + " ILIKE $" + strconv.Itoa(argIdx)
	}
}

func stringArg(modifier, value string) string {
	switch modifier {
	case "exact":
		return value
	case "contains":
		return "%" + value + "%"
	default:
		return value + "%"
	}
}

// compileTokenParam renders the `__<code>`/`__<code>Text`/`__<code>Sort`
// predicate for a token-column parameter, honoring `:not` and `:text`
// (§4.7 point 2). Membership against `__<code>` is array-contains; the
// hash of the requested token is computed the same way the row indexer
// hashes stored tokens.
func compileTokenParam(impl *classify.ParamImpl, modifier, value string, argIdx int) (string, []interface{}, int, bool) {
	hashCol := quoteIdent("__" + impl.Code)
	sortCol := quoteIdent("__" + impl.Code + "Sort")

	if modifier == "text" {
		clause := sortCol + " ILIKE $" + strconv.Itoa(argIdx)
		return clause, []interface{}{"%" + value + "%"}, argIdx + 1, true
	}

	tok := parseToken(value)
	hash := index.Token{System: tok.System, Code: tok.Code}.Hash().String()
	clause := hashCol + " @> ARRAY[$" + strconv.Itoa(argIdx) + "::UUID]"
	if modifier == "not" {
		clause = "NOT (" + clause + ")"
	}
	return clause, []interface{}{hash}, argIdx + 1, true
}

// compileLookupJoin renders a lookup-table parameter's predicate as an
// `id IN (SELECT "resourceId" FROM <GlobalLookupTable> WHERE ...)` subquery
// against the structured value's decomposed satellite table (§4.7 point 2),
// the same EXISTS-style join compileChain uses for reference traversal.
// compileParam backs both Compile and CompileIDQuery, so conditional
// create/update/delete get the real join too, not just regular search.
func compileLookupJoin(impl *classify.ParamImpl, modifier, value string, argIdx int) (string, []interface{}, int, bool) {
	display, ok := index.LookupDisplayColumn[impl.LookupTable]
	if !ok {
		return "", nil, argIdx, false
	}
	col := quoteIdent(display)
	clause := stringClause(col, modifier, value, argIdx)
	sql := `"id" IN (SELECT "resourceId" FROM ` + quoteIdent(impl.LookupTable) + ` WHERE ` + clause + `)`
	return sql, []interface{}{stringArg(modifier, value)}, argIdx + 1, true
}

func (c *Compiler) orderBy(req Request) string {
	if len(req.Sort) == 0 {
		return ` ORDER BY "lastUpdated" DESC, "id" DESC`
	}
	byCode := c.paramsByCode(req.ResourceType)
	var parts []string
	for _, s := range req.Sort {
		col := sortColumnFor(s.Code, byCode)
		if col == "" {
			continue
		}
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return ` ORDER BY "lastUpdated" DESC, "id" DESC`
	}
	parts = append(parts, `"id" ASC`)
	return " ORDER BY " + strings.Join(parts, ", ")
}

func sortColumnFor(code string, byCode map[string]*classify.ParamImpl) string {
	if code == "_lastUpdated" {
		return `"lastUpdated"`
	}
	impl, ok := byCode[code]
	if !ok {
		return ""
	}
	switch impl.Strategy {
	case classify.StrategyColumn:
		return quoteIdent(impl.Column)
	case classify.StrategyTokenColumn:
		return quoteIdent("__" + impl.Code + "Sort")
	case classify.StrategyLookupTable:
		return quoteIdent(impl.Column)
	default:
		return ""
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// compileParamOrChain compiles a single `code[:modifier]=value...` entry,
// dispatching to compileChain when code contains the chained-search `.`
// separator (§4.7 "Chained search").
func (c *Compiler) compileParamOrChain(resourceType, code, modifier string, values []string, argIdx int) (string, []interface{}, int, error) {
	if strings.Contains(code, ".") {
		return c.compileChain(resourceType, code, modifier, values, argIdx)
	}
	byCode := c.paramsByCode(resourceType)
	impl, ok := byCode[code]
	if !ok {
		return "", nil, argIdx, nil
	}
	var orClauses []string
	var args []interface{}
	for _, v := range values {
		clause, clauseArgs, next, ok := c.compileParam(resourceType, impl, modifier, v, argIdx)
		if !ok {
			continue
		}
		orClauses = append(orClauses, clause)
		args = append(args, clauseArgs...)
		argIdx = next
	}
	switch len(orClauses) {
	case 0:
		return "", nil, argIdx, nil
	case 1:
		return orClauses[0], args, argIdx, nil
	default:
		return "(" + strings.Join(orClauses, " OR ") + ")", args, argIdx, nil
	}
}

// compileChain rewrites `patient.name=Smith` into an EXISTS-shaped IN
// subquery: join resourceType's References table through the reference
// parameter's code to the target type, then recursively compile the
// remaining path against that type (§4.7 "Chained search"). Unsupported
// shapes (unknown reference param, ambiguous multi-target without an
// explicit type hint) are ignored rather than failing the whole search, per
// the same "unknown code is ignored" policy as any other parameter.
func (c *Compiler) compileChain(resourceType, code, modifier string, values []string, argIdx int) (string, []interface{}, int, error) {
	segs := strings.SplitN(code, ".", 2)
	refCode, innerCode := segs[0], segs[1]

	byCode := c.paramsByCode(resourceType)
	impl, ok := byCode[refCode]
	if !ok || impl.ValueType != "reference" || len(impl.Target) == 0 {
		return "", nil, argIdx, nil
	}
	targetType := impl.Target[0]
	if _, ok := c.tables[targetType]; !ok {
		return "", nil, argIdx, nil
	}

	codeArgPos := argIdx
	innerClause, innerArgs, next, err := c.compileParamOrChain(targetType, innerCode, modifier, values, argIdx+1)
	if err != nil {
		return "", nil, argIdx, err
	}
	if innerClause == "" {
		return "", nil, argIdx, nil
	}

	sql := `"id" IN (SELECT r."resourceId" FROM ` + quoteIdent(resourceType+"_References") +
		` r JOIN ` + quoteIdent(targetType) + ` t ON t."id" = r."targetId" WHERE r."code" = $` +
		strconv.Itoa(codeArgPos) + ` AND ` + innerClause + `)`
	args := append([]interface{}{refCode}, innerArgs...)
	return sql, args, next, nil
}
