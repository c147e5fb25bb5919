// Package classify implements the restricted FHIRPath-subset parser and the
// search-parameter-to-storage-strategy classifier (components B of the
// design). Per §9 this is deliberately not a general FHIRPath evaluator: the
// only expressions it must parse are SearchParameter.expression strings,
// which conform to a narrow grammar of property chains joined by `|`, with
// optional `.where(...)`, `.as(...)`, `.resolve()` suffixes that are stripped
// rather than evaluated.
package classify

import "strings"

// Path is a restricted-path AST: an ordered list of property names to walk,
// starting from the resource root (the leading resource-type segment, e.g.
// "Patient", is already removed).
type Path struct {
	Steps []string
}

// ParseExpression splits a SearchParameter.expression on the union operator
// and returns one Path per branch whose head matches resourceType. Multiple
// matching branches (a parameter declared against a polymorphic base type)
// all contribute steps; callers evaluate each and concatenate results.
func ParseExpression(expression, resourceType string) []Path {
	var paths []Path
	for _, branch := range strings.Split(expression, "|") {
		branch = strings.TrimSpace(branch)
		if branch == "" {
			continue
		}
		p, head, ok := parseBranch(branch)
		if !ok {
			continue
		}
		if head != resourceType && head != "" {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

// parseBranch parses a single `|`-separated branch into a Path, returning
// the head segment (the resource type, or "" when the branch has no head —
// e.g. a bare "id") so the caller can filter by resourceType.
func parseBranch(branch string) (Path, string, bool) {
	branch = stripNarrowing(branch)
	segments := splitSteps(branch)
	if len(segments) == 0 {
		return Path{}, "", false
	}
	head := segments[0]
	rest := segments[1:]
	if !isTypeName(head) {
		// No resource-type prefix (a cross-cutting parameter like "id" or
		// "meta.tag") — treat the whole branch as the path.
		return Path{Steps: segments}, "", true
	}
	return Path{Steps: rest}, head, true
}

// stripNarrowing removes type-narrowing calls that never change the set of
// properties visited: .where(...), .as(Type), .resolve().
func stripNarrowing(expr string) string {
	var out strings.Builder
	i := 0
	for i < len(expr) {
		if rest := expr[i:]; strings.HasPrefix(rest, ".where(") ||
			strings.HasPrefix(rest, ".as(") ||
			strings.HasPrefix(rest, ".resolve(") {
			depth := 0
			j := i
			for j < len(expr) {
				switch expr[j] {
				case '(':
					depth++
				case ')':
					depth--
					if depth == 0 {
						j++
						i = j
						goto continueOuter
					}
				}
				j++
			}
			// unbalanced parens: bail out, keep the rest verbatim
			out.WriteString(expr[i:])
			break
		}
		out.WriteByte(expr[i])
		i++
	continueOuter:
	}
	return out.String()
}

func splitSteps(path string) []string {
	var steps []string
	for _, s := range strings.Split(path, ".") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		steps = append(steps, s)
	}
	return steps
}

func isTypeName(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}
