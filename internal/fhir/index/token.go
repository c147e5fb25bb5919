package index

import (
	"github.com/google/uuid"
)

// tokenNamespace anchors the deterministic token hash (§4.4) so that the
// same `<system>|<code>` byte string always hashes to the same UUID across
// process restarts, independent of google/uuid's default namespace choice.
var tokenNamespace = uuid.MustParse("6f1c6b2e-6d1a-4e9e-9f2a-9b6a1d9e7c4a")

// Token is one coerced token value: a system/code pair plus its rendered
// display text.
type Token struct {
	System  string
	Code    string
	Display string // optional; falls back to the system|code text form
}

// Hash returns the deterministic 128-bit UUID for a token's `<system>|<code>`
// form, per §4.4.
func (t Token) Hash() uuid.UUID {
	return uuid.NewSHA1(tokenNamespace, []byte(t.System+"|"+t.Code))
}

// Text renders the `<system>|<code>` form with system omitted when empty.
func (t Token) Text() string {
	if t.System == "" {
		return t.Code
	}
	return t.System + "|" + t.Code
}

// SortText is the display text when present, else the text form.
func (t Token) SortText() string {
	if t.Display != "" {
		return t.Display
	}
	return t.Text()
}

// CoerceTokens turns one value reached by path evaluation into zero or more
// tokens, per the coercion table in §4.4: boolean, plain code string,
// Coding, CodeableConcept (one token per coding[], falling back to text),
// and Identifier.
func CoerceTokens(value interface{}) []Token {
	switch v := value.(type) {
	case bool:
		if v {
			return []Token{{Code: "true"}}
		}
		return []Token{{Code: "false"}}
	case string:
		return []Token{{Code: v}}
	case map[string]interface{}:
		return coerceObjectToken(v)
	}
	return nil
}

func coerceObjectToken(obj map[string]interface{}) []Token {
	if _, hasCoding := obj["coding"]; hasCoding {
		return coerceCodeableConcept(obj)
	}
	if _, hasSystem := obj["system"]; hasSystem {
		if _, hasCode := obj["code"]; hasCode {
			return []Token{codingToken(obj)}
		}
	}
	if _, hasValue := obj["value"]; hasValue {
		return []Token{identifierToken(obj)}
	}
	if _, hasText := obj["text"]; hasText {
		return coerceCodeableConcept(obj)
	}
	return nil
}

func codingToken(coding map[string]interface{}) Token {
	return Token{
		System:  strVal(coding["system"]),
		Code:    strVal(coding["code"]),
		Display: strVal(coding["display"]),
	}
}

func identifierToken(identifier map[string]interface{}) Token {
	return Token{
		System: strVal(identifier["system"]),
		Code:   strVal(identifier["value"]),
	}
}

func coerceCodeableConcept(cc map[string]interface{}) []Token {
	codings, _ := cc["coding"].([]interface{})
	if len(codings) == 0 {
		if text := strVal(cc["text"]); text != "" {
			return []Token{{Code: text, Display: text}}
		}
		return nil
	}
	tokens := make([]Token, 0, len(codings))
	for _, c := range codings {
		obj, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		tokens = append(tokens, codingToken(obj))
	}
	return tokens
}

func strVal(v interface{}) string {
	s, _ := v.(string)
	return s
}
