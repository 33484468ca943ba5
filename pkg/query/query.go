// Package query turns raw search box text into the canonical form used for
// deduplication and the escaped term bound into LIKE patterns.
package query

import (
	"strings"
	"unicode"
)

// Query is the user's current search intent.
type Query struct {
	Raw string
	// Normalized is Raw trimmed with interior whitespace runs collapsed to a
	// single space. Case is preserved.
	Normalized string
	// Term is Normalized with LIKE wildcards escaped, ready to be wrapped in
	// '%' and bound as a parameter.
	Term string
}

func Parse(raw string) Query {
	normalized := Normalize(raw)
	return Query{
		Raw:        raw,
		Normalized: normalized,
		Term:       EscapeLike(normalized),
	}
}

func (q Query) Equal(other Query) bool {
	return q.Normalized == other.Normalized
}

func (q Query) IsEmpty() bool {
	return q.Normalized == ""
}

// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s). Bytes
// that are not valid UTF-8 are dropped, so the result is always valid text.
func Normalize(raw string) string {
	return strings.Join(strings.FieldsFunc(strings.ToValidUTF8(raw, ""), unicode.IsSpace), " ")
}

const escapeChar = '\\'

// EscapeLike escapes the characters LIKE/ILIKE treat as pattern syntax so the
// result matches literally under the default backslash escape. All other
// bytes are copied unchanged.
func EscapeLike(s string) string {
	if !strings.ContainsAny(s, `\%_`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escapeChar, '%', '_':
			b.WriteByte(escapeChar)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Contains wraps an escaped term into a substring pattern.
func Contains(term string) string {
	return "%" + term + "%"
}
