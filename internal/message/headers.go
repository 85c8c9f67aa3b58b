package message

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// MatchMode selects how header names are compared against a query.
type MatchMode int

const (
	// MatchPattern treats the query as a case-insensitive regular expression
	// that must match the whole name. GreasySpoon scripts rely on this.
	MatchPattern MatchMode = iota
	// MatchLiteral compares names with case-insensitive equality.
	MatchLiteral
)

// ParseMatchMode accepts "pattern" and "literal". Anything else is pattern.
func ParseMatchMode(s string) MatchMode {
	if strings.EqualFold(strings.TrimSpace(s), "literal") {
		return MatchLiteral
	}
	return MatchPattern
}

func (m MatchMode) String() string {
	if m == MatchLiteral {
		return "literal"
	}
	return "pattern"
}

// Header is one entry of the header table.
type Header struct{ Name, Value string }

// Headers is an ordered header table. Duplicate names are allowed.
type Headers []Header

var bracketStripper = strings.NewReplacer("[", "", "]", "")

// headersFrom snapshots h in sorted key order, joining repeated values with
// ", ". Square brackets are removed from values, as GreasySpoon does.
func headersFrom(h http.Header) Headers {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hs := make(Headers, 0, len(keys))
	for _, k := range keys {
		hs = append(hs, Header{Name: k, Value: bracketStripper.Replace(strings.Join(h[k], ", "))})
	}
	return hs
}

func (hs Headers) Copy() Headers {
	return append(Headers(nil), hs...)
}

// Render writes every entry as "Name: Value" followed by sep.
func (hs Headers) Render(sep string) string {
	var sb strings.Builder
	for _, h := range hs {
		sb.WriteString(h.Name)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteString(sep)
	}
	return sb.String()
}

// Index returns the position of the first entry whose name matches query, or -1.
func (hs Headers) Index(query string, mode MatchMode) int {
	match := matcher(query, mode)
	for i := range hs {
		if match(hs[i].Name) {
			return i
		}
	}
	return -1
}

func matcher(query string, mode MatchMode) func(string) bool {
	if mode == MatchPattern {
		if re, err := regexp.Compile(`(?i)^(?:` + query + `)$`); err == nil {
			return re.MatchString
		}
	}
	return func(name string) bool { return strings.EqualFold(name, query) }
}
