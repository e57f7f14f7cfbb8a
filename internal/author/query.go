// Package author parses author queries and matches them against record author lists.
package author

import (
	"strings"

	"github.com/matsen/retractions/internal/record"
)

// Query is a parsed author query. Last is required; First may be empty.
type Query struct {
	First string
	Last  string
}

// ParseQuery parses an author query string.
//
// Accepted forms:
//   - "Zhang"           last name only
//   - "Wei Zhang"       first name(s) then last name
//   - "Zhang, Wei"      last name, comma, first name(s)
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}

	if last, first, ok := strings.Cut(input, ","); ok && strings.TrimSpace(last) != "" {
		return Query{First: strings.TrimSpace(first), Last: strings.TrimSpace(last)}
	}

	return splitName(input)
}

// splitName treats the final word as the last name.
func splitName(name string) Query {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return Query{}
	case 1:
		return Query{Last: parts[0]}
	}
	return Query{
		First: strings.Join(parts[:len(parts)-1], " "),
		Last:  parts[len(parts)-1],
	}
}

// IsZero reports whether the query is empty.
func (q Query) IsZero() bool {
	return q.Last == ""
}

// Matches reports whether q names author a. The last name must match
// case-insensitively; a first name in the query is a case-insensitive prefix.
// The unknown-author placeholder never matches.
func (q Query) Matches(a record.Author) bool {
	if q.IsZero() {
		return false
	}
	name := splitName(a.Name)
	if name.Last == record.UnknownName && name.First == record.UnknownName {
		return false
	}
	if !strings.EqualFold(q.Last, name.Last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(name.First), strings.ToLower(q.First))
}

// MatchesAny reports whether q matches any author in the list.
func (q Query) MatchesAny(authors []record.Author) bool {
	for _, a := range authors {
		if q.Matches(a) {
			return true
		}
	}
	return false
}

// AllMatch reports whether every query matches at least one author.
func AllMatch(queries []Query, authors []record.Author) bool {
	for _, q := range queries {
		if !q.MatchesAny(authors) {
			return false
		}
	}
	return true
}
