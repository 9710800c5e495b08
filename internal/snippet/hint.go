package snippet

import (
	"fmt"
	"strings"
)

// WithHint tells the user how to declare snippet dependencies explicitly.
const WithHint = "If using snippets, you may pass the --with argument explicitly."

var (
	syntaxErrorMarkers = []string{
		"syntax error",
		"error in your sql syntax",
		"incorrect syntax",
		"invalid sql",
	}
	notFoundMarkers = []string{
		"does not exist",
		"not found",
		"could not find",
		"no such table",
	}
)

// MissingTableHint explains a database error raised by query in terms of
// stored snippets. It returns "" when the error is unrelated to snippets.
//
// Syntax errors get the --with hint. Missing-table errors additionally
// name the first referenced table that is close to a stored snippet.
func (s *Store) MissingTableHint(query string, dbErr error) string {
	if dbErr == nil {
		return ""
	}
	text := strings.ToLower(dbErr.Error())

	switch {
	case containsAny(text, syntaxErrorMarkers):
		return WithHint
	case containsAny(text, notFoundMarkers):
		if typo := s.snippetTypo(query); typo != "" {
			return WithHint + "\n\n" + typo
		}
		return WithHint
	default:
		return ""
	}
}

func (s *Store) snippetTypo(query string) string {
	if query == "" {
		return ""
	}
	for _, table := range s.extractTables(query) {
		if matches := ClosestMatches(table, s.order); len(matches) > 0 {
			return fmt.Sprintf("There is no table with name '%s'.\nDid you mean : %s", table, prettyList(matches))
		}
	}
	return ""
}

// prettyList renders 'a', 'b' or 'c'.
func prettyList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
