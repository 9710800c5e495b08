package snippet

import (
	"strings"
	"unicode"
)

// Capabilities is what the renderer needs to know about the target
// database.
type Capabilities interface {
	SupportsBacktick() bool
}

// Quoting is a fixed Capabilities value.
type Quoting bool

// SupportsBacktick implements Capabilities.
func (q Quoting) SupportsBacktick() bool { return bool(q) }

// Render composes query with the CTEs it needs. When with resolves to
// nothing, query is returned with trailing whitespace removed. caps may be
// nil, in which case CTE names are not quoted.
func (s *Store) Render(query string, with []string, caps Capabilities) (string, error) {
	names, err := s.Resolve(with)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return strings.TrimRightFunc(query, unicode.IsSpace), nil
	}

	backtick := caps != nil && caps.SupportsBacktick()

	var b strings.Builder
	b.WriteString("WITH ")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		if backtick {
			b.WriteString("`" + name + "`")
		} else {
			b.WriteString(name)
		}
		b.WriteString(" AS (")
		b.WriteString(TrimBody(s.fragments[name].Body))
		b.WriteString(")")
	}
	b.WriteString(" ")
	b.WriteString(strings.TrimSpace(query))

	out := b.String()
	s.logger.Debug("query rendered", "ctes", names, "backtick", backtick)
	return out, nil
}

// TrimBody removes trailing whitespace and one trailing semicolon.
func TrimBody(body string) string {
	body = strings.TrimRightFunc(body, unicode.IsSpace)
	body = strings.TrimSuffix(body, ";")
	return body
}
