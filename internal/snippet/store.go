// Package snippet implements the snippet store: a registry of named SQL
// fragments, the resolver that expands a with-list into an ordered CTE
// list, the renderer that stitches fragments into one query, and the
// delete rules that keep dependents consistent.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines must serialize access.
package snippet

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqlsnip/pkg/sqlscan"
)

// Fragment is a named SQL fragment.
type Fragment struct {
	Name string
	Body string
	// Dependencies are the names declared via "with", in declaration order.
	Dependencies []string
}

// Store holds the fragments of one session.
type Store struct {
	fragments map[string]*Fragment
	order     []string

	logger        *slog.Logger
	extractTables func(string) []string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTableExtractor replaces the function used to find table names in
// SQL text (dependency inference and missing-table hints).
func WithTableExtractor(fn func(string) []string) Option {
	return func(s *Store) {
		if fn != nil {
			s.extractTables = fn
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		fragments:     make(map[string]*Fragment),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		extractTables: sqlscan.ExtractTables,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores body under name, replacing any previous fragment with that
// name. The store is left unchanged when Save fails.
//
// Names in with do not have to exist yet; rendering through a missing
// name fails later with a NotFoundError.
func (s *Store) Save(name, body string, with []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if strings.Contains(name, "-") {
		return &UsageError{Msg: "Using hyphens (-) in save argument isn't allowed. Please use underscores (_) instead"}
	}
	if slices.Contains(with, name) {
		return &UsageError{Msg: fmt.Sprintf("Script name ('%s') cannot appear in with_ argument", name)}
	}
	if err := checkWith(with); err != nil {
		return err
	}
	if path := s.cycleThrough(name, with); path != nil {
		return &CircularDependencyError{Path: path}
	}

	frag := &Fragment{Name: name, Body: body, Dependencies: slices.Clone(with)}
	if _, exists := s.fragments[name]; !exists {
		s.order = append(s.order, name)
	}
	s.fragments[name] = frag

	s.logger.Debug("snippet saved", "name", name, "with", with)
	return nil
}

// checkName rejects names that cannot be used as a file name inside the
// snippets directory.
func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &UsageError{Msg: "Snippet name cannot be empty"}
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return &UsageError{Msg: fmt.Sprintf("Snippet name ('%s') cannot contain path separators or '..'", name)}
	}
	return nil
}

// checkWith rejects with-lists containing hyphenated names.
func checkWith(with []string) error {
	for _, w := range with {
		if strings.Contains(w, "-") {
			return &UsageError{Msg: "Using hyphens is not allowed. Please use " +
				strings.ReplaceAll(strings.Join(with, ", "), "-", "_") +
				" instead for the with argument."}
		}
	}
	return nil
}

// cycleThrough returns the cycle that saving name with the given
// dependencies would create, or nil. Missing names end the walk.
func (s *Store) cycleThrough(name string, with []string) []string {
	visited := make(map[string]bool)
	var path []string

	var visit func(current string) bool
	visit = func(current string) bool {
		path = append(path, current)
		if current == name {
			return true
		}
		if !visited[current] {
			visited[current] = true
			if frag, ok := s.fragments[current]; ok {
				for _, dep := range frag.Dependencies {
					if visit(dep) {
						return true
					}
				}
			}
		}
		path = path[:len(path)-1]
		return false
	}

	for _, dep := range with {
		path = []string{name}
		if visit(dep) {
			return path
		}
	}
	return nil
}

// Get returns a copy of the named fragment.
func (s *Store) Get(name string) (*Fragment, error) {
	frag, ok := s.fragments[name]
	if !ok {
		return nil, s.notFound(name)
	}
	return &Fragment{
		Name:         frag.Name,
		Body:         frag.Body,
		Dependencies: slices.Clone(frag.Dependencies),
	}, nil
}

// Body returns the SQL text of the named fragment.
func (s *Store) Body(name string) (string, error) {
	frag, ok := s.fragments[name]
	if !ok {
		return "", s.notFound(name)
	}
	return frag.Body, nil
}

// Has reports whether name is stored.
func (s *Store) Has(name string) bool {
	_, ok := s.fragments[name]
	return ok
}

// Remove deletes name without checking dependents and reports whether it
// was present. Use Delete for the checked variants.
func (s *Store) Remove(name string) bool {
	if _, ok := s.fragments[name]; !ok {
		return false
	}
	delete(s.fragments, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return true
}

// Names returns the stored names in insertion order.
func (s *Store) Names() []string {
	return slices.Clone(s.order)
}

// Fragments returns copies of all fragments in insertion order.
func (s *Store) Fragments() []Fragment {
	out := make([]Fragment, 0, len(s.order))
	for _, name := range s.order {
		frag := s.fragments[name]
		out = append(out, Fragment{
			Name:         frag.Name,
			Body:         frag.Body,
			Dependencies: slices.Clone(frag.Dependencies),
		})
	}
	return out
}

// Len returns the number of stored fragments.
func (s *Store) Len() int {
	return len(s.fragments)
}

// InferDependencies returns the stored names, other than name, that body
// reads from as tables. Used when a save does not declare its with-list.
func (s *Store) InferDependencies(body, name string) []string {
	if body == "" || s.Len() == 0 {
		return nil
	}
	var deps []string
	for _, table := range s.extractTables(body) {
		if table != name && s.Has(table) && !slices.Contains(deps, table) {
			deps = append(deps, table)
		}
	}
	return deps
}

func (s *Store) notFound(name string) *NotFoundError {
	return &NotFoundError{
		Name:        name,
		Suggestions: ClosestMatches(name, s.order),
		Valid:       s.Names(),
	}
}
