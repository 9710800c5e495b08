package snippet

import "slices"

// walker expands dependency lists. It memoizes finished names and keeps
// the chain currently being expanded to detect cycles.
type walker struct {
	store *Store
	// lenient skips names missing from the store instead of failing.
	lenient bool

	done  map[string][]string
	stack []string
}

func (s *Store) newWalker(lenient bool) *walker {
	return &walker{store: s, lenient: lenient, done: make(map[string][]string)}
}

// expand returns the dependencies of name: the expansion of each direct
// dependency, in order, followed by the direct dependencies themselves.
// The result may contain duplicates.
func (w *walker) expand(name string) ([]string, error) {
	if deps, ok := w.done[name]; ok {
		return deps, nil
	}
	if i := slices.Index(w.stack, name); i >= 0 {
		if w.lenient {
			return nil, nil
		}
		path := append(slices.Clone(w.stack[i:]), name)
		return nil, &CircularDependencyError{Path: path}
	}

	frag, ok := w.store.fragments[name]
	if !ok {
		if w.lenient {
			return nil, nil
		}
		return nil, w.store.notFound(name)
	}

	w.stack = append(w.stack, name)
	var deps []string
	for _, dep := range frag.Dependencies {
		sub, err := w.expand(dep)
		if err != nil {
			return nil, err
		}
		deps = append(deps, sub...)
	}
	deps = append(deps, frag.Dependencies...)
	w.stack = w.stack[:len(w.stack)-1]

	w.done[name] = deps
	return deps, nil
}

// TransitiveDependencies returns every fragment name depends on, directly
// or indirectly, in depth-first discovery order without duplicates.
func (s *Store) TransitiveDependencies(name string) ([]string, error) {
	deps, err := s.newWalker(false).expand(name)
	if err != nil {
		return nil, err
	}
	return dedupe(deps), nil
}

// Resolve returns the ordered CTE list for a query that declares with.
// Each requested name is preceded by everything it needs; the requested
// names come last in the order given, unless already pulled in earlier.
func (s *Store) Resolve(with []string) ([]string, error) {
	if err := checkWith(with); err != nil {
		return nil, err
	}

	w := s.newWalker(false)
	var all []string
	for _, name := range with {
		deps, err := w.expand(name)
		if err != nil {
			return nil, err
		}
		all = append(all, deps...)
	}
	all = append(all, with...)
	return dedupe(all), nil
}

// Dependents returns every stored name whose transitive dependencies
// include name, in insertion order. Dangling references left behind by a
// forced delete are ignored.
func (s *Store) Dependents(name string) ([]string, error) {
	if !s.Has(name) {
		return nil, s.notFound(name)
	}
	return s.dependents(name), nil
}

func (s *Store) dependents(name string) []string {
	w := s.newWalker(true)
	var out []string
	for _, candidate := range s.order {
		if candidate == name {
			continue
		}
		deps, _ := w.expand(candidate)
		if slices.Contains(deps, name) {
			out = append(out, candidate)
		}
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
