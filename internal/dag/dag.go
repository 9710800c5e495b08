// Package dag models the dependency graph between stored snippets.
// It is used to order snippet loads (dependencies first), to lay the
// graph out by level for display, and to answer upstream/downstream
// questions about a single snippet.
package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

// Node is one snippet in the graph.
type Node struct {
	Name string
	// Missing is true for names referenced via "with" but not stored.
	Missing bool
}

// Graph is a directed graph where an edge runs from a dependency to the
// snippet that uses it.
type Graph struct {
	nodes    map[string]*Node
	children map[string][]string // dependency -> dependents
	parents  map[string][]string // dependent -> dependencies
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// FromFragments builds the graph of fragments. Dependencies that are not
// among fragments become Missing nodes.
func FromFragments(fragments []snippet.Fragment) *Graph {
	g := NewGraph()
	for _, f := range fragments {
		g.AddNode(f.Name)
	}
	for _, f := range fragments {
		for _, dep := range f.Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				g.nodes[dep] = &Node{Name: dep, Missing: true}
			}
			_ = g.AddEdge(dep, f.Name)
		}
	}
	return g
}

// AddNode adds a stored snippet. Adding a name that was Missing marks it
// present.
func (g *Graph) AddNode(name string) {
	if n, ok := g.nodes[name]; ok {
		n.Missing = false
		return
	}
	g.nodes[name] = &Node{Name: name}
}

// AddEdge records that dependent uses dependency.
func (g *Graph) AddEdge(dependency, dependent string) error {
	if _, ok := g.nodes[dependency]; !ok {
		return fmt.Errorf("dependency %q is not in the graph", dependency)
	}
	if _, ok := g.nodes[dependent]; !ok {
		return fmt.Errorf("dependent %q is not in the graph", dependent)
	}
	if dependency == dependent {
		return &CycleError{Path: []string{dependent, dependent}}
	}

	if !slices.Contains(g.children[dependency], dependent) {
		g.children[dependency] = append(g.children[dependency], dependent)
	}
	if !slices.Contains(g.parents[dependent], dependency) {
		g.parents[dependent] = append(g.parents[dependent], dependency)
	}
	return nil
}

// Node returns the node for name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Dependencies returns the direct dependencies of name.
func (g *Graph) Dependencies(name string) []string {
	return slices.Clone(g.parents[name])
}

// Dependents returns the direct dependents of name.
func (g *Graph) Dependents(name string) []string {
	return slices.Clone(g.children[name])
}

// Names returns all node names, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the names referenced but not stored, sorted.
func (g *Graph) Missing() []string {
	var out []string
	for _, name := range g.Names() {
		if g.nodes[name].Missing {
			out = append(out, name)
		}
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, deps := range g.parents {
		count += len(deps)
	}
	return count
}

// FindCycle returns a cycle path (first and last element equal), or nil.
func (g *Graph) FindCycle() []string {
	const (
		unvisited = iota
		inProgress
		finished
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = inProgress
		stack = append(stack, name)
		for _, child := range g.children[name] {
			switch state[child] {
			case inProgress:
				i := slices.Index(stack, child)
				cycle = append(slices.Clone(stack[i:]), child)
				return true
			case unvisited:
				if visit(child) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = finished
		return false
	}

	for _, name := range g.Names() {
		if state[name] == unvisited && visit(name) {
			return cycle
		}
	}
	return nil
}

// TopologicalSort returns every name with dependencies before dependents.
// Ties are broken alphabetically.
func (g *Graph) TopologicalSort() ([]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	visited := make(map[string]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		deps := slices.Clone(g.parents[name])
		sort.Strings(deps)
		for _, dep := range deps {
			visit(dep)
		}
		order = append(order, name)
	}

	for _, name := range g.Names() {
		visit(name)
	}
	return order, nil
}

// Levels groups names by depth: level 0 has no dependencies, level N
// depends on something at level N-1.
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, name := range order {
		d := 0
		for _, dep := range g.parents[name] {
			d = max(d, depth[dep]+1)
		}
		depth[name] = d
		maxDepth = max(maxDepth, d)
	}

	if len(order) == 0 {
		return [][]string{}, nil
	}
	levels := make([][]string, maxDepth+1)
	for _, name := range order {
		levels[depth[name]] = append(levels[depth[name]], name)
	}
	for _, level := range levels {
		sort.Strings(level)
	}
	return levels, nil
}

// Downstream returns every name that depends on any of names, directly or
// transitively, including names themselves when present. Sorted.
func (g *Graph) Downstream(names ...string) []string {
	return g.reach(names, g.children, true)
}

// Upstream returns every name name depends on, directly or transitively.
// Sorted.
func (g *Graph) Upstream(name string) []string {
	return g.reach([]string{name}, g.parents, false)
}

func (g *Graph) reach(start []string, next map[string][]string, includeStart bool) []string {
	seen := make(map[string]bool)
	var walk func(name string)
	walk = func(name string) {
		for _, n := range next[name] {
			if !seen[n] {
				seen[n] = true
				walk(n)
			}
		}
	}

	for _, name := range start {
		if _, ok := g.nodes[name]; !ok {
			continue
		}
		if includeStart {
			seen[name] = true
		}
		walk(name)
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Roots returns stored names without dependencies, sorted.
func (g *Graph) Roots() []string {
	return g.filter(func(name string) bool { return len(g.parents[name]) == 0 })
}

// Leaves returns stored names nothing depends on, sorted.
func (g *Graph) Leaves() []string {
	return g.filter(func(name string) bool { return len(g.children[name]) == 0 })
}

func (g *Graph) filter(keep func(string) bool) []string {
	var out []string
	for _, name := range g.Names() {
		if !g.nodes[name].Missing && keep(name) {
			out = append(out, name)
		}
	}
	return out
}

// SaveAll stores fragments into store with dependencies saved before
// their dependents, and returns the names in the order saved.
func SaveAll(store *snippet.Store, fragments []snippet.Fragment) ([]string, error) {
	g := FromFragments(fragments)
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to order snippets: %w", err)
	}

	byName := make(map[string]snippet.Fragment, len(fragments))
	for _, f := range fragments {
		byName[f.Name] = f
	}

	saved := make([]string, 0, len(fragments))
	for _, name := range order {
		f, ok := byName[name]
		if !ok {
			continue
		}
		if err := store.Save(f.Name, f.Body, f.Dependencies); err != nil {
			return nil, fmt.Errorf("failed to load snippet %s: %w", name, err)
		}
		saved = append(saved, name)
	}
	return saved, nil
}
