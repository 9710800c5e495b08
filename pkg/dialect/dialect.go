// Package dialect provides the identifier-quoting capabilities of the SQL
// backends sqlsnip can talk to.
//
// A dialect is selected once, when a connection is established, and then
// handed to the renderer as a capability. Nothing downstream inspects
// dialect names.
package dialect

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Dialect describes what a backend accepts when quoting identifiers.
type Dialect struct {
	Name string
	// Aliases are alternative names (driver names, URL schemes) that
	// resolve to this dialect.
	Aliases []string
	// BacktickIdentifiers is true when `name` is a valid quoted identifier.
	BacktickIdentifiers bool
	// DefaultSchema is the schema unqualified names resolve to.
	DefaultSchema string
}

// SupportsBacktick reports whether CTE names should be wrapped in backticks.
func (d *Dialect) SupportsBacktick() bool {
	return d != nil && d.BacktickIdentifiers
}

// QuoteIdentifier quotes name with the dialect's preferred quote character.
func (d *Dialect) QuoteIdentifier(name string) string {
	if d.SupportsBacktick() {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// ErrDialectRequired is returned when a dialect name is empty.
var ErrDialectRequired = errors.New("dialect is required")

// Register registers a dialect under its name and aliases.
// Called from init functions.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name)] = d
	for _, alias := range d.Aliases {
		dialects[strings.ToLower(alias)] = d
	}
}

// Get returns a dialect by name or alias.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Lookup is like Get but returns a descriptive error.
func Lookup(name string) (*Dialect, error) {
	if name == "" {
		return nil, ErrDialectRequired
	}
	if d, ok := Get(name); ok {
		return d, nil
	}
	return nil, &UnknownDialectError{Name: name, Available: List()}
}

// List returns all registered dialect names (sorted, aliases excluded).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	seen := make(map[string]struct{})
	names := make([]string, 0, len(dialects))
	for _, d := range dialects {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// UnknownDialectError is returned when a dialect name is not registered.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return "unknown dialect " + `"` + e.Name + `"` + "\nAvailable dialects: " + strings.Join(e.Available, ", ")
}
