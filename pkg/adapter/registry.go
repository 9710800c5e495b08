package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Factory creates an unconnected adapter. A nil logger discards output.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// aliases maps every accepted type name, canonical ones included, to
	// its canonical name.
	aliases = make(map[string]string)
)

// Register adds an adapter factory under name and any aliases. Names are
// case-insensitive. Adapter packages call it from init.
func Register(name string, factory Factory, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name = normalize(name)
	factories[name] = factory
	aliases[name] = name
	for _, a := range alias {
		aliases[normalize(a)] = name
	}
}

// Canonical returns the registered name for a type name or alias.
func Canonical(name string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	canonical, ok := aliases[normalize(name)]
	return canonical, ok
}

// Get retrieves an adapter factory by name or alias.
func Get(name string) (Factory, bool) {
	canonical, ok := Canonical(name)
	if !ok {
		return nil, false
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	return factories[canonical], true
}

// NewAdapter creates an unconnected adapter for cfg.Type.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if strings.TrimSpace(cfg.Type) == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the canonical adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether name or an alias of it is registered.
func IsRegistered(name string) bool {
	_, ok := Canonical(name)
	return ok
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UnknownAdapterError is returned for a target type no adapter handles.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %s\nHint: Check target.type in sqlsnip.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
