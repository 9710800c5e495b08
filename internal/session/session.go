// Package session owns the state of one interactive session: a snippet
// store, where snippets are persisted, and the database queries run on.
//
// A Session is safe for concurrent use; the file watcher mutates the store
// from its own goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlsnip/internal/dag"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
	"github.com/leapstack-labs/sqlsnip/pkg/dialect"
)

// ErrNoConnection is returned by Run when the session has no database.
var ErrNoConnection = errors.New("no database connection configured")

// Backend persists snippets across sessions.
type Backend interface {
	// LoadInto stores every persisted snippet into store.
	LoadInto(ctx context.Context, store *snippet.Store) ([]string, error)
	// Save persists the named snippet of store.
	Save(ctx context.Context, store *snippet.Store, name string) error
	// Remove deletes persisted snippets.
	Remove(ctx context.Context, names ...string) error
}

// Options configures a Session.
type Options struct {
	Logger *slog.Logger

	// Backend persists snippets. Nil keeps them in memory only.
	Backend Backend

	// Adapter runs queries. Nil disables Run. It is connected by Open.
	Adapter       adapter.Adapter
	AdapterConfig adapter.Config

	// Dialect overrides the dialect reported by the adapter.
	Dialect string

	// RowLimit caps the rows Run returns; zero means no limit.
	RowLimit int
}

// Session is one snippet session.
type Session struct {
	ID string

	mu       sync.Mutex
	store    *snippet.Store
	backend  Backend
	adapter  adapter.Adapter
	adCfg    adapter.Config
	dialect  *dialect.Dialect
	override string
	rowLimit int
	logger   *slog.Logger

	closers []io.Closer
}

// New creates a session. Call Open before use.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.NewString()
	logger = logger.With(slog.String("session", id))

	return &Session{
		ID:       id,
		store:    snippet.NewStore(snippet.WithLogger(logger)),
		backend:  opts.Backend,
		adapter:  opts.Adapter,
		adCfg:    opts.AdapterConfig,
		override: opts.Dialect,
		rowLimit: opts.RowLimit,
		logger:   logger,
	}
}

// Open connects the adapter and loads persisted snippets.
func (s *Session) Open(ctx context.Context) error {
	loaded := snippet.NewStore(snippet.WithLogger(s.logger))

	g, gctx := errgroup.WithContext(ctx)
	if s.adapter != nil {
		g.Go(func() error {
			if err := s.adapter.Connect(gctx, s.adCfg); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			return nil
		})
	}
	if s.backend != nil {
		g.Go(func() error {
			names, err := s.backend.LoadInto(gctx, loaded)
			if err != nil {
				return fmt.Errorf("failed to load snippets: %w", err)
			}
			if len(names) > 0 {
				s.logger.Info("snippets loaded", "count", len(names))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.adapter != nil {
			_ = s.adapter.Close()
		}
		return err
	}

	d, err := s.resolveDialect()
	if err != nil {
		if s.adapter != nil {
			_ = s.adapter.Close()
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range loaded.Fragments() {
		if err := s.store.Save(f.Name, f.Body, f.Dependencies); err != nil {
			return err
		}
	}
	s.dialect = d
	return nil
}

func (s *Session) resolveDialect() (*dialect.Dialect, error) {
	name := s.override
	if name == "" && s.adapter != nil {
		name = s.adapter.DialectName()
	}
	if name == "" {
		return nil, nil
	}
	return dialect.Lookup(name)
}

// Dialect returns the active dialect, or nil when none is configured.
func (s *Session) Dialect() *dialect.Dialect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialect
}

// SaveResult describes a completed save.
type SaveResult struct {
	Name string
	With []string
	// Inferred is set when With was inferred from the body.
	Inferred bool
}

// Save stores a snippet and persists it. When with is nil and infer is
// set, the dependencies are the stored snippets the body reads from.
// A failed save leaves both the store and the backend unchanged.
func (s *Session) Save(ctx context.Context, name, body string, with []string, infer bool) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &SaveResult{Name: name, With: with}
	if with == nil && infer {
		res.With = s.store.InferDependencies(body, name)
		res.Inferred = len(res.With) > 0
	}

	previous, _ := s.store.Get(name)
	if err := s.store.Save(name, body, res.With); err != nil {
		return nil, err
	}

	if s.backend != nil {
		if err := s.backend.Save(ctx, s.store, name); err != nil {
			s.restore(name, previous)
			return nil, fmt.Errorf("failed to persist snippet %s: %w", name, err)
		}
	}

	s.logger.Info("snippet saved", "name", name, "with", res.With, "inferred", res.Inferred)
	return res, nil
}

func (s *Session) restore(name string, previous *snippet.Fragment) {
	if previous == nil {
		s.store.Remove(name)
		return
	}
	_ = s.store.Save(previous.Name, previous.Body, previous.Dependencies)
}

// reset replaces the store content with fragments, keeping their order.
// Callers hold s.mu.
func (s *Session) reset(fragments []snippet.Fragment) {
	store := snippet.NewStore(snippet.WithLogger(s.logger))
	for _, f := range fragments {
		if err := store.Save(f.Name, f.Body, f.Dependencies); err != nil {
			s.logger.Warn("failed to restore snippet", "name", f.Name, "error", err)
		}
	}
	s.store = store
}

// Render composes query with the CTEs its with-list needs.
func (s *Session) Render(query string, with []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Render(query, with, s.caps())
}

// Compose renders the named snippet's own body with its dependencies.
func (s *Session) Compose(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.store.Get(name)
	if err != nil {
		return "", err
	}
	return s.store.Render(f.Body, f.Dependencies, s.caps())
}

// InferDependencies returns the stored snippets query reads from.
func (s *Session) InferDependencies(query string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.InferDependencies(query, "")
}

// caps returns the renderer capabilities. Callers hold s.mu.
func (s *Session) caps() snippet.Capabilities {
	if s.dialect == nil {
		return nil
	}
	return s.dialect
}

// Delete removes a snippet according to mode and deletes the persisted
// copies of everything removed.
func (s *Session) Delete(ctx context.Context, name string, mode snippet.DeleteMode) (*snippet.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.store.Fragments()
	res, err := s.store.Delete(name, mode)
	if err != nil {
		return nil, err
	}
	if s.backend != nil {
		if err := s.backend.Remove(ctx, res.Deleted...); err != nil {
			s.reset(snapshot)
			for _, n := range res.Deleted {
				if perr := s.backend.Save(ctx, s.store, n); perr != nil {
					s.logger.Warn("failed to restore persisted snippet", "name", n, "error", perr)
				}
			}
			return nil, fmt.Errorf("failed to remove persisted snippets: %w", err)
		}
	}
	s.logger.Info("snippets deleted", "deleted", res.Deleted, "mode", mode.String())
	return res, nil
}

// Get returns a copy of the named snippet.
func (s *Session) Get(name string) (*snippet.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(name)
}

// Names returns the stored snippet names in insertion order.
func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Names()
}

// Fragments returns copies of every stored snippet.
func (s *Session) Fragments() []snippet.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Fragments()
}

// Dependents returns the snippets that depend on name.
func (s *Session) Dependents(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Dependents(name)
}

// Resolve returns the ordered CTE list for with.
func (s *Session) Resolve(with []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Resolve(with)
}

// Graph returns the dependency graph of the stored snippets.
func (s *Session) Graph() *dag.Graph {
	return dag.FromFragments(s.Fragments())
}

// WithStore runs fn with exclusive access to the store. Used for bulk
// operations such as import and export.
func (s *Session) WithStore(fn func(*snippet.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Persist writes the named snippets through the backend.
func (s *Session) Persist(ctx context.Context, names ...string) error {
	if s.backend == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if err := s.backend.Save(ctx, s.store, name); err != nil {
			return fmt.Errorf("failed to persist snippet %s: %w", name, err)
		}
	}
	return nil
}

// Close stops the watcher and closes the adapter and backend when they
// hold resources.
func (s *Session) Close() error {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i].Close())
	}
	if s.adapter != nil {
		errs = append(errs, s.adapter.Close())
	}
	if c, ok := s.backend.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
