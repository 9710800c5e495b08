package snippetfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/leapstack-labs/sqlsnip/internal/dag"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

// Ext is the extension of snippet files.
const Ext = ".sql"

// Dir persists snippets as one file per snippet in a directory.
type Dir struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

// NewDir returns a Dir rooted at path on fsys. The directory is created
// on first write.
func NewDir(fsys afero.Fs, path string, logger *slog.Logger) *Dir {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dir{fs: fsys, path: path, logger: logger}
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.path
}

// Name returns the snippet name for a file path, and false when the path
// is not a snippet file of this directory.
func (d *Dir) Name(path string) (string, bool) {
	if filepath.Ext(path) != Ext || filepath.Clean(filepath.Dir(path)) != filepath.Clean(d.path) {
		return "", false
	}
	return strings.TrimSuffix(filepath.Base(path), Ext), true
}

// Path returns the file path for a snippet name.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.path, name+Ext)
}

// Save writes the named snippet, with its resolved dependencies in the
// preamble.
func (d *Dir) Save(ctx context.Context, store *snippet.Store, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frag, err := store.Get(name)
	if err != nil {
		return err
	}

	names, err := store.TransitiveDependencies(name)
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies of %s: %w", name, err)
	}
	deps := make([]Dependency, 0, len(names))
	for _, n := range names {
		body, err := store.Body(n)
		if err != nil {
			return err
		}
		deps = append(deps, Dependency{Name: n, Body: body})
	}

	if err := d.fs.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create snippets directory: %w", err)
	}
	path := d.Path(name)
	if err := afero.WriteFile(d.fs, path, []byte(Serialize(frag.Body, deps)), 0o644); err != nil {
		return fmt.Errorf("failed to write snippet file: %w", err)
	}

	d.logger.Debug("snippet file written", "name", name, "path", path)
	return nil
}

// Remove deletes the files of the given snippets. Missing files are
// ignored.
func (d *Dir) Remove(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.fs.Remove(d.Path(name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove snippet file: %w", err)
		}
	}
	return nil
}

// Read parses the file of a single snippet.
func (d *Dir) Read(name string) (*Document, error) {
	path := d.Path(name)
	content, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snippet file: %w", err)
	}
	doc, err := Parse(string(content))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return doc, nil
}

// List returns the snippet names with a file in the directory, sorted.
func (d *Dir) List() ([]string, error) {
	exists, err := afero.DirExists(d.fs, d.path)
	if err != nil || !exists {
		return nil, err
	}
	matches, err := afero.Glob(d.fs, filepath.Join(d.path, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("failed to list snippet files: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), Ext))
	}
	sort.Strings(names)
	return names, nil
}

// LoadInto stores every snippet file of the directory into store,
// dependencies before dependents, and returns the loaded names in that
// order. A missing directory loads nothing.
func (d *Dir) LoadInto(ctx context.Context, store *snippet.Store) ([]string, error) {
	names, err := d.List()
	if err != nil {
		return nil, err
	}

	fragments := make([]snippet.Fragment, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := d.Read(name)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, snippet.Fragment{Name: name, Body: doc.Body, Dependencies: doc.Dependencies})
	}

	loaded, err := dag.SaveAll(store, fragments)
	if err != nil {
		return nil, err
	}
	if len(loaded) > 0 {
		d.logger.Info("loaded snippets", "dir", d.path, "count", len(loaded))
	}
	return loaded, nil
}
