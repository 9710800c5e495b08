package snippetfile

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlsnip/internal/dag"
	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

// BundleVersion is the current bundle format version.
const BundleVersion = 1

// Bundle is a portable YAML document holding many snippets.
type Bundle struct {
	Version  int             `yaml:"version"`
	Snippets []BundleSnippet `yaml:"snippets"`
}

// BundleSnippet is one snippet of a bundle.
type BundleSnippet struct {
	Name string   `yaml:"name"`
	With []string `yaml:"with,omitempty"`
	SQL  string   `yaml:"sql"`
}

// Export writes every snippet of store as a YAML bundle, in store order.
func Export(w io.Writer, store *snippet.Store) error {
	b := Bundle{Version: BundleVersion}
	for _, f := range store.Fragments() {
		b.Snippets = append(b.Snippets, BundleSnippet{Name: f.Name, With: f.Dependencies, SQL: f.Body})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML bundle and stores its snippets, dependencies first.
// It returns the imported names in the order they were stored.
func Import(r io.Reader, store *snippet.Store) ([]string, error) {
	var b Bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, &ParseError{Message: "invalid bundle", Err: err}
	}
	if b.Version > BundleVersion {
		return nil, &ParseError{Message: fmt.Sprintf("unsupported bundle version %d", b.Version)}
	}

	fragments := make([]snippet.Fragment, 0, len(b.Snippets))
	seen := make(map[string]bool, len(b.Snippets))
	for i, s := range b.Snippets {
		if s.Name == "" {
			return nil, &ParseError{Message: fmt.Sprintf("snippet %d has no name", i+1)}
		}
		if seen[s.Name] {
			return nil, &ParseError{Message: fmt.Sprintf("duplicate snippet %q", s.Name)}
		}
		seen[s.Name] = true
		fragments = append(fragments, snippet.Fragment{Name: s.Name, Body: s.SQL, Dependencies: s.With})
	}

	return dag.SaveAll(store, fragments)
}
