package snippet

import (
	"testing"

	"github.com/leapstack-labs/sqlsnip/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(WithLogger(testutil.NewTestLogger(t)))
}

func TestSave_Get(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("first", "SELECT * FROM a", nil))

	frag, err := s.Get("first")
	require.NoError(t, err)
	assert.Equal(t, "first", frag.Name)
	assert.Equal(t, "SELECT * FROM a", frag.Body)
	assert.Empty(t, frag.Dependencies)

	body, err := s.Body("first")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM a", body)
}

func TestSave_OverwriteKeepsPosition(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", "SELECT 1", nil))
	require.NoError(t, s.Save("b", "SELECT 2", nil))
	require.NoError(t, s.Save("a", "SELECT 3", nil))

	assert.Equal(t, []string{"a", "b"}, s.Names())
	body, err := s.Body("a")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 3", body)
	assert.Equal(t, 2, s.Len())
}

func TestSave_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		with    []string
		wantMsg string
	}{
		{
			name:    "hyphen in name",
			key:     "bad-name",
			wantMsg: "Using hyphens (-) in save argument isn't allowed. Please use underscores (_) instead",
		},
		{
			name:    "hyphen in with",
			key:     "ok",
			with:    []string{"bad-name", "other"},
			wantMsg: "Using hyphens is not allowed. Please use bad_name, other instead for the with argument.",
		},
		{
			name:    "self reference",
			key:     "loop",
			with:    []string{"loop"},
			wantMsg: "Script name ('loop') cannot appear in with_ argument",
		},
		{
			name:    "empty name",
			key:     "",
			wantMsg: "Snippet name cannot be empty",
		},
		{
			name:    "parent directory",
			key:     "../escaped",
			wantMsg: "Snippet name ('../escaped') cannot contain path separators or '..'",
		},
		{
			name:    "slash",
			key:     "sub/x",
			wantMsg: "Snippet name ('sub/x') cannot contain path separators or '..'",
		},
		{
			name:    "backslash",
			key:     `sub\x`,
			wantMsg: `Snippet name ('sub\x') cannot contain path separators or '..'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			err := s.Save(tt.key, "SELECT 1", tt.with)
			require.Error(t, err)
			assert.True(t, IsUsage(err))
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, 0, s.Len(), "failed save must not modify the store")
		})
	}
}

func TestSave_RejectsCycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", "SELECT * FROM c", []string{"c"}))
	require.NoError(t, s.Save("b", "SELECT * FROM a", []string{"a"}))

	err := s.Save("c", "SELECT * FROM b", []string{"b"})
	var cycle *CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"c", "b", "a", "c"}, cycle.Path)
	assert.True(t, IsUsage(err))
	assert.False(t, s.Has("c"))

	// overwriting with a cycle keeps the old fragment
	require.NoError(t, s.Save("c", "SELECT 1", nil))
	err = s.Save("c", "SELECT * FROM b", []string{"b"})
	require.ErrorAs(t, err, &cycle)
	body, err := s.Body("c")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", body)
}

func TestGet_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		stored  []string
		key     string
		wantMsg string
	}{
		{
			name:    "no close match",
			stored:  []string{"first"},
			key:     "second",
			wantMsg: `"second" is not a valid snippet identifier. Valid identifiers are "first".`,
		},
		{
			name:    "close match",
			stored:  []string{"first"},
			key:     "firs",
			wantMsg: `"firs" is not a valid snippet identifier. Did you mean "first"?`,
		},
		{
			name:    "several valid identifiers",
			stored:  []string{"first", "first2"},
			key:     "second",
			wantMsg: `"second" is not a valid snippet identifier. Valid identifiers are "first", "first2".`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			for _, name := range tt.stored {
				require.NoError(t, s.Save(name, "SELECT * FROM a", nil))
			}

			_, err := s.Get(tt.key)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.True(t, IsUsage(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", "SELECT 1", nil))
	require.NoError(t, s.Save("b", "SELECT * FROM a", []string{"a"}))

	frag, err := s.Get("b")
	require.NoError(t, err)
	frag.Dependencies[0] = "mutated"

	again, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Dependencies)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", "SELECT 1", nil))
	require.NoError(t, s.Save("b", "SELECT 2", nil))

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, []string{"b"}, s.Names())
	assert.False(t, s.Has("a"))
}

func TestInferDependencies(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("high_price", "SELECT * FROM orders WHERE price > 10", nil))
	require.NoError(t, s.Save("low_price", "SELECT * FROM orders WHERE price < 10", nil))

	tests := []struct {
		name string
		body string
		key  string
		want []string
	}{
		{"single", "SELECT * FROM high_price", "x", []string{"high_price"}},
		{"join order", "SELECT * FROM low_price JOIN high_price USING (id)", "x", []string{"low_price", "high_price"}},
		{"excludes own name", "SELECT * FROM high_price", "high_price", nil},
		{"ignores unknown tables", "SELECT * FROM orders", "x", nil},
		{"empty body", "", "x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.InferDependencies(tt.body, tt.key))
		})
	}
}

func TestInferDependencies_CustomExtractor(t *testing.T) {
	s := NewStore(WithTableExtractor(func(string) []string { return []string{"a", "a", "b"} }))
	require.NoError(t, s.Save("a", "SELECT 1", nil))

	assert.Equal(t, []string{"a"}, s.InferDependencies("anything", "x"))
}
