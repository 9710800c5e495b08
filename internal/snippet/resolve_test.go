package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain stores first <- second <- third.
func chain(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.Save("first", "SELECT * FROM a WHERE x > 10", nil))
	require.NoError(t, s.Save("second", "SELECT * FROM first WHERE x > 20", []string{"first"}))
	require.NoError(t, s.Save("third", "SELECT * FROM second WHERE x > 30", []string{"second", "first"}))
	return s
}

func TestResolve_Chain(t *testing.T) {
	s := chain(t)

	tests := []struct {
		name string
		with []string
		want []string
	}{
		{"leaf only", []string{"first"}, []string{"first"}},
		{"middle", []string{"second"}, []string{"first", "second"}},
		{"top", []string{"third"}, []string{"first", "second", "third"}},
		{"top and leaf", []string{"third", "first"}, []string{"first", "second", "third"}},
		{"leaf and top", []string{"first", "third"}, []string{"first", "second", "third"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Resolve(tt.with)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_ExplicitOrderPreserved(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("first_a", "SELECT 1", nil))
	require.NoError(t, s.Save("second_a", "SELECT * FROM first_a", []string{"first_a"}))
	require.NoError(t, s.Save("third_a", "SELECT * FROM second_a", []string{"second_a"}))
	require.NoError(t, s.Save("first_b", "SELECT 2", nil))

	got, err := s.Resolve([]string{"third_a", "first_b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first_a", "second_a", "third_a", "first_b"}, got)

	got, err = s.Resolve([]string{"first_b", "third_a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first_a", "second_a", "first_b", "third_a"}, got)
}

func TestResolve_DependenciesBeforeDirectList(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", "SELECT 1", nil))
	require.NoError(t, s.Save("b", "SELECT 2", nil))
	require.NoError(t, s.Save("x", "SELECT * FROM a", []string{"a"}))
	require.NoError(t, s.Save("y", "SELECT * FROM b", []string{"b"}))
	require.NoError(t, s.Save("top", "SELECT * FROM x, y", []string{"x", "y"}))

	got, err := s.TransitiveDependencies("top")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "x", "y"}, got)
}

func TestResolve_Errors(t *testing.T) {
	s := chain(t)

	_, err := s.Resolve([]string{"thrd"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"third"}, nf.Suggestions)

	_, err = s.Resolve([]string{"first-"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Using hyphens is not allowed.")
}

func TestResolve_DanglingDependency(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("b", "SELECT * FROM missing", []string{"missing"}))

	_, err := s.Resolve([]string{"b"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitiveDependencies(t *testing.T) {
	s := chain(t)

	got, err := s.TransitiveDependencies("third")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)

	got, err = s.TransitiveDependencies("first")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.TransitiveDependencies("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitiveDependencies_CycleInjected(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", "SELECT 1", nil))
	require.NoError(t, s.Save("b", "SELECT * FROM a", []string{"a"}))
	// bypass Save validation to simulate a corrupted store
	s.fragments["a"].Dependencies = []string{"b"}

	_, err := s.TransitiveDependencies("a")
	var cycle *CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
	assert.Equal(t, "circular dependency detected: a -> b -> a", cycle.Error())
}

func TestDependents(t *testing.T) {
	s := chain(t)
	require.NoError(t, s.Save("other", "SELECT 1", nil))

	got, err := s.Dependents("first")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, got)

	got, err = s.Dependents("third")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Dependents("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDependents_ToleratesDangling(t *testing.T) {
	s := chain(t)
	s.Remove("first")

	got, err := s.Dependents("second")
	require.NoError(t, err)
	assert.Equal(t, []string{"third"}, got)
}
