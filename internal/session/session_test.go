package session

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlsnip/internal/snippet"
	"github.com/leapstack-labs/sqlsnip/internal/snippetfile"
	"github.com/leapstack-labs/sqlsnip/internal/testutil"
	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
	sqliteadapter "github.com/leapstack-labs/sqlsnip/pkg/adapters/sqlite"
)

var ctx = context.Background()

func openSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.NewTestLogger(t)
	}
	s := New(opts)
	require.NoError(t, s.Open(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// failingBackend fails every write.
type failingBackend struct{}

func (failingBackend) LoadInto(context.Context, *snippet.Store) ([]string, error) { return nil, nil }
func (failingBackend) Save(context.Context, *snippet.Store, string) error {
	return errors.New("disk full")
}
func (failingBackend) Remove(context.Context, ...string) error { return nil }

// removeFailingBackend records saves and fails every removal.
type removeFailingBackend struct {
	saved []string
}

func (*removeFailingBackend) LoadInto(context.Context, *snippet.Store) ([]string, error) {
	return nil, nil
}
func (b *removeFailingBackend) Save(_ context.Context, _ *snippet.Store, name string) error {
	b.saved = append(b.saved, name)
	return nil
}
func (*removeFailingBackend) Remove(context.Context, ...string) error {
	return errors.New("permission denied")
}

// closeRecorder is a working adapter that records Close.
type closeRecorder struct {
	*sqliteadapter.Adapter
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.Adapter.Close()
}

// brokenAdapter cannot connect.
type brokenAdapter struct {
	adapter.BaseSQLAdapter
	closed bool
}

func (*brokenAdapter) Connect(context.Context, adapter.Config) error {
	return errors.New("connection refused")
}
func (*brokenAdapter) DialectName() string { return "postgres" }
func (b *brokenAdapter) Close() error {
	b.closed = true
	return nil
}

func TestNew_AssignsID(t *testing.T) {
	a := New(Options{})
	b := New(Options{})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestOpen_LoadsBackend(t *testing.T) {
	fsys := testutil.MemFs(t, map[string]string{
		"snippets/first.sql":  snippetfile.Serialize("SELECT * FROM a", nil),
		"snippets/second.sql": snippetfile.Serialize("SELECT * FROM first", []snippetfile.Dependency{{Name: "first", Body: "SELECT * FROM a"}}),
	})
	s := openSession(t, Options{Backend: snippetfile.NewDir(fsys, "snippets", nil)})

	assert.ElementsMatch(t, []string{"first", "second"}, s.Names())
	out, err := s.Render("SELECT * FROM second", []string{"second"})
	require.NoError(t, err)
	assert.Equal(t, "WITH first AS (SELECT * FROM a), second AS (SELECT * FROM first) SELECT * FROM second", out)
}

func TestOpen_UnknownDialect(t *testing.T) {
	s := New(Options{Dialect: "cobol"})
	err := s.Open(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cobol")
}

func TestOpen_UnknownDialectClosesAdapter(t *testing.T) {
	a := &closeRecorder{Adapter: sqliteadapter.New(nil)}
	s := New(Options{Adapter: a, Dialect: "cobol"})

	err := s.Open(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cobol")
	assert.True(t, a.closed)
}

func TestSave_InfersDependencies(t *testing.T) {
	s := openSession(t, Options{})

	res, err := s.Save(ctx, "high_price", "SELECT * FROM prices WHERE price > 10", nil, true)
	require.NoError(t, err)
	assert.False(t, res.Inferred)

	res, err = s.Save(ctx, "top", "SELECT * FROM high_price LIMIT 1", nil, true)
	require.NoError(t, err)
	assert.True(t, res.Inferred)
	assert.Equal(t, []string{"high_price"}, res.With)

	res, err = s.Save(ctx, "raw", "SELECT * FROM high_price", nil, false)
	require.NoError(t, err)
	assert.Empty(t, res.With)

	res, err = s.Save(ctx, "explicit", "SELECT * FROM high_price", []string{}, true)
	require.NoError(t, err)
	assert.Empty(t, res.With)
	assert.False(t, res.Inferred)
}

func TestSave_Persists(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := snippetfile.NewDir(fsys, "snippets", nil)
	s := openSession(t, Options{Backend: dir})

	_, err := s.Save(ctx, "first", "SELECT 1", nil, true)
	require.NoError(t, err)

	doc, err := dir.Read("first")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", doc.Body)
}

func TestSave_RollsBackOnPersistFailure(t *testing.T) {
	backend := &failingBackend{}
	s := openSession(t, Options{})
	_, err := s.Save(ctx, "kept", "SELECT 1", nil, false)
	require.NoError(t, err)
	s.backend = backend

	_, err = s.Save(ctx, "fresh", "SELECT 2", nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []string{"kept"}, s.Names())

	_, err = s.Save(ctx, "kept", "SELECT 3", nil, false)
	require.Error(t, err)
	f, err := s.Get("kept")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", f.Body)
}

func TestSave_UsageErrorStoresNothing(t *testing.T) {
	s := openSession(t, Options{})
	_, err := s.Save(ctx, "bad-name", "SELECT 1", nil, false)
	require.Error(t, err)
	assert.True(t, snippet.IsUsage(err))
	assert.Empty(t, s.Names())
}

func TestSave_RejectsPathNames(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := openSession(t, Options{Backend: snippetfile.NewDir(fsys, "/proj/snippets", nil)})

	for _, name := range []string{"../escaped", "sub/x", ""} {
		_, err := s.Save(ctx, name, "SELECT 1", nil, false)
		require.Error(t, err, "name %q", name)
		assert.True(t, snippet.IsUsage(err))
	}

	exists, err := afero.Exists(fsys, "/proj/escaped.sql")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, s.Names())
}

func TestRender_DialectQuoting(t *testing.T) {
	s := openSession(t, Options{Dialect: "bigquery"})
	_, err := s.Save(ctx, "first", "SELECT 1", nil, false)
	require.NoError(t, err)

	out, err := s.Render("SELECT * FROM first", []string{"first"})
	require.NoError(t, err)
	assert.Equal(t, "WITH `first` AS (SELECT 1) SELECT * FROM first", out)
}

func TestDelete_RemovesFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := snippetfile.NewDir(fsys, "snippets", nil)
	s := openSession(t, Options{Backend: dir})

	_, err := s.Save(ctx, "a", "SELECT 1", nil, false)
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", "SELECT * FROM a", []string{"a"}, false)
	require.NoError(t, err)

	_, err = s.Delete(ctx, "a", snippet.DeleteRefuse)
	var depErr *snippet.DependentsError
	require.ErrorAs(t, err, &depErr)

	res, err := s.Delete(ctx, "a", snippet.DeleteCascade)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, res.Deleted)

	names, err := dir.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDelete_RestoresOnRemoveFailure(t *testing.T) {
	backend := &removeFailingBackend{}
	s := openSession(t, Options{Backend: backend})
	_, err := s.Save(ctx, "a", "SELECT 1", nil, false)
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", "SELECT * FROM a", []string{"a"}, false)
	require.NoError(t, err)
	backend.saved = nil

	res, err := s.Delete(ctx, "a", snippet.DeleteCascade)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "permission denied")

	assert.Equal(t, []string{"a", "b"}, s.Names())
	out, err := s.Render("SELECT * FROM b", []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, "WITH a AS (SELECT 1), b AS (SELECT * FROM a) SELECT * FROM b", out)
	assert.ElementsMatch(t, []string{"a", "b"}, backend.saved)
}

func TestGraph(t *testing.T) {
	s := openSession(t, Options{})
	_, err := s.Save(ctx, "a", "SELECT 1", nil, false)
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", "SELECT * FROM a", []string{"a", "ghost"}, false)
	require.NoError(t, err)

	g := s.Graph()
	assert.Equal(t, []string{"ghost"}, g.Missing())
	assert.Equal(t, []string{"a", "ghost"}, g.Dependencies("b"))
}

func TestRun(t *testing.T) {
	s := openSession(t, Options{
		Adapter:  sqliteadapter.New(testutil.NewTestLogger(t)),
		RowLimit: 2,
	})
	require.NoError(t, s.Exec(ctx, "CREATE TABLE prices (item TEXT, price INTEGER)", nil))
	require.NoError(t, s.Exec(ctx, "INSERT INTO prices VALUES ('a', 5), ('b', 20), ('c', 30), ('d', 40)", nil))

	_, err := s.Save(ctx, "high_price", "SELECT * FROM prices WHERE price > 10", nil, true)
	require.NoError(t, err)

	res, err := s.Run(ctx, "SELECT item FROM high_price ORDER BY item", []string{"high_price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item"}, res.Columns)
	assert.Equal(t, [][]any{{"b"}, {"c"}}, res.Rows)
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Query, "WITH `high_price` AS")
}

func TestRun_MissingTableHint(t *testing.T) {
	s := openSession(t, Options{Adapter: sqliteadapter.New(nil)})
	_, err := s.Save(ctx, "high_price", "SELECT 1 AS price", nil, false)
	require.NoError(t, err)

	_, err = s.Run(ctx, "SELECT * FROM high_prize", nil)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "SELECT * FROM high_prize", qe.Query)
	assert.Contains(t, qe.Hint, snippet.WithHint)
	assert.Contains(t, qe.Hint, "There is no table with name 'high_prize'.")
	assert.Contains(t, err.Error(), driverErrorHeader)
}

func TestRun_NoConnection(t *testing.T) {
	s := openSession(t, Options{})
	_, err := s.Run(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestQueryError_WithoutHint(t *testing.T) {
	err := &QueryError{Err: errors.New("boom")}
	assert.Equal(t, "boom", err.Error())
}

func TestOpen_ConnectFailureClosesAdapter(t *testing.T) {
	broken := &brokenAdapter{}
	s := New(Options{Adapter: broken})

	err := s.Open(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect: connection refused")
	assert.True(t, broken.closed)
}

func TestCompose(t *testing.T) {
	s := openSession(t, Options{})
	_, err := s.Save(ctx, "a", "SELECT 1 AS x", nil, false)
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", "SELECT x FROM a", nil, true)
	require.NoError(t, err)

	out, err := s.Compose("b")
	require.NoError(t, err)
	assert.Equal(t, "WITH a AS (SELECT 1 AS x) SELECT x FROM a", out)

	_, err = s.Compose("nope")
	assert.ErrorIs(t, err, snippet.ErrNotFound)
}

func TestInferDependencies(t *testing.T) {
	s := openSession(t, Options{})
	_, err := s.Save(ctx, "a", "SELECT 1 AS x", nil, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, s.InferDependencies("SELECT * FROM a JOIN other ON true"))
	assert.Empty(t, s.InferDependencies("SELECT 1"))
}
