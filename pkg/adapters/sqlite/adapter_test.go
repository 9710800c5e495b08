package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlsnip/internal/testutil"
	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
)

func TestAdapter_InMemory(t *testing.T) {
	ctx := context.Background()
	a, err := adapter.NewAdapter(adapter.Config{Type: "sqlite"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx, adapter.Config{Type: "sqlite"}))
	defer a.Close()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE t (id INTEGER, name TEXT)"))
	require.NoError(t, a.Exec(ctx, "INSERT INTO t VALUES (1, 'a'), (2, 'b'), (3, 'c')"))

	res, err := adapter.QueryAll(ctx, a, "WITH `first_two` AS (SELECT * FROM t WHERE id < 3) SELECT name FROM first_two ORDER BY id", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Columns)
	assert.Equal(t, [][]any{{"a"}}, res.Rows)
	assert.True(t, res.Truncated)
}

func TestAdapter_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.db")

	a := New(nil)
	require.NoError(t, a.Connect(ctx, adapter.Config{Path: path}))
	require.NoError(t, a.Exec(ctx, "CREATE TABLE t (x INTEGER)"))
	require.NoError(t, a.Close())

	b := New(nil)
	require.NoError(t, b.Connect(ctx, adapter.Config{Path: path}))
	defer b.Close()
	res, err := adapter.QueryAll(ctx, b, "SELECT COUNT(*) AS n FROM t", 0)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(0)}}, res.Rows)
}

func TestAdapter_MissingTableError(t *testing.T) {
	ctx := context.Background()
	a := New(nil)
	require.NoError(t, a.Connect(ctx, adapter.Config{}))
	defer a.Close()

	_, err := a.Query(ctx, "SELECT * FROM nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}
