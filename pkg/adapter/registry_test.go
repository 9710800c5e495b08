package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	BaseSQLAdapter
}

func (*fakeAdapter) Connect(context.Context, Config) error { return nil }
func (*fakeAdapter) DialectName() string                   { return "fake" }

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "fake_db", Available: []string{"duckdb", "postgres"}}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db")
	assert.Contains(t, msg, "sqlsnip.yaml")
}

func TestRegistry(t *testing.T) {
	Register("Test_Adapter_Internal", func(l *slog.Logger) Adapter { return &fakeAdapter{BaseSQLAdapter: NewBase(l)} }, "tai")

	assert.True(t, IsRegistered("test_adapter_internal"))
	assert.True(t, IsRegistered(" TAI "))
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
	assert.NotContains(t, ListAdapters(), "tai")

	canonical, ok := Canonical("tai")
	require.True(t, ok)
	assert.Equal(t, "test_adapter_internal", canonical)

	factory, ok := Get("test_adapter_internal")
	require.True(t, ok)
	assert.Equal(t, "fake", factory(nil).DialectName())

	a, err := NewAdapter(Config{Type: "TAI"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fake", a.DialectName())
}

func TestNewAdapter_Errors(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())

	_, err = NewAdapter(Config{Type: "nonexistent"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent", unknown.Type)
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	b := NewBase(nil)
	ctx := context.Background()

	assert.False(t, b.IsConnected())
	assert.ErrorIs(t, b.Exec(ctx, "SELECT 1"), ErrNotConnected)
	_, err := b.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, b.Close())
}

func TestCollect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("a")).
			AddRow(int64(2), "b").
			AddRow(int64(3), "c"),
	)

	a := &fakeAdapter{BaseSQLAdapter: BaseSQLAdapter{DB: db, Logger: NewBase(nil).Logger}}
	res, err := QueryAll(context.Background(), a, "SELECT id, name FROM t", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), "b"}}, res.Rows)
	assert.True(t, res.Truncated)
}

func TestQueryAll_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	a := &fakeAdapter{BaseSQLAdapter: BaseSQLAdapter{DB: db, Logger: NewBase(nil).Logger}}
	_, err = QueryAll(context.Background(), a, "SELECT 1", 0)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
