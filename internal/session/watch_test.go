package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlsnip/internal/snippetfile"
)

func TestWatch_ReloadsChangedFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "snippets")
	dir := snippetfile.NewDir(afero.NewOsFs(), root, nil)
	s := openSession(t, Options{Backend: dir})

	var (
		mu      sync.Mutex
		changes []string
	)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, s.Watch(watchCtx, dir, func(name string, removed bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			changes = append(changes, name)
		}
	}))

	content := snippetfile.Serialize("SELECT 42 AS answer", nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "answer.sql"), []byte(content), 0o644))

	require.Eventually(t, func() bool {
		f, err := s.Get("answer")
		return err == nil && f.Body == "SELECT 42 AS answer"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "answer.sql")))
	require.Eventually(t, func() bool {
		_, err := s.Get("answer")
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, changes, "answer")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	dir := snippetfile.NewDir(afero.NewOsFs(), root, nil)

	name, ok := dir.Name(filepath.Join(root, "notes.txt"))
	assert.False(t, ok)
	assert.Empty(t, name)

	_, ok = dir.Name(filepath.Join(root, "nested", "x.sql"))
	assert.False(t, ok)

	name, ok = dir.Name(filepath.Join(root, "x.sql"))
	assert.True(t, ok)
	assert.Equal(t, "x", name)
}
