package session

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/sqlsnip/internal/snippetfile"
)

// ChangeFunc is called after the watcher applied a change from disk.
type ChangeFunc func(name string, removed bool, err error)

// Watch reloads snippets whose files in dir change on disk, until ctx is
// done or the session is closed. dir must live on the OS filesystem.
func (s *Session) Watch(ctx context.Context, dir *snippetfile.Dir, onChange ChangeFunc) error {
	if err := os.MkdirAll(dir.Root(), 0o755); err != nil {
		return fmt.Errorf("failed to create snippets directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir.Root()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir.Root(), err)
	}
	s.mu.Lock()
	s.closers = append(s.closers, watcher)
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = watcher.Close()
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.applyEvent(dir, ev, onChange)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("snippet watcher error", "error", werr)
			}
		}
	}()

	s.logger.Debug("watching snippets", "dir", dir.Root())
	return nil
}

func (s *Session) applyEvent(dir *snippetfile.Dir, ev fsnotify.Event, onChange ChangeFunc) {
	name, ok := dir.Name(ev.Name)
	if !ok {
		return
	}

	var (
		removed bool
		err     error
	)
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		removed = true
		s.mu.Lock()
		s.store.Remove(name)
		s.mu.Unlock()
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
		var doc *snippetfile.Document
		doc, err = dir.Read(name)
		if err == nil {
			s.mu.Lock()
			err = s.store.Save(name, doc.Body, doc.Dependencies)
			s.mu.Unlock()
		}
	default:
		return
	}

	if err != nil {
		s.logger.Warn("failed to reload snippet", "name", name, "error", err)
	} else {
		s.logger.Debug("snippet reloaded", "name", name, "removed", removed)
	}
	if onChange != nil {
		onChange(name, removed, err)
	}
}
