// Package state persists snippets in a SQLite database.
//
// It is the alternative to one-file-per-snippet persistence for users who
// prefer a single state file. The schema is managed with goose migrations
// embedded in the binary.
package state

import (
	"errors"
	"time"

	"github.com/leapstack-labs/sqlsnip/internal/snippet"
)

// ErrNotOpened is returned when the database has not been opened.
var ErrNotOpened = errors.New("database not opened")

// ErrSnippetNotFound is returned when a snippet row does not exist.
var ErrSnippetNotFound = errors.New("snippet not found in state database")

// Snippet is a persisted snippet.
type Snippet struct {
	snippet.Fragment
	CreatedAt time.Time
	UpdatedAt time.Time
}
