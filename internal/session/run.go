package session

import (
	"context"

	"github.com/leapstack-labs/sqlsnip/pkg/adapter"
)

// driverErrorHeader introduces the raw error text under a hint.
const driverErrorHeader = "Original error message from DB driver:"

// QueryError is returned when the database rejects a composed query.
type QueryError struct {
	// Query is the composed query that was sent.
	Query string
	// Hint explains the failure in terms of snippets; may be empty.
	Hint string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Hint + "\n\n" + driverErrorHeader + "\n" + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// RunResult is the outcome of Run.
type RunResult struct {
	// Query is the composed query that was executed.
	Query string
	*adapter.Result
}

// Run renders query with its with-list and executes it.
func (s *Session) Run(ctx context.Context, query string, with []string) (*RunResult, error) {
	if s.adapter == nil {
		return nil, ErrNoConnection
	}

	rendered, err := s.Render(query, with)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("running query", "query", rendered)
	res, err := adapter.QueryAll(ctx, s.adapter, rendered, s.rowLimit)
	if err != nil {
		s.mu.Lock()
		hint := s.store.MissingTableHint(query, err)
		s.mu.Unlock()
		return nil, &QueryError{Query: rendered, Hint: hint, Err: err}
	}
	return &RunResult{Query: rendered, Result: res}, nil
}

// Exec renders query and executes it without reading rows.
func (s *Session) Exec(ctx context.Context, query string, with []string) error {
	if s.adapter == nil {
		return ErrNoConnection
	}
	rendered, err := s.Render(query, with)
	if err != nil {
		return err
	}
	if err := s.adapter.Exec(ctx, rendered); err != nil {
		s.mu.Lock()
		hint := s.store.MissingTableHint(query, err)
		s.mu.Unlock()
		return &QueryError{Query: rendered, Hint: hint, Err: err}
	}
	return nil
}
