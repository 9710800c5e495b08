package snippet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("snippet not found")

// usageError is implemented by every error caused by an invalid request,
// as opposed to a broken store or an I/O failure.
type usageError interface {
	error
	usage()
}

// IsUsage reports whether err (or anything it wraps) is a usage error:
// the caller asked for something invalid and can fix the request.
func IsUsage(err error) bool {
	var u usageError
	return errors.As(err, &u)
}

// UsageError reports an invalid name or argument.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }
func (*UsageError) usage()          {}

// NotFoundError is returned when a snippet name is not in the store.
type NotFoundError struct {
	Name string
	// Suggestions holds close matches, best first.
	Suggestions []string
	// Valid lists every stored name; used when nothing is close.
	Valid []string

	deleting bool
}

func (e *NotFoundError) Error() string {
	if e.deleting {
		return "No such saved snippet found : " + e.Name
	}
	msg := fmt.Sprintf("%q is not a valid snippet identifier.", e.Name)
	if len(e.Suggestions) > 0 {
		return msg + fmt.Sprintf(" Did you mean %q?", e.Suggestions[0])
	}
	return msg + " Valid identifiers are " + quoteList(e.Valid) + "."
}

func (*NotFoundError) usage()        {}
func (*NotFoundError) Unwrap() error { return ErrNotFound }

// DependentsError is returned by a plain delete of a snippet other
// snippets depend on.
type DependentsError struct {
	Name       string
	Dependents []string
}

func (e *DependentsError) Error() string {
	deps := strings.Join(e.Dependents, ", ")
	return fmt.Sprintf("The following tables are dependent on %s: %s.\n"+
		"Pass --force to only delete %s.\n"+
		"Pass --force-all to delete %s and %s",
		e.Name, deps, e.Name, deps, e.Name)
}

func (*DependentsError) usage() {}

// CircularDependencyError is returned when following dependencies leads
// back to a snippet already being expanded.
type CircularDependencyError struct {
	// Path starts and ends with the same name.
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected: " + strings.Join(e.Path, " -> ")
}

func (*CircularDependencyError) usage() {}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
