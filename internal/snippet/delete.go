package snippet

import (
	"fmt"
	"strings"
)

// DeleteMode selects how Delete treats dependents.
type DeleteMode int

const (
	// DeleteRefuse fails when other snippets depend on the target.
	DeleteRefuse DeleteMode = iota
	// DeleteForce removes only the target, leaving dependents dangling.
	DeleteForce
	// DeleteCascade removes the target and all of its dependents.
	DeleteCascade
)

func (m DeleteMode) String() string {
	switch m {
	case DeleteRefuse:
		return "refuse"
	case DeleteForce:
		return "force"
	case DeleteCascade:
		return "cascade"
	default:
		return fmt.Sprintf("DeleteMode(%d)", int(m))
	}
}

// DeleteResult reports what a Delete removed.
type DeleteResult struct {
	Name string
	// Deleted lists removed names: dependents first, then Name.
	Deleted []string
	// Dependents that still reference Name after a forced delete.
	Dependents []string
}

// Message is the user-facing summary of the deletion.
func (r *DeleteResult) Message() string {
	msg := strings.Join(r.Deleted, ", ") + " has been deleted."
	if len(r.Dependents) > 0 {
		msg += "\n" + strings.Join(r.Dependents, ", ") + " depend on " + r.Name
	}
	return msg
}

// Delete removes name according to mode. Nothing is removed when it fails.
func (s *Store) Delete(name string, mode DeleteMode) (*DeleteResult, error) {
	if !s.Has(name) {
		nf := s.notFound(name)
		nf.deleting = true
		return nil, nf
	}

	dependents := s.dependents(name)
	result := &DeleteResult{Name: name}

	switch mode {
	case DeleteRefuse:
		if len(dependents) > 0 {
			return nil, &DependentsError{Name: name, Dependents: dependents}
		}
		result.Deleted = []string{name}
	case DeleteForce:
		result.Deleted = []string{name}
		result.Dependents = dependents
	case DeleteCascade:
		result.Deleted = append(dependents, name)
	default:
		return nil, fmt.Errorf("unknown delete mode: %s", mode)
	}

	for _, n := range result.Deleted {
		s.Remove(n)
	}
	s.logger.Debug("snippets deleted", "name", name, "mode", mode.String(), "deleted", result.Deleted)
	return result, nil
}
