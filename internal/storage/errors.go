package storage

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("unique constraint violated")
	ErrForeignKey     = errors.New("foreign key constraint violated")
	ErrCheckViolation = errors.New("check constraint violated")
	ErrCategoryInUse  = errors.New("category is referenced by expenses")
)

// wrap classifies err with the repository dialect and annotates it with op.
// The driver error stays reachable through errors.As.
func (r *Repository) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if sentinel := r.dialect.classify(err); sentinel != nil {
		return &Error{Op: op, Kind: sentinel, Err: err}
	}
	return &Error{Op: op, Err: err}
}

// Error is returned by every repository method that fails.
type Error struct {
	Op   string
	Kind error // one of the sentinels above, nil for unclassified failures
	Err  error
}

func (e *Error) Error() string {
	if e.Kind != nil {
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Kind != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Err}
}
