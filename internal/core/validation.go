package core

import (
	"sort"
	"strings"
)

// ValidationError collects field level messages. It serializes as
// {"field": ["message", ...]}.
type ValidationError map[string][]string

// NewFieldError returns a ValidationError holding a single message.
func NewFieldError(field, msg string) ValidationError {
	return ValidationError{field: {msg}}
}

func (v ValidationError) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Err returns nil when no message was recorded.
func (v ValidationError) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationError) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
