// Package apperr defines the error taxonomy shared by the directory, squad,
// sales and messaging services. Callers match with errors.Is against the
// sentinels; offending identifiers travel in an *IDError.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// IDError is a taxonomy error that names the entities that caused it.
type IDError struct {
	Kind error
	Msg  string
	IDs  []string
}

func (e *IDError) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, strings.Join(e.IDs, ", "))
}

func (e *IDError) Unwrap() error { return e.Kind }

// WithIDs builds an *IDError of the given kind.
func WithIDs(kind error, msg string, ids ...string) error {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return &IDError{Kind: kind, Msg: msg, IDs: cp}
}

// IDs returns the offending identifiers carried by err, if any.
func IDs(err error) []string {
	var idErr *IDError
	if errors.As(err, &idErr) {
		return idErr.IDs
	}
	return nil
}
