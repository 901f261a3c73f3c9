package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIDErrorMatchesSentinel(t *testing.T) {
	err := WithIDs(ErrInvalidRole, "not an active contributor", "a1", "a2")
	wrapped := fmt.Errorf("set members: %w", err)

	if !errors.Is(wrapped, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", wrapped)
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatal("did not expect ErrNotFound")
	}
	ids := IDs(wrapped)
	if len(ids) != 2 || ids[0] != "a1" || ids[1] != "a2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if got, want := err.Error(), "invalid role: not an active contributor: a1, a2"; got != want {
		t.Fatalf("Error()=%q, want %q", got, want)
	}
}

func TestIDsOnPlainError(t *testing.T) {
	if ids := IDs(fmt.Errorf("%w: email taken", ErrConflict)); ids != nil {
		t.Fatalf("expected no ids, got %v", ids)
	}
}
