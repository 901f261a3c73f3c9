// Package org holds the directory of accounts, the squad registry and the
// rules deciding which accounts an actor may discover.
package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

// Service exposes directory, squad and visibility operations. Every operation
// receives the calling Actor explicitly.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("org store is required")
	}
	return &Service{store: store}, nil
}

// Contacts returns the accounts the actor may see or contact.
func (s *Service) Contacts(ctx context.Context, actor Actor) ([]Account, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveContacts(snap, actor.ID)
}

// Snapshot exposes a consistent directory view to the reporting layer.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.store.Snapshot(ctx)
}

// Require returns apperr.ErrForbidden unless the actor holds one of roles.
func (a Actor) Require(roles ...Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not perform this operation", apperr.ErrForbidden, a.Role)
}
