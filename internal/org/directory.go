package org

import (
	"context"
	"fmt"
	"strings"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

func (s *Service) CreateAccount(ctx context.Context, actor Actor, in NewAccount) (Account, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return Account{}, err
	}
	acc := Account{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     normalizeEmail(in.Email),
		Role:      in.Role,
		Active:    true,
		SquadID:   strings.TrimSpace(in.SquadID),
	}
	if in.Active != nil {
		acc.Active = *in.Active
	}
	if err := validateAccount(acc); err != nil {
		return Account{}, err
	}
	if err := s.checkSquadReference(ctx, acc); err != nil {
		return Account{}, err
	}
	return s.store.CreateAccount(ctx, acc)
}

func (s *Service) UpdateAccount(ctx context.Context, actor Actor, id string, upd AccountUpdate) (Account, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return Account{}, err
	}
	acc, err := s.store.GetAccount(ctx, strings.TrimSpace(id))
	if err != nil {
		return Account{}, err
	}
	if upd.FirstName != nil {
		acc.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		acc.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Email != nil {
		acc.Email = normalizeEmail(*upd.Email)
	}
	if upd.Role != nil {
		acc.Role = *upd.Role
	}
	if upd.SquadID != nil {
		acc.SquadID = strings.TrimSpace(*upd.SquadID)
	}
	if upd.Active != nil {
		acc.Active = *upd.Active
	}
	// Only contributors belong to squads.
	if acc.Role != RoleContributor && upd.SquadID == nil {
		acc.SquadID = ""
	}
	if err := validateAccount(acc); err != nil {
		return Account{}, err
	}
	if err := s.checkSquadReference(ctx, acc); err != nil {
		return Account{}, err
	}
	return s.store.UpdateAccount(ctx, acc)
}

// DeactivateAccount soft-deletes an account. Historical references stay intact.
func (s *Service) DeactivateAccount(ctx context.Context, actor Actor, id string) (Account, error) {
	inactive := false
	return s.UpdateAccount(ctx, actor, id, AccountUpdate{Active: &inactive})
}

func (s *Service) GetAccount(ctx context.Context, actor Actor, id string) (Account, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return Account{}, err
	}
	return s.store.GetAccount(ctx, strings.TrimSpace(id))
}

func (s *Service) ListAccounts(ctx context.Context, actor Actor) ([]Account, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return nil, err
	}
	return s.store.ListAccounts(ctx)
}

func (s *Service) checkSquadReference(ctx context.Context, acc Account) error {
	if acc.SquadID == "" {
		return nil
	}
	if acc.Role != RoleContributor {
		return apperr.WithIDs(apperr.ErrInvalidRole, "only contributors can belong to a squad", acc.ID)
	}
	_, err := s.store.GetSquad(ctx, acc.SquadID)
	return err
}

func validateAccount(acc Account) error {
	if acc.FirstName == "" || acc.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", apperr.ErrInvalidInput)
	}
	if acc.Email == "" || !strings.Contains(acc.Email, "@") {
		return fmt.Errorf("%w: valid email is required", apperr.ErrInvalidInput)
	}
	if !acc.Role.Valid() {
		return fmt.Errorf("%w: unsupported role %q", apperr.ErrInvalidInput, acc.Role)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
