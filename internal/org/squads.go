package org

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

// CreateSquad registers a squad, optionally with its manager.
func (s *Service) CreateSquad(ctx context.Context, actor Actor, name, managerID string) (Squad, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return Squad{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Squad{}, fmt.Errorf("%w: squad name is required", apperr.ErrConflict)
	}
	managerID = strings.TrimSpace(managerID)
	if err := s.checkManager(ctx, managerID); err != nil {
		return Squad{}, err
	}
	return s.store.CreateSquad(ctx, Squad{Name: name, ManagerID: managerID})
}

func (s *Service) RenameSquad(ctx context.Context, actor Actor, squadID, name string) (Squad, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return Squad{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Squad{}, fmt.Errorf("%w: squad name is required", apperr.ErrConflict)
	}
	sq, err := s.store.GetSquad(ctx, strings.TrimSpace(squadID))
	if err != nil {
		return Squad{}, err
	}
	sq.Name = name
	return s.store.UpdateSquad(ctx, sq)
}

// SetManager assigns managerID to the squad; an empty managerID clears it.
func (s *Service) SetManager(ctx context.Context, actor Actor, squadID, managerID string) (Squad, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return Squad{}, err
	}
	sq, err := s.store.GetSquad(ctx, strings.TrimSpace(squadID))
	if err != nil {
		return Squad{}, err
	}
	managerID = strings.TrimSpace(managerID)
	if err := s.checkManager(ctx, managerID); err != nil {
		return Squad{}, err
	}
	sq.ManagerID = managerID
	return s.store.UpdateSquad(ctx, sq)
}

// SetMembers replaces the full member set of a squad. Every target must be an
// active contributor; previous members left out lose their squad reference.
func (s *Service) SetMembers(ctx context.Context, actor Actor, squadID string, accountIDs []string) (SquadView, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return SquadView{}, err
	}
	squadID = strings.TrimSpace(squadID)
	targets := lo.Uniq(lo.FilterMap(accountIDs, func(id string, _ int) (string, bool) {
		id = strings.TrimSpace(id)
		return id, id != ""
	}))

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return SquadView{}, err
	}
	ix := NewIndex(snap)
	if _, ok := ix.Squad(squadID); !ok {
		return SquadView{}, apperr.WithIDs(apperr.ErrNotFound, "squad not found", squadID)
	}
	var missing, offending []string
	for _, id := range targets {
		acc, ok := ix.Account(id)
		switch {
		case !ok:
			missing = append(missing, id)
		case !acc.IsActiveContributor():
			offending = append(offending, id)
		}
	}
	if len(missing) > 0 {
		return SquadView{}, apperr.WithIDs(apperr.ErrNotFound, "accounts not found", missing...)
	}
	if len(offending) > 0 {
		return SquadView{}, apperr.WithIDs(apperr.ErrInvalidRole, "only active contributors can be squad members", offending...)
	}
	if err := s.store.ReplaceMembers(ctx, squadID, targets); err != nil {
		return SquadView{}, err
	}
	return s.GetSquad(ctx, actor, squadID)
}

// DeleteSquad detaches every member, then removes the squad.
func (s *Service) DeleteSquad(ctx context.Context, actor Actor, squadID string) error {
	if err := actor.Require(RoleOwner); err != nil {
		return err
	}
	return s.store.DeleteSquad(ctx, strings.TrimSpace(squadID))
}

func (s *Service) GetSquad(ctx context.Context, actor Actor, squadID string) (SquadView, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return SquadView{}, err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return SquadView{}, err
	}
	ix := NewIndex(snap)
	sq, ok := ix.Squad(strings.TrimSpace(squadID))
	if !ok {
		return SquadView{}, apperr.WithIDs(apperr.ErrNotFound, "squad not found", squadID)
	}
	return ix.View(sq), nil
}

func (s *Service) ListSquads(ctx context.Context, actor Actor) ([]SquadView, error) {
	if err := actor.Require(RoleOwner); err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ix := NewIndex(snap)
	return lo.Map(snap.Squads, func(sq Squad, _ int) SquadView { return ix.View(sq) }), nil
}

// checkManager verifies managerID names an active manager. Empty is allowed.
func (s *Service) checkManager(ctx context.Context, managerID string) error {
	if managerID == "" {
		return nil
	}
	acc, err := s.store.GetAccount(ctx, managerID)
	if err != nil {
		return err
	}
	if !acc.Active || acc.Role != RoleManager {
		return apperr.WithIDs(apperr.ErrInvalidRole, "manager must be an active account with role manager", managerID)
	}
	return nil
}
