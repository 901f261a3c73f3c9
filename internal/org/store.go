package org

import "context"

// Store persists accounts and squads. Implementations return apperr.ErrNotFound
// for unknown ids and apperr.ErrConflict for duplicate emails or for a manager
// assigned to a second squad.
type Store interface {
	// Snapshot reads every account and squad in one consistent view.
	Snapshot(ctx context.Context) (Snapshot, error)

	CreateAccount(ctx context.Context, acc Account) (Account, error)
	// UpdateAccount replaces the stored account. When the role is no longer
	// Manager, the manager reference of every squad it managed is cleared in
	// the same write.
	UpdateAccount(ctx context.Context, acc Account) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	CreateSquad(ctx context.Context, sq Squad) (Squad, error)
	UpdateSquad(ctx context.Context, sq Squad) (Squad, error)
	GetSquad(ctx context.Context, id string) (Squad, error)
	ListSquads(ctx context.Context) ([]Squad, error)
	// ReplaceMembers atomically makes accountIDs the exact member set of
	// squadID: listed accounts reference the squad, previous members that are
	// not listed have their reference cleared.
	ReplaceMembers(ctx context.Context, squadID string, accountIDs []string) error
	// DeleteSquad atomically clears every member reference and removes the squad.
	DeleteSquad(ctx context.Context, squadID string) error
}
