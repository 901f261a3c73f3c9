package org

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	emails   map[string]string // lower(email) -> account id
	squads   map[string]Squad
	now      func() time.Time
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty directory.
func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[string]Account),
		emails:   make(map[string]string),
		squads:   make(map[string]Squad),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemory) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Accounts: s.sortedAccounts(), Squads: s.sortedSquads()}, nil
}

func (s *InMemory) CreateAccount(ctx context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(acc.Email)
	if _, taken := s.emails[key]; taken {
		return Account{}, fmt.Errorf("%w: email already in use", apperr.ErrConflict)
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	now := s.now()
	acc.CreatedAt, acc.UpdatedAt = now, now
	s.accounts[acc.ID] = acc
	s.emails[key] = acc.ID
	return acc, nil
}

func (s *InMemory) UpdateAccount(ctx context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.accounts[acc.ID]
	if !ok {
		return Account{}, apperr.WithIDs(apperr.ErrNotFound, "account not found", acc.ID)
	}
	newKey, oldKey := strings.ToLower(acc.Email), strings.ToLower(prev.Email)
	if newKey != oldKey {
		if _, taken := s.emails[newKey]; taken {
			return Account{}, fmt.Errorf("%w: email already in use", apperr.ErrConflict)
		}
		delete(s.emails, oldKey)
		s.emails[newKey] = acc.ID
	}
	now := s.now()
	if acc.Role != RoleManager {
		for id, sq := range s.squads {
			if sq.ManagerID == acc.ID {
				sq.ManagerID = ""
				sq.UpdatedAt = now
				s.squads[id] = sq
			}
		}
	}
	acc.CreatedAt = prev.CreatedAt
	acc.UpdatedAt = now
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *InMemory) GetAccount(ctx context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, apperr.WithIDs(apperr.ErrNotFound, "account not found", id)
	}
	return acc, nil
}

func (s *InMemory) ListAccounts(ctx context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedAccounts(), nil
}

func (s *InMemory) CreateSquad(ctx context.Context, sq Squad) (Squad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sq.ID == "" {
		sq.ID = ids.New()
	}
	if err := s.checkManagerFree(sq); err != nil {
		return Squad{}, err
	}
	now := s.now()
	sq.CreatedAt, sq.UpdatedAt = now, now
	s.squads[sq.ID] = sq
	return sq, nil
}

func (s *InMemory) UpdateSquad(ctx context.Context, sq Squad) (Squad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.squads[sq.ID]
	if !ok {
		return Squad{}, apperr.WithIDs(apperr.ErrNotFound, "squad not found", sq.ID)
	}
	if err := s.checkManagerFree(sq); err != nil {
		return Squad{}, err
	}
	sq.CreatedAt = prev.CreatedAt
	sq.UpdatedAt = s.now()
	s.squads[sq.ID] = sq
	return sq, nil
}

func (s *InMemory) GetSquad(ctx context.Context, id string) (Squad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sq, ok := s.squads[id]
	if !ok {
		return Squad{}, apperr.WithIDs(apperr.ErrNotFound, "squad not found", id)
	}
	return sq, nil
}

func (s *InMemory) ListSquads(ctx context.Context) ([]Squad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSquads(), nil
}

func (s *InMemory) ReplaceMembers(ctx context.Context, squadID string, accountIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.squads[squadID]; !ok {
		return apperr.WithIDs(apperr.ErrNotFound, "squad not found", squadID)
	}
	var missing []string
	for _, id := range accountIDs {
		if _, ok := s.accounts[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return apperr.WithIDs(apperr.ErrNotFound, "accounts not found", missing...)
	}

	keep := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		keep[id] = struct{}{}
	}
	now := s.now()
	for id, acc := range s.accounts {
		_, listed := keep[id]
		switch {
		case listed && acc.SquadID != squadID:
			acc.SquadID = squadID
		case !listed && acc.SquadID == squadID:
			acc.SquadID = ""
		default:
			continue
		}
		acc.UpdatedAt = now
		s.accounts[id] = acc
	}
	return nil
}

func (s *InMemory) DeleteSquad(ctx context.Context, squadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.squads[squadID]; !ok {
		return apperr.WithIDs(apperr.ErrNotFound, "squad not found", squadID)
	}
	now := s.now()
	for id, acc := range s.accounts {
		if acc.SquadID == squadID {
			acc.SquadID = ""
			acc.UpdatedAt = now
			s.accounts[id] = acc
		}
	}
	delete(s.squads, squadID)
	return nil
}

// checkManagerFree must be called with the write lock held.
func (s *InMemory) checkManagerFree(sq Squad) error {
	if sq.ManagerID == "" {
		return nil
	}
	for id, other := range s.squads {
		if id != sq.ID && other.ManagerID == sq.ManagerID {
			return apperr.WithIDs(apperr.ErrConflict, "manager already manages another squad", sq.ManagerID)
		}
	}
	return nil
}

func (s *InMemory) sortedAccounts() []Account {
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Account) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *InMemory) sortedSquads() []Squad {
	out := make([]Squad, 0, len(s.squads))
	for _, sq := range s.squads {
		out = append(out, sq)
	}
	slices.SortFunc(out, func(a, b Squad) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
