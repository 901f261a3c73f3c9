package org

import (
	"cmp"
	"slices"
)

// Index answers membership and management questions over a Snapshot.
type Index struct {
	accounts map[string]Account
	squads   map[string]Squad
	managed  map[string]Squad
	members  map[string][]Account
}

// NewIndex builds lookup tables for snap. Member lists hold active accounts
// only and are ordered by id.
func NewIndex(snap Snapshot) *Index {
	ix := &Index{
		accounts: make(map[string]Account, len(snap.Accounts)),
		squads:   make(map[string]Squad, len(snap.Squads)),
		managed:  make(map[string]Squad),
		members:  make(map[string][]Account),
	}
	for _, a := range snap.Accounts {
		ix.accounts[a.ID] = a
		if a.Active && a.SquadID != "" {
			ix.members[a.SquadID] = append(ix.members[a.SquadID], a)
		}
	}
	for _, sq := range snap.Squads {
		ix.squads[sq.ID] = sq
		if sq.ManagerID == "" {
			continue
		}
		if prev, ok := ix.managed[sq.ManagerID]; ok && prev.ID < sq.ID {
			continue
		}
		ix.managed[sq.ManagerID] = sq
	}
	for id := range ix.members {
		slices.SortFunc(ix.members[id], func(a, b Account) int { return cmp.Compare(a.ID, b.ID) })
	}
	return ix
}

func (ix *Index) Account(id string) (Account, bool) {
	a, ok := ix.accounts[id]
	return a, ok
}

func (ix *Index) Squad(id string) (Squad, bool) {
	sq, ok := ix.squads[id]
	return sq, ok
}

// ManagedSquad returns the squad whose manager is managerID.
func (ix *Index) ManagedSquad(managerID string) (Squad, bool) {
	sq, ok := ix.managed[managerID]
	return sq, ok
}

// Members returns the active accounts currently referencing squadID.
func (ix *Index) Members(squadID string) []Account {
	return slices.Clone(ix.members[squadID])
}

// ActiveContributors returns the active contributors of squadID, ordered by id.
func (ix *Index) ActiveContributors(squadID string) []Account {
	var out []Account
	for _, a := range ix.members[squadID] {
		if a.Role == RoleContributor {
			out = append(out, a)
		}
	}
	return out
}

// View resolves the manager and members of sq.
func (ix *Index) View(sq Squad) SquadView {
	view := SquadView{Squad: sq, Members: []Summary{}}
	if m, ok := ix.accounts[sq.ManagerID]; ok {
		s := m.Summary()
		view.Manager = &s
	}
	for _, a := range ix.members[sq.ID] {
		view.Members = append(view.Members, a.Summary())
	}
	return view
}
