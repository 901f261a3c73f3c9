package org

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

// visibilityPolicy decides whether actor may discover candidate. Candidates
// are already known to be active and distinct from the actor.
type visibilityPolicy interface {
	visible(actor, candidate Account, ix *Index) bool
}

type ownerVisibility struct{}

func (ownerVisibility) visible(_, _ Account, _ *Index) bool { return true }

type managerVisibility struct{}

func (managerVisibility) visible(actor, c Account, ix *Index) bool {
	switch c.Role {
	case RoleOwner:
		return true
	case RoleContributor:
		sq, ok := ix.ManagedSquad(actor.ID)
		return ok && c.SquadID == sq.ID
	}
	return false
}

type contributorVisibility struct{}

func (contributorVisibility) visible(actor, c Account, ix *Index) bool {
	switch c.Role {
	case RoleOwner:
		return true
	case RoleManager:
		if actor.SquadID == "" {
			return false
		}
		sq, ok := ix.Squad(actor.SquadID)
		return ok && sq.ManagerID == c.ID
	case RoleContributor:
		return actor.SquadID != "" && c.SquadID == actor.SquadID
	}
	return false
}

var visibilityPolicies = map[Role]visibilityPolicy{
	RoleOwner:       ownerVisibility{},
	RoleManager:     managerVisibility{},
	RoleContributor: contributorVisibility{},
}

// ResolveContacts returns the accounts actorID may discover, ordered by first
// name then last name ignoring case. The actor itself is never included.
// It is a pure function of snap.
func ResolveContacts(snap Snapshot, actorID string) ([]Account, error) {
	ix := NewIndex(snap)
	actor, ok := ix.Account(actorID)
	if !ok || !actor.Active {
		return nil, apperr.WithIDs(apperr.ErrNotFound, "account not found or inactive", actorID)
	}
	policy, ok := visibilityPolicies[actor.Role]
	if !ok {
		return nil, fmt.Errorf("%w: no visibility policy for role %q", apperr.ErrInvalidRole, actor.Role)
	}
	contacts := lo.Filter(snap.Accounts, func(c Account, _ int) bool {
		return c.Active && c.ID != actor.ID && policy.visible(actor, c, ix)
	})
	SortByName(contacts)
	return contacts, nil
}

// SortByName orders accounts by first name, then last name, ignoring case,
// with the id as the final tie-break.
func SortByName(accounts []Account) {
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(accounts, func(a, b Account) int {
		if c := col.CompareString(a.FirstName, b.FirstName); c != 0 {
			return c
		}
		if c := col.CompareString(a.LastName, b.LastName); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
