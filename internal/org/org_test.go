package org

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

var root = Actor{ID: "root", Role: RoleOwner}

type fixture struct {
	svc            *Service
	store          *InMemory
	owner, owner2  Account
	m, m2, mIdle   Account
	c1, c2, c3, cx Account
	s1, s2         Squad
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := NewInMemory()
	svc, err := NewService(store)
	require.NoError(t, err)

	f := &fixture{svc: svc, store: store}
	mk := func(first, last, email string, role Role) Account {
		acc, err := svc.CreateAccount(ctx, root, NewAccount{FirstName: first, LastName: last, Email: email, Role: role})
		require.NoError(t, err)
		return acc
	}
	f.owner = mk("alice", "Owner", "alice@example.com", RoleOwner)
	f.owner2 = mk("Zoe", "Owner", "zoe@example.com", RoleOwner)
	f.m = mk("Marc", "Manager", "marc@example.com", RoleManager)
	f.m2 = mk("Nina", "Manager", "nina@example.com", RoleManager)
	f.mIdle = mk("Omar", "Manager", "omar@example.com", RoleManager)
	f.c1 = mk("Chloe", "One", "c1@example.com", RoleContributor)
	f.c2 = mk("Bruno", "Two", "c2@example.com", RoleContributor)
	f.c3 = mk("Dina", "Three", "c3@example.com", RoleContributor)
	f.cx = mk("Xavier", "Gone", "cx@example.com", RoleContributor)

	f.s1, err = svc.CreateSquad(ctx, root, "S1", f.m.ID)
	require.NoError(t, err)
	f.s2, err = svc.CreateSquad(ctx, root, "S2", f.m2.ID)
	require.NoError(t, err)
	_, err = svc.SetMembers(ctx, root, f.s1.ID, []string{f.c1.ID, f.c2.ID, f.cx.ID})
	require.NoError(t, err)
	_, err = svc.SetMembers(ctx, root, f.s2.ID, []string{f.c3.ID})
	require.NoError(t, err)
	_, err = svc.DeactivateAccount(ctx, root, f.cx.ID)
	require.NoError(t, err)
	return f
}

func contactIDs(t *testing.T, svc *Service, who Account) []string {
	t.Helper()
	contacts, err := svc.Contacts(context.Background(), Actor{ID: who.ID, Role: who.Role})
	require.NoError(t, err)
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.ID)
	}
	return out
}

func TestContactsOwnerSeesEveryActiveAccount(t *testing.T) {
	f := newFixture(t)
	// alice, Bruno, Chloe, Dina, Marc, Nina, Omar; Zoe is the actor.
	got := contactIDs(t, f.svc, f.owner2)
	require.Equal(t, []string{f.owner.ID, f.c2.ID, f.c1.ID, f.c3.ID, f.m.ID, f.m2.ID, f.mIdle.ID}, got)
}

func TestContactsManagerSeesOwnersAndOwnSquad(t *testing.T) {
	f := newFixture(t)
	got := contactIDs(t, f.svc, f.m)
	require.ElementsMatch(t, []string{f.owner.ID, f.owner2.ID, f.c1.ID, f.c2.ID}, got)
	require.NotContains(t, got, f.m.ID)
	require.NotContains(t, got, f.cx.ID, "inactive member must be hidden")
}

func TestContactsManagerWithoutSquadSeesOwnersOnly(t *testing.T) {
	f := newFixture(t)
	require.ElementsMatch(t, []string{f.owner.ID, f.owner2.ID}, contactIDs(t, f.svc, f.mIdle))
}

func TestContactsContributorWithSquad(t *testing.T) {
	f := newFixture(t)
	got := contactIDs(t, f.svc, f.c1)
	require.ElementsMatch(t, []string{f.owner.ID, f.owner2.ID, f.m.ID, f.c2.ID}, got)
}

func TestContactsContributorWithoutSquad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loner, err := f.svc.CreateAccount(ctx, root, NewAccount{FirstName: "Lou", LastName: "Solo", Email: "lou@example.com", Role: RoleContributor})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{f.owner.ID, f.owner2.ID}, contactIDs(t, f.svc, loner))
}

func TestContactsInactiveOrUnknownActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Contacts(ctx, Actor{ID: f.cx.ID, Role: RoleContributor})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, []string{f.cx.ID}, apperr.IDs(err))

	_, err = f.svc.Contacts(ctx, Actor{ID: "nobody", Role: RoleOwner})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeactivationRemovesFromContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Contains(t, contactIDs(t, f.svc, f.c1), f.c2.ID)
	_, err := f.svc.DeactivateAccount(ctx, root, f.c2.ID)
	require.NoError(t, err)
	require.NotContains(t, contactIDs(t, f.svc, f.c1), f.c2.ID)
	require.NotContains(t, contactIDs(t, f.svc, f.owner), f.c2.ID)
}

func TestSetMembersFullReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.SetMembers(ctx, root, f.s1.ID, []string{f.c2.ID, f.c2.ID, " "})
	require.NoError(t, err)
	require.Len(t, view.Members, 1)
	require.Equal(t, f.c2.ID, view.Members[0].ID)

	c1, err := f.svc.GetAccount(ctx, root, f.c1.ID)
	require.NoError(t, err)
	require.Empty(t, c1.SquadID)
	require.ElementsMatch(t, []string{f.owner.ID, f.owner2.ID}, contactIDs(t, f.svc, c1))
	require.NotContains(t, contactIDs(t, f.svc, f.c2), f.c1.ID)
}

func TestSetMembersRejectsNonContributors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetMembers(ctx, root, f.s1.ID, []string{f.c1.ID, f.m2.ID, f.cx.ID})
	require.ErrorIs(t, err, apperr.ErrInvalidRole)
	require.ElementsMatch(t, []string{f.m2.ID, f.cx.ID}, apperr.IDs(err))

	// Nothing changed.
	view, err := f.svc.GetSquad(ctx, root, f.s1.ID)
	require.NoError(t, err)
	require.Len(t, view.Members, 2)

	_, err = f.svc.SetMembers(ctx, root, f.s1.ID, []string{"ghost"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, []string{"ghost"}, apperr.IDs(err))

	_, err = f.svc.SetMembers(ctx, root, "missing", nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetMembersMovesContributorBetweenSquads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SetMembers(ctx, root, f.s2.ID, []string{f.c3.ID, f.c1.ID})
	require.NoError(t, err)

	s1, err := f.svc.GetSquad(ctx, root, f.s1.ID)
	require.NoError(t, err)
	require.Len(t, s1.Members, 1)
	require.Equal(t, f.c2.ID, s1.Members[0].ID)
}

func TestCreateSquadValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSquad(ctx, root, "  ", "")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.CreateSquad(ctx, root, "S3", f.c1.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidRole)
	require.Equal(t, []string{f.c1.ID}, apperr.IDs(err))

	_, err = f.svc.CreateSquad(ctx, root, "S3", "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.CreateSquad(ctx, root, "S3", f.m.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "a manager runs one squad")

	sq, err := f.svc.CreateSquad(ctx, root, "S3", "")
	require.NoError(t, err)
	require.Empty(t, sq.ManagerID)

	_, err = f.svc.CreateSquad(ctx, Actor{ID: f.m.ID, Role: RoleManager}, "S4", "")
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSetManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sq, err := f.svc.SetManager(ctx, root, f.s1.ID, "")
	require.NoError(t, err)
	require.Empty(t, sq.ManagerID)
	require.ElementsMatch(t, []string{f.owner.ID, f.owner2.ID}, contactIDs(t, f.svc, f.m))

	_, err = f.svc.SetManager(ctx, root, f.s1.ID, f.c2.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidRole)

	sq, err = f.svc.SetManager(ctx, root, f.s1.ID, f.mIdle.ID)
	require.NoError(t, err)
	require.Equal(t, f.mIdle.ID, sq.ManagerID)
	require.Contains(t, contactIDs(t, f.svc, f.c1), f.mIdle.ID)

	_, err = f.svc.SetManager(ctx, root, "missing", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteSquadClearsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteSquad(ctx, root, f.s1.ID))
	for _, id := range []string{f.c1.ID, f.c2.ID, f.cx.ID} {
		acc, err := f.svc.GetAccount(ctx, root, id)
		require.NoError(t, err)
		require.Empty(t, acc.SquadID, id)
	}
	_, err := f.svc.GetSquad(ctx, root, f.s1.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.svc.DeleteSquad(ctx, root, f.s1.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	squads, err := f.svc.ListSquads(ctx, root)
	require.NoError(t, err)
	require.Len(t, squads, 1)
	require.Equal(t, f.s2.ID, squads[0].ID)
	require.NotNil(t, squads[0].Manager)
	require.Equal(t, f.m2.ID, squads[0].Manager.ID)
}

func TestRenameSquad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sq, err := f.svc.RenameSquad(ctx, root, f.s1.ID, " North ")
	require.NoError(t, err)
	require.Equal(t, "North", sq.Name)
	require.Equal(t, f.m.ID, sq.ManagerID)

	_, err = f.svc.RenameSquad(ctx, root, f.s1.ID, "")
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateAccountValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   NewAccount
		want error
	}{
		{"missing names", NewAccount{Email: "x@example.com", Role: RoleOwner}, apperr.ErrInvalidInput},
		{"bad email", NewAccount{FirstName: "A", LastName: "B", Email: "nope", Role: RoleOwner}, apperr.ErrInvalidInput},
		{"bad role", NewAccount{FirstName: "A", LastName: "B", Email: "ab@example.com", Role: "boss"}, apperr.ErrInvalidInput},
		{"duplicate email", NewAccount{FirstName: "A", LastName: "B", Email: "ALICE@example.com", Role: RoleOwner}, apperr.ErrConflict},
		{"squad on manager", NewAccount{FirstName: "A", LastName: "B", Email: "ab@example.com", Role: RoleManager, SquadID: f.s1.ID}, apperr.ErrInvalidRole},
		{"unknown squad", NewAccount{FirstName: "A", LastName: "B", Email: "ab@example.com", Role: RoleContributor, SquadID: "missing"}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAccount(ctx, root, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.CreateAccount(ctx, Actor{ID: f.c1.ID, Role: RoleContributor}, NewAccount{})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDuplicateEmailIgnoresActiveFlag(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateAccount(context.Background(), root, NewAccount{FirstName: "X", LastName: "Y", Email: "cx@example.com", Role: RoleContributor})
	require.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestRoleChangeClearsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := RoleOwner
	acc, err := f.svc.UpdateAccount(ctx, root, f.c1.ID, AccountUpdate{Role: &owner})
	require.NoError(t, err)
	require.Empty(t, acc.SquadID)

	contributor := RoleContributor
	_, err = f.svc.UpdateAccount(ctx, root, f.m.ID, AccountUpdate{Role: &contributor})
	require.NoError(t, err)
	sq, err := f.svc.GetSquad(ctx, root, f.s1.ID)
	require.NoError(t, err)
	require.Empty(t, sq.ManagerID)
	require.Nil(t, sq.Manager)
}

func TestUpdateAccountFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := "Chloe.New@Example.com"
	none := ""
	acc, err := f.svc.UpdateAccount(ctx, root, f.c1.ID, AccountUpdate{Email: &email, SquadID: &none})
	require.NoError(t, err)
	require.Equal(t, "chloe.new@example.com", acc.Email)
	require.Empty(t, acc.SquadID)

	taken := "c2@example.com"
	_, err = f.svc.UpdateAccount(ctx, root, f.c1.ID, AccountUpdate{Email: &taken})
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.UpdateAccount(ctx, root, "ghost", AccountUpdate{})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// The old address is free again.
	_, err = f.svc.CreateAccount(ctx, root, NewAccount{FirstName: "N", LastName: "N", Email: "c1@example.com", Role: RoleContributor})
	require.NoError(t, err)
}

func TestListAccountsOrderedByID(t *testing.T) {
	f := newFixture(t)
	accounts, err := f.svc.ListAccounts(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, accounts, 9)
	for i := 1; i < len(accounts); i++ {
		require.Less(t, accounts[i-1].ID, accounts[i].ID)
	}
}

func TestParseRoleAcceptsLegacyNames(t *testing.T) {
	for raw, want := range map[string]Role{
		"ADMIN": RoleOwner, "Gestionnaire": RoleManager, "commercial": RoleContributor, " owner ": RoleOwner,
	} {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}
	_, err := ParseRole("root")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}
