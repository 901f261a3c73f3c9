package messaging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

var root = org.Actor{ID: "root", Role: org.RoleOwner}

type people struct {
	svc                *Service
	dir                *org.Service
	owner, c1, c2, old org.Account
}

func setup(t *testing.T) *people {
	t.Helper()
	ctx := context.Background()
	dir, err := org.NewService(org.NewInMemory())
	require.NoError(t, err)
	svc, err := NewService(NewInMemory(), dir)
	require.NoError(t, err)

	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	p := &people{svc: svc, dir: dir}
	mk := func(first, email string, role org.Role) org.Account {
		acc, err := dir.CreateAccount(ctx, root, org.NewAccount{FirstName: first, LastName: "X", Email: email, Role: role})
		require.NoError(t, err)
		return acc
	}
	p.owner = mk("Olga", "olga@example.com", org.RoleOwner)
	p.c1 = mk("C1", "c1@example.com", org.RoleContributor)
	p.c2 = mk("C2", "c2@example.com", org.RoleContributor)
	p.old = mk("Old", "old@example.com", org.RoleContributor)
	_, err = dir.DeactivateAccount(ctx, root, p.old.ID)
	require.NoError(t, err)
	return p
}

func as(a org.Account) org.Actor { return org.Actor{ID: a.ID, Role: a.Role} }

func TestSendOutsideContactsIsAllowed(t *testing.T) {
	p := setup(t)
	ctx := context.Background()

	// c1 and c2 share no squad, so they are not contacts.
	contacts, err := p.dir.Contacts(ctx, as(p.c1))
	require.NoError(t, err)
	for _, c := range contacts {
		require.NotEqual(t, p.c2.ID, c.ID)
	}

	v, err := p.svc.Send(ctx, as(p.c1), p.c2.ID, " Hello ", "Lunch?")
	require.NoError(t, err)
	require.Equal(t, "Hello", v.Title)
	require.False(t, v.Read)
	require.Nil(t, v.ReadAt)
	require.Equal(t, p.c1.ID, v.Sender.ID)
	require.Equal(t, p.c2.ID, v.Recipient.ID)
}

func TestSendValidation(t *testing.T) {
	p := setup(t)
	ctx := context.Background()

	_, err := p.svc.Send(ctx, as(p.c1), p.c2.ID, "", "body")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = p.svc.Send(ctx, as(p.c1), p.c2.ID, "t", " ")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = p.svc.Send(ctx, as(p.c1), p.c2.ID, strings.Repeat("é", MaxTitleLen+1), "body")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = p.svc.Send(ctx, as(p.c1), p.c2.ID, strings.Repeat("é", MaxTitleLen), "body")
	require.NoError(t, err)

	_, err = p.svc.Send(ctx, as(p.c1), p.old.ID, "t", "b")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, []string{p.old.ID}, apperr.IDs(err))
	_, err = p.svc.Send(ctx, as(p.c1), "ghost", "t", "b")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInboxOutboxNewestFirst(t *testing.T) {
	p := setup(t)
	ctx := context.Background()
	first, err := p.svc.Send(ctx, as(p.owner), p.c1.ID, "one", "b")
	require.NoError(t, err)
	second, err := p.svc.Send(ctx, as(p.c2), p.c1.ID, "two", "b")
	require.NoError(t, err)

	inbox, err := p.svc.Inbox(ctx, as(p.c1))
	require.NoError(t, err)
	require.Equal(t, []string{second.ID, first.ID}, []string{inbox[0].ID, inbox[1].ID})
	require.Equal(t, p.c2.ID, inbox[0].Sender.ID)

	outbox, err := p.svc.Outbox(ctx, as(p.owner))
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	require.Equal(t, first.ID, outbox[0].ID)

	empty, err := p.svc.Inbox(ctx, as(p.owner))
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestGetRestrictedToParticipants(t *testing.T) {
	p := setup(t)
	ctx := context.Background()
	m, err := p.svc.Send(ctx, as(p.c1), p.c2.ID, "t", "b")
	require.NoError(t, err)

	for _, who := range []org.Account{p.c1, p.c2} {
		_, err := p.svc.Get(ctx, as(who), m.ID)
		require.NoError(t, err)
	}
	_, err = p.svc.Get(ctx, as(p.owner), m.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = p.svc.Get(ctx, as(p.c1), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMarkReadOnceByRecipient(t *testing.T) {
	p := setup(t)
	ctx := context.Background()
	m, err := p.svc.Send(ctx, as(p.c1), p.c2.ID, "t", "b")
	require.NoError(t, err)

	_, err = p.svc.MarkRead(ctx, as(p.c1), m.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	read, err := p.svc.MarkRead(ctx, as(p.c2), m.ID)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.NotNil(t, read.ReadAt)
	firstAt := *read.ReadAt

	again, err := p.svc.MarkRead(ctx, as(p.c2), m.ID)
	require.NoError(t, err)
	require.True(t, again.Read)
	require.Equal(t, firstAt, *again.ReadAt)
}
