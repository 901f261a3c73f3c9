// Package messaging lets accounts exchange short notes. Sending is open to any
// active recipient; the contact list only drives discovery.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

// Directory supplies a consistent view of accounts.
type Directory interface {
	Snapshot(ctx context.Context) (org.Snapshot, error)
}

type Service struct {
	store Store
	dir   Directory
	now   func() time.Time
}

func NewService(store Store, dir Directory) (*Service, error) {
	if store == nil {
		return nil, errors.New("message store is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	return &Service{store: store, dir: dir, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Send delivers a message from the actor to an active recipient.
func (s *Service) Send(ctx context.Context, actor org.Actor, recipientID, title, body string) (View, error) {
	title, body, recipientID = strings.TrimSpace(title), strings.TrimSpace(body), strings.TrimSpace(recipientID)
	if recipientID == "" || title == "" || body == "" {
		return View{}, fmt.Errorf("%w: recipient, title and body are required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return View{}, fmt.Errorf("%w: title exceeds %d characters", apperr.ErrInvalidInput, MaxTitleLen)
	}
	ix, err := s.index(ctx)
	if err != nil {
		return View{}, err
	}
	if to, ok := ix.Account(recipientID); !ok || !to.Active {
		return View{}, apperr.WithIDs(apperr.ErrNotFound, "recipient not found or inactive", recipientID)
	}
	m, err := s.store.Create(ctx, Message{
		Title:       title,
		Body:        body,
		SenderID:    actor.ID,
		RecipientID: recipientID,
		SentAt:      s.now(),
	})
	if err != nil {
		return View{}, err
	}
	return view(m, ix), nil
}

// Inbox lists messages received by the actor, newest first.
func (s *Service) Inbox(ctx context.Context, actor org.Actor) ([]View, error) {
	return s.listing(ctx, actor.ID, s.store.ListForRecipient)
}

// Outbox lists messages sent by the actor, newest first.
func (s *Service) Outbox(ctx context.Context, actor org.Actor) ([]View, error) {
	return s.listing(ctx, actor.ID, s.store.ListForSender)
}

// Get returns a message to its sender or recipient.
func (s *Service) Get(ctx context.Context, actor org.Actor, id string) (View, error) {
	m, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return View{}, err
	}
	if actor.ID != m.SenderID && actor.ID != m.RecipientID {
		return View{}, apperr.WithIDs(apperr.ErrForbidden, "message belongs to other accounts", m.ID)
	}
	ix, err := s.index(ctx)
	if err != nil {
		return View{}, err
	}
	return view(m, ix), nil
}

// MarkRead flags a message as read. Only the recipient may do so; repeating
// the call leaves the first read timestamp in place.
func (s *Service) MarkRead(ctx context.Context, actor org.Actor, id string) (View, error) {
	m, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return View{}, err
	}
	if actor.ID != m.RecipientID {
		return View{}, apperr.WithIDs(apperr.ErrForbidden, "only the recipient can mark a message read", m.ID)
	}
	if !m.Read {
		if m, err = s.store.MarkRead(ctx, m.ID, s.now()); err != nil {
			return View{}, err
		}
	}
	ix, err := s.index(ctx)
	if err != nil {
		return View{}, err
	}
	return view(m, ix), nil
}

func (s *Service) listing(ctx context.Context, accountID string, list func(context.Context, string) ([]Message, error)) ([]View, error) {
	msgs, err := list(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ix, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(msgs, func(m Message, _ int) View { return view(m, ix) }), nil
}

func (s *Service) index(ctx context.Context) (*org.Index, error) {
	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return org.NewIndex(snap), nil
}

func view(m Message, ix *org.Index) View {
	v := View{Message: m}
	if a, ok := ix.Account(m.SenderID); ok {
		sum := a.Summary()
		v.Sender = &sum
	}
	if a, ok := ix.Account(m.RecipientID); ok {
		sum := a.Summary()
		v.Recipient = &sum
	}
	return v
}
