package messaging

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu   sync.RWMutex
	msgs map[string]Message
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{msgs: make(map[string]Message)}
}

func (s *InMemory) Create(ctx context.Context, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = ids.New()
	}
	s.msgs[m.ID] = m
	return m, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.msgs[id]
	if !ok {
		return Message{}, apperr.WithIDs(apperr.ErrNotFound, "message not found", id)
	}
	return m, nil
}

func (s *InMemory) ListForRecipient(ctx context.Context, accountID string) ([]Message, error) {
	return s.list(func(m Message) bool { return m.RecipientID == accountID }), nil
}

func (s *InMemory) ListForSender(ctx context.Context, accountID string) ([]Message, error) {
	return s.list(func(m Message) bool { return m.SenderID == accountID }), nil
}

func (s *InMemory) MarkRead(ctx context.Context, id string, at time.Time) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return Message{}, apperr.WithIDs(apperr.ErrNotFound, "message not found", id)
	}
	if !m.Read {
		m.Read = true
		m.ReadAt = &at
		s.msgs[id] = m
	}
	return m, nil
}

func (s *InMemory) list(keep func(Message) bool) []Message {
	s.mu.RLock()
	out := make([]Message, 0)
	for _, m := range s.msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Message) int {
		if c := b.SentAt.Compare(a.SentAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}
