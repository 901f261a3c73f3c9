// Package stream fans recorded sales out to live subscribers (SSE clients).
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
)

// SaleEvent is the live notification emitted for every recorded sale.
type SaleEvent struct {
	SaleID    string       `json:"sale_id"`
	AccountID string       `json:"account_id"`
	SquadID   string       `json:"squad_id,omitempty"`
	Date      sales.Date   `json:"date"`
	Amount    sales.Amount `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

// Stream fan-outs sale events to all active subscribers.
type Stream struct {
	mu     sync.RWMutex
	subs   map[int]chan SaleEvent
	next   int
	buffer int
	now    func() time.Time
}

// New initialises an empty stream. Each subscriber gets a buffer of the given
// size (16 when buffer <= 0); events for a full subscriber are dropped.
func New(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 16
	}
	return &Stream{
		subs:   make(map[int]chan SaleEvent),
		buffer: buffer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan SaleEvent {
	ch := make(chan SaleEvent, s.buffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Subscribers reports the number of live subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt SaleEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// slow subscriber
		}
	}
}

// SaleRecorded implements sales.Publisher.
func (s *Stream) SaleRecorded(_ context.Context, sale sales.Sale, owner org.Account) {
	s.Publish(SaleEvent{
		SaleID:    sale.ID,
		AccountID: sale.AccountID,
		SquadID:   owner.SquadID,
		Date:      sale.Date,
		Amount:    sale.Amount,
		Timestamp: s.now(),
	})
}

// Visible reports whether actor may observe evt given the directory index:
// owners see everything, managers the sales of their squad, contributors
// their own.
func Visible(ix *org.Index, actor org.Actor, evt SaleEvent) bool {
	switch actor.Role {
	case org.RoleOwner:
		return true
	case org.RoleManager:
		sq, ok := ix.ManagedSquad(actor.ID)
		return ok && evt.SquadID != "" && sq.ID == evt.SquadID
	case org.RoleContributor:
		return evt.AccountID == actor.ID
	}
	return false
}

var _ sales.Publisher = (*Stream)(nil)
