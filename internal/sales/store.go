package sales

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/ids"
)

// Store is the append-only sales ledger. List returns entries ordered by date
// descending, then id descending.
type Store interface {
	Append(ctx context.Context, s Sale) (Sale, error)
	Get(ctx context.Context, id string) (Sale, error)
	List(ctx context.Context, f Filter) ([]Sale, error)
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	sales []Sale
	byID  map[string]int
	now   func() time.Time
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		byID: make(map[string]int),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemory) Append(ctx context.Context, sale Sale) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sale.ID == "" {
		sale.ID = ids.New()
	}
	sale.CreatedAt = s.now()
	s.byID[sale.ID] = len(s.sales)
	s.sales = append(s.sales, sale)
	return sale, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Sale{}, apperr.WithIDs(apperr.ErrNotFound, "sale not found", id)
	}
	return s.sales[i], nil
}

func (s *InMemory) List(ctx context.Context, f Filter) ([]Sale, error) {
	if f.Range.Empty() || (f.AccountIDs != nil && len(f.AccountIDs) == 0) {
		return []Sale{}, nil
	}
	var owners map[string]struct{}
	if f.AccountIDs != nil {
		owners = make(map[string]struct{}, len(f.AccountIDs))
		for _, id := range f.AccountIDs {
			owners[id] = struct{}{}
		}
	}

	s.mu.RLock()
	out := make([]Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if owners != nil {
			if _, ok := owners[sale.AccountID]; !ok {
				continue
			}
		}
		if f.Range.Contains(sale.Date) {
			out = append(out, sale)
		}
	}
	s.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders sales by date descending, then id descending.
func SortNewestFirst(list []Sale) {
	slices.SortFunc(list, func(a, b Sale) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
