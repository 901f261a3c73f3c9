// Package sales implements the sales ledger and the aggregation engine that
// builds personal, squad and global reports over it.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

// Directory supplies a consistent view of accounts and squads.
type Directory interface {
	Snapshot(ctx context.Context) (org.Snapshot, error)
}

// Publisher is notified after a sale has been recorded.
type Publisher interface {
	SaleRecorded(ctx context.Context, sale Sale, owner org.Account)
}

type Service struct {
	store Store
	dir   Directory
	pubs  []Publisher
}

type Option func(*Service)

// WithPublisher registers p to receive recorded sales.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pubs = append(s.pubs, p)
		}
	}
}

func NewService(store Store, dir Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("sales store is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	s := &Service{store: store, dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RecordSale appends a sale owned by the actor, who must be an active contributor.
func (s *Service) RecordSale(ctx context.Context, actor org.Actor, in NewSale) (Sale, error) {
	if in.Date.IsZero() {
		return Sale{}, fmt.Errorf("%w: sale date is required", apperr.ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return Sale{}, fmt.Errorf("%w: amount must be > 0", apperr.ErrInvalidInput)
	}
	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return Sale{}, err
	}
	owner, ok := org.NewIndex(snap).Account(actor.ID)
	if !ok || !owner.Active {
		return Sale{}, apperr.WithIDs(apperr.ErrNotFound, "account not found or inactive", actor.ID)
	}
	if owner.Role != org.RoleContributor {
		return Sale{}, apperr.WithIDs(apperr.ErrInvalidRole, "only contributors record sales", actor.ID)
	}
	sale, err := s.store.Append(ctx, Sale{Date: in.Date, Amount: in.Amount, AccountID: owner.ID})
	if err != nil {
		return Sale{}, err
	}
	for _, p := range s.pubs {
		p.SaleRecorded(ctx, sale, owner)
	}
	return sale, nil
}

// ListMine returns the actor's own sales, newest first.
func (s *Service) ListMine(ctx context.Context, actor org.Actor, r Range) ([]Sale, error) {
	if err := actor.Require(org.RoleContributor); err != nil {
		return nil, err
	}
	return s.store.List(ctx, Filter{AccountIDs: []string{actor.ID}, Range: r})
}

// ListSquad returns the sales of the active contributors in the squad the
// actor manages.
func (s *Service) ListSquad(ctx context.Context, actor org.Actor, r Range) ([]SaleView, error) {
	if err := actor.Require(org.RoleManager); err != nil {
		return nil, err
	}
	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ix := org.NewIndex(snap)
	sq, ok := ix.ManagedSquad(actor.ID)
	if !ok {
		return nil, apperr.WithIDs(apperr.ErrNotFound, "no squad is managed by this account", actor.ID)
	}
	roster := lo.Map(ix.ActiveContributors(sq.ID), func(a org.Account, _ int) string { return a.ID })
	list, err := s.store.List(ctx, Filter{AccountIDs: roster, Range: r})
	if err != nil {
		return nil, err
	}
	return withOwners(list, ix), nil
}

// ListAll returns the whole ledger to an owner.
func (s *Service) ListAll(ctx context.Context, actor org.Actor, r Range) ([]SaleView, error) {
	if err := actor.Require(org.RoleOwner); err != nil {
		return nil, err
	}
	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, Filter{Range: r})
	if err != nil {
		return nil, err
	}
	return withOwners(list, org.NewIndex(snap)), nil
}

// GetSale returns one sale to an owner, to its owning contributor or to the
// manager of the owner's current squad. Sales of deactivated accounts remain
// readable.
func (s *Service) GetSale(ctx context.Context, actor org.Actor, id string) (SaleView, error) {
	sale, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return SaleView{}, err
	}
	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return SaleView{}, err
	}
	ix := org.NewIndex(snap)
	view := withOwners([]Sale{sale}, ix)[0]

	switch {
	case actor.Role == org.RoleOwner, actor.ID == sale.AccountID:
		return view, nil
	case actor.Role == org.RoleManager:
		owner, _ := ix.Account(sale.AccountID)
		if sq, ok := ix.ManagedSquad(actor.ID); ok && owner.SquadID == sq.ID {
			return view, nil
		}
	}
	return SaleView{}, apperr.WithIDs(apperr.ErrForbidden, "sale is not visible to this account", sale.ID)
}

func withOwners(list []Sale, ix *org.Index) []SaleView {
	return lo.Map(list, func(sale Sale, _ int) SaleView {
		v := SaleView{Sale: sale}
		if acc, ok := ix.Account(sale.AccountID); ok {
			sum := acc.Summary()
			v.Owner = &sum
		}
		return v
	})
}
