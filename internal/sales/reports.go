package sales

import (
	"cmp"
	"context"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 50
)

// ClampLimit bounds a leaderboard size to [1, MaxLeaderboardLimit].
func ClampLimit(limit int) int {
	return min(max(limit, 1), MaxLeaderboardLimit)
}

// accumulator sums cents exactly.
type accumulator struct {
	count    int
	sum      int64
	min, max int64
}

func (a *accumulator) add(v Amount) {
	c := int64(v)
	if a.count == 0 || c < a.min {
		a.min = c
	}
	if a.count == 0 || c > a.max {
		a.max = c
	}
	a.count++
	a.sum += c
}

// mean divides in decimal and rounds half-up to cents; zero when empty.
func (a *accumulator) mean() Amount {
	if a.count == 0 {
		return 0
	}
	q := decimal.NewFromInt(a.sum).Div(decimal.NewFromInt(int64(a.count))).Round(0)
	return Amount(q.IntPart())
}

func (a *accumulator) stats() Stats {
	return Stats{Count: a.count, Sum: Amount(a.sum), Mean: a.mean(), Min: Amount(a.min), Max: Amount(a.max)}
}

// StatsFor reports count, sum, mean, min and max of an account's sales in r.
// Unknown accounts and empty ranges report zeros.
func (s *Service) StatsFor(ctx context.Context, accountID string, r Range) (PersonalReport, error) {
	rep := PersonalReport{AccountID: accountID, Range: r}
	list, err := s.store.List(ctx, Filter{AccountIDs: []string{accountID}, Range: r})
	if err != nil {
		return PersonalReport{}, err
	}
	var acc accumulator
	for _, sale := range list {
		acc.add(sale.Amount)
	}
	rep.Stats = acc.stats()
	return rep, nil
}

// StatsForSquad reports one row per active contributor of the squad managed by
// managerID, zero-filled, ranked by sum descending then account id.
func (s *Service) StatsForSquad(ctx context.Context, managerID string, r Range) (SquadReport, error) {
	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return SquadReport{}, err
	}
	ix := org.NewIndex(snap)
	if m, ok := ix.Account(managerID); !ok || !m.Active {
		return SquadReport{}, apperr.WithIDs(apperr.ErrNotFound, "manager not found or inactive", managerID)
	}
	sq, ok := ix.ManagedSquad(managerID)
	if !ok {
		return SquadReport{}, apperr.WithIDs(apperr.ErrNotFound, "no squad is managed by this account", managerID)
	}

	roster := ix.ActiveContributors(sq.ID)
	ids := lo.Map(roster, func(a org.Account, _ int) string { return a.ID })
	list, err := s.store.List(ctx, Filter{AccountIDs: ids, Range: r})
	if err != nil {
		return SquadReport{}, err
	}
	totals := make(map[string]*accumulator, len(roster))
	for _, id := range ids {
		totals[id] = &accumulator{}
	}
	for _, sale := range list {
		if a, ok := totals[sale.AccountID]; ok {
			a.add(sale.Amount)
		}
	}

	rows := lo.Map(roster, func(acc org.Account, _ int) SquadRow {
		t := totals[acc.ID]
		return SquadRow{Account: acc.Summary(), Count: t.count, Sum: Amount(t.sum), Mean: t.mean()}
	})
	slices.SortFunc(rows, func(a, b SquadRow) int {
		return rankOrder(a.Sum, b.Sum, a.Account.ID, b.Account.ID)
	})
	return SquadReport{SquadID: sq.ID, SquadName: sq.Name, Range: r, Rows: rows}, nil
}

// Leaderboard ranks active owners of in-range sales by total. Accounts with no
// qualifying sales are left out. limit is clamped to [1, MaxLeaderboardLimit].
func (s *Service) Leaderboard(ctx context.Context, limit int, r Range) (Leaderboard, error) {
	limit = ClampLimit(limit)
	board := Leaderboard{Limit: limit, Range: r, Entries: []LeaderboardEntry{}}

	snap, err := s.dir.Snapshot(ctx)
	if err != nil {
		return Leaderboard{}, err
	}
	ix := org.NewIndex(snap)
	list, err := s.store.List(ctx, Filter{Range: r})
	if err != nil {
		return Leaderboard{}, err
	}

	totals := make(map[string]*accumulator)
	for _, sale := range list {
		a, ok := totals[sale.AccountID]
		if !ok {
			a = &accumulator{}
			totals[sale.AccountID] = a
		}
		a.add(sale.Amount)
	}
	for id, t := range totals {
		owner, ok := ix.Account(id)
		if !ok || !owner.Active {
			continue
		}
		board.Entries = append(board.Entries, LeaderboardEntry{Account: owner.Summary(), Count: t.count, Total: Amount(t.sum)})
	}
	slices.SortFunc(board.Entries, func(a, b LeaderboardEntry) int {
		return rankOrder(a.Total, b.Total, a.Account.ID, b.Account.ID)
	})
	if len(board.Entries) > limit {
		board.Entries = board.Entries[:limit]
	}
	for i := range board.Entries {
		board.Entries[i].Rank = i + 1
	}
	return board, nil
}

// rankOrder sorts by amount descending, then id ascending.
func rankOrder(sumA, sumB Amount, idA, idB string) int {
	if c := cmp.Compare(sumB, sumA); c != 0 {
		return c
	}
	return cmp.Compare(idA, idB)
}

// PersonalStats is StatsFor for the calling contributor.
func (s *Service) PersonalStats(ctx context.Context, actor org.Actor, r Range) (PersonalReport, error) {
	if err := actor.Require(org.RoleContributor); err != nil {
		return PersonalReport{}, err
	}
	return s.StatsFor(ctx, actor.ID, r)
}

// SquadStats is StatsForSquad for the calling manager.
func (s *Service) SquadStats(ctx context.Context, actor org.Actor, r Range) (SquadReport, error) {
	if err := actor.Require(org.RoleManager); err != nil {
		return SquadReport{}, err
	}
	return s.StatsForSquad(ctx, actor.ID, r)
}

// GlobalLeaderboard is Leaderboard for an owner.
func (s *Service) GlobalLeaderboard(ctx context.Context, actor org.Actor, limit int, r Range) (Leaderboard, error) {
	if err := actor.Require(org.RoleOwner); err != nil {
		return Leaderboard{}, err
	}
	return s.Leaderboard(ctx, limit, r)
}
