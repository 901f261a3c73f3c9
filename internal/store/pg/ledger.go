package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/ids"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
)

// Ledger is the Postgres sales.Store. Amounts are stored as bigint cents.
type Ledger struct {
	db *sql.DB
}

var _ sales.Store = (*Ledger)(nil)

const saleColumns = `id, sale_date, amount_cents, account_id, created_at`

func scanSale(row scanner) (sales.Sale, error) {
	var (
		s     sales.Sale
		day   time.Time
		cents int64
	)
	if err := row.Scan(&s.ID, &day, &cents, &s.AccountID, &s.CreatedAt); err != nil {
		return sales.Sale{}, err
	}
	s.Date = sales.DateOf(day)
	s.Amount = sales.Amount(cents)
	return s, nil
}

func (l *Ledger) Append(ctx context.Context, s sales.Sale) (sales.Sale, error) {
	if s.ID == "" {
		s.ID = ids.New()
	}
	out, err := scanSale(l.db.QueryRowContext(ctx, `
		insert into sales(id, sale_date, amount_cents, account_id)
		values ($1,$2,$3,$4)
		returning `+saleColumns, s.ID, s.Date.Time(), int64(s.Amount), s.AccountID))
	if err != nil {
		return sales.Sale{}, translate(err)
	}
	return out, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (sales.Sale, error) {
	s, err := scanSale(l.db.QueryRowContext(ctx, `select `+saleColumns+` from sales where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sales.Sale{}, apperr.WithIDs(apperr.ErrNotFound, "sale not found", id)
	}
	return s, err
}

func (l *Ledger) List(ctx context.Context, f sales.Filter) ([]sales.Sale, error) {
	if f.Range.Empty() || (f.AccountIDs != nil && len(f.AccountIDs) == 0) {
		return []sales.Sale{}, nil
	}
	query, args := listQuery(f)
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]sales.Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// listQuery builds the filtered select with positional arguments.
func listQuery(f sales.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.AccountIDs != nil {
		marks := make([]string, len(f.AccountIDs))
		for i, id := range f.AccountIDs {
			args = append(args, id)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, "account_id in ("+strings.Join(marks, ",")+")")
	}
	if f.Range.From != nil {
		args = append(args, f.Range.From.Time())
		where = append(where, fmt.Sprintf("sale_date >= $%d", len(args)))
	}
	if f.Range.To != nil {
		args = append(args, f.Range.To.Time())
		where = append(where, fmt.Sprintf("sale_date <= $%d", len(args)))
	}
	q := `select ` + saleColumns + ` from sales`
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, " and ")
	}
	return q + ` order by sale_date desc, id desc`, args
}
