package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/ids"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

// Directory is the Postgres org.Store.
type Directory struct {
	db *sql.DB
}

var _ org.Store = (*Directory)(nil)

const (
	accountColumns = `id, first_name, last_name, email, role, active, squad_id, created_at, updated_at`
	squadColumns   = `id, name, manager_id, created_at, updated_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (org.Account, error) {
	var (
		acc   org.Account
		role  string
		squad sql.NullString
	)
	if err := row.Scan(&acc.ID, &acc.FirstName, &acc.LastName, &acc.Email, &role, &acc.Active, &squad, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return org.Account{}, err
	}
	acc.Role = org.Role(role)
	acc.SquadID = squad.String
	return acc, nil
}

func scanSquad(row scanner) (org.Squad, error) {
	var (
		sq      org.Squad
		manager sql.NullString
	)
	if err := row.Scan(&sq.ID, &sq.Name, &manager, &sq.CreatedAt, &sq.UpdatedAt); err != nil {
		return org.Squad{}, err
	}
	sq.ManagerID = manager.String
	return sq, nil
}

// Snapshot reads accounts and squads inside one read-only repeatable-read
// transaction so both collections reflect the same instant.
func (d *Directory) Snapshot(ctx context.Context) (org.Snapshot, error) {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return org.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	accounts, err := queryAccounts(ctx, tx, `select `+accountColumns+` from accounts order by id`)
	if err != nil {
		return org.Snapshot{}, err
	}
	squads, err := querySquads(ctx, tx, `select `+squadColumns+` from squads order by id`)
	if err != nil {
		return org.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return org.Snapshot{}, err
	}
	return org.Snapshot{Accounts: accounts, Squads: squads}, nil
}

func (d *Directory) CreateAccount(ctx context.Context, acc org.Account) (org.Account, error) {
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	row := d.db.QueryRowContext(ctx, `
		insert into accounts(id, first_name, last_name, email, role, active, squad_id)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning `+accountColumns,
		acc.ID, acc.FirstName, acc.LastName, acc.Email, string(acc.Role), acc.Active, nullIfEmpty(acc.SquadID))
	out, err := scanAccount(row)
	if err != nil {
		return org.Account{}, translate(err)
	}
	return out, nil
}

func (d *Directory) UpdateAccount(ctx context.Context, acc org.Account) (org.Account, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return org.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		update accounts
		set first_name=$2, last_name=$3, email=$4, role=$5, active=$6, squad_id=$7, updated_at=now()
		where id=$1
		returning `+accountColumns,
		acc.ID, acc.FirstName, acc.LastName, acc.Email, string(acc.Role), acc.Active, nullIfEmpty(acc.SquadID))
	out, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return org.Account{}, apperr.WithIDs(apperr.ErrNotFound, "account not found", acc.ID)
	}
	if err != nil {
		return org.Account{}, translate(err)
	}
	if out.Role != org.RoleManager {
		if _, err := tx.ExecContext(ctx, `update squads set manager_id=null, updated_at=now() where manager_id=$1`, out.ID); err != nil {
			return org.Account{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return org.Account{}, err
	}
	return out, nil
}

func (d *Directory) GetAccount(ctx context.Context, id string) (org.Account, error) {
	acc, err := scanAccount(d.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return org.Account{}, apperr.WithIDs(apperr.ErrNotFound, "account not found", id)
	}
	return acc, err
}

func (d *Directory) ListAccounts(ctx context.Context) ([]org.Account, error) {
	return queryAccounts(ctx, d.db, `select `+accountColumns+` from accounts order by id`)
}

func (d *Directory) CreateSquad(ctx context.Context, sq org.Squad) (org.Squad, error) {
	if sq.ID == "" {
		sq.ID = ids.New()
	}
	out, err := scanSquad(d.db.QueryRowContext(ctx, `
		insert into squads(id, name, manager_id) values ($1,$2,$3)
		returning `+squadColumns, sq.ID, sq.Name, nullIfEmpty(sq.ManagerID)))
	if err != nil {
		return org.Squad{}, translate(err)
	}
	return out, nil
}

func (d *Directory) UpdateSquad(ctx context.Context, sq org.Squad) (org.Squad, error) {
	out, err := scanSquad(d.db.QueryRowContext(ctx, `
		update squads set name=$2, manager_id=$3, updated_at=now()
		where id=$1
		returning `+squadColumns, sq.ID, sq.Name, nullIfEmpty(sq.ManagerID)))
	if errors.Is(err, sql.ErrNoRows) {
		return org.Squad{}, apperr.WithIDs(apperr.ErrNotFound, "squad not found", sq.ID)
	}
	if err != nil {
		return org.Squad{}, translate(err)
	}
	return out, nil
}

func (d *Directory) GetSquad(ctx context.Context, id string) (org.Squad, error) {
	sq, err := scanSquad(d.db.QueryRowContext(ctx, `select `+squadColumns+` from squads where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return org.Squad{}, apperr.WithIDs(apperr.ErrNotFound, "squad not found", id)
	}
	return sq, err
}

func (d *Directory) ListSquads(ctx context.Context) ([]org.Squad, error) {
	return querySquads(ctx, d.db, `select `+squadColumns+` from squads order by id`)
}

// ReplaceMembers locks the squad row, detaches every current member and
// attaches the listed accounts in one transaction.
func (d *Directory) ReplaceMembers(ctx context.Context, squadID string, accountIDs []string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockSquad(ctx, tx, squadID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `update accounts set squad_id=null, updated_at=now() where squad_id=$1`, squadID); err != nil {
		return err
	}
	var missing []string
	for _, id := range accountIDs {
		res, err := tx.ExecContext(ctx, `update accounts set squad_id=$1, updated_at=now() where id=$2`, squadID, id)
		if err != nil {
			return translate(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return apperr.WithIDs(apperr.ErrNotFound, "accounts not found", missing...)
	}
	return tx.Commit()
}

// DeleteSquad detaches members and removes the squad in one transaction.
func (d *Directory) DeleteSquad(ctx context.Context, squadID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockSquad(ctx, tx, squadID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `update accounts set squad_id=null, updated_at=now() where squad_id=$1`, squadID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from squads where id=$1`, squadID); err != nil {
		return err
	}
	return tx.Commit()
}

func lockSquad(ctx context.Context, tx *sql.Tx, squadID string) error {
	var dummy int
	err := tx.QueryRowContext(ctx, `select 1 from squads where id=$1 for update`, squadID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.WithIDs(apperr.ErrNotFound, "squad not found", squadID)
	}
	return err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryAccounts(ctx context.Context, q querier, query string, args ...any) ([]org.Account, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]org.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func querySquads(ctx context.Context, q querier, query string, args ...any) ([]org.Squad, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]org.Squad, 0)
	for rows.Next() {
		sq, err := scanSquad(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}
