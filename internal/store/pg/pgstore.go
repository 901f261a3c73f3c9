// Package pg implements the record stores on Postgres through database/sql
// and the pgx driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store owns the connection pool shared by the directory, ledger and message stores.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Directory() *Directory { return &Directory{db: s.db} }

func (s *Store) Ledger() *Ledger { return &Ledger{db: s.db} }

func (s *Store) Messages() *Messages { return &Messages{db: s.db} }

// translate maps driver errors onto the apperr taxonomy.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		switch pgErr.ConstraintName {
		case "accounts_email_key":
			return fmt.Errorf("%w: email already in use", apperr.ErrConflict)
		case "squads_manager_key":
			return fmt.Errorf("%w: manager already manages another squad", apperr.ErrConflict)
		}
		return fmt.Errorf("%w: %s", apperr.ErrConflict, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: referenced record does not exist (%s)", apperr.ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
