package pg

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
)

var (
	accountCols = []string{"id", "first_name", "last_name", "email", "role", "active", "squad_id", "created_at", "updated_at"}
	squadCols   = []string{"id", "name", "manager_id", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func checkMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSnapshotReadsBothCollectionsInOneTx(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("select .* from accounts order by id").WillReturnRows(
		sqlmock.NewRows(accountCols).
			AddRow("a1", "Ann", "A", "ann@example.com", "owner", true, nil, now, now).
			AddRow("c1", "Cal", "C", "cal@example.com", "contributor", true, "s1", now, now))
	mock.ExpectQuery("select .* from squads order by id").WillReturnRows(
		sqlmock.NewRows(squadCols).AddRow("s1", "North", nil, now, now))
	mock.ExpectCommit()

	snap, err := s.Directory().Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Accounts) != 2 || len(snap.Squads) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Accounts[1].SquadID != "s1" || snap.Accounts[1].Role != org.RoleContributor {
		t.Fatalf("account not decoded: %+v", snap.Accounts[1])
	}
	if snap.Squads[0].ManagerID != "" {
		t.Fatalf("null manager must decode as empty, got %q", snap.Squads[0].ManagerID)
	}
	checkMock(t, mock)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("insert into accounts").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "accounts_email_key"})

	_, err := s.Directory().CreateAccount(context.Background(), org.Account{
		FirstName: "A", LastName: "B", Email: "a@example.com", Role: org.RoleOwner, Active: true,
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	checkMock(t, mock)
}

func TestUpdateAccountClearsManagedSquads(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("update accounts set first_name").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("m1", "Max", "M", "max@example.com", "contributor", true, nil, now, now))
	mock.ExpectExec("update squads set manager_id=null").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acc, err := s.Directory().UpdateAccount(context.Background(), org.Account{
		ID: "m1", FirstName: "Max", LastName: "M", Email: "max@example.com", Role: org.RoleContributor, Active: true,
	})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if acc.Role != org.RoleContributor {
		t.Fatalf("unexpected role %q", acc.Role)
	}
	checkMock(t, mock)
}

func TestUpdateAccountMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("update accounts set first_name").WillReturnRows(sqlmock.NewRows(accountCols))
	mock.ExpectRollback()

	_, err := s.Directory().UpdateAccount(context.Background(), org.Account{ID: "ghost", Role: org.RoleOwner})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	checkMock(t, mock)
}

func TestReplaceMembersRollsBackOnMissingAccount(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from squads where id=\$1 for update`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("update accounts set squad_id=null").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`update accounts set squad_id=\$1`).WithArgs("s1", "c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update accounts set squad_id=\$1`).WithArgs("s1", "ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Directory().ReplaceMembers(context.Background(), "s1", []string{"c1", "ghost"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if ids := apperr.IDs(err); !reflect.DeepEqual(ids, []string{"ghost"}) {
		t.Fatalf("unexpected ids %v", ids)
	}
	checkMock(t, mock)
}

func TestReplaceMembersCommits(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from squads where id=\$1 for update`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("update accounts set squad_id=null").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update accounts set squad_id=\$1`).WithArgs("s1", "c2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Directory().ReplaceMembers(context.Background(), "s1", []string{"c2"}); err != nil {
		t.Fatalf("ReplaceMembers: %v", err)
	}
	checkMock(t, mock)
}

func TestDeleteSquadClearsMembersFirst(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from squads where id=\$1 for update`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("update accounts set squad_id=null").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("delete from squads").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.Directory().DeleteSquad(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSquad: %v", err)
	}
	checkMock(t, mock)
}

func TestDeleteSquadMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`select 1 from squads where id=\$1 for update`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	if err := s.Directory().DeleteSquad(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	checkMock(t, mock)
}

func TestSquadManagerConflict(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("update squads set name").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "squads_manager_key"})

	_, err := s.Directory().UpdateSquad(context.Background(), org.Squad{ID: "s2", Name: "South", ManagerID: "m1"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	checkMock(t, mock)
}

func TestListQueryBuildsPositionalFilters(t *testing.T) {
	from, _ := sales.ParseDate("2024-01-01")
	to, _ := sales.ParseDate("2024-01-31")
	q, args := listQuery(sales.Filter{AccountIDs: []string{"a", "b"}, Range: sales.Range{From: &from, To: &to}})

	for _, want := range []string{"account_id in ($1,$2)", "sale_date >= $3", "sale_date <= $4", "order by sale_date desc, id desc"} {
		if !strings.Contains(q, want) {
			t.Fatalf("query %q lacks %q", q, want)
		}
	}
	if len(args) != 4 || args[0] != "a" || args[2] != from.Time() {
		t.Fatalf("unexpected args %v", args)
	}

	q, args = listQuery(sales.Filter{})
	if strings.Contains(q, "where") || len(args) != 0 {
		t.Fatalf("unfiltered query should have no where clause: %q %v", q, args)
	}
}

func TestLedgerListDecodesCents(t *testing.T) {
	s, mock := newMock(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from sales where account_id in").WithArgs("c1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "sale_date", "amount_cents", "account_id", "created_at"}).
			AddRow("x1", day, int64(16050), "c1", day))

	list, err := s.Ledger().List(context.Background(), sales.Filter{AccountIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Amount.String() != "160.50" || list[0].Date.String() != "2024-03-01" {
		t.Fatalf("unexpected sales %+v", list)
	}
	checkMock(t, mock)
}

func TestLedgerListShortCircuits(t *testing.T) {
	s, mock := newMock(t)
	from, _ := sales.ParseDate("2024-02-01")
	to, _ := sales.ParseDate("2024-01-01")

	for _, f := range []sales.Filter{{AccountIDs: []string{}}, {Range: sales.Range{From: &from, To: &to}}} {
		list, err := s.Ledger().List(context.Background(), f)
		if err != nil || len(list) != 0 {
			t.Fatalf("expected empty result without query, got %v %v", list, err)
		}
	}
	checkMock(t, mock)
}

func TestLedgerAppendUnknownOwner(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("insert into sales").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "sales_account_id_fkey"})

	day, _ := sales.ParseDate("2024-01-01")
	_, err := s.Ledger().Append(context.Background(), sales.Sale{Date: day, Amount: 100, AccountID: "ghost"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	checkMock(t, mock)
}

func TestMarkReadKeepsFirstTimestamp(t *testing.T) {
	s, mock := newMock(t)
	sent := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	readAt := sent.Add(time.Hour)

	mock.ExpectExec("update messages set read=true").WithArgs("m1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select .* from messages where id=").WithArgs("m1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "title", "body", "sender_id", "recipient_id", "sent_at", "read", "read_at"}).
			AddRow("m1", "t", "b", "a", "b", sent, true, readAt))

	m, err := s.Messages().MarkRead(context.Background(), "m1", readAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !m.Read || m.ReadAt == nil || !m.ReadAt.Equal(readAt) {
		t.Fatalf("unexpected message %+v", m)
	}
	checkMock(t, mock)
}
