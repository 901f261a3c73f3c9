package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/ids"
	"github.com/esrabs/evaluation-commerciale-be/internal/messaging"
)

// Messages is the Postgres messaging.Store.
type Messages struct {
	db *sql.DB
}

var _ messaging.Store = (*Messages)(nil)

const messageColumns = `id, title, body, sender_id, recipient_id, sent_at, read, read_at`

func scanMessage(row scanner) (messaging.Message, error) {
	var (
		m      messaging.Message
		readAt sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Body, &m.SenderID, &m.RecipientID, &m.SentAt, &m.Read, &readAt); err != nil {
		return messaging.Message{}, err
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return m, nil
}

func (s *Messages) Create(ctx context.Context, m messaging.Message) (messaging.Message, error) {
	if m.ID == "" {
		m.ID = ids.New()
	}
	out, err := scanMessage(s.db.QueryRowContext(ctx, `
		insert into messages(id, title, body, sender_id, recipient_id, sent_at)
		values ($1,$2,$3,$4,$5,$6)
		returning `+messageColumns, m.ID, m.Title, m.Body, m.SenderID, m.RecipientID, m.SentAt))
	if err != nil {
		return messaging.Message{}, translate(err)
	}
	return out, nil
}

func (s *Messages) Get(ctx context.Context, id string) (messaging.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx, `select `+messageColumns+` from messages where id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return messaging.Message{}, apperr.WithIDs(apperr.ErrNotFound, "message not found", id)
	}
	return m, err
}

func (s *Messages) ListForRecipient(ctx context.Context, accountID string) ([]messaging.Message, error) {
	return s.list(ctx, `select `+messageColumns+` from messages where recipient_id=$1 order by sent_at desc, id desc`, accountID)
}

func (s *Messages) ListForSender(ctx context.Context, accountID string) ([]messaging.Message, error) {
	return s.list(ctx, `select `+messageColumns+` from messages where sender_id=$1 order by sent_at desc, id desc`, accountID)
}

// MarkRead only touches unread rows, so the first read timestamp sticks.
func (s *Messages) MarkRead(ctx context.Context, id string, at time.Time) (messaging.Message, error) {
	if _, err := s.db.ExecContext(ctx, `update messages set read=true, read_at=$2 where id=$1 and not read`, id, at); err != nil {
		return messaging.Message{}, err
	}
	return s.Get(ctx, id)
}

func (s *Messages) list(ctx context.Context, query, accountID string) ([]messaging.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]messaging.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
