package messaging

import (
	"context"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

const MaxTitleLen = 150

// Message is a note from one account to another. Read goes false to true once.
type Message struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	SentAt      time.Time  `json:"sent_at"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// View attaches the participants' summaries to a message.
type View struct {
	Message
	Sender    *org.Summary `json:"sender,omitempty"`
	Recipient *org.Summary `json:"recipient,omitempty"`
}

// Store persists messages. ListFor* return newest first.
type Store interface {
	Create(ctx context.Context, m Message) (Message, error)
	Get(ctx context.Context, id string) (Message, error)
	ListForRecipient(ctx context.Context, accountID string) ([]Message, error)
	ListForSender(ctx context.Context, accountID string) ([]Message, error)
	// MarkRead sets the read flag and timestamp if not already set and returns
	// the stored message.
	MarkRead(ctx context.Context, id string, at time.Time) (Message, error)
}
