package chat

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"clubchat/internal/metrics"
)

// HistoryQuery narrows a history fetch. The zero value fetches the whole
// conversation; AfterID and Limit leave room for pagination without
// breaking callers.
type HistoryQuery struct {
	AfterID string
	Limit   int
}

// MessageStore is the persistence contract the sync core consumes.
type MessageStore interface {
	History(ctx context.Context, conv Conversation, q HistoryQuery) ([]Message, error)
	Send(ctx context.Context, conv Conversation, senderID, text string) (Message, error)
}

// Repository is the message store adapter over Postgres. Writes publish
// the matching change-feed event, so the feed is the single update path:
// senders see their own messages once, via the feed, never via a local
// append.
type Repository struct {
	db   *sql.DB
	feed Feed
}

func NewRepository(db *sql.DB, feed Feed) *Repository {
	return &Repository{db: db, feed: feed}
}

// NewMessageID returns a ULID. Lexicographic order tracks creation time,
// which keeps the (sent_at, id) tie-break stable.
func NewMessageID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now.UTC()), rand.Reader).String()
}

// History returns messages for conv ordered by (sent_at, id) ascending.
// Ordering is enforced at the source; callers may still re-sort as a
// safety net.
func (r *Repository) History(ctx context.Context, conv Conversation, q HistoryQuery) ([]Message, error) {
	query := `
		SELECT id, conversation_key, sender_id, body, sent_at
		FROM messages
		WHERE conversation_key = $1 AND id > $2
		ORDER BY sent_at ASC, id ASC
	`
	args := []any{conv.Key(), q.AfterID}
	if q.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Conversation, &m.SenderID, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Send durably persists a message and publishes the insert event. The
// local view is updated only by the returning feed event.
func (r *Repository) Send(ctx context.Context, conv Conversation, senderID, text string) (Message, error) {
	now := time.Now().UTC()
	m := Message{
		ID:           NewMessageID(now),
		Conversation: conv.Key(),
		SenderID:     senderID,
		Text:         text,
		SentAt:       now,
	}

	query := `
		INSERT INTO messages (id, conversation_key, sender_id, body, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.Conversation, m.SenderID, m.Text, m.SentAt); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	metrics.MessagesSent.Inc()

	if err := r.feed.Publish(ctx, Event{Kind: EventInsert, Message: m}); err != nil {
		// The row is durable; subscribers recover it on their next
		// reconnect re-fetch.
		log.Printf("chat: publish insert event for %s: %v", m.ID, err)
	}
	return m, nil
}

// Delete removes a message and publishes the delete event. Authorization
// (club admin or moderator) happens at the handler, not here.
func (r *Repository) Delete(ctx context.Context, id string) error {
	var m Message
	query := `
		DELETE FROM messages
		WHERE id = $1
		RETURNING id, conversation_key, sender_id, body, sent_at
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Conversation, &m.SenderID, &m.Text, &m.SentAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if err := r.feed.Publish(ctx, Event{Kind: EventDelete, Message: m}); err != nil {
		log.Printf("chat: publish delete event for %s: %v", m.ID, err)
	}
	return nil
}

// Get returns a single message by id.
func (r *Repository) Get(ctx context.Context, id string) (Message, error) {
	var m Message
	query := `
		SELECT id, conversation_key, sender_id, body, sent_at
		FROM messages WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Conversation, &m.SenderID, &m.Text, &m.SentAt)
	if err != nil {
		return Message{}, err
	}
	return m, nil
}
