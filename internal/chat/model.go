package chat

import "time"

// Message is the in-memory message model. IDs are server-assigned ULIDs:
// unique, stable, and lexicographically time-ordered, which makes them a
// deterministic tie-breaker when two messages share a timestamp.
type Message struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation"` // canonical conversation key
	SenderID     string    `json:"sender_id"`
	Text         string    `json:"text"`
	SentAt       time.Time `json:"sent_at"`
}

// Less orders messages by (SentAt, ID) ascending.
func (m Message) Less(other Message) bool {
	if !m.SentAt.Equal(other.SentAt) {
		return m.SentAt.Before(other.SentAt)
	}
	return m.ID < other.ID
}

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is a change-feed notification for a single message row. Delivery
// order is not guaranteed to match (SentAt, ID) order; the view re-sorts.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message Message   `json:"message"`
}
