package chat

import (
	"fmt"
	"strings"
)

type ConversationKind string

const (
	KindChannel ConversationKind = "channel"
	KindDirect  ConversationKind = "direct"
)

// Conversation identifies the unit of chat addressability: either a club
// channel or a direct two-party conversation. Values are comparable, so a
// view can detect stale events with a plain equality check.
type Conversation struct {
	Kind ConversationKind

	// Channel conversations.
	ClubID    string
	ChannelID string

	// Direct conversations: the two participant ids, sorted
	// lexicographically so the key is independent of who initiated.
	DirectLow  string
	DirectHigh string
}

// ChannelConversation builds the identity of a club channel conversation.
func ChannelConversation(clubID, channelID string) Conversation {
	return Conversation{Kind: KindChannel, ClubID: clubID, ChannelID: channelID}
}

// DirectConversation builds the canonical identity of a direct conversation
// between two users, regardless of argument order.
func DirectConversation(a, b string) Conversation {
	if b < a {
		a, b = b, a
	}
	return Conversation{Kind: KindDirect, DirectLow: a, DirectHigh: b}
}

// Key returns the canonical string form used as the persisted
// conversation_key and as the feed channel suffix.
func (c Conversation) Key() string {
	switch c.Kind {
	case KindChannel:
		return fmt.Sprintf("channel:%s:%s", c.ClubID, c.ChannelID)
	case KindDirect:
		return fmt.Sprintf("direct:%s:%s", c.DirectLow, c.DirectHigh)
	}
	return ""
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Conversation, error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return Conversation{}, fmt.Errorf("malformed conversation key %q", key)
	}
	switch ConversationKind(parts[0]) {
	case KindChannel:
		return ChannelConversation(parts[1], parts[2]), nil
	case KindDirect:
		return DirectConversation(parts[1], parts[2]), nil
	}
	return Conversation{}, fmt.Errorf("unknown conversation kind %q", parts[0])
}

// IsZero reports whether c is the empty conversation.
func (c Conversation) IsZero() bool {
	return c.Kind == ""
}
