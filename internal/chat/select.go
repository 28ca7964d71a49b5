package chat

import (
	"context"
	"errors"
)

// SelectRequest is the wire form of a conversation selection: a club
// channel, or a direct conversation with another user.
type SelectRequest struct {
	Kind      ConversationKind `json:"kind"`
	ClubID    string           `json:"club_id,omitempty"`
	ChannelID string           `json:"channel_id,omitempty"`
	UserID    string           `json:"user_id,omitempty"` // the other participant
}

// MembershipChecker is the narrow slice of the club service the selector
// needs.
type MembershipChecker interface {
	IsMember(ctx context.Context, clubID, userID string) (bool, error)
}

var (
	ErrBadSelection = errors.New("invalid conversation selection")
	ErrNotMember    = errors.New("not a member of this club")
)

// Selector maps route/command parameters to a canonical Conversation.
type Selector struct {
	members MembershipChecker
}

func NewSelector(members MembershipChecker) *Selector {
	return &Selector{members: members}
}

// Resolve canonicalizes req for userID, enforcing club membership for
// channel conversations. Direct conversations are keyed by the sorted
// participant pair, independent of who initiated.
func (s *Selector) Resolve(ctx context.Context, userID string, req SelectRequest) (Conversation, error) {
	switch req.Kind {
	case KindChannel:
		if req.ClubID == "" || req.ChannelID == "" {
			return Conversation{}, ErrBadSelection
		}
		ok, err := s.members.IsMember(ctx, req.ClubID, userID)
		if err != nil {
			return Conversation{}, err
		}
		if !ok {
			return Conversation{}, ErrNotMember
		}
		return ChannelConversation(req.ClubID, req.ChannelID), nil

	case KindDirect:
		if req.UserID == "" || req.UserID == userID {
			return Conversation{}, ErrBadSelection
		}
		return DirectConversation(userID, req.UserID), nil
	}
	return Conversation{}, ErrBadSelection
}
