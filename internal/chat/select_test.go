package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	members map[string]bool // clubID:userID
	err     error
}

func (f *fakeMembers) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[clubID+":"+userID], nil
}

func TestResolveChannelMember(t *testing.T) {
	s := NewSelector(&fakeMembers{members: map[string]bool{"club-1:user-a": true}})

	conv, err := s.Resolve(context.Background(), "user-a", SelectRequest{
		Kind: KindChannel, ClubID: "club-1", ChannelID: "chan-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ChannelConversation("club-1", "chan-1"), conv)
}

func TestResolveChannelNonMemberRejected(t *testing.T) {
	s := NewSelector(&fakeMembers{members: map[string]bool{}})

	_, err := s.Resolve(context.Background(), "user-a", SelectRequest{
		Kind: KindChannel, ClubID: "club-1", ChannelID: "chan-1",
	})
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestResolveChannelMembershipError(t *testing.T) {
	boom := errors.New("pg down")
	s := NewSelector(&fakeMembers{err: boom})

	_, err := s.Resolve(context.Background(), "user-a", SelectRequest{
		Kind: KindChannel, ClubID: "club-1", ChannelID: "chan-1",
	})
	assert.ErrorIs(t, err, boom)
}

func TestResolveDirectCanonical(t *testing.T) {
	s := NewSelector(&fakeMembers{})

	conv, err := s.Resolve(context.Background(), "user-b", SelectRequest{
		Kind: KindDirect, UserID: "user-a",
	})
	require.NoError(t, err)
	assert.Equal(t, DirectConversation("user-a", "user-b"), conv)
}

func TestResolveRejectsBadSelections(t *testing.T) {
	s := NewSelector(&fakeMembers{members: map[string]bool{"club-1:user-a": true}})

	cases := []SelectRequest{
		{},
		{Kind: KindChannel, ClubID: "club-1"},              // missing channel
		{Kind: KindChannel, ChannelID: "chan-1"},           // missing club
		{Kind: KindDirect},                                 // missing peer
		{Kind: KindDirect, UserID: "user-a"},               // self
		{Kind: ConversationKind("group"), ClubID: "club1"}, // unknown kind
	}
	for _, req := range cases {
		_, err := s.Resolve(context.Background(), "user-a", req)
		assert.ErrorIs(t, err, ErrBadSelection, "request %+v", req)
	}
}
