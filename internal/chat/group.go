package chat

import "time"

// GroupWindow is the maximum gap between consecutive messages from the
// same sender that still renders as one run.
const GroupWindow = 5 * time.Minute

// MessageGroup is a render-ready run of consecutive messages from one
// sender.
type MessageGroup struct {
	SenderID string
	Messages []Message
}

// GroupMessages derives render groups from an ordered message list: a
// message joins the previous group iff the sender matches and it arrived
// less than GroupWindow after the previous message. Pure and stateless.
func GroupMessages(messages []Message) []MessageGroup {
	var groups []MessageGroup
	for i, msg := range messages {
		if i > 0 {
			prev := messages[i-1]
			sameSender := prev.SenderID == msg.SenderID
			closeTime := msg.SentAt.Sub(prev.SentAt) < GroupWindow
			if sameSender && closeTime {
				last := &groups[len(groups)-1]
				last.Messages = append(last.Messages, msg)
				continue
			}
		}
		groups = append(groups, MessageGroup{
			SenderID: msg.SenderID,
			Messages: []Message{msg},
		})
	}
	return groups
}
