package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffGrowsAndCaps(t *testing.T) {
	for attempt := 0; attempt < 20; attempt++ {
		d := nextBackoff(attempt)
		assert.GreaterOrEqual(t, d, reconnectBaseDelay, "attempt %d", attempt)
		assert.LessOrEqual(t, d, reconnectMaxDelay, "attempt %d", attempt)
	}
	// Deep into the retry sequence the cap holds exactly.
	assert.Equal(t, reconnectMaxDelay, nextBackoff(50))
}

func TestFirstBackoffIsBaseDelay(t *testing.T) {
	// Attempt 0 is the first retry: base delay plus at most half the base
	// in jitter, never the doubled second step.
	for i := 0; i < 100; i++ {
		d := nextBackoff(0)
		assert.GreaterOrEqual(t, d, reconnectBaseDelay)
		assert.Less(t, d, 2*reconnectBaseDelay)
	}
}

func TestUnsubscribeStopsCallbacks(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	var statuses []SubscriptionStatus

	sub := &redisSubscription{
		handler: FeedHandler{
			OnEvent: func(e Event) {
				mu.Lock()
				events = append(events, e)
				mu.Unlock()
			},
			OnStatus: func(s SubscriptionStatus) {
				mu.Lock()
				statuses = append(statuses, s)
				mu.Unlock()
			},
		},
		cancel: func() {},
	}

	sub.emitEvent(Event{Kind: EventInsert, Message: Message{ID: "1"}})
	sub.emitStatus(SubActive)

	sub.Unsubscribe()
	sub.emitEvent(Event{Kind: EventInsert, Message: Message{ID: "2"}})
	sub.emitStatus(SubError)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, events, 1, "no events after Unsubscribe returns")
	assert.Len(t, statuses, 1)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	cancels := 0
	sub := &redisSubscription{cancel: func() { cancels++ }}
	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 2, cancels, "repeat calls are safe")
}

func TestSleepCtxHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, sleepCtx(ctx, time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFeedChannelName(t *testing.T) {
	assert.Equal(t, "chat:channel:club-1:chan-1", feedChannel(ChannelConversation("club-1", "chan-1")))
}
