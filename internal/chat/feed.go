package chat

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"clubchat/internal/metrics"
)

// SubscriptionStatus is the connection state of a feed subscription.
type SubscriptionStatus string

const (
	SubConnecting SubscriptionStatus = "connecting"
	SubActive     SubscriptionStatus = "active"
	SubError      SubscriptionStatus = "error"
)

// FeedHandler receives events and status changes for one subscription.
// Both callbacks are invoked from the subscription's receive goroutine.
type FeedHandler struct {
	OnEvent  func(Event)
	OnStatus func(SubscriptionStatus)
}

// Subscription is a live change-feed subscription. Unsubscribe is
// idempotent and guarantees no callback runs after it returns.
type Subscription interface {
	Unsubscribe()
}

// Feed delivers row-level insert/update/delete events scoped to one
// conversation. No replay: after a reconnect, consumers must re-fetch
// history to recover any gap.
type Feed interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(conv Conversation, handler FeedHandler) Subscription
}

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// nextBackoff returns the delay before resubscribe attempt n (0-based):
// exponential with jitter, capped at reconnectMaxDelay.
func nextBackoff(attempt int) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(reconnectBaseDelay) * 0.5)
	delay := float64(reconnectBaseDelay)*math.Pow(2, float64(attempt)) + float64(jitter)
	return time.Duration(math.Min(delay, float64(reconnectMaxDelay)))
}

// RedisFeed implements Feed over Redis pub/sub. One Redis channel per
// conversation: "chat:<conversation key>".
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func feedChannel(conv Conversation) string {
	return "chat:" + conv.Key()
}

func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, "chat:"+event.Message.Conversation, payload).Err()
}

func (f *RedisFeed) Subscribe(conv Conversation, handler FeedHandler) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		handler: handler,
		cancel:  cancel,
	}
	go sub.run(ctx, f.client, feedChannel(conv))
	return sub
}

// redisSubscription owns the receive loop for one conversation. The mutex
// gates every callback so Unsubscribe can synchronously detach: once it
// returns, no further OnEvent or OnStatus call is made.
type redisSubscription struct {
	handler FeedHandler
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func (s *redisSubscription) Unsubscribe() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *redisSubscription) emitStatus(status SubscriptionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.handler.OnStatus == nil {
		return
	}
	s.handler.OnStatus(status)
}

func (s *redisSubscription) emitEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.handler.OnEvent == nil {
		return
	}
	metrics.FeedEvents.WithLabelValues(string(event.Kind)).Inc()
	s.handler.OnEvent(event)
}

func (s *redisSubscription) run(ctx context.Context, client *redis.Client, channel string) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		s.emitStatus(SubConnecting)

		pubsub := client.Subscribe(ctx, channel)
		// Force the SUBSCRIBE round-trip so connection failures surface
		// here instead of silently inside Channel().
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			s.emitStatus(SubError)
			metrics.FeedReconnects.Inc()
			delay := nextBackoff(attempt)
			attempt++
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		attempt = 0
		s.emitStatus(SubActive)

		s.receive(ctx, pubsub)
		pubsub.Close()

		if ctx.Err() != nil {
			return
		}
		// Dropped connection: report and retry with backoff.
		s.emitStatus(SubError)
		metrics.FeedReconnects.Inc()
		delay := nextBackoff(attempt)
		attempt++
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

func (s *redisSubscription) receive(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("feed: dropping malformed event: %v", err)
				continue
			}
			s.emitEvent(event)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
