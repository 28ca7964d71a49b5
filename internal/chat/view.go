package chat

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"clubchat/internal/metrics"
	"clubchat/internal/storage"
)

// MaxAttachmentSize is the upload ceiling, checked before any network call.
const MaxAttachmentSize = 10 << 20 // 10 MiB

// ViewState is the lifecycle state of the active conversation view.
type ViewState string

const (
	StateIdle         ViewState = "idle"
	StateLoading      ViewState = "loading"
	StateFailed       ViewState = "failed" // history load failed; retryable
	StateActive       ViewState = "active"
	StateReconnecting ViewState = "reconnecting"
)

// View owns the single authoritative ordered message list for the active
// conversation. The initial history fetch, live feed events and local
// send/attach requests all reconcile into that one list.
//
// Only the View mutates its message list; callers read snapshots and call
// Send/Attach/SetActive. Exactly one conversation is active at a time.
type View struct {
	store    MessageStore
	feed     Feed
	blobs    storage.ObjectStore
	onChange func()

	mu        sync.Mutex
	gen       uint64
	conv      Conversation
	msgs      []Message
	state     ViewState
	subStatus SubscriptionStatus
	sub       Subscription
}

// NewView constructs an idle view. onChange, if non-nil, fires after every
// observable state or list change; it must not block.
func NewView(store MessageStore, feed Feed, blobs storage.ObjectStore, onChange func()) *View {
	return &View{
		store:    store,
		feed:     feed,
		blobs:    blobs,
		onChange: onChange,
		state:    StateIdle,
	}
}

// SetActive switches the view to conv, or to idle when conv is the zero
// Conversation. The previous subscription is released, the list cleared,
// and history re-fetched. Every async resumption point re-checks the
// generation counter, so results of a superseded switch are discarded.
func (v *View) SetActive(ctx context.Context, conv Conversation) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	old := v.sub
	v.sub = nil
	v.conv = conv
	v.msgs = nil
	v.subStatus = SubConnecting
	if conv.IsZero() {
		v.state = StateIdle
	} else {
		v.state = StateLoading
	}
	v.mu.Unlock()

	// Tear down outside the lock; feed callbacks for the old conversation
	// are discarded by the generation check either way.
	if old != nil {
		old.Unsubscribe()
	}
	v.notify()

	if conv.IsZero() {
		return nil
	}

	// Subscribe before the initial fetch so events raced during the fetch
	// are not lost; the idempotent merge absorbs the overlap.
	sub := v.feed.Subscribe(conv, FeedHandler{
		OnEvent:  func(e Event) { v.applyEvent(gen, e) },
		OnStatus: func(s SubscriptionStatus) { v.applyStatus(gen, s) },
	})

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	return v.loadHistory(ctx, gen, conv)
}

// Close releases the subscription and returns the view to idle.
func (v *View) Close() {
	_ = v.SetActive(context.Background(), Conversation{})
}

// Retry re-attempts the initial history load after a fetch failure.
func (v *View) Retry(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateFailed || v.conv.IsZero() {
		v.mu.Unlock()
		return nil
	}
	gen := v.gen
	conv := v.conv
	v.state = StateLoading
	v.mu.Unlock()
	v.notify()

	return v.loadHistory(ctx, gen, conv)
}

// loadHistory fetches history for conv and reconciles the list against
// it, discarding the result if the view has moved on.
func (v *View) loadHistory(ctx context.Context, gen uint64, conv Conversation) error {
	history, err := v.store.History(ctx, conv, HistoryQuery{})

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return nil
	}
	if err != nil {
		if v.state == StateLoading {
			v.state = StateFailed
		}
		v.mu.Unlock()
		v.notify()
		return &FetchError{Err: err}
	}
	v.reconcileLocked(history)
	v.state = StateActive
	v.mu.Unlock()
	v.notify()
	return nil
}

// reconcileLocked rebuilds the list from a fresh history fetch. The fetch
// is authoritative for everything up to its ordering horizon: a local
// message inside that range but absent from the fetch was deleted while
// the feed was down, and is dropped. Local messages ordered past the
// horizon raced the fetch through the feed, and are kept.
func (v *View) reconcileLocked(history []Message) {
	var tail []Message
	if len(history) > 0 {
		horizon := history[len(history)-1]
		for _, m := range v.msgs {
			if horizon.Less(m) {
				tail = append(tail, m)
			}
		}
	}

	v.msgs = nil
	for _, m := range history {
		v.insertLocked(m)
	}
	for _, m := range tail {
		v.insertLocked(m)
	}
}

// Send validates and persists a message. The list is not mutated here:
// the canonical update arrives through the feed. A failed send surfaces to
// the caller and is never retried automatically.
func (v *View) Send(ctx context.Context, senderID, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	v.mu.Lock()
	conv := v.conv
	v.mu.Unlock()
	if conv.IsZero() {
		return ErrNoConversation
	}

	if _, err := v.store.Send(ctx, conv, senderID, trimmed); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// Attach uploads a file to object storage and sends its link-encoded body
// as an ordinary message. The size limit is enforced before any upload; an
// upload failure aborts before any message is sent. A persist failure
// leaves an uploaded-but-unreferenced object: logged, not retried.
func (v *View) Attach(ctx context.Context, senderID, filename string, data []byte, kind AttachmentKind) error {
	if len(data) > MaxAttachmentSize {
		return ErrAttachmentTooLarge
	}

	v.mu.Lock()
	conv := v.conv
	v.mu.Unlock()
	if conv.IsZero() {
		return ErrNoConversation
	}

	objectPath := attachmentPath(conv, filename, time.Now())
	url, err := v.blobs.Upload(ctx, objectPath, data)
	if err != nil {
		metrics.AttachmentUploads.WithLabelValues("upload_failed").Inc()
		return fmt.Errorf("upload attachment: %w", err)
	}

	body := EncodeAttachment(kind, filename, url)
	if _, err := v.store.Send(ctx, conv, senderID, body); err != nil {
		log.Printf("chat: attachment %s uploaded but message send failed: %v", objectPath, err)
		metrics.AttachmentUploads.WithLabelValues("orphaned").Inc()
		return &SendError{Err: err}
	}
	metrics.AttachmentUploads.WithLabelValues("ok").Inc()
	return nil
}

// attachmentPath namespaces uploads by conversation with a timestamp+random
// suffix (ULID), preserving the original extension.
func attachmentPath(conv Conversation, filename string, now time.Time) string {
	return fmt.Sprintf("chat/%s/%s%s", conv.Key(), NewMessageID(now), path.Ext(filename))
}

// Messages returns a copy of the current ordered message list.
func (v *View) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.msgs))
	copy(out, v.msgs)
	return out
}

// State returns the current lifecycle state.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SubscriptionStatus returns the feed connection status.
func (v *View) SubscriptionStatus() SubscriptionStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.subStatus
}

// Active returns the active conversation (zero when idle).
func (v *View) Active() Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conv
}

// applyEvent merges one feed event. Events for a conversation that is no
// longer active are discarded.
func (v *View) applyEvent(gen uint64, e Event) {
	v.mu.Lock()
	if v.gen != gen || v.conv.IsZero() || e.Message.Conversation != v.conv.Key() {
		v.mu.Unlock()
		return
	}

	changed := false
	switch e.Kind {
	case EventInsert:
		changed = v.insertLocked(e.Message)
	case EventUpdate:
		// Replace in place; an update for an unknown id is treated as an
		// insert.
		if i := v.indexLocked(e.Message.ID); i >= 0 {
			v.msgs = append(v.msgs[:i], v.msgs[i+1:]...)
		}
		v.insertLocked(e.Message)
		changed = true
	case EventDelete:
		if i := v.indexLocked(e.Message.ID); i >= 0 {
			v.msgs = append(v.msgs[:i], v.msgs[i+1:]...)
			changed = true
		}
	}
	v.mu.Unlock()

	if changed {
		v.notify()
	}
}

// applyStatus tracks the feed connection. A drop while active moves the
// view to Reconnecting with the list retained; once the feed is back, a
// fresh history fetch reconciles any gap (the feed never replays).
func (v *View) applyStatus(gen uint64, status SubscriptionStatus) {
	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return
	}
	v.subStatus = status

	refetch := false
	switch status {
	case SubError:
		if v.state == StateActive {
			v.state = StateReconnecting
		}
	case SubActive:
		if v.state == StateReconnecting {
			refetch = true
		}
	}
	conv := v.conv
	v.mu.Unlock()
	v.notify()

	if refetch {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := v.loadHistory(ctx, gen, conv); err != nil {
				log.Printf("chat: reconnect re-fetch: %v", err)
			}
		}()
	}
}

// insertLocked inserts m at its (SentAt, ID) position. Idempotent: a
// message whose id is already present is a no-op.
func (v *View) insertLocked(m Message) bool {
	if v.indexLocked(m.ID) >= 0 {
		return false
	}
	i := sort.Search(len(v.msgs), func(i int) bool {
		return !v.msgs[i].Less(m)
	})
	v.msgs = append(v.msgs, Message{})
	copy(v.msgs[i+1:], v.msgs[i:])
	v.msgs[i] = m
	return true
}

func (v *View) indexLocked(id string) int {
	for i := range v.msgs {
		if v.msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *View) notify() {
	if v.onChange != nil {
		v.onChange()
	}
}
