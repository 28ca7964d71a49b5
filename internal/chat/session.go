package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"clubchat/internal/metrics"
	"clubchat/internal/storage"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Attachments arrive base64-encoded over the socket, so the read
	// limit must clear MaxAttachmentSize plus encoding overhead.
	maxFrameSize = 16 << 20

	commandTimeout = 30 * time.Second
)

// Command is a client-to-server frame.
type Command struct {
	Type   string         `json:"type"` // select | clear | send | attach | retry
	Select *SelectRequest `json:"select,omitempty"`
	Text   string         `json:"text,omitempty"`

	// attach
	Name string         `json:"name,omitempty"`
	Kind AttachmentKind `json:"attachment_kind,omitempty"`
	Data string         `json:"data,omitempty"` // base64
}

// Snapshot is the server-to-client frame pushed after every view change.
// The client renders from it directly, so delivery order between
// snapshots does not matter: the last one wins.
type Snapshot struct {
	Type         string             `json:"type"` // "snapshot"
	State        ViewState          `json:"state"`
	Subscription SubscriptionStatus `json:"subscription"`
	Conversation string             `json:"conversation,omitempty"`
	Messages     []Message          `json:"messages"`
}

type errorFrame struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// Session binds one websocket connection to its own conversation view.
type Session struct {
	userID   string
	conn     *websocket.Conn
	selector *Selector
	view     *View

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewSession wires a session and its view together. The caller starts the
// pumps with Run.
func NewSession(userID string, conn *websocket.Conn, selector *Selector, store MessageStore, feed Feed, blobs storage.ObjectStore) *Session {
	s := &Session{
		userID:   userID,
		conn:     conn,
		selector: selector,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	s.view = NewView(store, feed, blobs, s.pushSnapshot)
	return s
}

// Run starts the read/write pumps and blocks until the connection closes.
func (s *Session) Run() {
	metrics.OpenSessions.Inc()
	defer metrics.OpenSessions.Dec()

	go s.writePump()
	s.pushSnapshot() // initial idle state
	s.readPump()

	// Connection gone: tear the view down so the subscription is released
	// on every exit path.
	s.view.Close()
}

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Session) readPump() {
	defer func() {
		s.close()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("session %s: %v", s.userID, err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.pushError(err)
			continue
		}
		s.handle(cmd)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle dispatches one command. View operations run in their own
// goroutine so a slow history fetch never blocks the read pump; the view's
// generation counter keeps rapid re-selects consistent.
func (s *Session) handle(cmd Command) {
	switch cmd.Type {
	case "select":
		if cmd.Select == nil {
			s.pushError(ErrBadSelection)
			return
		}
		sel := *cmd.Select
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			conv, err := s.selector.Resolve(ctx, s.userID, sel)
			if err != nil {
				s.pushError(err)
				return
			}
			if err := s.view.SetActive(ctx, conv); err != nil {
				s.pushError(err)
			}
		}()

	case "clear":
		go s.view.Close()

	case "retry":
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			if err := s.view.Retry(ctx); err != nil {
				s.pushError(err)
			}
		}()

	case "send":
		text := cmd.Text
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			if err := s.view.Send(ctx, s.userID, text); err != nil {
				s.pushError(err)
			}
		}()

	case "attach":
		data, err := base64.StdEncoding.DecodeString(cmd.Data)
		if err != nil {
			s.pushError(err)
			return
		}
		name, kind := cmd.Name, cmd.Kind
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			if err := s.view.Attach(ctx, s.userID, name, data, kind); err != nil {
				s.pushError(err)
			}
		}()

	default:
		s.pushError(ErrBadSelection)
	}
}

// pushSnapshot serializes the current view and queues it. If the queue is
// full the oldest frame is dropped: snapshots are whole-state, so only the
// latest matters.
func (s *Session) pushSnapshot() {
	snap := Snapshot{
		Type:         "snapshot",
		State:        s.view.State(),
		Subscription: s.view.SubscriptionStatus(),
		Messages:     s.view.Messages(),
	}
	if conv := s.view.Active(); !conv.IsZero() {
		snap.Conversation = conv.Key()
	}
	frame, err := json.Marshal(snap)
	if err != nil {
		log.Printf("session %s: marshal snapshot: %v", s.userID, err)
		return
	}
	s.enqueue(frame)
}

func (s *Session) pushError(err error) {
	frame, merr := json.Marshal(errorFrame{Type: "error", Error: err.Error()})
	if merr != nil {
		return
	}
	s.enqueue(frame)
}

func (s *Session) enqueue(frame []byte) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.send <- frame:
			return
		default:
			select {
			case <-s.send: // shed the oldest frame
			default:
			}
		}
	}
}
