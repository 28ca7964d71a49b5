package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"clubchat/internal/middleware"
	"clubchat/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are filtered by the CORS middleware
	},
}

// RoleChecker is the slice of the club service the moderation endpoint
// needs: may userID delete messages in clubID?
type RoleChecker interface {
	CanModerate(ctx context.Context, clubID, userID string) (bool, error)
}

type Handler struct {
	repo     *Repository
	feed     Feed
	selector *Selector
	blobs    storage.ObjectStore
	roles    RoleChecker
}

func NewHandler(repo *Repository, feed Feed, selector *Selector, blobs storage.ObjectStore, roles RoleChecker) *Handler {
	return &Handler{
		repo:     repo,
		feed:     feed,
		selector: selector,
		blobs:    blobs,
		roles:    roles,
	}
}

// ServeWs upgrades the connection and runs a session bound to the
// authenticated user.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	session := NewSession(userID, conn, h.selector, h.repo, h.feed, h.blobs)
	go session.Run()
}

// GetHistory serves ordered history over REST for non-realtime consumers:
// GET /api/messages?conversation=<key>&after=<id>&limit=<n>.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	conv, err := ParseKey(r.URL.Query().Get("conversation"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authorizeRead(r, conv, userID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	q := HistoryQuery{AfterID: r.URL.Query().Get("after")}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		q.Limit, _ = strconv.Atoi(limit)
	}

	messages, err := h.repo.History(r.Context(), conv, q)
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

// DeleteMessage removes a message: club admins and moderators for channel
// conversations, the sender for direct ones.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)
	id := chi.URLParam(r, "id")

	msg, err := h.repo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}
	conv, err := ParseKey(msg.Conversation)
	if err != nil {
		http.Error(w, "malformed conversation", http.StatusInternalServerError)
		return
	}

	allowed := false
	switch conv.Kind {
	case KindChannel:
		allowed, err = h.roles.CanModerate(r.Context(), conv.ClubID, userID)
		if err != nil {
			http.Error(w, "role check failed", http.StatusInternalServerError)
			return
		}
	case KindDirect:
		allowed = msg.SenderID == userID
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorizeRead(r *http.Request, conv Conversation, userID string) error {
	switch conv.Kind {
	case KindChannel:
		ok, err := h.selector.members.IsMember(r.Context(), conv.ClubID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotMember
		}
	case KindDirect:
		if conv.DirectLow != userID && conv.DirectHigh != userID {
			return errors.New("not a participant")
		}
	}
	return nil
}
