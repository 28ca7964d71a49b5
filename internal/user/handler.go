package user

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"clubchat/internal/middleware"
	"clubchat/internal/storage"
)

// maxImageUpload caps avatar uploads.
const maxImageUpload = 5 << 20

type Handler struct {
	Service *Service
	Blobs   storage.ObjectStore
}

func NewHandler(s *Service, blobs storage.ObjectStore) *Handler {
	return &Handler{Service: s, Blobs: blobs}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(res)
}

// GetProfile serves the directory lookup: name and avatar for a user id.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.Service.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "profile lookup failed", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(p)
}

// UploadAvatar stores a new avatar in object storage and points the
// caller's profile at it.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		http.Error(w, "avatar file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUpload+1))
	if err != nil {
		http.Error(w, "read upload failed", http.StatusInternalServerError)
		return
	}
	if len(data) > maxImageUpload {
		http.Error(w, "avatar too large", http.StatusRequestEntityTooLarge)
		return
	}

	objectPath := "avatars/" + userID + strings.ToLower(filepath.Ext(header.Filename))
	url, err := h.Blobs.Upload(r.Context(), objectPath, data)
	if err != nil {
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}
	if err := h.Service.SetAvatar(r.Context(), userID, url); err != nil {
		http.Error(w, "save avatar failed", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"avatar_url": url})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []User{}
	}
	json.NewEncoder(w).Encode(users)
}
