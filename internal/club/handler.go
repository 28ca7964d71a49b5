package club

import (
	"context"
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

// maxImageUpload caps club avatar and banner uploads.
const maxImageUpload = 5 << 20

type Handler struct {
	Repo  *Repository
	Blobs storage.ObjectStore
}

func NewHandler(repo *Repository, blobs storage.ObjectStore) *Handler {
	return &Handler{Repo: repo, Blobs: blobs}
}

func currentUser(ctx context.Context) string {
	id, _ := ctx.Value(middleware.UserKey).(string)
	return id
}

// requireAdmin resolves the caller's role; only admins pass.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request, clubID string) bool {
	role, err := h.Repo.Role(r.Context(), clubID, currentUser(r.Context()))
	if err != nil {
		http.Error(w, "role check failed", http.StatusInternalServerError)
		return false
	}
	if role != RoleAdmin {
		http.Error(w, "admin role required", http.StatusForbidden)
		return false
	}
	return true
}

func (h *Handler) CreateClub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "club name is required", http.StatusBadRequest)
		return
	}

	c, err := h.Repo.CreateClub(r.Context(), req.Name, req.Description, currentUser(r.Context()))
	if err != nil {
		http.Error(w, "create club failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *Handler) ListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.Repo.ListClubs(r.Context())
	if err != nil {
		http.Error(w, "list clubs failed", http.StatusInternalServerError)
		return
	}
	if clubs == nil {
		clubs = []Club{}
	}
	json.NewEncoder(w).Encode(clubs)
}

func (h *Handler) GetClub(w http.ResponseWriter, r *http.Request) {
	c, err := h.Repo.GetClub(r.Context(), chi.URLParam(r, "clubID"))
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "club not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "get club failed", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(c)
}

func (h *Handler) UpdateClub(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if !h.requireAdmin(w, r, clubID) {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "club name is required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.UpdateClub(r.Context(), clubID, req.Name, req.Description); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "club not found", http.StatusNotFound)
			return
		}
		http.Error(w, "update club failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetImages uploads a club avatar and/or banner. Either multipart field
// may be omitted; an omitted field leaves the stored image untouched.
func (h *Handler) SetImages(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if !h.requireAdmin(w, r, clubID) {
		return
	}

	if err := r.ParseMultipartForm(2 * maxImageUpload); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	avatarURL, err := h.uploadImage(r, "avatar", "clubs/"+clubID+"/avatar")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bannerURL, err := h.uploadImage(r, "banner", "clubs/"+clubID+"/banner")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if avatarURL == "" && bannerURL == "" {
		http.Error(w, "pass an avatar or banner file", http.StatusBadRequest)
		return
	}

	if err := h.Repo.SetClubImages(r.Context(), clubID, avatarURL, bannerURL); err != nil {
		http.Error(w, "save images failed", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"avatar_url": avatarURL,
		"banner_url": bannerURL,
	})
}

// uploadImage stores one optional multipart image, returning "" when the
// field is absent.
func (h *Handler) uploadImage(r *http.Request, field, pathPrefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUpload+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxImageUpload {
		return "", errors.New(field + " too large")
	}
	return h.Blobs.Upload(r.Context(), pathPrefix+strings.ToLower(filepath.Ext(header.Filename)), data)
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.Repo.ListChannels(r.Context(), chi.URLParam(r, "clubID"))
	if err != nil {
		http.Error(w, "list channels failed", http.StatusInternalServerError)
		return
	}
	if channels == nil {
		channels = []Channel{}
	}
	json.NewEncoder(w).Encode(channels)
}

func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if !h.requireAdmin(w, r, clubID) {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "channel name is required", http.StatusBadRequest)
		return
	}

	ch, err := h.Repo.CreateChannel(r.Context(), clubID, req.Name)
	if err != nil {
		http.Error(w, "create channel failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ch)
}

func (h *Handler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if !h.requireAdmin(w, r, clubID) {
		return
	}

	err := h.Repo.DeleteChannel(r.Context(), clubID, chi.URLParam(r, "channelID"))
	switch {
	case errors.Is(err, ErrProtectedChannel):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "channel not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, "delete channel failed", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Join(r.Context(), chi.URLParam(r, "clubID"), currentUser(r.Context())); err != nil {
		http.Error(w, "join failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Leave(r.Context(), chi.URLParam(r, "clubID"), currentUser(r.Context())); err != nil {
		http.Error(w, "leave failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Repo.ListMembers(r.Context(), chi.URLParam(r, "clubID"))
	if err != nil {
		http.Error(w, "list members failed", http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []Member{}
	}
	json.NewEncoder(w).Encode(members)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if !h.requireAdmin(w, r, clubID) {
		return
	}

	if err := h.Repo.Leave(r.Context(), clubID, chi.URLParam(r, "userID")); err != nil {
		http.Error(w, "remove member failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRole promotes or demotes a member. The persisted role feeds the
// moderation check used by message deletion.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if !h.requireAdmin(w, r, clubID) {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Role != RoleMember && req.Role != RoleModerator && req.Role != RoleAdmin {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	err := h.Repo.SetRole(r.Context(), clubID, chi.URLParam(r, "userID"), req.Role)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "role update failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
