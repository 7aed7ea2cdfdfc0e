package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/apiserver/internal/services"
	"github.com/messagely/apiserver/internal/storage"
	"github.com/messagely/apiserver/internal/store"
)

// UserHandler provides HTTP handlers for the user directory.
type UserHandler struct {
	userService *services.UserService
	avatars     *storage.AvatarStore
}

// NewUserHandler constructs a handler with the provided dependencies.
// avatars may be nil when no avatar backend is configured.
func NewUserHandler(userService *services.UserService, avatars *storage.AvatarStore) *UserHandler {
	return &UserHandler{
		userService: userService,
		avatars:     avatars,
	}
}

// UserRouter registers user routes on the given router. All routes require
// authentication; profile and mailbox routes are additionally self-only.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.ListUsers)
	r.Route("/{username}", func(r chi.Router) {
		r.With(handler.requireSelf).Get("/", handler.GetUser)
		r.With(handler.requireSelf).Get("/to", handler.MessagesTo)
		r.With(handler.requireSelf).Get("/from", handler.MessagesFrom)
		r.With(handler.requireSelf).Put("/avatar", handler.PutAvatar)
		r.Get("/avatar", handler.GetAvatar)
	})
}

// requireSelf allows the request only when the authenticated username equals
// the {username} URL parameter.
func (h *UserHandler) requireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := usernameFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if subject != chi.URLParam(r, "username") {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: users})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "username not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: user})
}

func (h *UserHandler) MessagesTo(w http.ResponseWriter, r *http.Request) {
	messages, err := h.userService.MessagesTo(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: messages})
}

func (h *UserHandler) MessagesFrom(w http.ResponseWriter, r *http.Request) {
	messages, err := h.userService.MessagesFrom(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{Results: messages})
}
