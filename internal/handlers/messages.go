package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/apiserver/internal/services"
	"github.com/messagely/apiserver/internal/store"
)

// MessageHandler provides HTTP handlers for messages.
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler constructs a handler with the provided service.
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// MessageRouter registers message routes on the given router. All routes
// require authentication.
func MessageRouter(r chi.Router, handler *MessageHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Post("/", handler.CreateMessage)
	r.Route("/{messageID}", func(r chi.Router) {
		r.Get("/", handler.GetMessage)
		r.Post("/read", handler.MarkRead)
	})
}

// CreateMessage sends a message from the authenticated user.
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	from, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.ToUsername = strings.TrimSpace(req.ToUsername)
	if req.ToUsername == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "all fields required")
		return
	}

	message, err := h.messageService.Send(r.Context(), from, req.ToUsername, req.Body)
	if err != nil {
		if errors.Is(err, store.ErrForeignKey) {
			writeError(w, http.StatusBadRequest, "unknown recipient")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create message")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: message})
}

// GetMessage returns a message with both profiles embedded. Only a
// participant, sender or recipient, may view it.
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	subject, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.messageService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch message")
		return
	}

	if subject != message.FromUser.Username && subject != message.ToUser.Username {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, ResultsResponse{Results: message})
}

// MarkRead stamps read_at. Only the recipient may mark a message read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	subject, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.messageService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch message")
		return
	}

	if subject != message.ToUser.Username {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	receipt, err := h.messageService.MarkRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to mark message read")
		return
	}

	writeJSON(w, http.StatusOK, ReadResponse{Message: receipt})
}

type CreateMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

// MessageResponse wraps a created message under a "message" key.
type MessageResponse struct {
	Message any `json:"message"`
}

// ReadResponse wraps a read receipt under a "message" key.
type ReadResponse struct {
	Message any `json:"message"`
}

func parseMessageID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "messageID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid message id")
	}
	return id, nil
}
