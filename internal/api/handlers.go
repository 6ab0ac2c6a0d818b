package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/chatrelay/ai-chat-relay/internal/core"
	"github.com/chatrelay/ai-chat-relay/internal/store"
)

// Registrar registers a user on the chat platform and in the local store.
type Registrar interface {
	Register(ctx context.Context, name, email string) (core.Identity, error)
}

// ChatFlow runs conversational turns and lists stored exchanges.
type ChatFlow interface {
	Converse(ctx context.Context, userID, message string) (string, error)
	ListHistory(ctx context.Context, userID string) ([]store.ChatExchange, error)
}

type APIHandler struct {
	identity Registrar
	chat     ChatFlow
}

func NewAPIHandler(identity Registrar, chat ChatFlow) (*APIHandler, error) {
	if identity == nil {
		return nil, errors.New("api: registrar must not be nil")
	}
	if chat == nil {
		return nil, errors.New("api: chat flow must not be nil")
	}
	return &APIHandler{identity: identity, chat: chat}, nil
}

type RegisterUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *APIHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	identity, err := h.identity.Register(r.Context(), req.Name, req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

type ChatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := h.chat.Converse(r.Context(), req.UserID, req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

type GetMessagesRequest struct {
	UserID string `json:"userId"`
}

type GetMessagesResponse struct {
	Messages []store.ChatExchange `json:"messages"`
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	var req GetMessagesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	messages, err := h.chat.ListHistory(r.Context(), req.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if messages == nil {
		messages = []store.ChatExchange{}
	}
	writeJSON(w, http.StatusOK, GetMessagesResponse{Messages: messages})
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps core error kinds to status codes. Anything that is
// not a *core.Error is treated as internal.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		coreErr = &core.Error{Kind: core.KindInternal, Message: "Internal server error", Err: err}
	}

	switch coreErr.Kind {
	case core.KindValidation:
		writeError(w, http.StatusBadRequest, coreErr.Message)
	case core.KindNotFound:
		writeError(w, http.StatusNotFound, coreErr.Message)
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
