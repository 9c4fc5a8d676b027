// Package api is the HTTP front end of the query bot.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	logx "github.com/Chative-querybot/server/pkg/logger"
)

// SessionHeader carries the conversation id. A new id is issued when it is absent.
const SessionHeader = "X-Session-ID"

// Bot is the conversational surface the handlers drive.
type Bot interface {
	Submit(ctx context.Context, sessionID, utterance string) string
	Hint(ctx context.Context, sessionID string) string
	ResetSession(ctx context.Context, sessionID string) error
}

type Handler struct {
	bot Bot
}

func NewHandler(bot Bot) *Handler {
	return &Handler{bot: bot}
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
	Hint     string `json:"hint"`
}

// RegisterRoutes registers the chat and session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.Chat)
	r.Post("/session/reset", h.ResetSession)
}

// Chat runs one turn for the caller's session.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Query == "" {
		Error(w, http.StatusBadRequest, "No query provided")
		return
	}

	sessionID := sessionID(w, r)
	response := h.bot.Submit(r.Context(), sessionID, req.Query)
	JSON(w, http.StatusOK, chatResponse{
		Response: response,
		Hint:     h.bot.Hint(r.Context(), sessionID),
	})
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionID(w, r)
	if err := h.bot.ResetSession(r.Context(), sessionID); err != nil {
		logx.Session(sessionID).Error().Err(err).Msg("Failed to reset session")
		Error(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "Not found")
}

func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("Failed to encode response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
