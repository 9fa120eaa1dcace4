package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ask_service.go -package=mocks kbase/internal/handlers AskService

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kbase/internal/contextutil"
	"kbase/internal/llm"
	"kbase/internal/service"
)

// AskService answers questions against one assistant's knowledge base.
// This interface is defined from the handler's perspective (consumer-first).
type AskService interface {
	Ask(ctx context.Context, req service.AskRequest) (service.AskResponse, error)
}

// AskHandler handles HTTP requests for question answering.
type AskHandler struct {
	svc AskService
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

// AskRequest represents the HTTP request payload for a question.
type AskRequest struct {
	Question string           `json:"question"`
	History  []HistoryMessage `json:"history,omitempty"`
}

// HistoryMessage is one prior conversation turn supplied by the client.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskResponse represents the HTTP response payload for an answered question.
type AskResponse struct {
	Answer        string   `json:"answer"`
	Sources       []string `json:"sources"`
	UsedKnowledge bool     `json:"usedKnowledge"`
}

// Ask handles POST /api/assistants/{assistantID}/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	history := make([]llm.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := h.svc.Ask(ctx, service.AskRequest{
		AssistantID: chi.URLParam(r, "assistantID"),
		Question:    req.Question,
		History:     history,
	})
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to answer question")
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, AskResponse{
		Answer:        resp.Answer,
		Sources:       sources,
		UsedKnowledge: resp.UsedKnowledge,
	})
}
