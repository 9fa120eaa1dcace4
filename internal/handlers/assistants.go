package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_assistant_service.go -package=mocks kbase/internal/handlers AssistantService

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kbase/internal/contextutil"
	"kbase/internal/service"
	"kbase/internal/storage"
)

// AssistantService manages assistant configuration and lifecycle.
// This interface is defined from the handler's perspective (consumer-first).
type AssistantService interface {
	Create(ctx context.Context, req service.AssistantRequest) (*storage.AssistantRecord, error)
	Get(ctx context.Context, id string) (*storage.AssistantRecord, error)
	Update(ctx context.Context, id string, req service.AssistantRequest) (*storage.AssistantRecord, error)
	Delete(ctx context.Context, id string) error
	Documents(ctx context.Context, id string) ([]*storage.DocumentRecord, error)
	Messages(ctx context.Context, id string, limit int) ([]*storage.MessageRecord, error)
	Stats(ctx context.Context, id string) (*service.AssistantStats, error)
}

// AssistantHandler handles HTTP requests for assistant management.
type AssistantHandler struct {
	svc AssistantService
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(svc AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// AssistantPayload represents the HTTP request payload for creating or
// updating an assistant.
type AssistantPayload struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Department   string `json:"department,omitempty"`
	Personality  string `json:"personality,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// AssistantResponse represents an assistant in HTTP responses.
type AssistantResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Department   string    `json:"department,omitempty"`
	Personality  string    `json:"personality,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MessageResponse represents one conversation log entry in HTTP responses.
type MessageResponse struct {
	ID            string    `json:"id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	UsedKnowledge bool      `json:"usedKnowledge"`
	Sources       []string  `json:"sources"`
	CreatedAt     time.Time `json:"createdAt"`
}

// StatsResponse summarizes an assistant's knowledge base.
type StatsResponse struct {
	Documents   map[string]int `json:"documents"`
	TotalChunks int            `json:"totalChunks"`
	Messages    int            `json:"messages"`
}

func assistantResponse(a *storage.AssistantRecord) AssistantResponse {
	return AssistantResponse{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		Department:   a.Department,
		Personality:  a.Personality,
		Instructions: a.Instructions,
		Status:       a.Status,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (p AssistantPayload) toServiceRequest() service.AssistantRequest {
	return service.AssistantRequest{
		Name:         p.Name,
		Description:  p.Description,
		Department:   p.Department,
		Personality:  p.Personality,
		Instructions: p.Instructions,
	}
}

// Create handles POST /api/assistants.
func (h *AssistantHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var payload AssistantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	assistant, err := h.svc.Create(ctx, payload.toServiceRequest())
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to create assistant")
		return
	}
	writeJSON(w, http.StatusCreated, assistantResponse(assistant))
}

// Get handles GET /api/assistants/{assistantID}.
func (h *AssistantHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assistant, err := h.svc.Get(ctx, chi.URLParam(r, "assistantID"))
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load assistant")
		return
	}
	writeJSON(w, http.StatusOK, assistantResponse(assistant))
}

// Update handles PUT /api/assistants/{assistantID}.
func (h *AssistantHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var payload AssistantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	assistant, err := h.svc.Update(ctx, chi.URLParam(r, "assistantID"), payload.toServiceRequest())
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to update assistant")
		return
	}
	writeJSON(w, http.StatusOK, assistantResponse(assistant))
}

// Delete handles DELETE /api/assistants/{assistantID}.
func (h *AssistantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.svc.Delete(ctx, chi.URLParam(r, "assistantID")); err != nil {
		writeServiceError(ctx, w, err, "Failed to delete assistant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Documents handles GET /api/assistants/{assistantID}/documents.
func (h *AssistantHandler) Documents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.svc.Documents(ctx, chi.URLParam(r, "assistantID"))
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, documentResponse(doc))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Messages handles GET /api/assistants/{assistantID}/messages.
// An optional limit query parameter returns only the newest messages.
func (h *AssistantHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	msgs, err := h.svc.Messages(ctx, chi.URLParam(r, "assistantID"), limit)
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to list messages")
		return
	}

	resp := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		sources := m.Sources
		if sources == nil {
			sources = []string{}
		}
		resp = append(resp, MessageResponse{
			ID:            m.ID,
			Role:          m.Role,
			Content:       m.Content,
			UsedKnowledge: m.UsedKnowledge,
			Sources:       sources,
			CreatedAt:     m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/assistants/{assistantID}/stats.
func (h *AssistantHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Stats(ctx, chi.URLParam(r, "assistantID"))
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Documents:   stats.Documents,
		TotalChunks: stats.TotalChunks,
		Messages:    stats.Messages,
	})
}
