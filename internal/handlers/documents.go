package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks kbase/internal/handlers DocumentService

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"kbase/internal/contextutil"
	"kbase/internal/service"
	"kbase/internal/storage"
)

// DocumentService manages document uploads, status and re-ingestion.
// This interface is defined from the handler's perspective (consumer-first).
type DocumentService interface {
	Upload(ctx context.Context, req service.UploadRequest) (*storage.DocumentRecord, error)
	Get(ctx context.Context, id string) (*storage.DocumentRecord, error)
	Delete(ctx context.Context, id string) error
	Retrain(ctx context.Context, assistantID string) (int, error)
}

// DocumentHandler handles HTTP requests for document management.
type DocumentHandler struct {
	svc      DocumentService
	maxBytes int64
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(svc DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxBytes: maxBytes}
}

// DocumentResponse represents a document and its ingestion state in HTTP
// responses.
type DocumentResponse struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistantId"`
	Name        string    `json:"name"`
	FileSize    int64     `json:"fileSize"`
	FileType    string    `json:"fileType"`
	Status      string    `json:"status"`
	ChunkCount  *int      `json:"chunkCount,omitempty"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RetrainResponse reports how many documents were re-enqueued.
type RetrainResponse struct {
	Enqueued int `json:"enqueued"`
}

func documentResponse(d *storage.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		AssistantID: d.AssistantID,
		Name:        d.Name,
		FileSize:    d.FileSize,
		FileType:    d.FileType,
		Status:      d.Status,
		ChunkCount:  d.ChunkCount,
		Error:       d.Error,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Upload handles POST /api/assistants/{assistantID}/documents. The file is
// expected as a multipart form field named "file"; ingestion happens
// asynchronously after the upload returns.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	// Slack past the limit covers multipart framing so the service can reject
	// oversize files with a proper validation error instead of a read failure.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+4096)

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing or unreadable file field", "error", err)
		writeError(w, http.StatusBadRequest, "A multipart field named \"file\" is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.WarnContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			mediaType = byExt
		}
	}

	doc, err := h.svc.Upload(ctx, service.UploadRequest{
		AssistantID: chi.URLParam(r, "assistantID"),
		Filename:    header.Filename,
		MediaType:   mediaType,
		Data:        data,
	})
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to upload document")
		return
	}

	writeJSON(w, http.StatusAccepted, DocumentResponse{
		ID:          doc.ID,
		AssistantID: doc.AssistantID,
		Name:        doc.Name,
		FileSize:    doc.FileSize,
		FileType:    doc.FileType,
		Status:      storage.DocStatusUploaded,
	})
}

// Get handles GET /api/documents/{documentID}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := h.svc.Get(ctx, chi.URLParam(r, "documentID"))
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to load document")
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

// Delete handles DELETE /api/documents/{documentID}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.svc.Delete(ctx, chi.URLParam(r, "documentID")); err != nil {
		writeServiceError(ctx, w, err, "Failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Retrain handles POST /api/assistants/{assistantID}/retrain.
func (h *DocumentHandler) Retrain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.svc.Retrain(ctx, chi.URLParam(r, "assistantID"))
	if err != nil {
		writeServiceError(ctx, w, err, "Failed to retrain assistant")
		return
	}
	writeJSON(w, http.StatusAccepted, RetrainResponse{Enqueued: n})
}
