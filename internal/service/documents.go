package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_enqueuer.go -package=mocks kbase/internal/service Enqueuer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kbase/internal/blob"
	"kbase/internal/contextutil"
	"kbase/internal/extractor"
	"kbase/internal/storage"
	"kbase/internal/vectorstore"
)

// Enqueuer hands a document to the background ingestion workers.
// Enqueue reports whether the document was accepted; a full queue rejects.
type Enqueuer interface {
	Enqueue(documentID string) bool
}

// UploadRequest represents a document upload in the domain layer.
type UploadRequest struct {
	AssistantID string `validate:"required"`
	Filename    string `validate:"required,max=255"`
	MediaType   string `validate:"required"`
	Data        []byte
}

// DocumentService manages document uploads, deletion and re-ingestion.
type DocumentService struct {
	assistants storage.AssistantStore
	docs       storage.DocumentStore
	blobs      blob.Store
	index      vectorstore.VectorIndex
	queue      Enqueuer
	collection string
	maxBytes   int64
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	assistants storage.AssistantStore,
	docs storage.DocumentStore,
	blobs blob.Store,
	index vectorstore.VectorIndex,
	queue Enqueuer,
	collection string,
	maxBytes int64,
) *DocumentService {
	return &DocumentService{
		assistants: assistants,
		docs:       docs,
		blobs:      blobs,
		index:      index,
		queue:      queue,
		collection: collection,
		maxBytes:   maxBytes,
	}
}

// Upload stores the raw file, creates the document row in status uploaded and
// hands the document to the ingestion workers. The blob is written before the
// row; if the row write fails the blob is removed again.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*storage.DocumentRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, &ValidationError{Field: "file", Message: "cannot be empty"}
	}
	if int64(len(req.Data)) > s.maxBytes {
		return nil, &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("exceeds the maximum size of %d bytes", s.maxBytes),
		}
	}
	if !extractor.Supported(req.MediaType) {
		return nil, &ValidationError{
			Field:   "file_type",
			Message: fmt.Sprintf("unsupported media type %q", req.MediaType),
		}
	}

	if _, err := s.assistants.GetByID(ctx, req.AssistantID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("assistant %s: %w", req.AssistantID, ErrNotFound)
		}
		return nil, WrapError(err, "failed to load assistant")
	}

	doc := &storage.DocumentRecord{
		ID:          uuid.NewString(),
		AssistantID: req.AssistantID,
		Name:        req.Filename,
		FileSize:    int64(len(req.Data)),
		FileType:    req.MediaType,
	}

	key := blob.Key(doc.ID, doc.Name)
	path, err := s.blobs.Save(key, req.Data)
	if err != nil {
		return nil, WrapError(err, "failed to store upload")
	}
	doc.FilePath = path

	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(key); delErr != nil {
			logger.ErrorContext(ctx, "failed to remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, WrapError(err, "failed to create document")
	}

	if !s.queue.Enqueue(doc.ID) {
		// The document stays in uploaded; a retrain picks it up later.
		logger.WarnContext(ctx, "ingestion queue full, document not enqueued", "document_id", doc.ID)
	}

	logger.InfoContext(ctx, "document uploaded",
		"document_id", doc.ID, "assistant_id", doc.AssistantID, "size", doc.FileSize, "type", doc.FileType)
	return doc, nil
}

// Get returns a document with its ingestion status.
func (s *DocumentService) Get(ctx context.Context, id string) (*storage.DocumentRecord, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, WrapError(err, "failed to load document")
	}
	return doc, nil
}

// Delete removes a document: vectors first, then the stored blob, then the
// row. Vector and blob failures are logged and do not block the row delete.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return WrapError(err, "failed to load document")
	}

	filter := vectorstore.Filter{AssistantID: doc.AssistantID, DocumentID: doc.ID}
	if err := s.index.DeleteByFilter(ctx, s.collection, filter); err != nil {
		logger.ErrorContext(ctx, "failed to delete document vectors", "document_id", doc.ID, "error", err)
	}
	if err := s.blobs.Delete(blob.Key(doc.ID, doc.Name)); err != nil {
		logger.WarnContext(ctx, "failed to delete stored upload", "document_id", doc.ID, "error", err)
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return WrapError(err, "failed to delete document")
	}

	logger.InfoContext(ctx, "document deleted", "document_id", doc.ID, "assistant_id", doc.AssistantID)
	return nil
}

// Retrain re-enqueues all of an assistant's documents for ingestion. Terminal
// documents are reset to uploaded first; documents already processing are left
// alone. Returns the number of documents enqueued.
func (s *DocumentService) Retrain(ctx context.Context, assistantID string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := s.assistants.GetByID(ctx, assistantID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("assistant %s: %w", assistantID, ErrNotFound)
		}
		return 0, WrapError(err, "failed to load assistant")
	}

	docs, err := s.docs.ListByAssistant(ctx, assistantID)
	if err != nil {
		return 0, WrapError(err, "failed to list documents")
	}

	enqueued := 0
	for _, doc := range docs {
		switch doc.Status {
		case storage.DocStatusProcessing:
			logger.InfoContext(ctx, "skipping document already processing", "document_id", doc.ID)
			continue
		case storage.DocStatusCompleted, storage.DocStatusFailed:
			if err := s.docs.ResetForReingest(ctx, doc.ID); err != nil {
				logger.ErrorContext(ctx, "failed to reset document for re-ingestion", "document_id", doc.ID, "error", err)
				continue
			}
		}
		if !s.queue.Enqueue(doc.ID) {
			logger.WarnContext(ctx, "ingestion queue full during retrain", "document_id", doc.ID)
			continue
		}
		enqueued++
	}

	logger.InfoContext(ctx, "retrain started", "assistant_id", assistantID, "documents", len(docs), "enqueued", enqueued)
	return enqueued, nil
}
