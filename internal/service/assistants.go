package service

import (
	"context"
	"errors"
	"fmt"

	"kbase/internal/blob"
	"kbase/internal/contextutil"
	"kbase/internal/storage"
	"kbase/internal/vectorstore"
)

// AssistantRequest carries the configurable fields of an assistant.
type AssistantRequest struct {
	Name         string `validate:"required,max=120"`
	Description  string `validate:"max=500"`
	Department   string `validate:"max=120"`
	Personality  string `validate:"max=120"`
	Instructions string `validate:"max=4000"`
}

// AssistantStats summarizes an assistant's knowledge base and conversation.
type AssistantStats struct {
	Documents   map[string]int
	TotalChunks int
	Messages    int
}

// AssistantService manages assistant configuration and lifecycle.
type AssistantService struct {
	assistants storage.AssistantStore
	docs       storage.DocumentStore
	messages   storage.MessageStore
	blobs      blob.Store
	index      vectorstore.VectorIndex
	collection string
}

// NewAssistantService creates a new AssistantService.
func NewAssistantService(
	assistants storage.AssistantStore,
	docs storage.DocumentStore,
	messages storage.MessageStore,
	blobs blob.Store,
	index vectorstore.VectorIndex,
	collection string,
) *AssistantService {
	return &AssistantService{
		assistants: assistants,
		docs:       docs,
		messages:   messages,
		blobs:      blobs,
		index:      index,
		collection: collection,
	}
}

// Create creates an assistant in status draft. It activates when its first
// document completes ingestion.
func (s *AssistantService) Create(ctx context.Context, req AssistantRequest) (*storage.AssistantRecord, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	record := &storage.AssistantRecord{
		Name:         req.Name,
		Description:  req.Description,
		Department:   req.Department,
		Personality:  req.Personality,
		Instructions: req.Instructions,
	}
	if err := s.assistants.Create(ctx, record); err != nil {
		return nil, WrapError(err, "failed to create assistant")
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "assistant created", "assistant_id", record.ID, "name", record.Name)
	return record, nil
}

// Get returns an assistant by ID.
func (s *AssistantService) Get(ctx context.Context, id string) (*storage.AssistantRecord, error) {
	assistant, err := s.assistants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("assistant %s: %w", id, ErrNotFound)
		}
		return nil, WrapError(err, "failed to load assistant")
	}
	return assistant, nil
}

// Update replaces the configurable fields of an assistant.
func (s *AssistantService) Update(ctx context.Context, id string, req AssistantRequest) (*storage.AssistantRecord, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	assistant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assistant.Name = req.Name
	assistant.Description = req.Description
	assistant.Department = req.Department
	assistant.Personality = req.Personality
	assistant.Instructions = req.Instructions
	if err := s.assistants.Update(ctx, assistant); err != nil {
		return nil, WrapError(err, "failed to update assistant")
	}
	return assistant, nil
}

// Delete removes an assistant and everything it owns: vectors by assistant
// filter, stored uploads, and the rows (documents and messages cascade).
// Vector and blob failures are logged and do not block the row delete.
func (s *AssistantService) Delete(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.index.DeleteByFilter(ctx, s.collection, vectorstore.Filter{AssistantID: id}); err != nil {
		logger.ErrorContext(ctx, "failed to delete assistant vectors", "assistant_id", id, "error", err)
	}

	docs, err := s.docs.ListByAssistant(ctx, id)
	if err != nil {
		logger.WarnContext(ctx, "failed to list documents for blob cleanup", "assistant_id", id, "error", err)
	}
	for _, doc := range docs {
		if err := s.blobs.Delete(blob.Key(doc.ID, doc.Name)); err != nil {
			logger.WarnContext(ctx, "failed to delete stored upload", "document_id", doc.ID, "error", err)
		}
	}

	if err := s.assistants.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("assistant %s: %w", id, ErrNotFound)
		}
		return WrapError(err, "failed to delete assistant")
	}

	logger.InfoContext(ctx, "assistant deleted", "assistant_id", id, "documents", len(docs))
	return nil
}

// Documents lists an assistant's documents, newest first.
func (s *AssistantService) Documents(ctx context.Context, id string) ([]*storage.DocumentRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByAssistant(ctx, id)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}
	return docs, nil
}

// Messages returns an assistant's conversation log, oldest first.
// A limit of 0 means no limit.
func (s *AssistantService) Messages(ctx context.Context, id string, limit int) ([]*storage.MessageRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByAssistant(ctx, id, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list messages")
	}
	return msgs, nil
}

// Stats returns document counts by status, indexed chunk totals and the
// message count for one assistant.
func (s *AssistantService) Stats(ctx context.Context, id string) (*AssistantStats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	counts, chunks, err := s.docs.StatsByAssistant(ctx, id)
	if err != nil {
		return nil, WrapError(err, "failed to load document stats")
	}
	msgCount, err := s.messages.CountByAssistant(ctx, id)
	if err != nil {
		return nil, WrapError(err, "failed to count messages")
	}

	return &AssistantStats{
		Documents:   counts,
		TotalChunks: chunks,
		Messages:    msgCount,
	}, nil
}
