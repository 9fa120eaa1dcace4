package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks kbase/internal/service Retriever
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks kbase/internal/service Generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kbase/internal/blob"
	"kbase/internal/contextutil"
	"kbase/internal/llm"
	"kbase/internal/rag"
	"kbase/internal/storage"
)

// Retriever finds the knowledge chunks relevant to a question.
// This interface is defined from the service layer's perspective (consumer-first).
type Retriever interface {
	Retrieve(ctx context.Context, question, assistantID string, topK int, threshold float32) ([]rag.Match, error)
}

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (string, error)
}

// AskRequest represents a question to one assistant in the domain layer.
type AskRequest struct {
	AssistantID string        `validate:"required"`
	Question    string        `validate:"required,max=4000"`
	History     []llm.Message `validate:"max=50"`
}

// AskResponse represents an answered question.
type AskResponse struct {
	Answer        string
	Sources       []string
	UsedKnowledge bool
}

// AskService orchestrates one question: retrieve, assemble, generate, record.
type AskService struct {
	assistants storage.AssistantStore
	docs       storage.DocumentStore
	messages   storage.MessageStore
	blobs      blob.Store
	retriever  Retriever
	assembler  *rag.Assembler
	generator  Generator
	topK       int
	threshold  float32
}

// NewAskService creates a new AskService.
func NewAskService(
	assistants storage.AssistantStore,
	docs storage.DocumentStore,
	messages storage.MessageStore,
	blobs blob.Store,
	retriever Retriever,
	assembler *rag.Assembler,
	generator Generator,
	topK int,
	threshold float32,
) *AskService {
	return &AskService{
		assistants: assistants,
		docs:       docs,
		messages:   messages,
		blobs:      blobs,
		retriever:  retriever,
		assembler:  assembler,
		generator:  generator,
		topK:       topK,
		threshold:  threshold,
	}
}

// Ask answers a question against one assistant's knowledge base. The exchange
// is appended to the conversation log only after generation succeeds, so the
// log holds completed exchanges only.
func (s *AskService) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateStruct(req); err != nil {
		logger.WarnContext(ctx, "invalid ask request", "error", err)
		return AskResponse{}, err
	}

	assistant, err := s.assistants.GetByID(ctx, req.AssistantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AskResponse{}, fmt.Errorf("assistant %s: %w", req.AssistantID, ErrNotFound)
		}
		return AskResponse{}, WrapError(err, "failed to load assistant")
	}

	matches, err := s.retriever.Retrieve(ctx, req.Question, req.AssistantID, s.topK, s.threshold)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "assistant_id", req.AssistantID, "error", err)
		return AskResponse{}, fmt.Errorf("failed to retrieve context: %w", ErrUnavailable)
	}

	images := s.loadImageDocuments(ctx, req.AssistantID)
	prompt := s.assembler.Assemble(assistant, matches, images)

	answer, err := s.generator.Generate(ctx, llm.GenerateRequest{
		System:   prompt.System,
		History:  req.History,
		Question: req.Question,
		Images:   prompt.Images,
	})
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "assistant_id", req.AssistantID, "error", err)
		return AskResponse{}, fmt.Errorf("failed to generate answer: %w", ErrExternalService)
	}

	s.recordExchange(ctx, req, answer, prompt)

	logger.InfoContext(ctx, "question answered",
		"assistant_id", req.AssistantID, "used_knowledge", prompt.UsedKnowledge, "sources", len(prompt.Sources))
	return AskResponse{
		Answer:        answer,
		Sources:       prompt.Sources,
		UsedKnowledge: prompt.UsedKnowledge,
	}, nil
}

// loadImageDocuments reads the assistant's completed image documents from the
// blob store so they can ride along as multimodal parts. Unreadable blobs are
// skipped with a warning.
func (s *AskService) loadImageDocuments(ctx context.Context, assistantID string) []rag.ImageDocument {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := s.docs.ListByAssistant(ctx, assistantID)
	if err != nil {
		logger.WarnContext(ctx, "failed to list documents for images", "assistant_id", assistantID, "error", err)
		return nil
	}

	var images []rag.ImageDocument
	for _, doc := range docs {
		if doc.Status != storage.DocStatusCompleted || !strings.HasPrefix(doc.FileType, "image/") {
			continue
		}
		data, err := s.blobs.Read(blob.Key(doc.ID, doc.Name))
		if err != nil {
			logger.WarnContext(ctx, "failed to read image document", "document_id", doc.ID, "error", err)
			continue
		}
		images = append(images, rag.ImageDocument{
			Name:    doc.Name,
			Payload: llm.ImagePayload{MIMEType: doc.FileType, Data: data},
		})
	}
	return images
}

// recordExchange appends the user question and the generated answer to the
// conversation log. Logging failures do not fail the request.
func (s *AskService) recordExchange(ctx context.Context, req AskRequest, answer string, prompt rag.Prompt) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.messages.Insert(ctx, &storage.MessageRecord{
		AssistantID: req.AssistantID,
		Role:        storage.RoleUser,
		Content:     req.Question,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to record user message", "assistant_id", req.AssistantID, "error", err)
		return
	}
	if err := s.messages.Insert(ctx, &storage.MessageRecord{
		AssistantID:   req.AssistantID,
		Role:          storage.RoleAssistant,
		Content:       answer,
		UsedKnowledge: prompt.UsedKnowledge,
		Sources:       prompt.Sources,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to record assistant message", "assistant_id", req.AssistantID, "error", err)
	}
}
