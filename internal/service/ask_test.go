package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	blobmocks "kbase/internal/blob/mocks"
	"kbase/internal/llm"
	"kbase/internal/rag"
	"kbase/internal/service/mocks"
	"kbase/internal/storage"
	storagemocks "kbase/internal/storage/mocks"
)

type askFixture struct {
	svc        *AskService
	assistants *storagemocks.MockAssistantStore
	docs       *storagemocks.MockDocumentStore
	messages   *storagemocks.MockMessageStore
	blobs      *blobmocks.MockStore
	retriever  *mocks.MockRetriever
	generator  *mocks.MockGenerator
}

func newAskFixture(t *testing.T) *askFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &askFixture{
		assistants: storagemocks.NewMockAssistantStore(ctrl),
		docs:       storagemocks.NewMockDocumentStore(ctrl),
		messages:   storagemocks.NewMockMessageStore(ctrl),
		blobs:      blobmocks.NewMockStore(ctrl),
		retriever:  mocks.NewMockRetriever(ctrl),
		generator:  mocks.NewMockGenerator(ctrl),
	}
	f.svc = NewAskService(f.assistants, f.docs, f.messages, f.blobs,
		f.retriever, rag.NewAssembler(4000), f.generator, 5, 0.7)
	return f
}

func activeAssistant() *storage.AssistantRecord {
	return &storage.AssistantRecord{
		ID:          "asst-1",
		Name:        "HR Bot",
		Personality: "friendly",
		Status:      storage.AssistantStatusActive,
	}
}

func TestAskService_Ask_Success(t *testing.T) {
	ctx := context.Background()
	f := newAskFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(activeAssistant(), nil)
	f.retriever.EXPECT().Retrieve(ctx, "How much leave do I get?", "asst-1", 5, float32(0.7)).
		Return([]rag.Match{
			{DocumentID: "doc-1", SourceName: "handbook.pdf", Text: "25 days of annual leave.", Score: 0.9},
		}, nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return(nil, nil)
	f.generator.EXPECT().Generate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req llm.GenerateRequest) (string, error) {
			if !strings.Contains(req.System, "Source: handbook.pdf") {
				t.Errorf("system prompt missing context block:\n%s", req.System)
			}
			if req.Question != "How much leave do I get?" {
				t.Errorf("Question = %q", req.Question)
			}
			return "You get 25 days.", nil
		})

	var recorded []*storage.MessageRecord
	f.messages.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, m *storage.MessageRecord) error {
			recorded = append(recorded, m)
			return nil
		}).Times(2)

	resp, err := f.svc.Ask(ctx, AskRequest{AssistantID: "asst-1", Question: "How much leave do I get?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != "You get 25 days." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if !resp.UsedKnowledge {
		t.Error("UsedKnowledge = false, want true")
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "handbook.pdf" {
		t.Errorf("Sources = %v, want [handbook.pdf]", resp.Sources)
	}

	if len(recorded) != 2 {
		t.Fatalf("recorded %d messages, want 2", len(recorded))
	}
	if recorded[0].Role != storage.RoleUser || recorded[0].Content != "How much leave do I get?" {
		t.Errorf("user message = %+v", recorded[0])
	}
	if recorded[1].Role != storage.RoleAssistant || !recorded[1].UsedKnowledge {
		t.Errorf("assistant message = %+v", recorded[1])
	}
	if len(recorded[1].Sources) != 1 || recorded[1].Sources[0] != "handbook.pdf" {
		t.Errorf("assistant message sources = %v", recorded[1].Sources)
	}
}

func TestAskService_Ask_NoKnowledge(t *testing.T) {
	ctx := context.Background()
	f := newAskFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(activeAssistant(), nil)
	f.retriever.EXPECT().Retrieve(ctx, "q", "asst-1", 5, float32(0.7)).Return(nil, nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return(nil, nil)
	f.generator.EXPECT().Generate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req llm.GenerateRequest) (string, error) {
			if !strings.Contains(req.System, "could not find relevant information") {
				t.Errorf("system prompt missing refusal instruction:\n%s", req.System)
			}
			return "I could not find anything about that.", nil
		})
	f.messages.EXPECT().Insert(ctx, gomock.Any()).Return(nil).Times(2)

	resp, err := f.svc.Ask(ctx, AskRequest{AssistantID: "asst-1", Question: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.UsedKnowledge {
		t.Error("UsedKnowledge = true, want false")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty", resp.Sources)
	}
}

func TestAskService_Ask_IncludesImageDocuments(t *testing.T) {
	ctx := context.Background()
	f := newAskFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(activeAssistant(), nil)
	f.retriever.EXPECT().Retrieve(ctx, "q", "asst-1", 5, float32(0.7)).Return(nil, nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return([]*storage.DocumentRecord{
		{ID: "doc-1", Name: "org-chart.png", FileType: "image/png", Status: storage.DocStatusCompleted},
		{ID: "doc-2", Name: "notes.txt", FileType: "text/plain", Status: storage.DocStatusCompleted},
		{ID: "doc-3", Name: "draft.png", FileType: "image/png", Status: storage.DocStatusProcessing},
	}, nil)
	f.blobs.EXPECT().Read("doc-1.png").Return([]byte{0x89, 0x50}, nil)
	f.generator.EXPECT().Generate(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req llm.GenerateRequest) (string, error) {
			if len(req.Images) != 1 || req.Images[0].MIMEType != "image/png" {
				t.Errorf("Images = %+v, want the completed png", req.Images)
			}
			return "See the org chart.", nil
		})
	f.messages.EXPECT().Insert(ctx, gomock.Any()).Return(nil).Times(2)

	resp, err := f.svc.Ask(ctx, AskRequest{AssistantID: "asst-1", Question: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.UsedKnowledge {
		t.Error("UsedKnowledge = false, want true with image documents")
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "org-chart.png" {
		t.Errorf("Sources = %v, want [org-chart.png]", resp.Sources)
	}
}

func TestAskService_Ask_GenerationFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newAskFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(activeAssistant(), nil)
	f.retriever.EXPECT().Retrieve(ctx, "q", "asst-1", 5, float32(0.7)).Return(nil, nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return(nil, nil)
	f.generator.EXPECT().Generate(ctx, gomock.Any()).Return("", errors.New("model timeout"))
	// No Insert expectations: a failed exchange leaves no trace in the log.

	_, err := f.svc.Ask(ctx, AskRequest{AssistantID: "asst-1", Question: "q"})
	if !errors.Is(err, ErrExternalService) {
		t.Errorf("Ask() error = %v, want ErrExternalService", err)
	}
}

func TestAskService_Ask_RetrievalFailure(t *testing.T) {
	ctx := context.Background()
	f := newAskFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(activeAssistant(), nil)
	f.retriever.EXPECT().Retrieve(ctx, "q", "asst-1", 5, float32(0.7)).
		Return(nil, errors.New("qdrant unreachable"))

	_, err := f.svc.Ask(ctx, AskRequest{AssistantID: "asst-1", Question: "q"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ask() error = %v, want ErrUnavailable", err)
	}
}

func TestAskService_Ask_AssistantNotFound(t *testing.T) {
	ctx := context.Background()
	f := newAskFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "missing").Return(nil, storage.ErrNotFound)

	_, err := f.svc.Ask(ctx, AskRequest{AssistantID: "missing", Question: "q"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Ask() error = %v, want ErrNotFound", err)
	}
}

func TestAskService_Ask_ValidatesQuestion(t *testing.T) {
	f := newAskFixture(t)

	_, err := f.svc.Ask(context.Background(), AskRequest{AssistantID: "asst-1"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Ask() error = %v, want ValidationError", err)
	}
}
