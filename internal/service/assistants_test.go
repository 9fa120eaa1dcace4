package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	blobmocks "kbase/internal/blob/mocks"
	"kbase/internal/storage"
	storagemocks "kbase/internal/storage/mocks"
	"kbase/internal/vectorstore"
	vsmocks "kbase/internal/vectorstore/mocks"
)

type assistantFixture struct {
	svc        *AssistantService
	assistants *storagemocks.MockAssistantStore
	docs       *storagemocks.MockDocumentStore
	messages   *storagemocks.MockMessageStore
	blobs      *blobmocks.MockStore
	index      *vsmocks.MockVectorIndex
}

func newAssistantFixture(t *testing.T) *assistantFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &assistantFixture{
		assistants: storagemocks.NewMockAssistantStore(ctrl),
		docs:       storagemocks.NewMockDocumentStore(ctrl),
		messages:   storagemocks.NewMockMessageStore(ctrl),
		blobs:      blobmocks.NewMockStore(ctrl),
		index:      vsmocks.NewMockVectorIndex(ctrl),
	}
	f.svc = NewAssistantService(f.assistants, f.docs, f.messages, f.blobs, f.index, "kb")
	return f
}

func TestAssistantService_Create(t *testing.T) {
	ctx := context.Background()
	f := newAssistantFixture(t)

	f.assistants.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, a *storage.AssistantRecord) error {
			a.ID = "asst-1"
			a.Status = storage.AssistantStatusDraft
			return nil
		})

	assistant, err := f.svc.Create(ctx, AssistantRequest{
		Name:        "HR Bot",
		Department:  "People",
		Personality: "friendly",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if assistant.ID != "asst-1" || assistant.Status != storage.AssistantStatusDraft {
		t.Errorf("assistant = %+v", assistant)
	}
}

func TestAssistantService_Create_RequiresName(t *testing.T) {
	f := newAssistantFixture(t)

	_, err := f.svc.Create(context.Background(), AssistantRequest{Description: "no name"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create() error = %v, want ValidationError", err)
	}
	if verr.Field != "Name" {
		t.Errorf("Field = %q, want Name", verr.Field)
	}
}

func TestAssistantService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newAssistantFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "missing").Return(nil, storage.ErrNotFound)

	_, err := f.svc.Update(ctx, "missing", AssistantRequest{Name: "New Name"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestAssistantService_Update(t *testing.T) {
	ctx := context.Background()
	f := newAssistantFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{
		ID: "asst-1", Name: "Old", Status: storage.AssistantStatusActive,
	}, nil)
	f.assistants.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, a *storage.AssistantRecord) error {
			if a.Name != "New" || a.Instructions != "Be concise." {
				t.Errorf("updated record = %+v", a)
			}
			return nil
		})

	assistant, err := f.svc.Update(ctx, "asst-1", AssistantRequest{Name: "New", Instructions: "Be concise."})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if assistant.Status != storage.AssistantStatusActive {
		t.Errorf("Status = %q, update must not touch lifecycle status", assistant.Status)
	}
}

func TestAssistantService_Delete_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newAssistantFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.index.EXPECT().DeleteByFilter(ctx, "kb", vectorstore.Filter{AssistantID: "asst-1"}).Return(nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return([]*storage.DocumentRecord{
		{ID: "doc-1", Name: "a.txt"},
		{ID: "doc-2", Name: "b.pdf"},
	}, nil)
	f.blobs.EXPECT().Delete("doc-1.txt").Return(nil)
	f.blobs.EXPECT().Delete("doc-2.pdf").Return(nil)
	f.assistants.EXPECT().Delete(ctx, "asst-1").Return(nil)

	if err := f.svc.Delete(ctx, "asst-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestAssistantService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newAssistantFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.docs.EXPECT().StatsByAssistant(ctx, "asst-1").Return(map[string]int{
		storage.DocStatusCompleted: 2,
		storage.DocStatusFailed:    1,
	}, 9, nil)
	f.messages.EXPECT().CountByAssistant(ctx, "asst-1").Return(14, nil)

	stats, err := f.svc.Stats(ctx, "asst-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents[storage.DocStatusCompleted] != 2 || stats.TotalChunks != 9 || stats.Messages != 14 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestAssistantService_Messages_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newAssistantFixture(t)

	f.assistants.EXPECT().GetByID(ctx, "missing").Return(nil, storage.ErrNotFound)

	if _, err := f.svc.Messages(ctx, "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Messages() error = %v, want ErrNotFound", err)
	}
}
