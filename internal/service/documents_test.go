package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	blobmocks "kbase/internal/blob/mocks"
	"kbase/internal/service/mocks"
	"kbase/internal/storage"
	storagemocks "kbase/internal/storage/mocks"
	"kbase/internal/vectorstore"
	vsmocks "kbase/internal/vectorstore/mocks"
)

type docFixture struct {
	svc        *DocumentService
	assistants *storagemocks.MockAssistantStore
	docs       *storagemocks.MockDocumentStore
	blobs      *blobmocks.MockStore
	index      *vsmocks.MockVectorIndex
	queue      *mocks.MockEnqueuer
}

func newDocFixture(t *testing.T, maxBytes int64) *docFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &docFixture{
		assistants: storagemocks.NewMockAssistantStore(ctrl),
		docs:       storagemocks.NewMockDocumentStore(ctrl),
		blobs:      blobmocks.NewMockStore(ctrl),
		index:      vsmocks.NewMockVectorIndex(ctrl),
		queue:      mocks.NewMockEnqueuer(ctrl),
	}
	f.svc = NewDocumentService(f.assistants, f.docs, f.blobs, f.index, f.queue, "kb", maxBytes)
	return f
}

func TestDocumentService_Upload_Success(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.blobs.EXPECT().Save(gomock.Any(), []byte("hello")).DoAndReturn(
		func(key string, _ []byte) (string, error) {
			return "/uploads/" + key, nil
		})
	var created *storage.DocumentRecord
	f.docs.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, d *storage.DocumentRecord) error {
			created = d
			return nil
		})
	f.queue.EXPECT().Enqueue(gomock.Any()).Return(true)

	doc, err := f.svc.Upload(ctx, UploadRequest{
		AssistantID: "asst-1",
		Filename:    "notes.txt",
		MediaType:   "text/plain",
		Data:        []byte("hello"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Error("Upload() did not assign a document ID")
	}
	if doc.Name != "notes.txt" || doc.FileType != "text/plain" || doc.FileSize != 5 {
		t.Errorf("doc = %+v", doc)
	}
	if created == nil || created.FilePath != "/uploads/"+doc.ID+".txt" {
		t.Errorf("created row = %+v, want blob path recorded", created)
	}
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"unsupported media type", UploadRequest{AssistantID: "asst-1", Filename: "cv.docx", MediaType: "application/msword", Data: []byte("x")}},
		{"empty file", UploadRequest{AssistantID: "asst-1", Filename: "a.txt", MediaType: "text/plain"}},
		{"oversize file", UploadRequest{AssistantID: "asst-1", Filename: "a.txt", MediaType: "text/plain", Data: []byte("too large for the limit")}},
		{"missing filename", UploadRequest{AssistantID: "asst-1", MediaType: "text/plain", Data: []byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocFixture(t, 10)
			_, err := f.svc.Upload(ctx, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Upload() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestDocumentService_Upload_RowFailureRemovesBlob(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	var savedKey string
	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.blobs.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(key string, _ []byte) (string, error) {
			savedKey = key
			return "/uploads/" + key, nil
		})
	f.docs.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("disk full"))
	f.blobs.EXPECT().Delete(gomock.Any()).DoAndReturn(func(key string) error {
		if key != savedKey {
			t.Errorf("Delete(%q), want the saved key %q", key, savedKey)
		}
		return nil
	})

	_, err := f.svc.Upload(ctx, UploadRequest{
		AssistantID: "asst-1", Filename: "a.txt", MediaType: "text/plain", Data: []byte("x"),
	})
	if err == nil {
		t.Fatal("Upload() expected error when the row write fails")
	}
}

func TestDocumentService_Upload_QueueFullIsNotAnError(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.blobs.EXPECT().Save(gomock.Any(), gomock.Any()).Return("/uploads/x", nil)
	f.docs.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	f.queue.EXPECT().Enqueue(gomock.Any()).Return(false)

	doc, err := f.svc.Upload(ctx, UploadRequest{
		AssistantID: "asst-1", Filename: "a.txt", MediaType: "text/plain", Data: []byte("x"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc == nil {
		t.Fatal("Upload() returned no document")
	}
}

func TestDocumentService_Delete_Success(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.docs.EXPECT().GetByID(ctx, "doc-1").Return(&storage.DocumentRecord{
		ID: "doc-1", AssistantID: "asst-1", Name: "notes.txt",
	}, nil)
	f.index.EXPECT().DeleteByFilter(ctx, "kb", vectorstore.Filter{AssistantID: "asst-1", DocumentID: "doc-1"}).Return(nil)
	f.blobs.EXPECT().Delete("doc-1.txt").Return(nil)
	f.docs.EXPECT().Delete(ctx, "doc-1").Return(nil)

	if err := f.svc.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestDocumentService_Delete_VectorFailureStillDeletesRow(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.docs.EXPECT().GetByID(ctx, "doc-1").Return(&storage.DocumentRecord{
		ID: "doc-1", AssistantID: "asst-1", Name: "notes.txt",
	}, nil)
	f.index.EXPECT().DeleteByFilter(ctx, "kb", gomock.Any()).Return(errors.New("qdrant down"))
	f.blobs.EXPECT().Delete("doc-1.txt").Return(nil)
	f.docs.EXPECT().Delete(ctx, "doc-1").Return(nil)

	if err := f.svc.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v, vector failure must not block the row delete", err)
	}
}

func TestDocumentService_Delete_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.docs.EXPECT().GetByID(ctx, "missing").Return(nil, storage.ErrNotFound)

	if err := f.svc.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentService_Retrain(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return([]*storage.DocumentRecord{
		{ID: "doc-1", Status: storage.DocStatusCompleted},
		{ID: "doc-2", Status: storage.DocStatusProcessing},
		{ID: "doc-3", Status: storage.DocStatusFailed},
		{ID: "doc-4", Status: storage.DocStatusUploaded},
	}, nil)
	f.docs.EXPECT().ResetForReingest(ctx, "doc-1").Return(nil)
	f.docs.EXPECT().ResetForReingest(ctx, "doc-3").Return(nil)
	f.queue.EXPECT().Enqueue("doc-1").Return(true)
	f.queue.EXPECT().Enqueue("doc-3").Return(true)
	f.queue.EXPECT().Enqueue("doc-4").Return(true)

	n, err := f.svc.Retrain(ctx, "asst-1")
	if err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	// Processing documents are left alone; everything else re-enters the queue.
	if n != 3 {
		t.Errorf("Retrain() = %d, want 3", n)
	}
}

func TestDocumentService_Retrain_ResetFailureSkipsDocument(t *testing.T) {
	ctx := context.Background()
	f := newDocFixture(t, 1024)

	f.assistants.EXPECT().GetByID(ctx, "asst-1").Return(&storage.AssistantRecord{ID: "asst-1"}, nil)
	f.docs.EXPECT().ListByAssistant(ctx, "asst-1").Return([]*storage.DocumentRecord{
		{ID: "doc-1", Status: storage.DocStatusCompleted},
		{ID: "doc-2", Status: storage.DocStatusCompleted},
	}, nil)
	f.docs.EXPECT().ResetForReingest(ctx, "doc-1").Return(errors.New("locked"))
	f.docs.EXPECT().ResetForReingest(ctx, "doc-2").Return(nil)
	f.queue.EXPECT().Enqueue("doc-2").Return(true)

	n, err := f.svc.Retrain(ctx, "asst-1")
	if err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Retrain() = %d, want 1", n)
	}
}
