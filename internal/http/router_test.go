package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"kbase/internal/handlers/mocks"
	"kbase/internal/service"
	"kbase/internal/storage"
)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockAssistantService, *mocks.MockDocumentService, *mocks.MockAskService) {
	t.Helper()
	ctrl := gomock.NewController(t)

	assistants := mocks.NewMockAssistantService(ctrl)
	documents := mocks.NewMockDocumentService(ctrl)
	ask := mocks.NewMockAskService(ctrl)

	router := NewRouter(&Deps{
		Assistants:     assistants,
		Documents:      documents,
		Ask:            ask,
		MaxUploadBytes: 1024,
	})
	return router, assistants, documents, ask
}

func TestRouter_Routes(t *testing.T) {
	router, assistants, documents, _ := newTestRouter(t)

	assistants.EXPECT().Get(gomock.Any(), "asst-1").Return(&storage.AssistantRecord{ID: "asst-1", Name: "Bot"}, nil)
	documents.EXPECT().Get(gomock.Any(), "doc-1").Return(&storage.DocumentRecord{ID: "doc-1"}, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"get assistant", http.MethodGet, "/api/assistants/asst-1", http.StatusOK},
		{"get document", http.MethodGet, "/api/documents/doc-1", http.StatusOK},
		{"ask requires a body", http.MethodPost, "/api/assistants/asst-1/ask", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/unknown", http.StatusNotFound},
		{"method not allowed", http.MethodPatch, "/api/assistants/asst-1", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_ErrorMapping(t *testing.T) {
	router, assistants, _, _ := newTestRouter(t)

	assistants.EXPECT().Get(gomock.Any(), "missing").Return(nil, service.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/assistants/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
