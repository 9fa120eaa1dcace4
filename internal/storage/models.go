package storage

import "time"

// Assistant lifecycle statuses.
const (
	AssistantStatusDraft  = "draft"
	AssistantStatusActive = "active"
)

// Document ingestion statuses. Transitions are strictly monotone within one
// ingestion run: uploaded -> processing -> completed | failed.
const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Message author roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AssistantRecord represents a configured assistant in the database.
type AssistantRecord struct {
	ID           string
	Name         string
	Description  string
	Department   string
	Personality  string
	Instructions string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentRecord represents an uploaded document and its ingestion state.
type DocumentRecord struct {
	ID          string
	AssistantID string
	Name        string // Display name (original filename)
	FilePath    string // Opaque storage locator for the raw upload
	FileSize    int64
	FileType    string // Declared media type
	Status      string
	ChunkCount  *int    // Number of chunks embedded and indexed; nil until completed
	Content     *string // Extracted text; nil until parsed
	Error       *string // Failure summary; nil unless status is failed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MessageRecord represents one entry in an assistant's conversation log.
// Messages are append-only and never edited.
type MessageRecord struct {
	ID            string
	AssistantID   string
	Role          string
	Content       string
	UsedKnowledge bool
	Sources       []string // Document names cited in the answer
	CreatedAt     time.Time
}
