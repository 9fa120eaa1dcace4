package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_message_store.go -package=mocks kbase/internal/storage MessageStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageStore defines the interface for conversation message operations.
// The message log is append-only; there is no update or single delete.
type MessageStore interface {
	// Insert appends a message. Generates an ID if none is set.
	Insert(ctx context.Context, m *MessageRecord) error
	// ListByAssistant returns messages for an assistant ordered by creation
	// time, oldest first. A limit of 0 means no limit.
	ListByAssistant(ctx context.Context, assistantID string, limit int) ([]*MessageRecord, error)
	// CountByAssistant returns the number of messages for an assistant.
	CountByAssistant(ctx context.Context, assistantID string) (int, error)
}

// MessageRepo provides methods for message operations.
// It implements the MessageStore interface.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert appends a message. Generates an ID if none is set.
func (r *MessageRepo) Insert(ctx context.Context, m *MessageRecord) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	sources := m.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO messages (id, assistant_id, role, content, used_knowledge, sources)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.AssistantID, m.Role, m.Content, m.UsedKnowledge, string(sourcesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByAssistant returns messages ordered by creation time, oldest first.
func (r *MessageRepo) ListByAssistant(ctx context.Context, assistantID string, limit int) ([]*MessageRecord, error) {
	query := `SELECT id, assistant_id, role, content, used_knowledge, sources, created_at
		 FROM messages WHERE assistant_id = ? ORDER BY created_at, id`
	args := []any{assistantID}
	if limit > 0 {
		// Take the newest N, then return them in chronological order.
		query = `SELECT id, assistant_id, role, content, used_knowledge, sources, created_at FROM (
			SELECT id, assistant_id, role, content, used_knowledge, sources, created_at
			FROM messages WHERE assistant_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at, id`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var msgs []*MessageRecord
	for rows.Next() {
		var m MessageRecord
		var sourcesJSON, createdAt string
		if err := rows.Scan(&m.ID, &m.AssistantID, &m.Role, &m.Content, &m.UsedKnowledge, &sourcesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &m.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
		m.CreatedAt = parseTimestamp(createdAt)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return msgs, nil
}

// CountByAssistant returns the number of messages for an assistant.
func (r *MessageRepo) CountByAssistant(ctx context.Context, assistantID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE assistant_id = ?", assistantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
