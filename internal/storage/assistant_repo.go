package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_assistant_store.go -package=mocks kbase/internal/storage AssistantStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a status update would move a
	// record backwards in its lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// AssistantStore defines the interface for assistant storage operations.
type AssistantStore interface {
	// Create inserts a new assistant. Generates an ID if none is set.
	Create(ctx context.Context, a *AssistantRecord) error
	// GetByID gets an assistant by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*AssistantRecord, error)
	// Update updates the configurable fields of an assistant.
	Update(ctx context.Context, a *AssistantRecord) error
	// SetStatus sets the lifecycle status (draft or active).
	SetStatus(ctx context.Context, id, status string) error
	// Delete removes an assistant. Documents and messages cascade.
	Delete(ctx context.Context, id string) error
}

// AssistantRepo provides methods for assistant operations.
// It implements the AssistantStore interface.
type AssistantRepo struct {
	db *sql.DB
}

// NewAssistantRepo creates a new AssistantRepo.
func NewAssistantRepo(db *sql.DB) *AssistantRepo {
	return &AssistantRepo{db: db}
}

// Create inserts a new assistant. Generates an ID if none is set.
func (r *AssistantRepo) Create(ctx context.Context, a *AssistantRecord) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = AssistantStatusDraft
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assistants (id, name, description, department, personality, instructions, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Description, a.Department, a.Personality, a.Instructions, a.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assistant: %w", err)
	}
	return nil
}

// GetByID gets an assistant by ID. Returns ErrNotFound if not found.
func (r *AssistantRepo) GetByID(ctx context.Context, id string) (*AssistantRecord, error) {
	var a AssistantRecord
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, department, personality, instructions, status, created_at, updated_at
		 FROM assistants WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Description, &a.Department, &a.Personality, &a.Instructions, &a.Status, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assistant: %w", err)
	}

	a.CreatedAt = parseTimestamp(createdAt)
	a.UpdatedAt = parseTimestamp(updatedAt)
	return &a, nil
}

// Update updates the configurable fields of an assistant.
func (r *AssistantRepo) Update(ctx context.Context, a *AssistantRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assistants SET name = ?, description = ?, department = ?, personality = ?,
		 instructions = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		a.Name, a.Description, a.Department, a.Personality, a.Instructions, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assistant: %w", err)
	}
	return checkAffected(res)
}

// SetStatus sets the lifecycle status (draft or active).
func (r *AssistantRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE assistants SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set assistant status: %w", err)
	}
	return checkAffected(res)
}

// Delete removes an assistant. Documents and messages cascade.
func (r *AssistantRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assistants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete assistant: %w", err)
	}
	return checkAffected(res)
}

// checkAffected maps a zero-row update/delete to ErrNotFound.
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// parseTimestamp parses SQLite DATETIME strings in either the default
// "2006-01-02 15:04:05" format or RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
