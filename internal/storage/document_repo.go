package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks kbase/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DocumentStore defines the interface for document storage operations.
// Status transitions are guarded in SQL so a document can never move
// backwards in its lifecycle within an ingestion run.
type DocumentStore interface {
	// Create inserts a new document row with status uploaded.
	Create(ctx context.Context, d *DocumentRecord) error
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// ListByAssistant returns all documents for an assistant, newest first.
	ListByAssistant(ctx context.Context, assistantID string) ([]*DocumentRecord, error)
	// ListCompletedIDs returns the IDs of completed documents for an assistant.
	ListCompletedIDs(ctx context.Context, assistantID string) ([]string, error)
	// MarkProcessing transitions uploaded -> processing.
	// Returns ErrInvalidTransition if the document is in a terminal state.
	MarkProcessing(ctx context.Context, id string) error
	// MarkCompleted transitions processing -> completed, recording the
	// extracted content and the number of chunks actually indexed.
	MarkCompleted(ctx context.Context, id, content string, chunkCount int) error
	// MarkFailed transitions processing -> failed with an error summary.
	MarkFailed(ctx context.Context, id, reason string) error
	// ResetForReingest moves a terminal document back to uploaded, clearing
	// chunk count and error, so a new ingestion run can begin.
	ResetForReingest(ctx context.Context, id string) error
	// Delete removes a document row.
	Delete(ctx context.Context, id string) error
	// ListStuckProcessing returns IDs of documents that entered processing
	// before the given cutoff and never reached a terminal state.
	ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]string, error)
	// StatsByAssistant returns per-status document counts and the total
	// number of indexed chunks for an assistant.
	StatsByAssistant(ctx context.Context, assistantID string) (map[string]int, int, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a new document row with status uploaded.
func (r *DocumentRepo) Create(ctx context.Context, d *DocumentRecord) error {
	if d.Status == "" {
		d.Status = DocStatusUploaded
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, assistant_id, name, file_path, file_size, file_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.AssistantID, d.Name, d.FilePath, d.FileSize, d.FileType, d.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, assistant_id, name, file_path, file_size, file_type, status,
		        chunk_count, content, error, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	)
	return scanDocument(row)
}

// ListByAssistant returns all documents for an assistant, newest first.
func (r *DocumentRepo) ListByAssistant(ctx context.Context, assistantID string) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, assistant_id, name, file_path, file_size, file_type, status,
		        chunk_count, content, error, created_at, updated_at
		 FROM documents WHERE assistant_id = ? ORDER BY created_at DESC, id`, assistantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// ListCompletedIDs returns the IDs of completed documents for an assistant.
func (r *DocumentRepo) ListCompletedIDs(ctx context.Context, assistantID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM documents WHERE assistant_id = ? AND status = ?",
		assistantID, DocStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// MarkProcessing transitions uploaded -> processing.
func (r *DocumentRepo) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id,
		`UPDATE documents SET status = ?, error = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN (?, ?)`,
		DocStatusProcessing, id, DocStatusUploaded, DocStatusProcessing,
	)
}

// MarkCompleted transitions processing -> completed.
func (r *DocumentRepo) MarkCompleted(ctx context.Context, id, content string, chunkCount int) error {
	return r.transition(ctx, id,
		`UPDATE documents SET status = ?, content = ?, chunk_count = ?, error = NULL,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		DocStatusCompleted, content, chunkCount, id, DocStatusProcessing,
	)
}

// MarkFailed transitions processing -> failed with an error summary.
func (r *DocumentRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.transition(ctx, id,
		`UPDATE documents SET status = ?, error = ?, chunk_count = 0,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		DocStatusFailed, reason, id, DocStatusProcessing,
	)
}

// ResetForReingest moves a terminal document back to uploaded.
func (r *DocumentRepo) ResetForReingest(ctx context.Context, id string) error {
	return r.transition(ctx, id,
		`UPDATE documents SET status = ?, chunk_count = NULL, error = NULL,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status IN (?, ?)`,
		DocStatusUploaded, id, DocStatusCompleted, DocStatusFailed,
	)
}

// transition runs a guarded status update. Zero affected rows means the
// document either does not exist or is not in an eligible state.
func (r *DocumentRepo) transition(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// Delete removes a document row.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return checkAffected(res)
}

// ListStuckProcessing returns IDs of documents stuck in processing.
func (r *DocumentRepo) ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM documents WHERE status = ? AND updated_at < ?",
		DocStatusProcessing, cutoff.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// StatsByAssistant returns per-status document counts and total chunk count.
func (r *DocumentRepo) StatsByAssistant(ctx context.Context, assistantID string) (map[string]int, int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(chunk_count), 0)
		 FROM documents WHERE assistant_id = ? GROUP BY status`, assistantID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query document stats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	totalChunks := 0
	for rows.Next() {
		var status string
		var count, chunks int
		if err := rows.Scan(&status, &count, &chunks); err != nil {
			return nil, 0, fmt.Errorf("failed to scan document stats: %w", err)
		}
		counts[status] = count
		totalChunks += chunks
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, totalChunks, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanDocument.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*DocumentRecord, error) {
	var d DocumentRecord
	var chunkCount sql.NullInt64
	var content, errSummary sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&d.ID, &d.AssistantID, &d.Name, &d.FilePath, &d.FileSize, &d.FileType,
		&d.Status, &chunkCount, &content, &errSummary, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	if chunkCount.Valid {
		n := int(chunkCount.Int64)
		d.ChunkCount = &n
	}
	if content.Valid {
		c := content.String
		d.Content = &c
	}
	if errSummary.Valid {
		e := errSummary.String
		d.Error = &e
	}
	d.CreatedAt = parseTimestamp(createdAt)
	d.UpdatedAt = parseTimestamp(updatedAt)
	return &d, nil
}
