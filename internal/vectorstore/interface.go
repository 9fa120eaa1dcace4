package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks kbase/internal/vectorstore VectorIndex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// Match represents a similarity search hit.
type Match struct {
	ID    string
	Score float32
	Meta  map[string]any
}

// Filter scopes queries and deletes. AssistantID is the tenant key and is
// required on every query; DocumentID optionally narrows to one document.
type Filter struct {
	AssistantID string
	DocumentID  string
}

// VectorIndex defines the interface for vector index operations.
type VectorIndex interface {
	// Upsert inserts or updates points. Re-upserting an ID overwrites.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Query performs a similarity search. The filter must carry an
	// AssistantID; a query without tenant scoping is a programming error.
	Query(ctx context.Context, collection string, vector []float32, filter Filter, topK int) ([]Match, error)

	// DeleteByFilter removes all points matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter Filter) error
}

// ChunkKey builds the composite key identifying one chunk of one document.
// Identical input text always produces identical keys, so re-ingesting an
// unchanged document overwrites its own points.
func ChunkKey(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, ordinal)
}

// PointID derives the point ID for a chunk key. Qdrant only accepts UUID or
// integer IDs, so the key is hashed to a stable UUID; the key itself travels
// in the payload.
func PointID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
