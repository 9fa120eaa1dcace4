package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks kbase/internal/rag Embedder

import (
	"context"
	"fmt"
	"sort"

	"kbase/internal/contextutil"
	"kbase/internal/storage"
	"kbase/internal/vectorstore"
)

// Embedder produces the query-side embedding.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Engine retrieves the chunks relevant to a question, scoped to one
// assistant's completed documents.
type Engine struct {
	embedder   Embedder
	index      vectorstore.VectorIndex
	docs       storage.DocumentStore
	collection string
}

// NewEngine creates a retrieval engine.
func NewEngine(embedder Embedder, index vectorstore.VectorIndex, docs storage.DocumentStore, collection string) *Engine {
	return &Engine{
		embedder:   embedder,
		index:      index,
		docs:       docs,
		collection: collection,
	}
}

// Retrieve embeds the question, queries the index scoped to the assistant,
// and returns matches above the score threshold ranked best first. Matches
// from documents that are not completed are dropped, so chunks indexed by an
// in-flight ingestion run are never served. An empty result is a normal
// state, not an error.
func (e *Engine) Retrieve(ctx context.Context, question, assistantID string, topK int, threshold float32) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := e.index.Query(ctx, e.collection, vector, vectorstore.Filter{AssistantID: assistantID}, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector index: %w", err)
	}

	completedIDs, err := e.docs.ListCompletedIDs(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed documents: %w", err)
	}
	completed := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		m := matchFromMeta(hit)
		if !completed[m.DocumentID] {
			logger.DebugContext(ctx, "dropping match from non-completed document",
				"document_id", m.DocumentID, "score", hit.Score)
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	logger.InfoContext(ctx, "retrieval completed",
		"assistant_id", assistantID, "hits", len(hits), "matches", len(matches), "threshold", threshold)
	return matches, nil
}

// matchFromMeta lifts a vector hit into a Match via its payload.
func matchFromMeta(hit vectorstore.Match) Match {
	m := Match{Score: hit.Score}
	if v, ok := hit.Meta[vectorstore.MetaDocumentID].(string); ok {
		m.DocumentID = v
	}
	if v, ok := hit.Meta[vectorstore.MetaDocumentName].(string); ok {
		m.SourceName = v
	}
	if v, ok := hit.Meta[vectorstore.MetaText].(string); ok {
		m.Text = v
	}
	switch v := hit.Meta[vectorstore.MetaChunkIndex].(type) {
	case int:
		m.ChunkIndex = v
	case int64:
		m.ChunkIndex = int(v)
	case float64:
		m.ChunkIndex = int(v)
	}
	return m
}
