package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks kbase/internal/indexer Embedder

import (
	"context"
	"fmt"
	"strings"

	"kbase/internal/blob"
	"kbase/internal/contextutil"
	"kbase/internal/extractor"
	"kbase/internal/storage"
	"kbase/internal/vectorstore"
)

// Embedder produces a fixed-length vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options configures the ingestion pipeline.
type Options struct {
	Collection      string
	ChunkWindow     int
	ChunkOverlap    int
	MaxChunksPerDoc int // 0 means unlimited
}

// Pipeline drives a document from uploaded to a terminal status:
// extract, chunk, embed, index, then record the outcome.
type Pipeline struct {
	docs       storage.DocumentStore
	assistants storage.AssistantStore
	blobs      blob.Store
	extractor  *extractor.Extractor
	embedder   Embedder
	index      vectorstore.VectorIndex
	opts       Options
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	docs storage.DocumentStore,
	assistants storage.AssistantStore,
	blobs blob.Store,
	embedder Embedder,
	index vectorstore.VectorIndex,
	opts Options,
) *Pipeline {
	return &Pipeline{
		docs:       docs,
		assistants: assistants,
		blobs:      blobs,
		extractor:  extractor.New(),
		embedder:   embedder,
		index:      index,
		opts:       opts,
	}
}

// Ingest processes a single document. It is safe to call again for a document
// that was reset for re-ingestion; deterministic point IDs make the index
// converge to the same state.
func (p *Pipeline) Ingest(ctx context.Context, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	if err := p.docs.MarkProcessing(ctx, doc.ID); err != nil {
		if err == storage.ErrInvalidTransition {
			// Already in a terminal state, nothing to do.
			logger.InfoContext(ctx, "skipping document not eligible for processing", "document_id", doc.ID)
			return nil
		}
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	data, err := p.blobs.Read(blob.Key(doc.ID, doc.Name))
	if err != nil {
		return p.fail(ctx, doc, fmt.Sprintf("failed to read stored file: %v", err))
	}

	result := p.extractor.Extract(data, doc.FileType)
	switch result.Kind {
	case extractor.KindUnsupported:
		return p.fail(ctx, doc, fmt.Sprintf("unsupported media type %q", doc.FileType))
	case extractor.KindImage:
		// Image documents carry no indexable text; they join generation as
		// raw multimodal payload.
		if err := p.docs.MarkCompleted(ctx, doc.ID, "", 0); err != nil {
			return fmt.Errorf("failed to complete image document: %w", err)
		}
		p.activateAssistant(ctx, doc.AssistantID)
		logger.InfoContext(ctx, "ingested image document", "document_id", doc.ID)
		return nil
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return p.fail(ctx, doc, "no text could be extracted")
	}

	chunks := Chunk(text, p.opts.ChunkWindow, p.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return p.fail(ctx, doc, "chunking produced no chunks")
	}
	if p.opts.MaxChunksPerDoc > 0 && len(chunks) > p.opts.MaxChunksPerDoc {
		logger.InfoContext(ctx, "capping chunks for document",
			"document_id", doc.ID, "produced", len(chunks), "cap", p.opts.MaxChunksPerDoc)
		chunks = chunks[:p.opts.MaxChunksPerDoc]
	}

	// Embed chunk by chunk. A failed embedding skips that chunk; the document
	// only fails if nothing embeds at all.
	points := make([]vectorstore.Point, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			logger.WarnContext(ctx, "failed to embed chunk, skipping",
				"document_id", doc.ID, "chunk_index", i, "error", err)
			continue
		}

		key := vectorstore.ChunkKey(doc.ID, i)
		points = append(points, vectorstore.Point{
			ID:  vectorstore.PointID(key),
			Vec: vec,
			Meta: map[string]any{
				vectorstore.MetaAssistantID:  doc.AssistantID,
				vectorstore.MetaDocumentID:   doc.ID,
				vectorstore.MetaDocumentName: doc.Name,
				vectorstore.MetaChunkIndex:   i,
				vectorstore.MetaChunkKey:     key,
				vectorstore.MetaText:         chunk,
			},
		})
	}

	if len(points) == 0 {
		return p.fail(ctx, doc, "embedding failed for every chunk")
	}

	// Clear points from any earlier ingestion run first, so a shrunken
	// document does not leave stale trailing chunks behind.
	if err := p.index.DeleteByFilter(ctx, p.opts.Collection, vectorstore.Filter{
		AssistantID: doc.AssistantID,
		DocumentID:  doc.ID,
	}); err != nil {
		logger.WarnContext(ctx, "failed to clear previous vectors", "document_id", doc.ID, "error", err)
	}

	if err := p.index.Upsert(ctx, p.opts.Collection, points); err != nil {
		return p.fail(ctx, doc, fmt.Sprintf("failed to index vectors: %v", err))
	}

	if err := p.docs.MarkCompleted(ctx, doc.ID, text, len(points)); err != nil {
		return fmt.Errorf("failed to complete document: %w", err)
	}

	p.activateAssistant(ctx, doc.AssistantID)

	logger.InfoContext(ctx, "ingested document",
		"document_id", doc.ID, "chunks_produced", len(chunks), "chunks_indexed", len(points))
	return nil
}

// fail records a terminal failure and purges any vectors written for the
// document, so a failed document contributes nothing to retrieval.
func (p *Pipeline) fail(ctx context.Context, doc *storage.DocumentRecord, reason string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.index.DeleteByFilter(ctx, p.opts.Collection, vectorstore.Filter{
		AssistantID: doc.AssistantID,
		DocumentID:  doc.ID,
	}); err != nil {
		logger.WarnContext(ctx, "failed to purge vectors for failed document",
			"document_id", doc.ID, "error", err)
	}

	if err := p.docs.MarkFailed(ctx, doc.ID, reason); err != nil {
		logger.ErrorContext(ctx, "failed to record document failure",
			"document_id", doc.ID, "reason", reason, "error", err)
	}

	return fmt.Errorf("ingestion failed for document %s: %s", doc.ID, reason)
}

// activateAssistant flips a draft assistant to active once it has knowledge.
func (p *Pipeline) activateAssistant(ctx context.Context, assistantID string) {
	logger := contextutil.LoggerFromContext(ctx)

	a, err := p.assistants.GetByID(ctx, assistantID)
	if err != nil {
		logger.WarnContext(ctx, "failed to load assistant for activation", "assistant_id", assistantID, "error", err)
		return
	}
	if a.Status != storage.AssistantStatusDraft {
		return
	}
	if err := p.assistants.SetStatus(ctx, assistantID, storage.AssistantStatusActive); err != nil {
		logger.WarnContext(ctx, "failed to activate assistant", "assistant_id", assistantID, "error", err)
	}
}
