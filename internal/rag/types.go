package rag

// Match is a retrieved chunk of a completed document, ranked by similarity.
type Match struct {
	DocumentID string  `json:"document_id"`
	SourceName string  `json:"source_name"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}
