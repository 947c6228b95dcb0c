package model

import (
	"time"

	"github.com/google/uuid"
)

// RetrievalMethod records how a chunk entered a result set
type RetrievalMethod string

const (
	RetrievalMethodVector    RetrievalMethod = "vector"
	RetrievalMethodKeyword   RetrievalMethod = "keyword"
	RetrievalMethodAggregate RetrievalMethod = "aggregate"
)

// Chunk is a contiguous, token-bounded span of a normalized document.
// StartChar and EndChar are offsets into the normalized source text, not
// the original raw text. Index is 0-based and contiguous per document.
type Chunk struct {
	ID          int64      `json:"id"`
	DocumentID  int64      `json:"document_id"`
	DocumentRID uuid.UUID  `json:"document_rid"`
	AccountID   uuid.UUID  `json:"account_id"`
	EntityType  EntityType `json:"entity_type"`
	Index       int        `json:"chunk_index"`
	Text        string     `json:"chunk_text"`
	Embedding   []float32  `json:"embedding,omitempty"`
	StartChar   int        `json:"start_char"`
	EndChar     int        `json:"end_char"`
	TokenCount  int        `json:"token_count"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	// Result fields, populated by search
	Similarity float64 `json:"similarity,omitempty"`
}
