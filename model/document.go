package model

import (
	"time"

	"github.com/google/uuid"
)

// Document represents one piece of source content owned by a creator
// account: a post caption, a video transcription, a partnership brief,
// a coupon and so on.
type Document struct {
	ID          int64      `json:"id"`
	RID         uuid.UUID  `json:"rid"`
	AccountID   uuid.UUID  `json:"account_id"`
	EntityType  EntityType `json:"entity_type"`
	SourceID    string     `json:"source_id,omitempty"` // id in the source table, used for idempotent re-ingestion
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty" db:"-"` // raw text for processing, not stored
	ChunkCount  int        `json:"chunk_count"`
	TotalTokens int        `json:"total_tokens"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
