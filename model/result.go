package model

import (
	"time"

	"github.com/google/uuid"
)

// RankedChunk is one piece of passage evidence in a result
type RankedChunk struct {
	Chunk           *Chunk          `json:"chunk"`
	DocumentTitle   string          `json:"document_title,omitempty"`
	Score           float64         `json:"score"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method"`
}

// AggregateRow is one representative document in an aggregate answer,
// used by latest/first style metrics
type AggregateRow struct {
	DocumentRID uuid.UUID  `json:"document_rid"`
	EntityType  EntityType `json:"entity_type"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AggregateValue is the structured answer of the analytics store
type AggregateValue struct {
	Metric MetricHint           `json:"metric"`
	Count  int64                `json:"count"`
	ByType map[EntityType]int64 `json:"by_type,omitempty"`
	Rows   []AggregateRow       `json:"rows,omitempty"`
}

// RetrievalResult is what a query returns: ranked passage evidence and,
// for structured and mixed queries, an aggregate answer. Degraded results
// may carry only one of the two.
type RetrievalResult struct {
	QueryType    QueryType       `json:"query_type"`
	RankedChunks []*RankedChunk  `json:"ranked_chunks"`
	Aggregate    *AggregateValue `json:"aggregate,omitempty"`
	// Degraded is set when one branch of a mixed/structured query failed
	// and the result was served by the surviving branch
	Degraded bool `json:"degraded,omitempty"`
}
