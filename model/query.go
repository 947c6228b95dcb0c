package model

import (
	"time"

	"github.com/google/uuid"
)

// Query is one natural-language question against a creator's corpus
type Query struct {
	AccountID uuid.UUID `json:"account_id"`
	Text      string    `json:"text"`
	// Optional caller overrides; when set they take precedence over what
	// the classifier and filter extractor infer from the text
	EntityTypes    []EntityType `json:"entity_types,omitempty"`
	TimeWindow     *TimeWindow  `json:"time_window,omitempty"`
	MetadataFilter Metadata     `json:"metadata_filter,omitempty"`
}

// Classification is the derived label for a query. It is recomputed per
// query and never persisted.
type Classification struct {
	QueryType           QueryType    `json:"query_type"`
	InferredEntityTypes []EntityType `json:"inferred_entity_types,omitempty"`
	// Metric is the aggregate the structured indicators point at; only
	// meaningful for structured and mixed queries
	Metric MetricHint `json:"metric,omitempty"`
}

// TimeWindow narrows which documents are eligible. A nil bound means
// unbounded on that side.
type TimeWindow struct {
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// IsZero reports whether no bound is set
func (w TimeWindow) IsZero() bool {
	return w.After == nil && w.Before == nil
}

// Filter is the scoping derived from a query's phrasing
type Filter struct {
	TimeWindow  TimeWindow   `json:"time_window"`
	EntityTypes []EntityType `json:"entity_types,omitempty"`
}
