package model

// EntityType is the category of source content a document belongs to.
// It is a closed set so consumers can switch exhaustively.
type EntityType string

const (
	EntityTypePost          EntityType = "post"
	EntityTypeTranscription EntityType = "transcription"
	EntityTypeHighlight     EntityType = "highlight"
	EntityTypePartnership   EntityType = "partnership"
	EntityTypeCoupon        EntityType = "coupon"
	EntityTypeKnowledgeBase EntityType = "knowledge_base"
	EntityTypeDocument      EntityType = "document"
	EntityTypeWebsite       EntityType = "website"
	EntityTypeOther         EntityType = "other"
)

// AllEntityTypes lists every known entity type in a stable order
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityTypePost,
		EntityTypeTranscription,
		EntityTypeHighlight,
		EntityTypePartnership,
		EntityTypeCoupon,
		EntityTypeKnowledgeBase,
		EntityTypeDocument,
		EntityTypeWebsite,
		EntityTypeOther,
	}
}

// ParseEntityType returns the EntityType for s, falling back to
// EntityTypeOther for unknown values
func ParseEntityType(s string) EntityType {
	for _, t := range AllEntityTypes() {
		if string(t) == s {
			return t
		}
	}
	return EntityTypeOther
}

// QueryType labels how a question should be answered
type QueryType string

const (
	// QueryTypeStructured is answerable by aggregation over facts
	QueryTypeStructured QueryType = "structured"
	// QueryTypeUnstructured is answerable by reading passages
	QueryTypeUnstructured QueryType = "unstructured"
	// QueryTypeMixed warrants both an aggregate answer and passage evidence
	QueryTypeMixed QueryType = "mixed"
)

// MetricHint tells the aggregate store which kind of answer a structured
// query is after
type MetricHint string

const (
	MetricCount   MetricHint = "count"
	MetricSum     MetricHint = "sum"
	MetricAverage MetricHint = "average"
	MetricExtreme MetricHint = "extreme"
	MetricLatest  MetricHint = "latest"
	MetricFirst   MetricHint = "first"
)
