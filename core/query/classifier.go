package query

import (
	"strings"

	"github.com/siherrmann/retriever/model"
)

// Classifier labels a natural-language question as structured,
// unstructured or mixed and infers which entity types it concerns. It is
// a pure keyword heuristic, cheap enough to run on every chat turn before
// any retrieval work; a missed structured phrasing degrades gracefully to
// semantic search, never to an error.
type Classifier struct {
	tables *KeywordTables
}

// NewClassifier creates a classifier over the given keyword tables
func NewClassifier(tables *KeywordTables) *Classifier {
	return &Classifier{tables: tables}
}

// DefaultClassifier creates a classifier over the embedded bilingual tables
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultKeywordTables())
}

// Classify derives the query type and entity types for a question.
//
// A structured indicator with no entity type yields a structured query, a
// structured indicator plus entity types yields a mixed query, and no
// indicator yields an unstructured query whose entity types (if any) only
// scope the search.
func (c *Classifier) Classify(query string) model.Classification {
	lower := strings.ToLower(query)

	metric, isStructured := c.matchMetric(lower)
	inferred := c.matchEntityTypes(lower)

	classification := model.Classification{
		InferredEntityTypes: inferred,
	}

	switch {
	case isStructured && len(inferred) == 0:
		classification.QueryType = model.QueryTypeStructured
		classification.Metric = metric
	case isStructured:
		classification.QueryType = model.QueryTypeMixed
		classification.Metric = metric
	default:
		classification.QueryType = model.QueryTypeUnstructured
	}

	return classification
}

// matchMetric returns the metric hint of the first indicator group the
// query matches, in table order
func (c *Classifier) matchMetric(lower string) (model.MetricHint, bool) {
	for _, group := range c.tables.StructuredIndicators {
		for _, keyword := range group.Keywords {
			if strings.Contains(lower, keyword) {
				return group.Metric, true
			}
		}
	}
	return "", false
}

// matchEntityTypes collects every entity type whose keywords appear in
// the query, in the stable AllEntityTypes order
func (c *Classifier) matchEntityTypes(lower string) []model.EntityType {
	var inferred []model.EntityType
	for _, entityType := range model.AllEntityTypes() {
		keywords, ok := c.tables.EntityKeywords[entityType]
		if !ok {
			continue
		}
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				inferred = append(inferred, entityType)
				break
			}
		}
	}
	return inferred
}
