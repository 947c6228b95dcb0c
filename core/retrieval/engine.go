package retrieval

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever/core/query"
	"github.com/siherrmann/retriever/model"
)

// PassageSearcher is the passage-search collaborator: vector and/or
// keyword similarity over chunks, scoped by account, entity types and
// time window. limit is the candidate pool size, not the final result
// count.
type PassageSearcher interface {
	Search(ctx context.Context, accountID uuid.UUID, queryText string, entityTypes []model.EntityType, window model.TimeWindow, limit int) ([]*model.RankedChunk, error)
}

// AggregateStore is the analytics collaborator answering structured
// queries with counts, extremes and representative rows
type AggregateStore interface {
	Aggregate(ctx context.Context, accountID uuid.UUID, metric model.MetricHint, entityTypes []model.EntityType, window model.TimeWindow) (*model.AggregateValue, error)
}

// Engine decides per query how to answer: by aggregation over structured
// facts, by passage search, or both. The stores are injected
// collaborators with their own retry policies; the engine only applies a
// bounded wait and treats any store failure as unavailability for its
// degradation rules.
type Engine struct {
	classifier *query.Classifier
	search     PassageSearcher
	analytics  AggregateStore
	config     model.QueryConfig
	log        *slog.Logger

	// now is the clock for time window extraction, replaceable in tests
	now func() time.Time
}

// NewEngine creates a retrieval engine. An invalid QueryConfig is a
// configuration error the caller must fix; it is never silently patched.
func NewEngine(classifier *query.Classifier, search PassageSearcher, analytics AggregateStore, config model.QueryConfig, log *slog.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		classifier: classifier,
		search:     search,
		analytics:  analytics,
		config:     config,
		log:        log,
		now:        time.Now,
	}, nil
}

// Retrieve classifies the query, derives filters and runs the matching
// strategy:
//
//   - structured: aggregate answer only; degrades to passage evidence if
//     the analytics store is unavailable
//   - unstructured: ranked passage evidence only; surfaces
//     RetrievalUnavailableError if the passage store is unavailable
//   - mixed: both concurrently; a single store failure degrades to the
//     surviving branch
func (e *Engine) Retrieve(ctx context.Context, q model.Query) (*model.RetrievalResult, error) {
	classification := e.classifier.Classify(q.Text)
	filter := query.ExtractFilters(q.Text, e.now())

	// Caller overrides win over what the text implies
	entityTypes := q.EntityTypes
	if len(entityTypes) == 0 {
		entityTypes = classification.InferredEntityTypes
	}
	window := filter.TimeWindow
	if q.TimeWindow != nil {
		window = *q.TimeWindow
	}

	e.log.Info("Query classified",
		slog.String("account_id", q.AccountID.String()),
		slog.String("query_type", string(classification.QueryType)),
		slog.Any("entity_types", entityTypes),
		slog.Bool("time_window", !window.IsZero()),
	)

	var strategy Strategy
	switch classification.QueryType {
	case model.QueryTypeStructured:
		strategy = NewAggregateStrategy(e)
	case model.QueryTypeMixed:
		strategy = NewCombinedStrategy(e)
	default:
		strategy = NewPassageStrategy(e)
	}

	return strategy.Retrieve(ctx, q, classification, entityTypes, window)
}

// aggregate runs one bounded aggregate store call
func (e *Engine) aggregate(ctx context.Context, q model.Query, classification model.Classification, entityTypes []model.EntityType, window model.TimeWindow) (*model.AggregateValue, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.StoreTimeout)
	defer cancel()

	metric := classification.Metric
	if metric == "" {
		metric = model.MetricCount
	}

	value, err := e.analytics.Aggregate(ctx, q.AccountID, metric, entityTypes, window)
	if err != nil {
		e.log.Warn("Aggregate store unavailable",
			slog.String("account_id", q.AccountID.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return value, nil
}

// searchPassages runs one bounded passage search and applies the
// engine-side ranking policy: metadata filtering, diversity caps, score
// ordering and the top-k cut
func (e *Engine) searchPassages(ctx context.Context, q model.Query, entityTypes []model.EntityType, window model.TimeWindow) ([]*model.RankedChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.StoreTimeout)
	defer cancel()

	candidates, err := e.search.Search(ctx, q.AccountID, q.Text, entityTypes, window, e.config.CandidateLimit)
	if err != nil {
		e.log.Warn("Passage store unavailable",
			slog.String("account_id", q.AccountID.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	candidates = filterByMetadata(candidates, q.MetadataFilter)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	candidates = e.limitDominance(candidates)

	if len(candidates) > e.config.TopK {
		candidates = candidates[:e.config.TopK]
	}

	return candidates, nil
}

// filterByMetadata drops candidates whose chunk metadata doesn't carry
// every requested key/value pair. JSONB values scanned from the store can
// hold arrays and nested objects, so matching is deep equality, not ==.
func filterByMetadata(candidates []*model.RankedChunk, filter model.Metadata) []*model.RankedChunk {
	if len(filter) == 0 {
		return candidates
	}

	filtered := make([]*model.RankedChunk, 0, len(candidates))
	for _, candidate := range candidates {
		matches := true
		for key, value := range filter {
			if !reflect.DeepEqual(candidate.Chunk.Metadata[key], value) {
				matches = false
				break
			}
		}
		if matches {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// limitDominance caps how many chunks a single document or entity type
// may contribute, so one long transcription can't crowd out the rest of
// the corpus
func (e *Engine) limitDominance(candidates []*model.RankedChunk) []*model.RankedChunk {
	if e.config.MaxChunksPerDocument <= 0 && e.config.MaxChunksPerEntityType <= 0 {
		return candidates
	}

	perDocument := make(map[int64]int)
	perType := make(map[model.EntityType]int)

	filtered := make([]*model.RankedChunk, 0, len(candidates))
	for _, candidate := range candidates {
		docCount := perDocument[candidate.Chunk.DocumentID]
		typeCount := perType[candidate.Chunk.EntityType]

		if e.config.MaxChunksPerDocument > 0 && docCount >= e.config.MaxChunksPerDocument {
			continue
		}
		if e.config.MaxChunksPerEntityType > 0 && typeCount >= e.config.MaxChunksPerEntityType {
			continue
		}

		perDocument[candidate.Chunk.DocumentID] = docCount + 1
		perType[candidate.Chunk.EntityType] = typeCount + 1
		filtered = append(filtered, candidate)
	}

	return filtered
}
