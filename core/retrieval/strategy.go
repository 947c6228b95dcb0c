package retrieval

import (
	"context"

	"github.com/siherrmann/retriever/model"
	"golang.org/x/sync/errgroup"
)

// Strategy is one way of answering a classified query. Each strategy owns
// its degradation behavior when a store is unavailable.
type Strategy interface {
	Retrieve(ctx context.Context, q model.Query, classification model.Classification, entityTypes []model.EntityType, window model.TimeWindow) (*model.RetrievalResult, error)
}

// AggregateStrategy answers structured queries from the analytics store.
// If the analytics store is unavailable it falls back to passage
// evidence and marks the result degraded.
type AggregateStrategy struct {
	engine *Engine
}

func NewAggregateStrategy(engine *Engine) *AggregateStrategy {
	return &AggregateStrategy{engine: engine}
}

func (s *AggregateStrategy) Retrieve(ctx context.Context, q model.Query, classification model.Classification, entityTypes []model.EntityType, window model.TimeWindow) (*model.RetrievalResult, error) {
	value, aggErr := s.engine.aggregate(ctx, q, classification, entityTypes, window)
	if aggErr == nil {
		return &model.RetrievalResult{
			QueryType: model.QueryTypeStructured,
			Aggregate: value,
		}, nil
	}

	chunks, searchErr := s.engine.searchPassages(ctx, q, entityTypes, window)
	if searchErr != nil {
		return nil, &RetrievalUnavailableError{QueryType: model.QueryTypeStructured, Err: aggErr}
	}

	return &model.RetrievalResult{
		QueryType:    model.QueryTypeStructured,
		RankedChunks: chunks,
		Degraded:     true,
	}, nil
}

// PassageStrategy answers unstructured queries with ranked passage
// evidence. There is nothing to degrade to, so store failure surfaces as
// RetrievalUnavailableError.
type PassageStrategy struct {
	engine *Engine
}

func NewPassageStrategy(engine *Engine) *PassageStrategy {
	return &PassageStrategy{engine: engine}
}

func (s *PassageStrategy) Retrieve(ctx context.Context, q model.Query, classification model.Classification, entityTypes []model.EntityType, window model.TimeWindow) (*model.RetrievalResult, error) {
	chunks, err := s.engine.searchPassages(ctx, q, entityTypes, window)
	if err != nil {
		return nil, &RetrievalUnavailableError{QueryType: model.QueryTypeUnstructured, Err: err}
	}

	return &model.RetrievalResult{
		QueryType:    model.QueryTypeUnstructured,
		RankedChunks: chunks,
	}, nil
}

// CombinedStrategy answers mixed queries by running the aggregate and
// passage branches concurrently. One failing branch degrades the result
// to the surviving branch; both failing surfaces an error.
type CombinedStrategy struct {
	engine *Engine
}

func NewCombinedStrategy(engine *Engine) *CombinedStrategy {
	return &CombinedStrategy{engine: engine}
}

func (s *CombinedStrategy) Retrieve(ctx context.Context, q model.Query, classification model.Classification, entityTypes []model.EntityType, window model.TimeWindow) (*model.RetrievalResult, error) {
	var (
		value  *model.AggregateValue
		chunks []*model.RankedChunk
		aggErr error
		srcErr error
	)

	// Both branches always run to completion, errors are collected per
	// branch instead of cancelling the group
	group := errgroup.Group{}
	group.Go(func() error {
		value, aggErr = s.engine.aggregate(ctx, q, classification, entityTypes, window)
		return nil
	})
	group.Go(func() error {
		chunks, srcErr = s.engine.searchPassages(ctx, q, entityTypes, window)
		return nil
	})
	// nolint:errcheck // goroutines above never return an error
	group.Wait()

	if aggErr != nil && srcErr != nil {
		return nil, &RetrievalUnavailableError{QueryType: model.QueryTypeMixed, Err: srcErr}
	}

	return &model.RetrievalResult{
		QueryType:    model.QueryTypeMixed,
		RankedChunks: chunks,
		Aggregate:    value,
		Degraded:     aggErr != nil || srcErr != nil,
	}, nil
}
