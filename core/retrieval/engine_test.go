package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever/core/query"
	"github.com/siherrmann/retriever/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []*model.RankedChunk
	err     error

	gotQueryText   string
	gotEntityTypes []model.EntityType
	gotWindow      model.TimeWindow
	gotLimit       int
}

func (f *fakeSearcher) Search(ctx context.Context, accountID uuid.UUID, queryText string, entityTypes []model.EntityType, window model.TimeWindow, limit int) ([]*model.RankedChunk, error) {
	f.gotQueryText = queryText
	f.gotEntityTypes = entityTypes
	f.gotWindow = window
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeAggregator struct {
	value *model.AggregateValue
	err   error

	gotMetric      model.MetricHint
	gotEntityTypes []model.EntityType
	gotWindow      model.TimeWindow
}

func (f *fakeAggregator) Aggregate(ctx context.Context, accountID uuid.UUID, metric model.MetricHint, entityTypes []model.EntityType, window model.TimeWindow) (*model.AggregateValue, error) {
	f.gotMetric = metric
	f.gotEntityTypes = entityTypes
	f.gotWindow = window
	if f.err != nil {
		return nil, f.err
	}
	return f.value, nil
}

func rankedChunk(id int64, documentID int64, entityType model.EntityType, score float64) *model.RankedChunk {
	return &model.RankedChunk{
		Chunk: &model.Chunk{
			ID:         id,
			DocumentID: documentID,
			EntityType: entityType,
			Text:       "chunk",
			Metadata:   model.Metadata{},
		},
		Score:           score,
		RetrievalMethod: model.RetrievalMethodVector,
	}
}

func newTestEngine(t *testing.T, search PassageSearcher, analytics AggregateStore, config model.QueryConfig) *Engine {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := NewEngine(query.DefaultClassifier(), search, analytics, config, logger)
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	t.Run("Rejects invalid config", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		_, err := NewEngine(query.DefaultClassifier(), &fakeSearcher{}, &fakeAggregator{}, model.QueryConfig{}, logger)
		assert.Error(t, err)
	})
}

func TestEngineRouting(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("Unstructured query returns passage evidence only", func(t *testing.T) {
		search := &fakeSearcher{results: []*model.RankedChunk{rankedChunk(1, 1, model.EntityTypePost, 0.8)}}
		analytics := &fakeAggregator{value: &model.AggregateValue{Metric: model.MetricCount, Count: 3}}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeUnstructured, result.QueryType)
		assert.Len(t, result.RankedChunks, 1)
		assert.Nil(t, result.Aggregate)
		assert.False(t, result.Degraded)
		assert.Equal(t, "what is her morning routine?", search.gotQueryText)
	})

	t.Run("Structured query returns aggregate answer only", func(t *testing.T) {
		search := &fakeSearcher{results: []*model.RankedChunk{rankedChunk(1, 1, model.EntityTypePost, 0.8)}}
		analytics := &fakeAggregator{value: &model.AggregateValue{Metric: model.MetricCount, Count: 7}}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "total views statistics"})
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeStructured, result.QueryType)
		require.NotNil(t, result.Aggregate)
		assert.Equal(t, int64(7), result.Aggregate.Count)
		assert.Empty(t, result.RankedChunks)
		assert.False(t, result.Degraded)
	})

	t.Run("Mixed query returns both branches", func(t *testing.T) {
		search := &fakeSearcher{results: []*model.RankedChunk{rankedChunk(1, 1, model.EntityTypePost, 0.8)}}
		analytics := &fakeAggregator{value: &model.AggregateValue{Metric: model.MetricCount, Count: 12}}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "how many posts do I have?"})
		require.NoError(t, err)
		assert.Equal(t, model.QueryTypeMixed, result.QueryType)
		require.NotNil(t, result.Aggregate)
		assert.Equal(t, int64(12), result.Aggregate.Count)
		assert.Len(t, result.RankedChunks, 1)
		assert.False(t, result.Degraded)

		// Entity keywords in the query scope both branches
		assert.Contains(t, search.gotEntityTypes, model.EntityTypePost)
		assert.Contains(t, analytics.gotEntityTypes, model.EntityTypePost)
		assert.Equal(t, model.MetricCount, analytics.gotMetric)
	})
}

func TestEngineDegradation(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()
	storeErr := errors.New("connection refused")

	t.Run("Structured query degrades to passages when analytics is down", func(t *testing.T) {
		search := &fakeSearcher{results: []*model.RankedChunk{rankedChunk(1, 1, model.EntityTypePost, 0.8)}}
		analytics := &fakeAggregator{err: storeErr}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "total views statistics"})
		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.Nil(t, result.Aggregate)
		assert.Len(t, result.RankedChunks, 1)
	})

	t.Run("Structured query fails when both stores are down", func(t *testing.T) {
		search := &fakeSearcher{err: storeErr}
		analytics := &fakeAggregator{err: storeErr}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		_, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "total views statistics"})
		require.Error(t, err)

		var unavailable *RetrievalUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, model.QueryTypeStructured, unavailable.QueryType)
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("Unstructured query surfaces passage store failure", func(t *testing.T) {
		search := &fakeSearcher{err: storeErr}
		analytics := &fakeAggregator{value: &model.AggregateValue{}}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		_, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.Error(t, err)

		var unavailable *RetrievalUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, model.QueryTypeUnstructured, unavailable.QueryType)
	})

	t.Run("Mixed query survives analytics failure", func(t *testing.T) {
		search := &fakeSearcher{results: []*model.RankedChunk{rankedChunk(1, 1, model.EntityTypePost, 0.8)}}
		analytics := &fakeAggregator{err: storeErr}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "how many posts do I have?"})
		require.NoError(t, err)
		assert.True(t, result.Degraded)
		assert.Nil(t, result.Aggregate)
		assert.Len(t, result.RankedChunks, 1)
	})

	t.Run("Mixed query survives passage failure", func(t *testing.T) {
		search := &fakeSearcher{err: storeErr}
		analytics := &fakeAggregator{value: &model.AggregateValue{Metric: model.MetricCount, Count: 12}}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "how many posts do I have?"})
		require.NoError(t, err)
		assert.True(t, result.Degraded)
		require.NotNil(t, result.Aggregate)
		assert.Empty(t, result.RankedChunks)
	})

	t.Run("Mixed query fails when both branches are down", func(t *testing.T) {
		search := &fakeSearcher{err: storeErr}
		analytics := &fakeAggregator{err: storeErr}
		engine := newTestEngine(t, search, analytics, model.DefaultQueryConfig())

		_, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "how many posts do I have?"})
		require.Error(t, err)

		var unavailable *RetrievalUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, model.QueryTypeMixed, unavailable.QueryType)
	})
}

func TestEngineRanking(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("Results are ordered by score and cut to top k", func(t *testing.T) {
		var candidates []*model.RankedChunk
		for i := int64(0); i < 10; i++ {
			candidates = append(candidates, rankedChunk(i, i, model.EntityType("type-"+string(rune('a'+i))), 0.3+float64(i)*0.05))
		}
		search := &fakeSearcher{results: candidates}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.NoError(t, err)
		require.Len(t, result.RankedChunks, 5)
		for i := 1; i < len(result.RankedChunks); i++ {
			assert.GreaterOrEqual(t, result.RankedChunks[i-1].Score, result.RankedChunks[i].Score)
		}
	})

	t.Run("Single document cannot dominate the result", func(t *testing.T) {
		candidates := []*model.RankedChunk{
			rankedChunk(1, 1, model.EntityTypePost, 0.9),
			rankedChunk(2, 1, model.EntityTypePost, 0.85),
			rankedChunk(3, 1, model.EntityTypePost, 0.8),
			rankedChunk(4, 2, model.EntityTypeCoupon, 0.5),
		}
		search := &fakeSearcher{results: candidates}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.NoError(t, err)
		require.Len(t, result.RankedChunks, 3)

		perDocument := map[int64]int{}
		for _, chunk := range result.RankedChunks {
			perDocument[chunk.Chunk.DocumentID]++
		}
		assert.Equal(t, 2, perDocument[1], "Document 1 should be capped at 2 chunks")
		assert.Equal(t, 1, perDocument[2])
	})

	t.Run("Single entity type cannot dominate the result", func(t *testing.T) {
		candidates := []*model.RankedChunk{
			rankedChunk(1, 1, model.EntityTypePost, 0.9),
			rankedChunk(2, 2, model.EntityTypePost, 0.85),
			rankedChunk(3, 3, model.EntityTypePost, 0.8),
			rankedChunk(4, 4, model.EntityTypePost, 0.75),
			rankedChunk(5, 5, model.EntityTypeCoupon, 0.5),
		}
		search := &fakeSearcher{results: candidates}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.NoError(t, err)

		perType := map[model.EntityType]int{}
		for _, chunk := range result.RankedChunks {
			perType[chunk.Chunk.EntityType]++
		}
		assert.Equal(t, 3, perType[model.EntityTypePost], "Posts should be capped at 3 chunks")
		assert.Equal(t, 1, perType[model.EntityTypeCoupon])
	})

	t.Run("Diversity caps keep the best scored chunks", func(t *testing.T) {
		candidates := []*model.RankedChunk{
			rankedChunk(1, 1, model.EntityTypePost, 0.3),
			rankedChunk(2, 1, model.EntityTypePost, 0.9),
			rankedChunk(3, 1, model.EntityTypePost, 0.8),
		}
		search := &fakeSearcher{results: candidates}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.NoError(t, err)
		require.Len(t, result.RankedChunks, 2)
		assert.Equal(t, int64(2), result.RankedChunks[0].Chunk.ID)
		assert.Equal(t, int64(3), result.RankedChunks[1].Chunk.ID)
	})

	t.Run("Metadata filter drops non matching chunks", func(t *testing.T) {
		matching := rankedChunk(1, 1, model.EntityTypePost, 0.9)
		matching.Chunk.Metadata = model.Metadata{"language": "he"}
		other := rankedChunk(2, 2, model.EntityTypePost, 0.8)
		other.Chunk.Metadata = model.Metadata{"language": "en"}

		search := &fakeSearcher{results: []*model.RankedChunk{matching, other}}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{
			AccountID:      accountID,
			Text:           "what is her morning routine?",
			MetadataFilter: model.Metadata{"language": "he"},
		})
		require.NoError(t, err)
		require.Len(t, result.RankedChunks, 1)
		assert.Equal(t, int64(1), result.RankedChunks[0].Chunk.ID)
	})

	t.Run("Metadata filter matches array and object values", func(t *testing.T) {
		// JSONB values come back from the store as []interface{} and
		// map[string]interface{}; filtering on them must compare deeply
		// instead of crashing the query
		matching := rankedChunk(1, 1, model.EntityTypePost, 0.9)
		matching.Chunk.Metadata = model.Metadata{"tags": []interface{}{"skincare"}}
		other := rankedChunk(2, 2, model.EntityTypePost, 0.8)
		other.Chunk.Metadata = model.Metadata{"tags": []interface{}{"coffee"}}

		search := &fakeSearcher{results: []*model.RankedChunk{matching, other}}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		result, err := engine.Retrieve(ctx, model.Query{
			AccountID:      accountID,
			Text:           "what is her morning routine?",
			MetadataFilter: model.Metadata{"tags": []interface{}{"skincare"}},
		})
		require.NoError(t, err)
		require.Len(t, result.RankedChunks, 1)
		assert.Equal(t, int64(1), result.RankedChunks[0].Chunk.ID)
	})
}

func TestEngineOverrides(t *testing.T) {
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("Caller entity types win over inferred ones", func(t *testing.T) {
		search := &fakeSearcher{}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		_, err := engine.Retrieve(ctx, model.Query{
			AccountID:   accountID,
			Text:        "what coupons are available?",
			EntityTypes: []model.EntityType{model.EntityTypePartnership},
		})
		require.NoError(t, err)
		assert.Equal(t, []model.EntityType{model.EntityTypePartnership}, search.gotEntityTypes)
	})

	t.Run("Caller time window wins over phrased one", func(t *testing.T) {
		search := &fakeSearcher{}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())

		after := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := engine.Retrieve(ctx, model.Query{
			AccountID:  accountID,
			Text:       "what happened this week",
			TimeWindow: &model.TimeWindow{After: &after},
		})
		require.NoError(t, err)
		require.NotNil(t, search.gotWindow.After)
		assert.Equal(t, after, *search.gotWindow.After)
	})

	t.Run("Phrased time hint reaches the store", func(t *testing.T) {
		search := &fakeSearcher{}
		engine := newTestEngine(t, search, &fakeAggregator{}, model.DefaultQueryConfig())
		now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		engine.now = func() time.Time { return now }

		_, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what happened this week"})
		require.NoError(t, err)
		require.NotNil(t, search.gotWindow.After)
		assert.Equal(t, now.AddDate(0, 0, -7), *search.gotWindow.After)
	})

	t.Run("Candidate pool size is passed to the searcher", func(t *testing.T) {
		search := &fakeSearcher{}
		config := model.DefaultQueryConfig()
		config.CandidateLimit = 33
		engine := newTestEngine(t, search, &fakeAggregator{}, config)

		_, err := engine.Retrieve(ctx, model.Query{AccountID: accountID, Text: "what is her morning routine?"})
		require.NoError(t, err)
		assert.Equal(t, 33, search.gotLimit)
	})
}
