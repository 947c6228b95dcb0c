package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkConfigValidate(t *testing.T) {
	t.Run("Defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultChunkConfig().Validate())
	})

	t.Run("Zero value is invalid", func(t *testing.T) {
		assert.Error(t, ChunkConfig{}.Validate())
	})

	t.Run("Target above max is rejected", func(t *testing.T) {
		config := DefaultChunkConfig()
		config.TargetTokens = config.MaxTokens + 1
		assert.Error(t, config.Validate())
	})

	t.Run("Min above target is rejected", func(t *testing.T) {
		config := DefaultChunkConfig()
		config.MinTokens = config.TargetTokens + 1
		assert.Error(t, config.Validate())
	})

	t.Run("Overlap of one or more is rejected", func(t *testing.T) {
		config := DefaultChunkConfig()
		config.OverlapRatio = 1.0
		assert.Error(t, config.Validate())
	})

	t.Run("Zero overlap is allowed", func(t *testing.T) {
		config := DefaultChunkConfig()
		config.OverlapRatio = 0
		assert.NoError(t, config.Validate())
	})

	t.Run("Merge tolerance below one is rejected", func(t *testing.T) {
		config := DefaultChunkConfig()
		config.MergeTolerance = 0.5
		assert.Error(t, config.Validate())
	})
}

func TestQueryConfigValidate(t *testing.T) {
	t.Run("Defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultQueryConfig().Validate())
	})

	t.Run("Zero value is invalid", func(t *testing.T) {
		assert.Error(t, QueryConfig{}.Validate())
	})

	t.Run("Candidate limit below top k is rejected", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.CandidateLimit = config.TopK - 1
		assert.Error(t, config.Validate())
	})

	t.Run("Similarity threshold outside the unit interval is rejected", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.SimilarityThreshold = 1.5
		assert.Error(t, config.Validate())

		config.SimilarityThreshold = -0.1
		assert.Error(t, config.Validate())
	})

	t.Run("Missing store timeout is rejected", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.StoreTimeout = 0
		assert.Error(t, config.Validate())
	})

	t.Run("Disabled diversity caps are allowed", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.MaxChunksPerDocument = 0
		config.MaxChunksPerEntityType = 0
		assert.NoError(t, config.Validate())
	})
}

func TestTimeWindow(t *testing.T) {
	t.Run("Zero window has no bounds", func(t *testing.T) {
		assert.True(t, TimeWindow{}.IsZero())
	})

	t.Run("A single bound makes the window non-zero", func(t *testing.T) {
		now := time.Now()
		assert.False(t, TimeWindow{After: &now}.IsZero())
		assert.False(t, TimeWindow{Before: &now}.IsZero())
	})
}

func TestParseEntityType(t *testing.T) {
	t.Run("Known values round-trip", func(t *testing.T) {
		for _, entityType := range AllEntityTypes() {
			assert.Equal(t, entityType, ParseEntityType(string(entityType)))
		}
	})

	t.Run("Unknown values fall back to other", func(t *testing.T) {
		assert.Equal(t, EntityTypeOther, ParseEntityType("something-new"))
		assert.Equal(t, EntityTypeOther, ParseEntityType(""))
	})
}
