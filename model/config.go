package model

import (
	"fmt"
	"time"
)

// ChunkConfig controls how normalized text is split into chunks.
// The token counts are approximate, estimated without a tokenizer.
type ChunkConfig struct {
	// TargetTokens is the token budget a chunk aims for
	TargetTokens int `json:"target_tokens"`
	// MinTokens is the smallest useful chunk; a trailing chunk below it is
	// merged into the previous chunk instead of being emitted standalone
	MinTokens int `json:"min_tokens"`
	// MaxTokens is the budget above which text is split at all
	MaxTokens int `json:"max_tokens"`
	// OverlapRatio is the fraction of TargetTokens repeated at the start of
	// the next chunk, so answers spanning a boundary stay inside one chunk
	OverlapRatio float64 `json:"overlap_ratio"`
	// MergeTolerance bounds how far a trailing-chunk merge may push the
	// merged chunk above MaxTokens, as a multiple of MaxTokens
	MergeTolerance float64 `json:"merge_tolerance"`
}

// DefaultChunkConfig returns the chunking defaults calibrated for mixed
// English/Hebrew creator content
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetTokens:   400,
		MinTokens:      100,
		MaxTokens:      500,
		OverlapRatio:   0.12,
		MergeTolerance: 2.0,
	}
}

// Validate reports a configuration error for an unusable ChunkConfig.
// Invalid configuration is fatal for the caller, never a silent fallback.
func (c ChunkConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.TargetTokens <= 0 || c.TargetTokens > c.MaxTokens {
		return fmt.Errorf("target tokens must be in 1..max tokens, got %d", c.TargetTokens)
	}
	if c.MinTokens < 0 || c.MinTokens > c.TargetTokens {
		return fmt.Errorf("min tokens must be in 0..target tokens, got %d", c.MinTokens)
	}
	if c.OverlapRatio < 0 || c.OverlapRatio >= 1 {
		return fmt.Errorf("overlap ratio must be in [0,1), got %f", c.OverlapRatio)
	}
	if c.MergeTolerance < 1 {
		return fmt.Errorf("merge tolerance must be at least 1, got %f", c.MergeTolerance)
	}
	return nil
}

// QueryConfig controls retrieval behavior
type QueryConfig struct {
	// TopK is the number of ranked chunks returned to the caller
	TopK int `json:"top_k"`
	// CandidateLimit is the vector search pool size before filtering
	CandidateLimit int `json:"candidate_limit"`
	// SimilarityThreshold is the minimum cosine similarity for candidates
	SimilarityThreshold float64 `json:"similarity_threshold"`
	// KeywordBaseline is the similarity assigned to keyword-matched chunks
	// that the vector search missed
	KeywordBaseline float64 `json:"keyword_baseline"`
	// MaxChunksPerDocument and MaxChunksPerEntityType cap result dominance
	// by a single source (diversity guardrail); 0 disables the cap
	MaxChunksPerDocument   int `json:"max_chunks_per_document"`
	MaxChunksPerEntityType int `json:"max_chunks_per_entity_type"`
	// StoreTimeout bounds each store call; a timeout is treated as the
	// store being unavailable
	StoreTimeout time.Duration `json:"store_timeout"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                   5,
		CandidateLimit:         20,
		SimilarityThreshold:    0.25,
		KeywordBaseline:        0.45,
		MaxChunksPerDocument:   2,
		MaxChunksPerEntityType: 3,
		StoreTimeout:           10 * time.Second,
	}
}

// Validate reports a configuration error for an unusable QueryConfig
func (c QueryConfig) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive, got %d", c.TopK)
	}
	if c.CandidateLimit < c.TopK {
		return fmt.Errorf("candidate limit must be at least top k, got %d", c.CandidateLimit)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0,1], got %f", c.SimilarityThreshold)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive, got %s", c.StoreTimeout)
	}
	return nil
}
