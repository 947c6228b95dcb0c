package database

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever/core/pipeline"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
)

// maxKeywordTerms caps how many query terms the keyword supplement
// searches for
const maxKeywordTerms = 3

// Searcher performs hybrid passage search: vector similarity as the
// primary signal, supplemented with keyword hits so exact names and rare
// terms still surface when their embeddings rank poorly. Keyword-only
// hits enter the pool at the keyword baseline score.
type Searcher struct {
	chunks          *ChunksDBHandler
	embed           pipeline.EmbedFunc
	threshold       float64
	keywordBaseline float64
}

// NewSearcher creates a hybrid searcher over the given chunks handler.
// threshold is the minimum vector similarity, keywordBaseline the score
// assigned to chunks found only by keyword.
func NewSearcher(chunks *ChunksDBHandler, embed pipeline.EmbedFunc, threshold float64, keywordBaseline float64) (*Searcher, error) {
	if chunks == nil {
		return nil, helper.NewError("searcher validation", fmt.Errorf("chunks handler is nil"))
	}
	if embed == nil {
		return nil, helper.NewError("searcher validation", fmt.Errorf("embed function is nil"))
	}

	return &Searcher{
		chunks:          chunks,
		embed:           embed,
		threshold:       threshold,
		keywordBaseline: keywordBaseline,
	}, nil
}

// Search embeds the query text, runs vector search and merges in keyword
// hits, deduplicated by chunk ID. Vector hits keep their similarity as
// score; keyword-only hits get the keyword baseline.
func (s *Searcher) Search(ctx context.Context, accountID uuid.UUID, queryText string, entityTypes []model.EntityType, window model.TimeWindow, limit int) ([]*model.RankedChunk, error) {
	embedding, err := s.embed(queryText)
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	chunks, titles, err := s.chunks.SelectChunksBySimilarity(ctx, accountID, embedding, limit, s.threshold, entityTypes, window)
	if err != nil {
		return nil, helper.NewError("similarity search", err)
	}

	seen := make(map[int64]bool, len(chunks))
	results := make([]*model.RankedChunk, 0, len(chunks))
	for i, chunk := range chunks {
		seen[chunk.ID] = true
		results = append(results, &model.RankedChunk{
			Chunk:           chunk,
			DocumentTitle:   titles[i],
			Score:           chunk.Similarity,
			RetrievalMethod: model.RetrievalMethodVector,
		})
	}

	for _, term := range keywordTerms(queryText) {
		chunks, titles, err := s.chunks.SelectChunksByKeyword(ctx, accountID, term, limit, entityTypes, window)
		if err != nil {
			return nil, helper.NewError("keyword search", err)
		}

		for i, chunk := range chunks {
			if seen[chunk.ID] {
				continue
			}
			seen[chunk.ID] = true

			chunk.Similarity = s.keywordBaseline
			results = append(results, &model.RankedChunk{
				Chunk:           chunk,
				DocumentTitle:   titles[i],
				Score:           s.keywordBaseline,
				RetrievalMethod: model.RetrievalMethodKeyword,
			})
		}
	}

	return results, nil
}

// keywordTerms extracts the longest distinct terms of a query for the
// keyword supplement. Short words are skipped, they match too broadly
// to be useful as substrings.
func keywordTerms(queryText string) []string {
	words := strings.FieldsFunc(strings.ToLower(queryText), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := map[string]bool{}
	var terms []string
	for _, word := range words {
		if len([]rune(word)) < 4 || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}

	// Longest terms first, they are the most selective
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			if len([]rune(terms[j])) > len([]rune(terms[i])) {
				terms[i], terms[j] = terms[j], terms[i]
			}
		}
	}

	if len(terms) > maxKeywordTerms {
		terms = terms[:maxKeywordTerms]
	}
	return terms
}
