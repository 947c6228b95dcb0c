package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 384

// testEmbedding returns a unit vector pointing along the given axis, so
// identical axes have cosine similarity 1 and distinct axes 0
func testEmbedding(axis int) []float32 {
	embedding := make([]float32, testEmbeddingDim)
	embedding[axis%testEmbeddingDim] = 1
	return embedding
}

func insertTestDocument(t *testing.T, documents *DocumentsDBHandler, accountID uuid.UUID, entityType model.EntityType, sourceID string, title string) *model.Document {
	t.Helper()

	doc := &model.Document{
		AccountID:  accountID,
		EntityType: entityType,
		SourceID:   sourceID,
		Title:      title,
	}
	require.NoError(t, documents.InsertDocument(doc))
	return doc
}

func TestChunksDBHandler(t *testing.T) {
	database := initDB(t)

	// Needed because a chunk has a reference to a document
	documents, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")

	handler, err := NewChunksDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err, "Expected NewChunksDBHandler to not return an error")

	ctx := context.Background()
	accountID := uuid.New()
	doc := insertTestDocument(t, documents, accountID, model.EntityTypePost, "post-1", "Coffee rituals")

	t.Run("Insert chunk", func(t *testing.T) {
		chunk := &model.Chunk{
			DocumentID: doc.ID,
			Index:      0,
			Text:       "I start every morning with a cup of coffee on the balcony.",
			Embedding:  testEmbedding(0),
			StartChar:  0,
			EndChar:    59,
			TokenCount: 17,
			Metadata:   model.Metadata{"language": "en"},
		}

		err := handler.InsertChunk(chunk)
		assert.NoError(t, err)
		assert.NotZero(t, chunk.ID)
		assert.Equal(t, doc.RID, chunk.DocumentRID)
		assert.Equal(t, accountID, chunk.AccountID)
		assert.Equal(t, model.EntityTypePost, chunk.EntityType)
		assert.Len(t, chunk.Embedding, testEmbeddingDim)
	})

	t.Run("Insert chunk for missing document fails", func(t *testing.T) {
		chunk := &model.Chunk{
			DocumentID: 999999,
			Index:      0,
			Text:       "orphan",
			Embedding:  testEmbedding(0),
		}

		err := handler.InsertChunk(chunk)
		assert.Error(t, err)
	})

	t.Run("Insert chunks in one transaction", func(t *testing.T) {
		batchDoc := insertTestDocument(t, documents, accountID, model.EntityTypeTranscription, "video-1", "Skincare video")

		chunks := []*model.Chunk{
			{DocumentID: batchDoc.ID, Index: 0, Text: "First part of the transcription.", Embedding: testEmbedding(1), TokenCount: 10},
			{DocumentID: batchDoc.ID, Index: 1, Text: "Second part of the transcription.", Embedding: testEmbedding(2), TokenCount: 10},
			{DocumentID: batchDoc.ID, Index: 2, Text: "Third part of the transcription.", Embedding: testEmbedding(3), TokenCount: 10},
		}

		err := handler.InsertChunks(chunks)
		assert.NoError(t, err)
		for _, chunk := range chunks {
			assert.NotZero(t, chunk.ID)
			assert.Equal(t, batchDoc.RID, chunk.DocumentRID)
		}

		selected, err := handler.SelectChunksByDocument(batchDoc.RID)
		assert.NoError(t, err)
		require.Len(t, selected, 3)
		assert.Equal(t, 0, selected[0].Index)
		assert.Equal(t, 2, selected[2].Index)
	})

	t.Run("Insert chunks rolls back on duplicate index", func(t *testing.T) {
		rollbackDoc := insertTestDocument(t, documents, accountID, model.EntityTypeTranscription, "video-2", "Failing video")

		chunks := []*model.Chunk{
			{DocumentID: rollbackDoc.ID, Index: 0, Text: "ok", Embedding: testEmbedding(1)},
			{DocumentID: rollbackDoc.ID, Index: 0, Text: "duplicate index", Embedding: testEmbedding(2)},
		}

		err := handler.InsertChunks(chunks)
		assert.Error(t, err)

		selected, err := handler.SelectChunksByDocument(rollbackDoc.RID)
		assert.NoError(t, err)
		assert.Empty(t, selected, "Expected no chunks after rollback")
	})

	t.Run("Select chunk by ID", func(t *testing.T) {
		chunk := &model.Chunk{
			DocumentID: doc.ID,
			Index:      1,
			Text:       "Sometimes I switch to green tea in the afternoon.",
			Embedding:  testEmbedding(4),
			TokenCount: 14,
		}
		require.NoError(t, handler.InsertChunk(chunk))

		selected, err := handler.SelectChunk(chunk.ID)
		assert.NoError(t, err)
		assert.Equal(t, chunk.Text, selected.Text)
		assert.Equal(t, chunk.Index, selected.Index)
	})

	t.Run("Select chunks by similarity", func(t *testing.T) {
		chunks, titles, err := handler.SelectChunksBySimilarity(ctx, accountID, testEmbedding(0), 10, 0.25, nil, model.TimeWindow{})
		assert.NoError(t, err)
		require.NotEmpty(t, chunks)
		assert.Equal(t, "I start every morning with a cup of coffee on the balcony.", chunks[0].Text)
		assert.InDelta(t, 1.0, chunks[0].Similarity, 0.001)
		assert.Equal(t, "Coffee rituals", titles[0])
	})

	t.Run("Similarity search respects threshold", func(t *testing.T) {
		// Orthogonal query embedding, nothing should clear 0.9
		chunks, _, err := handler.SelectChunksBySimilarity(ctx, accountID, testEmbedding(100), 10, 0.9, nil, model.TimeWindow{})
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Similarity search is account scoped", func(t *testing.T) {
		chunks, _, err := handler.SelectChunksBySimilarity(ctx, uuid.New(), testEmbedding(0), 10, 0.25, nil, model.TimeWindow{})
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Similarity search filters entity types", func(t *testing.T) {
		chunks, _, err := handler.SelectChunksBySimilarity(ctx, accountID, testEmbedding(0), 10, 0.25, []model.EntityType{model.EntityTypeCoupon}, model.TimeWindow{})
		assert.NoError(t, err)
		assert.Empty(t, chunks)

		chunks, _, err = handler.SelectChunksBySimilarity(ctx, accountID, testEmbedding(0), 10, 0.25, []model.EntityType{model.EntityTypePost}, model.TimeWindow{})
		assert.NoError(t, err)
		assert.NotEmpty(t, chunks)
	})

	t.Run("Select chunks by keyword", func(t *testing.T) {
		chunks, titles, err := handler.SelectChunksByKeyword(ctx, accountID, "coffee", 10, nil, model.TimeWindow{})
		assert.NoError(t, err)
		require.NotEmpty(t, chunks)
		assert.Contains(t, chunks[0].Text, "coffee")
		assert.Equal(t, "Coffee rituals", titles[0])
	})

	t.Run("Keyword search matches case insensitively", func(t *testing.T) {
		chunks, _, err := handler.SelectChunksByKeyword(ctx, accountID, "COFFEE", 10, nil, model.TimeWindow{})
		assert.NoError(t, err)
		assert.NotEmpty(t, chunks)
	})

	t.Run("Keyword search is account scoped", func(t *testing.T) {
		chunks, _, err := handler.SelectChunksByKeyword(ctx, uuid.New(), "coffee", 10, nil, model.TimeWindow{})
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Delete chunks by document", func(t *testing.T) {
		deleteDoc := insertTestDocument(t, documents, accountID, model.EntityTypeWebsite, "site-1", "About page")
		require.NoError(t, handler.InsertChunk(&model.Chunk{
			DocumentID: deleteDoc.ID,
			Index:      0,
			Text:       "About the creator.",
			Embedding:  testEmbedding(5),
		}))

		err := handler.DeleteChunksByDocument(deleteDoc.RID)
		assert.NoError(t, err)

		selected, err := handler.SelectChunksByDocument(deleteDoc.RID)
		assert.NoError(t, err)
		assert.Empty(t, selected)
	})

	t.Run("Chunks cascade with document delete", func(t *testing.T) {
		cascadeDoc := insertTestDocument(t, documents, accountID, model.EntityTypeWebsite, "site-2", "Contact page")
		require.NoError(t, handler.InsertChunk(&model.Chunk{
			DocumentID: cascadeDoc.ID,
			Index:      0,
			Text:       "Contact details.",
			Embedding:  testEmbedding(6),
		}))

		require.NoError(t, documents.DeleteDocument(cascadeDoc.RID))

		selected, err := handler.SelectChunksByDocument(cascadeDoc.RID)
		assert.NoError(t, err)
		assert.Empty(t, selected)
	})
}
