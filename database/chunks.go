package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	loadSql "github.com/siherrmann/retriever/sql"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	InsertChunks(chunks []*model.Chunk) error
	SelectChunk(id int64) (*model.Chunk, error)
	SelectChunksByDocument(documentRID uuid.UUID) ([]*model.Chunk, error)
	SelectChunksBySimilarity(ctx context.Context, accountID uuid.UUID, embedding []float32, limit int, threshold float64, entityTypes []model.EntityType, window model.TimeWindow) ([]*model.Chunk, []string, error)
	SelectChunksByKeyword(ctx context.Context, accountID uuid.UUID, term string, limit int, entityTypes []model.EntityType, window model.TimeWindow) ([]*model.Chunk, []string, error)
	DeleteChunksByDocument(documentRID uuid.UUID) error
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes. The documents table must exist
// first because chunks reference it.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("init chunks table", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk under its document. Account and entity
// type are taken from the parent document.
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8)`,
		chunk.DocumentID,
		chunk.Index,
		chunk.Text,
		pgvector.NewVector(chunk.Embedding),
		chunk.StartChar,
		chunk.EndChar,
		chunk.TokenCount,
		chunk.Metadata,
	)

	err := scanChunk(row, chunk)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// InsertChunks inserts all given chunks in a single transaction, so a
// document is never left with a partial chunk set
func (h *ChunksDBHandler) InsertChunks(chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := h.db.Instance.Begin()
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		row := tx.QueryRow(
			`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6, $7, $8)`,
			chunk.DocumentID,
			chunk.Index,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
			chunk.StartChar,
			chunk.EndChar,
			chunk.TokenCount,
			chunk.Metadata,
		)

		err := scanChunk(row, chunk)
		if err != nil {
			return helper.NewError("scan", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit transaction", err)
	}

	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id int64) (*model.Chunk, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	chunk := &model.Chunk{}
	err := scanChunk(row, chunk)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByDocument retrieves all chunks for a document in chunk order
func (h *ChunksDBHandler) SelectChunksByDocument(documentRID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}

		err := scanChunk(rows, chunk)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity performs account-scoped vector similarity
// search. It returns matched chunks with their similarity set, plus the
// parallel document titles. Empty entityTypes and a zero window mean no
// filter.
func (h *ChunksDBHandler) SelectChunksBySimilarity(ctx context.Context, accountID uuid.UUID, embedding []float32, limit int, threshold float64, entityTypes []model.EntityType, window model.TimeWindow) ([]*model.Chunk, []string, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4, $5, $6, $7)`,
		accountID,
		pgvector.NewVector(embedding),
		limit,
		threshold,
		entityTypesParam(entityTypes),
		window.After,
		window.Before,
	)
	if err != nil {
		return nil, nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	var titles []string
	for rows.Next() {
		chunk := &model.Chunk{}
		var entityType string
		var title string

		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.DocumentRID,
			&chunk.AccountID,
			&entityType,
			&chunk.Index,
			&chunk.Text,
			&chunk.StartChar,
			&chunk.EndChar,
			&chunk.TokenCount,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&title,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, nil, helper.NewError("scan", err)
		}

		chunk.EntityType = model.EntityType(entityType)
		chunks = append(chunks, chunk)
		titles = append(titles, title)
	}

	err = rows.Err()
	if err != nil {
		return nil, nil, helper.NewError("rows error", err)
	}

	return chunks, titles, nil
}

// SelectChunksByKeyword performs account-scoped substring search over
// chunk text, newest documents first. Chunks found this way carry no
// similarity of their own.
func (h *ChunksDBHandler) SelectChunksByKeyword(ctx context.Context, accountID uuid.UUID, term string, limit int, entityTypes []model.EntityType, window model.TimeWindow) ([]*model.Chunk, []string, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_chunks_by_keyword($1, $2, $3, $4, $5, $6)`,
		accountID,
		term,
		limit,
		entityTypesParam(entityTypes),
		window.After,
		window.Before,
	)
	if err != nil {
		return nil, nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	var titles []string
	for rows.Next() {
		chunk := &model.Chunk{}
		var entityType string
		var title string

		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.DocumentRID,
			&chunk.AccountID,
			&entityType,
			&chunk.Index,
			&chunk.Text,
			&chunk.StartChar,
			&chunk.EndChar,
			&chunk.TokenCount,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&title,
		)
		if err != nil {
			return nil, nil, helper.NewError("scan", err)
		}

		chunk.EntityType = model.EntityType(entityType)
		chunks = append(chunks, chunk)
		titles = append(titles, title)
	}

	err = rows.Err()
	if err != nil {
		return nil, nil, helper.NewError("rows error", err)
	}

	return chunks, titles, nil
}

// DeleteChunksByDocument deletes all chunks of a document
func (h *ChunksDBHandler) DeleteChunksByDocument(documentRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunks_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanChunk(row scanner, chunk *model.Chunk) error {
	var entityType string
	var embedding pgvector.Vector

	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.DocumentRID,
		&chunk.AccountID,
		&entityType,
		&chunk.Index,
		&chunk.Text,
		&embedding,
		&chunk.StartChar,
		&chunk.EndChar,
		&chunk.TokenCount,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return err
	}

	chunk.EntityType = model.EntityType(entityType)
	chunk.Embedding = embedding.Slice()
	return nil
}
