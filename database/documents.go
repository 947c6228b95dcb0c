package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	loadSql "github.com/siherrmann/retriever/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(doc *model.Document) error
	SelectDocument(rid uuid.UUID) (*model.Document, error)
	SelectDocumentBySource(accountID uuid.UUID, entityType model.EntityType, sourceID string) (*model.Document, error)
	SelectDocumentsByAccount(accountID uuid.UUID, entityTypes []model.EntityType, lastCreatedAt *time.Time, limit int) ([]*model.Document, error)
	UpdateDocumentStats(doc *model.Document) error
	DeleteDocument(rid uuid.UUID) error
	DeleteDocumentBySource(accountID uuid.UUID, entityType model.EntityType, sourceID string) error
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := loadSql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		return helper.NewError("init documents table", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts a new document scoped to an account
func (h *DocumentsDBHandler) InsertDocument(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_document($1, $2, $3, $4, $5)`,
		doc.AccountID,
		string(doc.EntityType),
		doc.SourceID,
		doc.Title,
		doc.Metadata,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by RID
func (h *DocumentsDBHandler) SelectDocument(rid uuid.UUID) (*model.Document, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1)`,
		rid,
	)

	doc := &model.Document{}
	err := scanDocument(row, doc)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectDocumentBySource retrieves a document by its source identity
// within an account
func (h *DocumentsDBHandler) SelectDocumentBySource(accountID uuid.UUID, entityType model.EntityType, sourceID string) (*model.Document, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document_by_source($1, $2, $3)`,
		accountID,
		string(entityType),
		sourceID,
	)

	doc := &model.Document{}
	err := scanDocument(row, doc)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectDocumentsByAccount retrieves an account's documents with keyset
// pagination, newest first. Passing no entity types selects all types.
func (h *DocumentsDBHandler) SelectDocumentsByAccount(accountID uuid.UUID, entityTypes []model.EntityType, lastCreatedAt *time.Time, limit int) ([]*model.Document, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_documents_by_account($1, $2, $3, $4)`,
		accountID,
		entityTypesParam(entityTypes),
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		err := scanDocument(rows, doc)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		documents = append(documents, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

// UpdateDocumentStats updates the chunk count and token total of a document
func (h *DocumentsDBHandler) UpdateDocumentStats(doc *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_document_stats($1, $2, $3)`,
		doc.RID,
		doc.ChunkCount,
		doc.TotalTokens,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteDocument deletes a document by RID
func (h *DocumentsDBHandler) DeleteDocument(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_document($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteDocumentBySource deletes a document by its source identity
// within an account. Chunks cascade with the document.
func (h *DocumentsDBHandler) DeleteDocumentBySource(accountID uuid.UUID, entityType model.EntityType, sourceID string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_document_by_source($1, $2, $3)`,
		accountID,
		string(entityType),
		sourceID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner, doc *model.Document) error {
	var entityType string
	err := row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.AccountID,
		&entityType,
		&doc.SourceID,
		&doc.Title,
		&doc.ChunkCount,
		&doc.TotalTokens,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return err
	}

	doc.EntityType = model.EntityType(entityType)
	return nil
}

// entityTypesParam converts entity types to a text array parameter,
// mapping an empty slice to NULL (no filter)
func entityTypesParam(entityTypes []model.EntityType) any {
	if len(entityTypes) == 0 {
		return nil
	}

	types := make([]string, 0, len(entityTypes))
	for _, entityType := range entityTypes {
		types = append(types, string(entityType))
	}
	return pq.Array(types)
}
