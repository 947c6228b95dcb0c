package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/retriever/core/pipeline"
	"github.com/siherrmann/retriever/core/query"
	"github.com/siherrmann/retriever/core/retrieval"
	"github.com/siherrmann/retriever/database"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
	loadSql "github.com/siherrmann/retriever/sql"
)

// chunkInsertBatchSize bounds how many chunks go into one insert
// transaction during ingestion
const chunkInsertBatchSize = 50

// Retriever provides a unified interface to ingestion and retrieval over
// a creator's content corpus
type Retriever struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Chunks    *database.ChunksDBHandler
	Analytics *database.AnalyticsDBHandler
	Pipeline  *pipeline.Pipeline // Optional chunking pipeline
	Engine    *retrieval.Engine  // Query engine, available once a pipeline is set

	chunkConfig model.ChunkConfig
	queryConfig model.QueryConfig
	// Logging
	log *slog.Logger
}

// NewRetriever creates a new Retriever instance with all handlers
// initialized. The retrieval engine is wired when a pipeline is set,
// because hybrid search embeds query text with the pipeline's embedder.
func NewRetriever(config *helper.DatabaseConfiguration, chunkConfig model.ChunkConfig, queryConfig model.QueryConfig, embeddingDim int) (*Retriever, error) {
	if err := chunkConfig.Validate(); err != nil {
		return nil, helper.NewError("validate chunk config", err)
	}
	if err := queryConfig.Validate(); err != nil {
		return nil, helper.NewError("validate query config", err)
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("retriever", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	analytics, err := database.NewAnalyticsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create analytics handler", err)
	}

	return &Retriever{
		DB:          db,
		Documents:   documents,
		Chunks:      chunks,
		Analytics:   analytics,
		chunkConfig: chunkConfig,
		queryConfig: queryConfig,
		log:         logger,
	}, nil
}

// Close closes the database connection
func (r *Retriever) Close() error {
	return r.DB.Close()
}

// SetPipeline sets the chunking pipeline for document processing and
// wires the retrieval engine with the pipeline's embedder
func (r *Retriever) SetPipeline(p *pipeline.Pipeline) error {
	searcher, err := database.NewSearcher(r.Chunks, p.Embedder, r.queryConfig.SimilarityThreshold, r.queryConfig.KeywordBaseline)
	if err != nil {
		return helper.NewError("create searcher", err)
	}

	engine, err := retrieval.NewEngine(query.DefaultClassifier(), searcher, r.Analytics, r.queryConfig, r.log)
	if err != nil {
		return helper.NewError("create retrieval engine", err)
	}

	r.Pipeline = p
	r.Engine = engine
	return nil
}

// UseDefaultPipeline sets up the default token-bounded chunking and
// embedding pipeline. This uses TokenChunker with the configured chunk
// settings and DefaultEmbedder with the all-MiniLM-L6-v2 model
// (384 dimensions).
func (r *Retriever) UseDefaultPipeline() error {
	chunker := pipeline.TokenChunker(r.chunkConfig)

	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	return r.SetPipeline(pipeline.NewPipeline(chunker, embedder))
}

// IngestDocument ingests one piece of source content by:
// 1. Replacing any previous document with the same (account, entity type, source)
// 2. Chunking and embedding the content through the pipeline
// 3. Inserting all chunks in bounded batches
// 4. Recording the chunk count and token total on the document
// The document's Content field is used for processing but not stored in
// the database. Returns the number of chunks inserted.
//
// The replace is not atomic: the previous document is removed before the
// new one is processed, so a chunking or insert failure leaves the source
// absent until the next successful ingestion. Re-running IngestDocument
// for the same source recovers the state.
func (r *Retriever) IngestDocument(doc *model.Document) (int, error) {
	if r.Pipeline == nil {
		return 0, helper.NewError("ingest document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if doc.Content == "" {
		return 0, helper.NewError("ingest document", fmt.Errorf("document content is empty"))
	}
	if doc.SourceID == "" {
		return 0, helper.NewError("ingest document", fmt.Errorf("document source id is empty"))
	}

	// Store content temporarily and clear it before DB insert
	content := doc.Content
	doc.Content = ""

	// Re-ingesting a source replaces it; chunks cascade with the document
	err := r.Documents.DeleteDocumentBySource(doc.AccountID, doc.EntityType, doc.SourceID)
	if err != nil {
		return 0, helper.NewError("replace previous document", err)
	}

	if err := r.Documents.InsertDocument(doc); err != nil {
		return 0, helper.NewError("insert document", err)
	}

	r.log.Info("Inserted document",
		slog.String("document_id", doc.RID.String()),
		slog.String("entity_type", string(doc.EntityType)),
		slog.String("source_id", doc.SourceID),
	)

	// Chunk and embed the content
	chunks, err := r.Pipeline.Process(content)
	if err != nil {
		return 0, helper.NewError("process chunks", err)
	}

	r.log.Info("Processed document into chunks",
		slog.Int("num_chunks", len(chunks)),
		slog.String("document_id", doc.RID.String()),
	)

	totalTokens := 0
	batch := make([]*model.Chunk, 0, chunkInsertBatchSize)
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		totalTokens += chunks[i].TokenCount
		batch = append(batch, &chunks[i])

		if len(batch) == chunkInsertBatchSize {
			if err := r.Chunks.InsertChunks(batch); err != nil {
				return 0, helper.NewError("insert chunk batch", err)
			}
			batch = batch[:0]
		}
	}
	if err := r.Chunks.InsertChunks(batch); err != nil {
		return 0, helper.NewError("insert chunk batch", err)
	}

	doc.ChunkCount = len(chunks)
	doc.TotalTokens = totalTokens
	if err := r.Documents.UpdateDocumentStats(doc); err != nil {
		return 0, helper.NewError("update document stats", err)
	}

	return len(chunks), nil
}

// IngestDocuments ingests documents one after another and stops at the
// first failure, returning how many documents were fully ingested
func (r *Retriever) IngestDocuments(docs []*model.Document) (int, error) {
	for i, doc := range docs {
		if _, err := r.IngestDocument(doc); err != nil {
			return i, helper.NewError(fmt.Sprintf("ingest document %d", i), err)
		}
	}
	return len(docs), nil
}

// Retrieve answers a natural-language query against an account's corpus.
// The query is classified and routed to aggregation, passage search or
// both; see retrieval.Engine for the routing and degradation rules.
func (r *Retriever) Retrieve(ctx context.Context, q model.Query) (*model.RetrievalResult, error) {
	if r.Engine == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("retrieval engine not initialized, use SetPipeline() first"))
	}

	return r.Engine.Retrieve(ctx, q)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (r *Retriever) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return r.Chunks.ChangeIndexType(ctx, indexType, params)
}
