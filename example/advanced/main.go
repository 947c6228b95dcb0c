package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/siherrmann/retriever"
	"github.com/siherrmann/retriever/helper"
	"github.com/siherrmann/retriever/model"
)

// A small bilingual corpus for one creator account: posts, a video
// transcription and a coupon.
var documents = []*model.Document{
	{
		EntityType: model.EntityTypePost,
		SourceID:   "post_1",
		Title:      "Skincare favorites",
		Content: `My three skincare favorites this month: a gentle cleanser, a vitamin C serum
and a heavy night cream. I use the serum every morning after washing my face.`,
		Metadata: model.Metadata{"language": "en"},
	},
	{
		EntityType: model.EntityTypePost,
		SourceID:   "post_2",
		Title:      "פוסט על שגרת בוקר",
		Content: `שגרת הבוקר שלי מתחילה בכוס מים גדולה ואימון קצר.
אחרי האימון אני מכינה קפה ועונה להודעות לפני שאני מתחילה לצלם.`,
		Metadata: model.Metadata{"language": "he"},
	},
	{
		EntityType: model.EntityTypeTranscription,
		SourceID:   "video_1",
		Title:      "Q&A video",
		Content: `In this video I answered your questions about how I plan content.
I talked about batching filming days and why I stopped posting daily.`,
		Metadata: model.Metadata{"language": "en"},
	},
	{
		EntityType: model.EntityTypeCoupon,
		SourceID:   "coupon_1",
		Title:      "Glow serum discount",
		Content:    `Use code GLOW20 for twenty percent off the vitamin C serum until the end of the month.`,
		Metadata:   model.Metadata{"language": "en"},
	},
}

func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Tighter retrieval settings than the defaults
	queryConfig := model.DefaultQueryConfig()
	queryConfig.TopK = 3
	queryConfig.MaxChunksPerDocument = 1

	r, err := retriever.NewRetriever(dbConfig, model.DefaultChunkConfig(), queryConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}
	defer r.Close()

	if err := r.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	accountID := uuid.New()
	for _, doc := range documents {
		doc.AccountID = accountID
	}

	fmt.Println("Ingesting corpus...")
	ingested, err := r.IngestDocuments(documents)
	if err != nil {
		log.Fatalf("Failed to ingest documents: %v", err)
	}
	fmt.Printf("Ingested %d documents\n", ingested)

	// HNSW works better than the default index for read-heavy workloads
	if err := r.ChangeIndexType(context.Background(), "hnsw", map[string]interface{}{"m": 16, "ef_construction": 64}); err != nil {
		log.Fatalf("Failed to change index type: %v", err)
	}

	queries := []string{
		"what skincare products does she recommend?", // unstructured, scoped by phrasing
		"how many posts does she have?",              // mixed: count plus passage evidence
		"what discount codes are active?",            // unstructured, coupon scoped
		"כמה סרטונים יש לה?",                         // mixed, Hebrew phrasing
	}

	for _, queryText := range queries {
		fmt.Printf("\n=== Query: %s ===\n", queryText)

		result, err := r.Retrieve(context.Background(), model.Query{
			AccountID: accountID,
			Text:      queryText,
		})
		if err != nil {
			log.Fatalf("Failed to retrieve: %v", err)
		}

		fmt.Printf("Query type: %s\n", result.QueryType)
		if result.Degraded {
			fmt.Println("(degraded result, one branch was unavailable)")
		}

		if result.Aggregate != nil {
			fmt.Printf("Aggregate (%s): %d total\n", result.Aggregate.Metric, result.Aggregate.Count)
			for entityType, count := range result.Aggregate.ByType {
				fmt.Printf("  %s: %d\n", entityType, count)
			}
		}

		for i, chunk := range result.RankedChunks {
			fmt.Printf("Passage %d [%.3f, %s] %s: %.60s...\n",
				i+1, chunk.Score, chunk.RetrievalMethod, chunk.DocumentTitle, chunk.Chunk.Text)
		}
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
