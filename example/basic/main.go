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

const samplePost = `My morning routine is pretty simple.

I wake up at six, drink a big glass of water and make my first coffee of the day.
After that I answer comments for half an hour before I start filming.

On weekends I skip the filming and go for a long walk instead. That is when I get
most of my content ideas, away from the phone and the camera.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	r, err := retriever.NewRetriever(dbConfig, model.DefaultChunkConfig(), model.DefaultQueryConfig(), 384)
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}
	defer r.Close()

	// Set up the default pipeline (token-bounded chunking + embeddings)
	if err := r.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	accountID := uuid.New()

	// Create document with content - the content is chunked and embedded,
	// only the chunks are stored
	doc := &model.Document{
		AccountID:  accountID,
		EntityType: model.EntityTypePost,
		SourceID:   "post_123",
		Title:      "My morning routine",
		Content:    samplePost,
		Metadata: model.Metadata{
			"language": "en",
		},
	}

	// Ingest document in one call
	fmt.Println("Ingesting document...")
	numChunks, err := r.IngestDocument(doc)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Document inserted with ID: %s\n", doc.RID)
	fmt.Printf("Inserted %d chunks (%d tokens)\n", numChunks, doc.TotalTokens)

	// Ask a question against the account's corpus
	queryText := "what does her morning look like?"

	fmt.Printf("\nQuerying: %s\n", queryText)

	result, err := r.Retrieve(context.Background(), model.Query{
		AccountID: accountID,
		Text:      queryText,
	})
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	// Display results
	fmt.Printf("\nQuery type: %s\n", result.QueryType)
	fmt.Printf("Found %d passages:\n", len(result.RankedChunks))
	for i, chunk := range result.RankedChunks {
		fmt.Printf("\n--- Passage %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", chunk.Score)
		fmt.Printf("Document: %s\n", chunk.DocumentTitle)
		fmt.Printf("Text: %s\n", chunk.Chunk.Text)
		fmt.Printf("Method: %s\n", chunk.RetrievalMethod)
	}

	fmt.Println("\nBasic example completed successfully!")
}
