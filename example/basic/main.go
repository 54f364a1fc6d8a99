package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/dealgraph"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

const sampleContent = `Cross-border deal activity in the semiconductor sector rebounded in the
second half of the year as buyers returned to strategic acquisitions.

Acquirers focused on specialty chip designers with strong intellectual property
portfolios. Valuations remained elevated, with several transactions priced above
ten times forward revenue.

Regulatory review lengthened closing timelines. Deals involving Chinese buyers
faced particular scrutiny, and at least two announced transactions were abandoned
after failing to receive approval.

Advisors expect private equity to play a larger role next year as financing
conditions ease and carve-outs from diversified conglomerates come to market.`

func main() {
	// Start a test PostgreSQL container
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

	g, err := dealgraph.NewDealGraph(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create dealgraph: %v", err)
	}
	defer g.Close()

	// Recursive splitting plus all-MiniLM-L6-v2 embeddings
	if err := g.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	article := &model.Article{
		URL:     "https://example.com/publications/semiconductor-deals",
		Title:   "Semiconductor M&A Review",
		Content: sampleContent,
	}

	fmt.Println("Indexing article...")
	n, err := g.IndexArticle(article)
	if err != nil {
		log.Fatalf("Failed to index article: %v", err)
	}
	fmt.Printf("Article indexed with ID: %s\n", article.RID)
	fmt.Printf("Inserted %d passages\n", n)

	// Semantic search works without an LLM provider
	question := "Why did regulators slow down chip acquisitions?"
	fmt.Printf("\nSearching: %s\n", question)

	embedding, err := g.Pipeline.Embedder(question)
	if err != nil {
		log.Fatalf("Failed to embed question: %v", err)
	}

	config := model.DefaultQueryConfig()
	config.TopK = 3

	result, err := g.Engine.SemanticSearch(context.Background(), embedding, config)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nFound %d passages (confident: %t):\n", len(result.Hits), result.Confident)
	for i, hit := range result.Hits {
		fmt.Printf("\n--- Passage %d ---\n", i+1)
		fmt.Printf("Similarity: %.4f\n", hit.Similarity)
		fmt.Printf("Article: %s\n", hit.ArticleURL)
		fmt.Printf("Content: %s\n", hit.Content)
	}

	fmt.Println("\nBasic example completed successfully!")
}
