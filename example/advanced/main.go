package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/siherrmann/dealgraph"
	"github.com/siherrmann/dealgraph/core/cache"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/core/retrieval"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

const sampleContent1 = `Northwind Analytics agreed to acquire Fabrikam Robotics for $2.4 billion in
cash, the companies announced on Monday.

Fabrikam, based in Munich, builds warehouse automation systems for logistics
operators across Europe. The acquisition gives Northwind a foothold in industrial
robotics and doubles its European headcount.

Northwind CEO Elena Vasquez said the combined company would target the fast growing
market for automated fulfilment. The transaction is expected to close in the first
quarter after regulatory approval.`

const sampleContent2 = `Contoso Health completed its merger with Litware Diagnostics, creating one of
the largest independent laboratory networks in North America.

The all-stock deal valued Litware at $890 million. Litware shareholders will own
roughly 35 percent of the combined company.

Contoso CEO Marcus Lee will lead the merged group. Analysts expect further
consolidation in the diagnostics industry as smaller laboratories struggle with
rising costs.`

func main() {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY must be set to run the advanced example")
	}

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

	if err := g.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	provider, err := llm.NewProvider(llm.Config{
		Provider: "openai",
		Model:    "gpt-4o",
		APIKey:   apiKey,
		Timeout:  60,
	})
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}
	g.SetProvider(provider, cache.NewMemoryCache(time.Hour), model.DefaultQueryConfig())

	ctx := context.Background()

	articles := []*model.Article{
		{URL: "https://example.com/publications/northwind-fabrikam", Title: "Northwind to Acquire Fabrikam", Content: sampleContent1},
		{URL: "https://example.com/publications/contoso-litware", Title: "Contoso and Litware Complete Merger", Content: sampleContent2},
	}

	// 1. Index and extract the knowledge graph
	fmt.Println("=== 1. Indexing Articles ===")
	for _, a := range articles {
		n, err := g.IndexArticle(a)
		if err != nil {
			log.Fatalf("Failed to index %s: %v", a.URL, err)
		}

		graph, err := g.BuildGraph(ctx, a)
		if err != nil {
			log.Fatalf("Failed to build graph for %s: %v", a.URL, err)
		}
		fmt.Printf("%s: %d passages, %d entities, %d relationships\n",
			a.Title, n, graph.Entities, graph.Relationships)
	}

	// 2. Explore the graph
	fmt.Println("\n=== 2. Exploring the Graph ===")
	companies, err := g.SearchEntities(ctx, "northwind", model.EntityCompany, 5)
	if err != nil {
		log.Fatalf("Entity search failed: %v", err)
	}
	for _, c := range companies {
		fmt.Printf("%s (%s)\n", c.Name, c.Type)

		nodes, err := g.Neighbors(ctx, c.ID, 2)
		if err != nil {
			log.Fatalf("Traversal failed: %v", err)
		}
		fmt.Print(retrieval.FormatTraversal(nodes))
	}

	// 3. Ask questions, the router picks the path
	fmt.Println("\n=== 3. Questions ===")
	questions := []string{
		"Which company did Northwind Analytics acquire?",
		"What trends are driving consolidation in diagnostics?",
	}
	for _, q := range questions {
		answer, err := g.Ask(ctx, q)
		if err != nil {
			log.Fatalf("Question failed: %v", err)
		}
		fmt.Printf("\nQ: %s\nRoute: %s\nA: %s\n", q, answer.Route, answer.Text)
		for _, s := range answer.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}

	// 4. Report on one article
	fmt.Println("\n=== 4. Report ===")
	report, err := g.Report(ctx, articles[1].URL, "deal structure")
	if err != nil {
		log.Fatalf("Report failed: %v", err)
	}
	fmt.Println(report.Text)

	fmt.Println("\nAdvanced example completed successfully!")
}
