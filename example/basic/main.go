package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	kgraph "github.com/kohr2/dashboard-killer-graph-sub002"
	"github.com/kohr2/dashboard-killer-graph-sub002/core/extraction"
	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
)

const financialOntology = `
name: financial
default: true
entities:
  Organization:
    description: A company or institution
  MonetaryAmount:
    description: An amount of money
relationships:
  RELATED_TO:
    domain: Organization
    range: MonetaryAmount
    description: Co-occurrence in the same report
advancedRelationships:
  similarity:
    - entityType: Organization
      threshold: 0.8
      factors:
        - property: sector
          weight: 1.0
`

const sampleReport = `Acme Corp reported $2.5M revenue for the quarter.
Globex Corporation posted $1.1M in the same period.`

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
		User:     "kgraph",
		Password: "kgraph",
		Name:     "kgraph_test",
		SSLMode:  "disable",
	}

	// Write the ontology declaration where the engine can load it
	declarationsDir, err := os.MkdirTemp("", "declarations")
	if err != nil {
		log.Fatalf("Failed to create declarations directory: %v", err)
	}
	defer os.RemoveAll(declarationsDir)
	if err := os.WriteFile(filepath.Join(declarationsDir, "financial.yaml"), []byte(financialOntology), 0o644); err != nil {
		log.Fatalf("Failed to write ontology declaration: %v", err)
	}

	kg, err := kgraph.NewKGraph(dbConfig, 384, declarationsDir)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer kg.Close()

	fmt.Println(kg.RenderSchema())

	// Register a pattern detector and the extraction rule for financial reports
	kg.Aggregator.RegisterDetector(extraction.NewPatternDetector("regex", []extraction.Pattern{
		{EntityType: "MonetaryAmount", Regexp: regexp.MustCompile(`\$[\d.]+M?`), Confidence: 0.9},
		{EntityType: "Organization", Regexp: regexp.MustCompile(`[A-Z][a-z]+ Corp(oration)?`), Confidence: 0.8},
	}))
	kg.Aggregator.RegisterContext("financial-report", extraction.ContextRule{
		Detectors:  []string{"regex"},
		Threshold:  0.7,
		Priorities: []string{"Organization", "MonetaryAmount"},
	})

	// Ingest the report
	fmt.Println("Ingesting report...")
	result, err := kg.ProcessText(context.Background(), "q3-report", sampleReport, "financial-report")
	if err != nil {
		log.Fatalf("Failed to process report: %v", err)
	}
	fmt.Printf("Items processed: %d, entities created: %d, relationships created: %d\n",
		result.ItemsProcessed, result.EntitiesCreated, result.RelationshipsCreated)

	// Inspect the persisted organizations
	organizations, err := kg.Nodes.SelectNodesByLabel("Organization", 0)
	if err != nil {
		log.Fatalf("Failed to select organizations: %v", err)
	}
	for _, node := range organizations {
		fmt.Printf("Node %s labels=%v\n", node.Identity, node.Labels)
	}

	// Re-run the financial domain's inference rules on demand
	report, err := kg.Infer(context.Background(), "financial")
	if err != nil {
		log.Fatalf("Failed to run inference: %v", err)
	}
	fmt.Printf("Inference: %d rules run, %d edges created\n", report.RulesRun, report.EdgesCreated)

	fmt.Println("Basic example completed successfully!")
}
