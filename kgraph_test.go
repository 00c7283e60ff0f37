package kgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/kohr2/dashboard-killer-graph-sub002/core/extraction"
	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	"github.com/kohr2/dashboard-killer-graph-sub002/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const financialDeclaration = `
name: financial
default: true
entities:
  Organization:
    description: A company or institution
  MonetaryAmount:
    description: An amount of money
  Person: {}
relationships:
  RELATED_TO:
    domain: Organization
    range: MonetaryAmount
advancedRelationships:
  similarity:
    - entityType: Organization
      threshold: 0.9
      factors:
        - property: sector
          weight: 1.0
`

func testLoggerDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSchema(t *testing.T) *model.OntologySchema {
	t.Helper()
	decl, err := ontology.ParseDeclaration([]byte(financialDeclaration))
	require.NoError(t, err)

	registry := ontology.NewRegistry(testLoggerDiscard())
	schema, validationErrs := registry.LoadDeclarations([]ontology.Declaration{*decl})
	require.Empty(t, validationErrs)
	return schema
}

func initKGraph(t *testing.T) *KGraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	kg, err := NewKGraphWithSchema(dbConfig, 384, testSchema(t))
	require.NoError(t, err, "failed to create engine")
	require.NotNil(t, kg)

	require.NoError(t, kg.ClearGraph())

	t.Cleanup(func() {
		kg.Close()
	})

	return kg
}

// orgDetector is a stand-in for a model-backed detector
type orgDetector struct{}

func (d *orgDetector) Source() string { return "ner" }

func (d *orgDetector) Detect(_ context.Context, text string, _ float64) ([]extraction.Finding, error) {
	var findings []extraction.Finding
	for _, loc := range regexp.MustCompile(`Acme Corp`).FindAllStringIndex(text, -1) {
		findings = append(findings, extraction.Finding{
			Text:       text[loc[0]:loc[1]],
			Type:       "Organization",
			Confidence: 0.85,
			Start:      loc[0],
			End:        loc[1],
		})
	}
	return findings, nil
}

func registerFinancialContext(kg *KGraph) {
	kg.Aggregator.RegisterDetector(&orgDetector{})
	kg.Aggregator.RegisterDetector(extraction.NewPatternDetector("regex", []extraction.Pattern{
		{EntityType: "MonetaryAmount", Regexp: regexp.MustCompile(`\$[\d.]+M?`), Confidence: 0.9},
	}))
	kg.Aggregator.RegisterContext("financial-report", extraction.ContextRule{
		Detectors:  []string{"ner", "regex"},
		Threshold:  0.7,
		Priorities: []string{"Organization", "MonetaryAmount"},
	})
}

func TestNewKGraphWithSchema(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewKGraphWithSchema", func(t *testing.T) {
		kg, err := NewKGraphWithSchema(dbConfig, 384, testSchema(t))
		require.NoError(t, err, "Expected NewKGraphWithSchema to not return an error")
		require.NotNil(t, kg, "Expected NewKGraphWithSchema to return a non-nil instance")
		assert.NotNil(t, kg.DB, "Expected engine to have a database instance")
		assert.NotNil(t, kg.Nodes, "Expected engine to have a nodes handler")
		assert.NotNil(t, kg.Edges, "Expected engine to have an edges handler")
		assert.NotNil(t, kg.Runs, "Expected engine to have a runs handler")
		assert.NotNil(t, kg.Upsert, "Expected engine to have an upsert handler")
		assert.NotNil(t, kg.Aggregator, "Expected engine to have an aggregator")
		assert.NotNil(t, kg.Inference, "Expected engine to have an inference engine")
		assert.NotNil(t, kg.Orchestrator, "Expected engine to have an orchestrator")

		err = kg.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Engine with nil database handles Close gracefully", func(t *testing.T) {
		kg := &KGraph{}
		assert.NoError(t, kg.Close())
	})
}

func TestExtractFinancialReport(t *testing.T) {
	kg := initKGraph(t)
	registerFinancialContext(kg)

	entities := kg.Aggregator.Extract(context.Background(), "Acme Corp reported $2.5M revenue.", "financial-report")
	require.Len(t, entities, 2)

	assert.Equal(t, "Organization", entities[0].Type, "Expected priority order")
	assert.Equal(t, "Acme Corp", entities[0].Name)
	assert.Equal(t, 0.85, entities[0].Confidence)
	assert.Equal(t, "MonetaryAmount", entities[1].Type)
	assert.Equal(t, "$2.5M", entities[1].Name)
	assert.Equal(t, 0.9, entities[1].Confidence)
}

func TestProcessText(t *testing.T) {
	kg := initKGraph(t)
	registerFinancialContext(kg)

	result, err := kg.ProcessText(context.Background(), "q3-report", "Acme Corp reported $2.5M revenue.", "financial-report")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.ItemsSucceeded)
	assert.Equal(t, 2, result.EntitiesCreated)
	assert.Equal(t, 1, result.RelationshipsCreated, "Expected one co-occurrence relationship")

	t.Run("Nodes carry their type label and the umbrella label", func(t *testing.T) {
		organizations, err := kg.Nodes.SelectNodesByLabel("Organization", 0)
		require.NoError(t, err)
		require.Len(t, organizations, 1)
		assert.Contains(t, organizations[0].Labels, "Organization")
		assert.Contains(t, organizations[0].Labels, model.LabelThing)
	})

	t.Run("Reprocessing the same text creates nothing new", func(t *testing.T) {
		again, err := kg.ProcessText(context.Background(), "q3-report", "Acme Corp reported $2.5M revenue.", "financial-report")
		require.NoError(t, err)
		assert.True(t, again.Success)
		assert.Equal(t, 0, again.EntitiesCreated, "Expected existing nodes to be updated, not recreated")
		assert.Equal(t, 0, again.RelationshipsCreated)

		organizations, err := kg.Nodes.SelectNodesByLabel("Organization", 0)
		require.NoError(t, err)
		assert.Len(t, organizations, 1)
	})

	t.Run("The run report is recorded", func(t *testing.T) {
		runs, err := kg.Runs.SelectRecentRuns(nil, 0)
		require.NoError(t, err)
		require.NotEmpty(t, runs)
		assert.Equal(t, "text/q3-report", runs[0].SourceID)
	})
}

func TestInfer(t *testing.T) {
	kg := initKGraph(t)
	registerFinancialContext(kg)

	t.Run("Unknown domain is an error", func(t *testing.T) {
		_, err := kg.Infer(context.Background(), "shipping")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shipping")
	})

	t.Run("Similarity rules link persisted organizations", func(t *testing.T) {
		props := model.NewProperties()
		props.Set("sector", model.String("tech"))
		for _, name := range []string{"Acme Corp", "Globex"} {
			entity := model.ExtractedEntity{Type: "Organization", Name: name, Confidence: 0.9, Properties: props.Clone()}
			_, err := kg.Upsert.Upsert(context.Background(), []model.ExtractedEntity{entity}, nil)
			require.NoError(t, err)
		}

		report, err := kg.Infer(context.Background(), "financial")
		require.NoError(t, err)
		assert.Equal(t, 1, report.RulesRun)
		assert.Equal(t, 0, report.RulesFailed)
		assert.Equal(t, 1, report.EdgesCreated)

		exists, err := kg.Edges.EdgeExists(
			model.EntityIdentity("Organization", "Acme Corp"),
			"SIMILAR_TO",
			model.EntityIdentity("Organization", "Globex"),
		)
		require.NoError(t, err)
		assert.True(t, exists)

		t.Run("Re-running creates no duplicate edges", func(t *testing.T) {
			report, err := kg.Infer(context.Background(), "financial")
			require.NoError(t, err)
			assert.Equal(t, 0, report.EdgesCreated)
		})
	})
}

func TestComplexRuleColumnMapping(t *testing.T) {
	kg := initKGraph(t)

	props := model.NewProperties()
	props.Set("sector", model.String("tech"))
	entities := []model.ExtractedEntity{
		{Type: "Organization", Name: "Acme Corp", Confidence: 0.9, Properties: props.Clone()},
		{Type: "Person", Name: "Alice", Confidence: 0.9},
	}
	_, err := kg.Upsert.Upsert(context.Background(), entities, nil)
	require.NoError(t, err)

	sourceIdentity := model.EntityIdentity("Organization", "Acme Corp")
	targetIdentity := model.EntityIdentity("Person", "Alice")

	t.Run("Result columns map to type, confidence and properties", func(t *testing.T) {
		rule := model.InferenceRule{Kind: model.RuleKindComplex, Complex: &model.ComplexRule{
			Name:    "employment",
			Query:   fmt.Sprintf("SELECT '%s' AS src, '%s' AS tgt, 'EMPLOYS' AS rel, 0.78 AS conf, 'registry' AS origin", sourceIdentity, targetIdentity),
			Enabled: true,
			ColumnMapping: map[string]string{
				"source":     "src",
				"target":     "tgt",
				"type":       "rel",
				"confidence": "conf",
			},
			Confidence: 0.5,
		}}

		report := kg.Inference.RunRules(context.Background(), []model.InferenceRule{rule})
		assert.Equal(t, 0, report.RulesFailed)
		assert.Equal(t, 1, report.EdgesCreated)

		edges, err := kg.Edges.SelectEdgesFromNode(sourceIdentity, nil)
		require.NoError(t, err)
		require.Len(t, edges, 1)

		edge := edges[0]
		assert.Equal(t, targetIdentity, edge.TargetID)
		assert.Equal(t, "EMPLOYS", edge.Type, "Expected the mapped type column to override the rule name")
		assert.InDelta(t, 0.78, edge.Confidence, 0.0001, "Expected the mapped confidence column to override the rule default")

		origin, ok := edge.Properties.Get("origin")
		require.True(t, ok, "Expected the unmapped column to become an edge property")
		assert.Equal(t, model.String("registry"), origin)
		ruleName, _ := edge.Properties.Get("rule")
		assert.Equal(t, model.String("employment"), ruleName)
		inferred, _ := edge.Properties.Get("inferred")
		assert.Equal(t, model.Boolean(true), inferred)
	})

	t.Run("Without a type mapping the uppercased rule name is used", func(t *testing.T) {
		rule := model.InferenceRule{Kind: model.RuleKindComplex, Complex: &model.ComplexRule{
			Name:    "works_with",
			Query:   fmt.Sprintf("SELECT '%s' AS src, '%s' AS tgt", sourceIdentity, targetIdentity),
			Enabled: true,
			ColumnMapping: map[string]string{
				"source": "src",
				"target": "tgt",
			},
			Confidence: 0.4,
		}}

		report := kg.Inference.RunRules(context.Background(), []model.InferenceRule{rule})
		assert.Equal(t, 0, report.RulesFailed)

		exists, err := kg.Edges.EdgeExists(sourceIdentity, "WORKS_WITH", targetIdentity)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Rows pointing at missing endpoints are skipped, not fatal", func(t *testing.T) {
		rule := model.InferenceRule{Kind: model.RuleKindComplex, Complex: &model.ComplexRule{
			Name:    "dangling",
			Query:   fmt.Sprintf("SELECT '%s' AS src, 'person:ghost' AS tgt", sourceIdentity),
			Enabled: true,
			ColumnMapping: map[string]string{
				"source": "src",
				"target": "tgt",
			},
			Confidence: 0.4,
		}}

		report := kg.Inference.RunRules(context.Background(), []model.InferenceRule{rule})
		assert.Equal(t, 0, report.RulesFailed)
		assert.Equal(t, 0, report.EdgesCreated)
	})
}

func TestRenderSchema(t *testing.T) {
	kg := initKGraph(t)
	rendered := kg.RenderSchema()
	assert.Contains(t, rendered, "Organization")
	assert.Contains(t, rendered, "RELATED_TO")
}
