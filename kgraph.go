package kgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kohr2/dashboard-killer-graph-sub002/core/extraction"
	"github.com/kohr2/dashboard-killer-graph-sub002/core/inference"
	"github.com/kohr2/dashboard-killer-graph-sub002/core/pipeline"
	"github.com/kohr2/dashboard-killer-graph-sub002/database"
	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	"github.com/kohr2/dashboard-killer-graph-sub002/ontology"
	"github.com/kohr2/dashboard-killer-graph-sub002/source"
	loadSql "github.com/kohr2/dashboard-killer-graph-sub002/sql"
)

// KGraph provides a unified interface to the ingestion and inference engine
type KGraph struct {
	DB           *helper.Database
	Schema       *model.OntologySchema
	Nodes        *database.NodesDBHandler
	Edges        *database.EdgesDBHandler
	Runs         *database.RunsDBHandler
	Upsert       *database.UpsertHandler
	Aggregator   *extraction.Aggregator
	Inference    *inference.Engine
	Orchestrator *pipeline.Orchestrator
	// Logging
	log *slog.Logger
}

// NewKGraph creates a fully wired engine: ontology declarations are loaded
// from declarationsDir, the graph store is initialized, and every component
// is constructed with its collaborators passed explicitly.
func NewKGraph(config *helper.DatabaseConfiguration, embeddingDim int, declarationsDir string) (*KGraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Load ontology declarations into one canonical schema
	registry := ontology.NewRegistry(logger)
	schema, validationErrs := registry.LoadDirectory(declarationsDir)
	for _, validationErr := range validationErrs {
		logger.Warn("Ontology declaration rejected", slog.String("error", validationErr.Error()))
	}

	return newWithSchema(config, embeddingDim, schema, logger)
}

// NewKGraphWithSchema creates an engine over an already-built schema value
func NewKGraphWithSchema(config *helper.DatabaseConfiguration, embeddingDim int, schema *model.OntologySchema) (*KGraph, error) {
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	return newWithSchema(config, embeddingDim, schema, logger)
}

func newWithSchema(config *helper.DatabaseConfiguration, embeddingDim int, schema *model.OntologySchema, logger *slog.Logger) (*KGraph, error) {
	// Initialize database
	db := helper.NewDatabase("kgraph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (nodes first, edges reference them)
	// force=false to not reload if functions already exist
	nodes, err := database.NewNodesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create nodes handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	runs, err := database.NewRunsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create runs handler", err)
	}

	upsert, err := database.NewUpsertHandler(db, nodes, edges, schema, logger)
	if err != nil {
		return nil, helper.NewError("create upsert handler", err)
	}

	aggregator := extraction.NewAggregator(schema, logger)

	engine, err := inference.NewEngine(nodes, edges, upsert, db.Instance, logger)
	if err != nil {
		return nil, helper.NewError("create inference engine", err)
	}

	orchestrator, err := pipeline.NewOrchestrator(schema, aggregator, upsert, logger)
	if err != nil {
		return nil, helper.NewError("create orchestrator", err)
	}
	orchestrator.SetInferencer(engine)
	orchestrator.SetRecorder(runs)

	return &KGraph{
		DB:           db,
		Schema:       schema,
		Nodes:        nodes,
		Edges:        edges,
		Runs:         runs,
		Upsert:       upsert,
		Aggregator:   aggregator,
		Inference:    engine,
		Orchestrator: orchestrator,
		log:          logger,
	}, nil
}

// Close closes the database connection
func (k *KGraph) Close() error {
	if k.DB != nil && k.DB.Instance != nil {
		return k.DB.Instance.Close()
	}
	return nil
}

// UseDefaultEmbedder attaches the all-MiniLM-L6-v2 sentence transformer
// (384 dimensions) for entity types flagged with vectorIndex
func (k *KGraph) UseDefaultEmbedder() error {
	embedder, err := extraction.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	k.Upsert.SetEmbedder(database.EmbedFunc(embedder))
	return nil
}

// UseDefaultModelDetector registers the bert-base-NER model detector under
// the given detector source name
func (k *KGraph) UseDefaultModelDetector(sourceName string) error {
	detector, err := extraction.NewModelDetector(sourceName, "protectai/bert-base-NER-onnx", nil)
	if err != nil {
		return helper.NewError("create model detector", err)
	}
	k.Aggregator.RegisterDetector(detector)
	return nil
}

// Process runs one full ingestion over the given source and returns the
// aggregated run report
func (k *KGraph) Process(ctx context.Context, src source.Source) (*model.ProcessingResult, error) {
	return k.Orchestrator.Run(ctx, src)
}

// ProcessText ingests a single in-memory text under the given extraction
// context, a convenience wrapper over Process
func (k *KGraph) ProcessText(ctx context.Context, id string, content string, contextName string) (*model.ProcessingResult, error) {
	src := &source.StaticSource{
		Name: fmt.Sprintf("text/%s", id),
		Items: []source.Item{
			{ID: id, Content: content, Context: contextName},
		},
	}
	return k.Process(ctx, src)
}

// Infer runs the inference rules of one named domain configuration against
// the persisted graph
func (k *KGraph) Infer(ctx context.Context, domainName string) (*inference.RunReport, error) {
	for _, domain := range k.Schema.Domains {
		if domain.Name == domainName {
			return k.Inference.RunRules(ctx, domain.Rules), nil
		}
	}
	return nil, helper.NewError("run inference", fmt.Errorf("unknown domain configuration %q", domainName))
}

// RenderSchema returns the compact human-readable schema rendering
func (k *KGraph) RenderSchema() string {
	return ontology.RenderSchema(k.Schema)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (k *KGraph) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return k.Nodes.ChangeIndexType(ctx, indexType, params)
}

// ClearGraph removes all nodes and edges. Test and bootstrap tooling only.
func (k *KGraph) ClearGraph() error {
	return k.Nodes.ClearGraph()
}
