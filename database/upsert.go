package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// defaultBatchSize is the number of writes grouped into one transaction
const defaultBatchSize = 50

// EmbedFunc generates a vector embedding for a node name. Optional; only
// entity types flagged with vectorIndex are embedded.
type EmbedFunc func(text string) ([]float32, error)

// UpsertHandler converts extracted entities and relationships into
// idempotent merge operations. Writes are grouped into fixed-size batches,
// each applied as one transaction; a batch failure rolls back only that
// batch and prior committed batches remain intact.
type UpsertHandler struct {
	db        *helper.Database
	nodes     *NodesDBHandler
	edges     *EdgesDBHandler
	schema    *model.OntologySchema
	embedder  EmbedFunc
	batchSize int
	log       *slog.Logger
}

// NewUpsertHandler creates an upsert handler bound to a canonical schema
func NewUpsertHandler(db *helper.Database, nodes *NodesDBHandler, edges *EdgesDBHandler, schema *model.OntologySchema, logger *slog.Logger) (*UpsertHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if nodes == nil || edges == nil {
		return nil, helper.NewError("handler validation", fmt.Errorf("nodes and edges handlers are required"))
	}

	return &UpsertHandler{
		db:        db,
		nodes:     nodes,
		edges:     edges,
		schema:    schema,
		batchSize: defaultBatchSize,
		log:       logger,
	}, nil
}

// SetEmbedder sets the optional embedding function for vector-flagged types
func (h *UpsertHandler) SetEmbedder(embedder EmbedFunc) {
	h.embedder = embedder
}

// SetBatchSize overrides the default transaction batch size
func (h *UpsertHandler) SetBatchSize(size int) {
	if size > 0 {
		h.batchSize = size
	}
}

// Upsert persists extracted entities and relationships. Re-ingesting the
// same content is idempotent in node and edge counts; property values
// refresh to the latest write.
func (h *UpsertHandler) Upsert(ctx context.Context, entities []model.ExtractedEntity, relationships []model.ExtractedRelationship) (*model.UpsertReport, error) {
	report := &model.UpsertReport{}

	nodes := h.buildNodes(entities)
	h.mergeNodeBatches(ctx, nodes, report)

	edges := make([]*model.Edge, 0, len(relationships))
	for _, rel := range relationships {
		edges = append(edges, &model.Edge{
			SourceID:   rel.SourceID,
			TargetID:   rel.TargetID,
			Type:       rel.Type,
			Confidence: rel.Confidence,
			Properties: rel.Properties,
		})
	}
	h.mergeEdgeBatches(ctx, edges, report)

	return report, nil
}

// MergeEdges persists already-built edge records through the same batching
// discipline. The inference engine uses this entry point.
func (h *UpsertHandler) MergeEdges(ctx context.Context, edges []*model.Edge) (*model.UpsertReport, error) {
	report := &model.UpsertReport{}
	h.mergeEdgeBatches(ctx, edges, report)
	return report, nil
}

// buildNodes converts entities into node records. Enum-like property types
// are excluded from materialization. Every node carries the umbrella label
// plus its full type-label hierarchy.
func (h *UpsertHandler) buildNodes(entities []model.ExtractedEntity) []*model.Node {
	var nodes []*model.Node

	for _, entity := range entities {
		if h.schema != nil {
			if def, ok := h.schema.Entities[entity.Type]; ok && def.IsPropertyType() {
				continue
			}
		}

		properties := entity.Properties.Clone()
		properties.Set("name", model.String(entity.Name))
		properties.Set("confidence", model.Number(entity.Confidence))
		properties.Set("sources", model.String(strings.Join(entity.Sources, ",")))

		node := &model.Node{
			Identity:   entity.Identity(),
			Labels:     h.labelsFor(entity.Type),
			Name:       entity.Name,
			Properties: properties,
		}

		if h.embedder != nil && h.isVectorIndexed(entity.Type) {
			embedding, err := h.embedder(entity.Name)
			if err != nil {
				h.log.Warn("Embedding failed, storing node without vector",
					slog.String("identity", node.Identity),
					slog.String("error", err.Error()))
			} else {
				node.Embedding = embedding
			}
		}

		nodes = append(nodes, node)
	}

	return nodes
}

func (h *UpsertHandler) labelsFor(entityType string) []string {
	labels := []string{entityType}
	if h.schema != nil {
		if hierarchy, err := h.schema.LabelHierarchy(entityType); err == nil {
			labels = hierarchy
		}
	}
	return append(labels, model.LabelThing)
}

func (h *UpsertHandler) isVectorIndexed(entityType string) bool {
	if h.schema == nil {
		return false
	}
	def, ok := h.schema.Entities[entityType]
	return ok && def.VectorIndex
}

// mergeNodeBatches applies node merges in sequential per-batch transactions.
// A failing batch is rolled back and its items reported individually; the
// remaining batches still run.
func (h *UpsertHandler) mergeNodeBatches(ctx context.Context, nodes []*model.Node, report *model.UpsertReport) {
	for start := 0; start < len(nodes); start += h.batchSize {
		if ctx.Err() != nil {
			h.log.Warn("Upsert cancelled between node batches")
			return
		}

		end := start + h.batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]

		created, updated, err := h.mergeNodeBatch(batch)
		if err != nil {
			h.log.Warn("Node batch failed, rolled back",
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			for _, node := range batch {
				report.Errors = append(report.Errors, model.ItemError{
					ItemID:      node.Identity,
					Message:     err.Error(),
					Recoverable: true,
					Timestamp:   time.Now(),
				})
			}
			continue
		}

		report.NodesCreated += created
		report.NodesUpdated += updated
	}
}

func (h *UpsertHandler) mergeNodeBatch(batch []*model.Node) (int, int, error) {
	tx, err := h.db.Instance.Begin()
	if err != nil {
		return 0, 0, helper.NewError("begin transaction", err)
	}

	var created, updated int
	for _, node := range batch {
		wasCreated, err := h.nodes.MergeNode(tx, node)
		if err != nil {
			_ = tx.Rollback()
			return 0, 0, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, helper.NewError("commit transaction", err)
	}

	return created, updated, nil
}

// mergeEdgeBatches applies edge merges in sequential per-batch transactions.
// An edge whose endpoint node is missing is skipped and reported as a
// recoverable warning; out-of-order or partial batches are expected in
// streaming ingestion.
func (h *UpsertHandler) mergeEdgeBatches(ctx context.Context, edges []*model.Edge, report *model.UpsertReport) {
	for start := 0; start < len(edges); start += h.batchSize {
		if ctx.Err() != nil {
			h.log.Warn("Upsert cancelled between edge batches")
			return
		}

		end := start + h.batchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := edges[start:end]

		batchReport, err := h.mergeEdgeBatch(batch)
		if err != nil {
			h.log.Warn("Edge batch failed, rolled back",
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			for _, edge := range batch {
				report.Errors = append(report.Errors, model.ItemError{
					ItemID:      fmt.Sprintf("%s-[%s]->%s", edge.SourceID, edge.Type, edge.TargetID),
					Message:     err.Error(),
					Recoverable: true,
					Timestamp:   time.Now(),
				})
			}
			continue
		}

		report.Merge(batchReport)
	}
}

func (h *UpsertHandler) mergeEdgeBatch(batch []*model.Edge) (*model.UpsertReport, error) {
	tx, err := h.db.Instance.Begin()
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}

	report := &model.UpsertReport{}
	for _, edge := range batch {
		skipped, err := h.checkEndpoints(tx, edge)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if skipped != nil {
			report.SkippedEdges = append(report.SkippedEdges, *skipped)
			continue
		}

		wasCreated, err := h.edges.MergeEdge(tx, edge)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if wasCreated {
			report.EdgesCreated++
		} else {
			report.EdgesUpdated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, helper.NewError("commit transaction", err)
	}

	return report, nil
}

func (h *UpsertHandler) checkEndpoints(q Querier, edge *model.Edge) (*model.SkippedEdge, error) {
	for _, endpoint := range []string{edge.SourceID, edge.TargetID} {
		exists, err := h.nodes.NodeExists(q, endpoint)
		if err != nil {
			return nil, err
		}
		if !exists {
			h.log.Warn("Skipping edge with missing endpoint",
				slog.String("edge_type", edge.Type),
				slog.String("endpoint", endpoint))
			return &model.SkippedEdge{
				SourceID: edge.SourceID,
				TargetID: edge.TargetID,
				Type:     edge.Type,
				Reason:   fmt.Sprintf("endpoint node %q does not exist", endpoint),
			}, nil
		}
	}
	return nil, nil
}
