package inference

import (
	"context"
	"fmt"

	"github.com/kohr2/dashboard-killer-graph-sub002/core/graph"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// hierarchyConfidence is attached to materialized hierarchy edges; the
// underlying relationship was already persisted with its own confidence.
const hierarchyConfidence = 1.0

// storeGraph adapts the inference stores to the traversal interface
type storeGraph struct {
	nodes NodeStore
	edges EdgeStore
}

func (s storeGraph) GetNode(ctx context.Context, identity string) (*model.Node, error) {
	return s.nodes.SelectNode(identity)
}

func (s storeGraph) GetEdgesFromNode(ctx context.Context, identity string, edgeType *string) ([]*model.Edge, error) {
	return s.edges.SelectEdgesFromNode(identity, edgeType)
}

// deriveHierarchical walks the existing relationship type from every child
// entity and materializes a dedicated hierarchy edge to each reachable
// parent entity, annotated with the traversal depth.
func (e *Engine) deriveHierarchical(ctx context.Context, rule *model.HierarchicalRule) ([]*model.Edge, error) {
	children, err := e.nodes.SelectNodesByLabel(rule.ChildType, 0)
	if err != nil {
		return nil, err
	}

	maxDepth := rule.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	db := storeGraph{nodes: e.nodes, edges: e.edges}
	hierarchyType := fmt.Sprintf("%s_HIERARCHY", rule.RelationshipType)

	var edges []*model.Edge
	for _, child := range children {
		results, err := graph.BFS(ctx, db, child.Identity, maxDepth, &rule.RelationshipType)
		if err != nil {
			return nil, err
		}

		for _, result := range results {
			if result.Distance == 0 || !hasLabel(result.Node, rule.ParentType) {
				continue
			}

			properties := model.NewProperties()
			properties.Set("level", model.Number(float64(result.Distance)))
			properties.Set("inferred", model.Boolean(true))

			edges = append(edges, &model.Edge{
				SourceID:   child.Identity,
				TargetID:   result.Node.Identity,
				Type:       hierarchyType,
				Confidence: hierarchyConfidence,
				Properties: properties,
			})
		}
	}

	return edges, nil
}

func hasLabel(node *model.Node, label string) bool {
	for _, l := range node.Labels {
		if l == label {
			return true
		}
	}
	return false
}
