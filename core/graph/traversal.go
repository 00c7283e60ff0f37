package graph

import (
	"context"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// GraphDB defines the interface for graph read operations
type GraphDB interface {
	GetNode(ctx context.Context, identity string) (*model.Node, error)
	GetEdgesFromNode(ctx context.Context, identity string, edgeType *string) ([]*model.Edge, error)
}

// TraversalResult contains a node and its distance from the source
type TraversalResult struct {
	Node     *model.Node
	Distance int
	Path     []string // Path of node identities from source to this node
}

// BFS performs breadth-first search from a source node following outgoing
// edges, optionally restricted to one edge type
func BFS(ctx context.Context, db GraphDB, sourceID string, maxHops int, edgeType *string) ([]*TraversalResult, error) {
	sourceNode, err := db.GetNode(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{sourceID: true}
	queue := []TraversalResult{{
		Node:     sourceNode,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		edges, err := db.GetEdgesFromNode(ctx, current.Node.Identity, edgeType)
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			targetID := edge.TargetID
			if visited[targetID] {
				continue
			}

			targetNode, err := db.GetNode(ctx, targetID)
			if err != nil {
				continue // Skip if node not found
			}

			visited[targetID] = true

			newPath := make([]string, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Node:     targetNode,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source node
func DFS(ctx context.Context, db GraphDB, sourceID string, maxHops int, edgeType *string) ([]*TraversalResult, error) {
	sourceNode, err := db.GetNode(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	var results []*TraversalResult

	dfsRecursive(ctx, db, sourceNode, 0, maxHops, []string{sourceID}, edgeType, visited, &results)

	return results, nil
}

// dfsRecursive is the recursive helper for DFS
func dfsRecursive(
	ctx context.Context,
	db GraphDB,
	current *model.Node,
	distance int,
	maxHops int,
	path []string,
	edgeType *string,
	visited map[string]bool,
	results *[]*TraversalResult,
) {
	visited[current.Identity] = true

	pathCopy := make([]string, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		Node:     current,
		Distance: distance,
		Path:     pathCopy,
	})

	// Stop if we've reached max hops
	if distance >= maxHops {
		return
	}

	edges, err := db.GetEdgesFromNode(ctx, current.Identity, edgeType)
	if err != nil {
		return
	}

	for _, edge := range edges {
		targetID := edge.TargetID
		if visited[targetID] {
			continue
		}

		targetNode, err := db.GetNode(ctx, targetID)
		if err != nil {
			continue // Skip if node not found
		}

		newPath := make([]string, len(path))
		copy(newPath, path)
		newPath = append(newPath, targetID)

		dfsRecursive(ctx, db, targetNode, distance+1, maxHops, newPath, edgeType, visited, results)
	}
}

// GetNeighbors retrieves immediate neighbors (1-hop) of a node
func GetNeighbors(ctx context.Context, db GraphDB, identity string, edgeType *string) ([]*model.Node, error) {
	results, err := BFS(ctx, db, identity, 1, edgeType)
	if err != nil {
		return nil, err
	}

	// Skip the source node itself (first result)
	neighbors := make([]*model.Node, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Node)
	}

	return neighbors, nil
}
