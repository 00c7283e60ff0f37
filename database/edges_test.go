package database

import (
	"testing"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgesNewEdgesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewEdgesDBHandler", func(t *testing.T) {
		edgesDbHandler, err := NewEdgesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewEdgesDBHandler to not return an error")
		require.NotNil(t, edgesDbHandler, "Expected NewEdgesDBHandler to return a non-nil instance")
		require.NotNil(t, edgesDbHandler.db, "Expected NewEdgesDBHandler to have a non-nil database instance")
		require.NotNil(t, edgesDbHandler.db.Instance, "Expected NewEdgesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewEdgesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEdgesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating EdgesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestEdgesMerge(t *testing.T) {
	database := initDB(t)

	nodesDbHandler, err := NewNodesDBHandler(database, 384, true)
	require.NoError(t, err)
	edgesDbHandler, err := NewEdgesDBHandler(database, true)
	require.NoError(t, err)
	require.NoError(t, nodesDbHandler.ClearGraph())

	for _, name := range []string{"Acme Corp", "Bolt Ltd"} {
		node := &model.Node{
			Identity:   model.EntityIdentity("Organization", model.NormalizeEntityName(name)),
			Labels:     []string{"Organization", "Thing"},
			Name:       name,
			Properties: model.NewProperties(),
		}
		_, err := nodesDbHandler.MergeNode(database.Instance, node)
		require.NoError(t, err)
	}

	sourceID := model.EntityIdentity("Organization", "acme corp")
	targetID := model.EntityIdentity("Organization", "bolt ltd")

	t.Run("Merge creates a new edge", func(t *testing.T) {
		edge := &model.Edge{
			SourceID:   sourceID,
			TargetID:   targetID,
			Type:       "PARTNERS_WITH",
			Confidence: 0.8,
			Properties: model.NewProperties(),
		}

		created, err := edgesDbHandler.MergeEdge(database.Instance, edge)
		assert.NoError(t, err, "Expected MergeEdge to not return an error")
		assert.True(t, created, "Expected first merge to create the edge")
		assert.False(t, edge.CreatedAt.IsZero(), "Expected createdAt to be set by the store")
	})

	t.Run("Merge same triple does not duplicate", func(t *testing.T) {
		properties := model.NewProperties()
		properties.Set("since", model.String("2024"))

		edge := &model.Edge{
			SourceID:   sourceID,
			TargetID:   targetID,
			Type:       "PARTNERS_WITH",
			Confidence: 0.6,
			Properties: properties,
		}

		created, err := edgesDbHandler.MergeEdge(database.Instance, edge)
		assert.NoError(t, err)
		assert.False(t, created, "Expected second merge of the same triple to update")

		edges, err := edgesDbHandler.SelectEdgesByType("PARTNERS_WITH", 0)
		require.NoError(t, err)
		require.Len(t, edges, 1, "Expected exactly one edge for the triple")
		assert.Equal(t, 0.8, edges[0].Confidence, "Expected merge to keep the higher confidence")
		since, ok := edges[0].Properties.Get("since")
		require.True(t, ok)
		assert.Equal(t, "2024", since.Interface(), "Expected new property to be merged in")
	})

	t.Run("Merge with missing endpoint fails", func(t *testing.T) {
		edge := &model.Edge{
			SourceID:   sourceID,
			TargetID:   "organization:ghost",
			Type:       "PARTNERS_WITH",
			Confidence: 0.5,
			Properties: model.NewProperties(),
		}

		_, err := edgesDbHandler.MergeEdge(database.Instance, edge)
		assert.Error(t, err, "Expected foreign key violation for missing endpoint")
	})
}

func TestEdgesSelect(t *testing.T) {
	database := initDB(t)

	nodesDbHandler, err := NewNodesDBHandler(database, 384, true)
	require.NoError(t, err)
	edgesDbHandler, err := NewEdgesDBHandler(database, true)
	require.NoError(t, err)
	require.NoError(t, nodesDbHandler.ClearGraph())

	for _, name := range []string{"a", "b", "c"} {
		node := &model.Node{
			Identity:   "person:" + name,
			Labels:     []string{"Person"},
			Name:       name,
			Properties: model.NewProperties(),
		}
		_, err := nodesDbHandler.MergeNode(database.Instance, node)
		require.NoError(t, err)
	}

	edges := []*model.Edge{
		{SourceID: "person:a", TargetID: "person:b", Type: "KNOWS", Confidence: 0.9, Properties: model.NewProperties()},
		{SourceID: "person:a", TargetID: "person:c", Type: "MANAGES", Confidence: 0.7, Properties: model.NewProperties()},
	}
	for _, edge := range edges {
		_, err := edgesDbHandler.MergeEdge(database.Instance, edge)
		require.NoError(t, err)
	}

	t.Run("Select all edges from a node", func(t *testing.T) {
		found, err := edgesDbHandler.SelectEdgesFromNode("person:a", nil)
		assert.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("Select edges from a node filtered by type", func(t *testing.T) {
		edgeType := "KNOWS"
		found, err := edgesDbHandler.SelectEdgesFromNode("person:a", &edgeType)
		assert.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "person:b", found[0].TargetID)
	})

	t.Run("Edge exists", func(t *testing.T) {
		exists, err := edgesDbHandler.EdgeExists("person:a", "KNOWS", "person:b")
		assert.NoError(t, err)
		assert.True(t, exists)

		exists, err = edgesDbHandler.EdgeExists("person:b", "KNOWS", "person:a")
		assert.NoError(t, err)
		assert.False(t, exists, "Expected edge direction to matter")
	})
}
