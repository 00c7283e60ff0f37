package database

import (
	"fmt"

	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	loadSql "github.com/kohr2/dashboard-killer-graph-sub002/sql"
)

// EdgesDBHandlerFunctions defines the interface for edge database operations.
type EdgesDBHandlerFunctions interface {
	MergeEdge(q Querier, edge *model.Edge) (bool, error)
	EdgeExists(source string, edgeType string, target string) (bool, error)
	SelectEdgesFromNode(identity string, edgeType *string) ([]*model.Edge, error)
	SelectEdgesByType(edgeType string, limit int) ([]*model.Edge, error)
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	_, err = edgesDbHandler.db.Instance.Exec(`SELECT init_edges();`)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// MergeEdge writes an edge with match-or-create semantics keyed on the
// (source, type, target) triple and reports whether it was created. On
// update, properties are merged, confidence keeps its maximum and
// updated_at is refreshed.
func (h *EdgesDBHandler) MergeEdge(q Querier, edge *model.Edge) (bool, error) {
	if edge.Properties == nil {
		edge.Properties = model.NewProperties()
	}

	row := q.QueryRow(
		`SELECT * FROM merge_edge($1, $2, $3, $4, $5)`,
		edge.SourceID,
		edge.TargetID,
		edge.Type,
		edge.Confidence,
		edge.Properties,
	)

	var created bool
	err := row.Scan(
		&edge.SourceID,
		&edge.TargetID,
		&edge.Type,
		&edge.Confidence,
		edge.Properties,
		&edge.CreatedAt,
		&edge.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// EdgeExists reports whether an edge with the given triple exists
func (h *EdgesDBHandler) EdgeExists(source string, edgeType string, target string) (bool, error) {
	var exists bool
	err := h.db.Instance.QueryRow(
		`SELECT edge_exists($1, $2, $3)`,
		source,
		edgeType,
		target,
	).Scan(&exists)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return exists, nil
}

// SelectEdgesFromNode retrieves edges whose source is the given node,
// optionally filtered by type
func (h *EdgesDBHandler) SelectEdgesFromNode(identity string, edgeType *string) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_from_node($1, $2)`,
		identity,
		edgeType,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{Properties: model.NewProperties()}
		err := rows.Scan(
			&edge.SourceID,
			&edge.TargetID,
			&edge.Type,
			&edge.Confidence,
			edge.Properties,
			&edge.CreatedAt,
			&edge.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectEdgesByType retrieves edges of one type
func (h *EdgesDBHandler) SelectEdgesByType(edgeType string, limit int) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_by_type($1, $2)`,
		edgeType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{Properties: model.NewProperties()}
		err := rows.Scan(
			&edge.SourceID,
			&edge.TargetID,
			&edge.Type,
			&edge.Confidence,
			edge.Properties,
			&edge.CreatedAt,
			&edge.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}
