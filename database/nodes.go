package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	loadSql "github.com/kohr2/dashboard-killer-graph-sub002/sql"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Merge operations accept it so the upsert layer can run them inside a
// batch transaction.
type Querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// NodesDBHandlerFunctions defines the interface for node database operations.
type NodesDBHandlerFunctions interface {
	MergeNode(q Querier, node *model.Node) (bool, error)
	SelectNode(identity string) (*model.Node, error)
	SelectNodesByLabel(label string, limit int) ([]*model.Node, error)
	NodeExists(q Querier, identity string) (bool, error)
	AddNodeLabel(identity string, label string) error
	RemoveNodeLabel(identity string, label string) error
	ClearGraph() error
}

// NodesDBHandler handles node-related database operations
type NodesDBHandler struct {
	db *helper.Database
}

// NewNodesDBHandler creates a new nodes database handler.
// It initializes the database connection and loads node-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNodesDBHandler(db *helper.Database, embeddingDim int, force bool) (*NodesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	nodesDbHandler := &NodesDBHandler{
		db: db,
	}

	err := loadSql.LoadNodesSql(nodesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load nodes sql", err)
	}

	err = nodesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NodesDBHandler")

	return nodesDbHandler, nil
}

// CreateTable creates the 'nodes' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *NodesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_nodes($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing nodes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table nodes")

	return nil
}

// MergeNode writes a node with match-or-create semantics and reports whether
// the node was created (true) or updated (false). On update, labels and
// properties are merged and updated_at is refreshed.
func (h *NodesDBHandler) MergeNode(q Querier, node *model.Node) (bool, error) {
	var embedding interface{}
	if len(node.Embedding) > 0 {
		embedding = pgvector.NewVector(node.Embedding)
	}

	if node.Properties == nil {
		node.Properties = model.NewProperties()
	}

	row := q.QueryRow(
		`SELECT * FROM merge_node($1, $2, $3, $4, $5)`,
		node.Identity,
		pq.Array(node.Labels),
		node.Name,
		node.Properties,
		embedding,
	)

	var created bool
	err := row.Scan(
		&node.Identity,
		pq.Array(&node.Labels),
		&node.Name,
		node.Properties,
		&node.CreatedAt,
		&node.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// SelectNode retrieves a node by identity key
func (h *NodesDBHandler) SelectNode(identity string) (*model.Node, error) {
	node := &model.Node{Properties: model.NewProperties()}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_node($1)`,
		identity,
	)

	err := row.Scan(
		&node.Identity,
		pq.Array(&node.Labels),
		&node.Name,
		node.Properties,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return node, nil
}

// SelectNodesByLabel retrieves nodes carrying the given label
func (h *NodesDBHandler) SelectNodesByLabel(label string, limit int) ([]*model.Node, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_nodes_by_label($1, $2)`,
		label,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		node := &model.Node{Properties: model.NewProperties()}
		err := rows.Scan(
			&node.Identity,
			pq.Array(&node.Labels),
			&node.Name,
			node.Properties,
			&node.CreatedAt,
			&node.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		nodes = append(nodes, node)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return nodes, nil
}

// NodeExists reports whether a node with the identity key exists
func (h *NodesDBHandler) NodeExists(q Querier, identity string) (bool, error) {
	var exists bool
	err := q.QueryRow(
		`SELECT node_exists($1)`,
		identity,
	).Scan(&exists)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return exists, nil
}

// AddNodeLabel attaches an additional label to a node
func (h *NodesDBHandler) AddNodeLabel(identity string, label string) error {
	_, err := h.db.Instance.Exec(
		`SELECT add_node_label($1, $2)`,
		identity,
		label,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// RemoveNodeLabel removes a label from a node. Used by the umbrella-label
// cleanup step once specific labeling is confirmed correct.
func (h *NodesDBHandler) RemoveNodeLabel(identity string, label string) error {
	_, err := h.db.Instance.Exec(
		`SELECT remove_node_label($1, $2)`,
		identity,
		label,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// ClearGraph removes all nodes and edges. Only test and bootstrap tooling
// may call this; the ingestion core never deletes graph state.
func (h *NodesDBHandler) ClearGraph() error {
	_, err := h.db.Instance.Exec(`SELECT clear_graph()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
