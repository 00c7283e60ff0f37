package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed nodes.sql
var nodesSQL string

//go:embed edges.sql
var edgesSQL string

//go:embed runs.sql
var runsSQL string

// Function lists for verification
var NodesFunctions = []string{
	"init_nodes",
	"merge_node",
	"select_node",
	"select_nodes_by_label",
	"node_exists",
	"add_node_label",
	"remove_node_label",
	"clear_graph",
}

var EdgesFunctions = []string{
	"init_edges",
	"merge_edge",
	"edge_exists",
	"select_edges_from_node",
	"select_edges_by_type",
}

var RunsFunctions = []string{
	"init_runs",
	"insert_run",
	"select_recent_runs",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadAllSql loads every SQL function group
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadNodesSql(db, force); err != nil {
		return err
	}
	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}
	return LoadRunsSql(db, force)
}

// LoadNodesSql loads node-related SQL functions
func LoadNodesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, NodesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing nodes functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(nodesSQL)
	if err != nil {
		return fmt.Errorf("error executing nodes SQL: %w", err)
	}

	exist, err := checkFunctions(db, NodesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL nodes functions loaded successfully")
	return nil
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EdgesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing edges functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(edgesSQL)
	if err != nil {
		return fmt.Errorf("error executing edges SQL: %w", err)
	}

	exist, err := checkFunctions(db, EdgesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL edges functions loaded successfully")
	return nil
}

// LoadRunsSql loads run-report SQL functions
func LoadRunsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, RunsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing runs functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(runsSQL)
	if err != nil {
		return fmt.Errorf("error executing runs SQL: %w", err)
	}

	exist, err := checkFunctions(db, RunsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL runs functions loaded successfully")
	return nil
}

// checkFunctions reports whether every named SQL function already exists
func checkFunctions(db *sql.DB, functions []string) (bool, error) {
	for _, name := range functions {
		var exists bool
		err := db.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`,
			name,
		).Scan(&exists)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
