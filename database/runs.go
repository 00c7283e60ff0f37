package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	loadSql "github.com/kohr2/dashboard-killer-graph-sub002/sql"
)

// RunSummary is one persisted pipeline run report row
type RunSummary struct {
	RunID                uuid.UUID `json:"run_id"`
	SourceID             string    `json:"source_id"`
	Success              bool      `json:"success"`
	ItemsProcessed       int       `json:"items_processed"`
	ItemsSucceeded       int       `json:"items_succeeded"`
	ItemsFailed          int       `json:"items_failed"`
	EntitiesCreated      int       `json:"entities_created"`
	RelationshipsCreated int       `json:"relationships_created"`
	DurationMs           int64     `json:"duration_ms"`
	CreatedAt            time.Time `json:"created_at"`
}

// RunsDBHandler persists pipeline run reports for operational review
type RunsDBHandler struct {
	db *helper.Database
}

// NewRunsDBHandler creates a new runs database handler
func NewRunsDBHandler(db *helper.Database, force bool) (*RunsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	runsDbHandler := &RunsDBHandler{
		db: db,
	}

	err := loadSql.LoadRunsSql(runsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load runs sql", err)
	}

	_, err = runsDbHandler.db.Instance.Exec(`SELECT init_runs();`)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RunsDBHandler")

	return runsDbHandler, nil
}

// InsertRun stores one completed run's report
func (h *RunsDBHandler) InsertRun(runID uuid.UUID, sourceID string, result *model.ProcessingResult) error {
	report, err := json.Marshal(result)
	if err != nil {
		return helper.NewError("marshal report", err)
	}

	_, err = h.db.Instance.Exec(
		`SELECT insert_run($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID,
		sourceID,
		result.Success,
		result.ItemsProcessed,
		result.ItemsSucceeded,
		result.ItemsFailed,
		result.EntitiesCreated,
		result.RelationshipsCreated,
		result.Duration.Milliseconds(),
		report,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectRecentRuns retrieves the most recent run summaries, optionally
// filtered by source
func (h *RunsDBHandler) SelectRecentRuns(sourceID *string, limit int) ([]*RunSummary, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_runs($1, $2)`,
		sourceID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		run := &RunSummary{}
		err := rows.Scan(
			&run.RunID,
			&run.SourceID,
			&run.Success,
			&run.ItemsProcessed,
			&run.ItemsSucceeded,
			&run.ItemsFailed,
			&run.EntitiesCreated,
			&run.RelationshipsCreated,
			&run.DurationMs,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return runs, nil
}
