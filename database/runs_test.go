package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsNewRunsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewRunsDBHandler", func(t *testing.T) {
		runsDbHandler, err := NewRunsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewRunsDBHandler to not return an error")
		require.NotNil(t, runsDbHandler, "Expected NewRunsDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewRunsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRunsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating RunsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestRunsInsertAndSelect(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err)

	result := &model.ProcessingResult{
		Success:              true,
		ItemsProcessed:       3,
		ItemsSucceeded:       2,
		ItemsFailed:          1,
		EntitiesCreated:      5,
		RelationshipsCreated: 2,
		Duration:             1500 * time.Millisecond,
	}
	result.AddError("item-2", "extraction failed", true)

	runID := uuid.New()
	err = runsDbHandler.InsertRun(runID, "source-a", result)
	require.NoError(t, err)

	t.Run("Recent runs include the inserted run", func(t *testing.T) {
		runs, err := runsDbHandler.SelectRecentRuns(nil, 10)
		require.NoError(t, err)
		require.NotEmpty(t, runs)

		var found *RunSummary
		for _, run := range runs {
			if run.RunID == runID {
				found = run
			}
		}
		require.NotNil(t, found, "Expected inserted run in recent runs")
		assert.Equal(t, "source-a", found.SourceID)
		assert.True(t, found.Success)
		assert.Equal(t, 3, found.ItemsProcessed)
		assert.Equal(t, 1, found.ItemsFailed)
		assert.Equal(t, int64(1500), found.DurationMs)
		assert.False(t, found.CreatedAt.IsZero())
	})

	t.Run("Filter by source", func(t *testing.T) {
		sourceID := "source-a"
		runs, err := runsDbHandler.SelectRecentRuns(&sourceID, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, runs)

		other := "source-unknown"
		runs, err = runsDbHandler.SelectRecentRuns(&other, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}
