package model

import "time"

// ItemError records the failure of a single ingestion item or write with
// enough context to act on it without re-running the whole batch
type ItemError struct {
	ItemID      string    `json:"item_id"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProcessingResult is the aggregated report of one pipeline run
type ProcessingResult struct {
	Success              bool          `json:"success"`
	ItemsProcessed       int           `json:"items_processed"`
	ItemsSucceeded       int           `json:"items_succeeded"`
	ItemsFailed          int           `json:"items_failed"`
	EntitiesCreated      int           `json:"entities_created"`
	RelationshipsCreated int           `json:"relationships_created"`
	Errors               []ItemError   `json:"errors,omitempty"`
	Duration             time.Duration `json:"duration"`
	Metadata             *Properties   `json:"metadata,omitempty"`
}

// AddError appends an error record with the current timestamp
func (r *ProcessingResult) AddError(itemID string, message string, recoverable bool) {
	r.Errors = append(r.Errors, ItemError{
		ItemID:      itemID,
		Message:     message,
		Recoverable: recoverable,
		Timestamp:   time.Now(),
	})
}

// SkippedEdge reports an edge write that was skipped because one of its
// endpoint nodes was missing from the store
type SkippedEdge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// UpsertReport summarizes one call to the graph upsert layer
type UpsertReport struct {
	NodesCreated int           `json:"nodes_created"`
	NodesUpdated int           `json:"nodes_updated"`
	EdgesCreated int           `json:"edges_created"`
	EdgesUpdated int           `json:"edges_updated"`
	SkippedEdges []SkippedEdge `json:"skipped_edges,omitempty"`
	Errors       []ItemError   `json:"errors,omitempty"`
}

// Merge folds another report into this one
func (r *UpsertReport) Merge(other *UpsertReport) {
	if other == nil {
		return
	}
	r.NodesCreated += other.NodesCreated
	r.NodesUpdated += other.NodesUpdated
	r.EdgesCreated += other.EdgesCreated
	r.EdgesUpdated += other.EdgesUpdated
	r.SkippedEdges = append(r.SkippedEdges, other.SkippedEdges...)
	r.Errors = append(r.Errors, other.Errors...)
}
