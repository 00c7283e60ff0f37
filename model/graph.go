package model

import (
	"time"
)

// LabelThing is the umbrella label attached to every materialized node in
// addition to its specific type label. A cleanup pass may remove it once
// specific labeling is confirmed correct.
const LabelThing = "Thing"

// Node is a graph upsert record for one entity. CreatedAt and UpdatedAt are
// set by the merge operation in the store, never by the caller.
type Node struct {
	Identity   string      `json:"identity"`
	Labels     []string    `json:"labels"`
	Name       string      `json:"name"`
	Properties *Properties `json:"properties,omitempty"`
	Embedding  []float32   `json:"embedding,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Edge is a graph upsert record for one relationship. The identity of an
// edge is the (source, type, target) triple; re-merging the same triple
// refreshes properties without creating a duplicate.
type Edge struct {
	SourceID   string      `json:"source_id"`
	TargetID   string      `json:"target_id"`
	Type       string      `json:"type"`
	Confidence float64     `json:"confidence"`
	Properties *Properties `json:"properties,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
