package model

import (
	"fmt"
	"strings"
)

// Span marks the position of an extracted entity in the source text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExtractedEntity is one deduplicated, confidence-ranked entity produced by
// the extraction aggregator for a single ingestion item. It is consumed
// immediately by the upsert layer and not retained.
type ExtractedEntity struct {
	Type       string      `json:"type"`
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	Sources    []string    `json:"sources"`
	Properties *Properties `json:"properties,omitempty"`
	Span       *Span       `json:"span,omitempty"`
}

// NormalizeEntityName lowercases a name and collapses internal whitespace,
// producing the form used for identity derivation and deduplication
func NormalizeEntityName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// EntityIdentity derives the stable identity key for a (type, name) pair.
// The same entity seen by different detectors or in different runs always
// maps to the same key, which is what makes graph writes idempotent.
func EntityIdentity(entityType string, name string) string {
	return fmt.Sprintf("%s:%s", entityType, NormalizeEntityName(name))
}

// Identity returns the entity's stable upsert key
func (e *ExtractedEntity) Identity() string {
	return EntityIdentity(e.Type, e.Name)
}

// ExtractedRelationship links two extracted entities by their identity keys
type ExtractedRelationship struct {
	SourceID   string      `json:"sourceId"`
	TargetID   string      `json:"targetId"`
	Type       string      `json:"type"`
	Confidence float64     `json:"confidence"`
	Properties *Properties `json:"properties,omitempty"`
}
