package extraction

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// ContextRule configures extraction for one named context: which detectors
// run, the confidence floor, and the type-priority order of the result
type ContextRule struct {
	Priorities []string
	Detectors  []string
	Threshold  float64
}

// Aggregator invokes detectors for a context, merges and deduplicates their
// findings, and applies the context's threshold and priority rules
type Aggregator struct {
	schema    *model.OntologySchema
	detectors map[string]Detector
	contexts  map[string]ContextRule
	enrichers map[string]Enricher
	log       *slog.Logger
}

// NewAggregator creates an aggregator bound to a canonical schema
func NewAggregator(schema *model.OntologySchema, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		schema:    schema,
		detectors: map[string]Detector{},
		contexts:  map[string]ContextRule{},
		enrichers: map[string]Enricher{},
		log:       logger,
	}
}

// RegisterDetector makes a detector available to context rules
func (a *Aggregator) RegisterDetector(d Detector) {
	a.detectors[d.Source()] = d
}

// RegisterContext registers the extraction rule for a named context
func (a *Aggregator) RegisterContext(name string, rule ContextRule) {
	a.contexts[name] = rule
}

// RegisterEnricher registers an enrichment collaborator under its service name
func (a *Aggregator) RegisterEnricher(name string, e Enricher) {
	a.enrichers[name] = e
}

// Extract runs the context's detectors over the content and returns
// deduplicated, threshold-filtered, priority-ordered entities. A context
// with no registered rule yields an empty result. A failed detector call
// drops only that detector's contribution.
func (a *Aggregator) Extract(ctx context.Context, content string, contextName string) []model.ExtractedEntity {
	rule, ok := a.contexts[contextName]
	if !ok {
		a.log.Debug("No extraction rule for context", slog.String("context", contextName))
		return nil
	}

	findings := a.collect(ctx, content, rule)
	entities := dedupe(findings)
	entities = filterByThreshold(entities, rule.Threshold)
	sortByPriority(entities, rule.Priorities)
	a.enrich(ctx, entities)

	return entities
}

// collect invokes the rule's detectors concurrently and joins their results.
// Detectors are independent and share no mutable state, so call order does
// not matter.
func (a *Aggregator) collect(ctx context.Context, content string, rule ContextRule) []detectorFinding {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var findings []detectorFinding

	for _, name := range rule.Detectors {
		detector, ok := a.detectors[name]
		if !ok {
			a.log.Warn("Context requires unregistered detector", slog.String("detector", name))
			continue
		}

		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()
			hits, err := d.Detect(ctx, content, rule.Threshold)
			if err != nil {
				a.log.Warn("Detector failed, dropping its contribution",
					slog.String("detector", d.Source()),
					slog.String("error", err.Error()))
				return
			}
			mu.Lock()
			for _, hit := range hits {
				findings = append(findings, detectorFinding{Finding: hit, source: d.Source()})
			}
			mu.Unlock()
		}(detector)
	}

	wg.Wait()
	return findings
}

type detectorFinding struct {
	Finding
	source string
}

// dedupe collapses findings that share a (type, case-insensitive normalized
// name) key. On collapse: confidence is the maximum, property bags are
// shallow-merged with later values winning, and provenance sources are
// concatenated so the final record shows every detector that independently
// found the entity.
func dedupe(findings []detectorFinding) []model.ExtractedEntity {
	var order []string
	byKey := map[string]*model.ExtractedEntity{}

	for _, f := range findings {
		key := model.EntityIdentity(f.Type, f.Text)

		existing, ok := byKey[key]
		if !ok {
			entity := &model.ExtractedEntity{
				Type:       f.Type,
				Name:       f.Text,
				Confidence: f.Confidence,
				Sources:    []string{f.source},
				Properties: f.Properties.Clone(),
				Span:       &model.Span{Start: f.Start, End: f.End},
			}
			byKey[key] = entity
			order = append(order, key)
			continue
		}

		if f.Confidence > existing.Confidence {
			existing.Confidence = f.Confidence
		}
		existing.Properties.Merge(f.Properties)
		if !containsString(existing.Sources, f.source) {
			existing.Sources = append(existing.Sources, f.source)
		}
	}

	entities := make([]model.ExtractedEntity, 0, len(order))
	for _, key := range order {
		entities = append(entities, *byKey[key])
	}
	return entities
}

// filterByThreshold drops entities below the context's confidence floor
func filterByThreshold(entities []model.ExtractedEntity, threshold float64) []model.ExtractedEntity {
	filtered := entities[:0]
	for _, e := range entities {
		if e.Confidence >= threshold {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// sortByPriority orders entities by the position of their type in the
// context's priority list. Unlisted types sort last; ties keep their
// detection order.
func sortByPriority(entities []model.ExtractedEntity, priorities []string) {
	rank := make(map[string]int, len(priorities))
	for i, t := range priorities {
		rank[t] = i
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return priorityRank(rank, entities[i].Type) < priorityRank(rank, entities[j].Type)
	})
}

func priorityRank(rank map[string]int, entityType string) int {
	if r, ok := rank[entityType]; ok {
		return r
	}
	return len(rank) + 1
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// DeriveRelationships emits co-occurrence relationships between extracted
// entities that appear close together in the source text. Proximity scales
// the confidence: adjacent entities score 1.0, entities 200 characters
// apart score 0.0.
func (a *Aggregator) DeriveRelationships(entities []model.ExtractedEntity) []model.ExtractedRelationship {
	var relationships []model.ExtractedRelationship

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			first, second := entities[i], entities[j]
			if first.Span == nil || second.Span == nil {
				continue
			}

			distance := second.Span.Start - first.Span.Start
			if distance < 0 {
				distance = -distance
			}
			if distance >= 200 {
				continue
			}

			props := model.NewProperties()
			props.Set("distance", model.Number(float64(distance)))

			relationships = append(relationships, model.ExtractedRelationship{
				SourceID:   first.Identity(),
				TargetID:   second.Identity(),
				Type:       "RELATED_TO",
				Confidence: coOccurrenceConfidence(distance),
				Properties: props,
			})
		}
	}

	return relationships
}

// coOccurrenceConfidence maps character distance to confidence, linearly
// decreasing from 1.0 at distance 0 to 0.0 at distance 200
func coOccurrenceConfidence(distance int) float64 {
	confidence := 1.0 - (float64(distance) / 200.0)
	if confidence < 0 {
		return 0.0
	}
	return confidence
}
