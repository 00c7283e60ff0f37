package extraction

import (
	"context"
	"log/slog"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// enrichmentBoost is the fixed confidence increment applied when an entity
// was successfully enriched, capped so confidence never exceeds 1.0
const enrichmentBoost = 0.1

// Enricher is the external enrichment collaborator contract: given an
// entity's name, type and current properties it returns a property map to
// merge. Absence of a configured enricher for a type is not an error.
type Enricher interface {
	Enrich(ctx context.Context, entityType string, name string, properties *model.Properties) (*model.Properties, error)
}

// enrich runs the enrichment post-pass in place. For every entity whose
// type declares an enrichment service with a registered collaborator, the
// returned properties are merged if they are on the type's allow-list, and
// confidence is raised by a fixed bounded increment. Failures degrade to
// "no enrichment" per entity, never failing the batch.
func (a *Aggregator) enrich(ctx context.Context, entities []model.ExtractedEntity) {
	if a.schema == nil {
		return
	}

	for i := range entities {
		entity := &entities[i]

		def, ok := a.schema.Entities[entity.Type]
		if !ok || def.Enrichment == nil {
			continue
		}
		enricher, ok := a.enrichers[def.Enrichment.Service]
		if !ok {
			continue
		}

		enriched, err := enricher.Enrich(ctx, entity.Type, entity.Name, entity.Properties)
		if err != nil {
			a.log.Warn("Enrichment failed, keeping entity unenriched",
				slog.String("entity_type", entity.Type),
				slog.String("service", def.Enrichment.Service),
				slog.String("error", err.Error()))
			continue
		}
		if enriched == nil || enriched.Len() == 0 {
			continue
		}

		if entity.Properties == nil {
			entity.Properties = model.NewProperties()
		}
		for _, key := range enriched.Keys() {
			if !containsString(def.Enrichment.AllowProperties, key) {
				continue
			}
			value, _ := enriched.Get(key)
			entity.Properties.Set(key, value)
		}

		entity.Confidence += enrichmentBoost
		if entity.Confidence > 1.0 {
			entity.Confidence = 1.0
		}
	}
}
