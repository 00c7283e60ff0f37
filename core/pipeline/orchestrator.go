package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kohr2/dashboard-killer-graph-sub002/core/inference"
	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	"github.com/kohr2/dashboard-killer-graph-sub002/source"
)

// Extractor turns raw content into deduplicated entities and co-occurrence
// relationships for one extraction context
type Extractor interface {
	Extract(ctx context.Context, content string, contextName string) []model.ExtractedEntity
	DeriveRelationships(entities []model.ExtractedEntity) []model.ExtractedRelationship
}

// Upserter persists extracted entities and relationships idempotently
type Upserter interface {
	Upsert(ctx context.Context, entities []model.ExtractedEntity, relationships []model.ExtractedRelationship) (*model.UpsertReport, error)
}

// Inferencer runs a domain configuration's inference rules against
// already-persisted graph state
type Inferencer interface {
	RunRules(ctx context.Context, rules []model.InferenceRule) *inference.RunReport
}

// RunRecorder persists the aggregated report of a finished run
type RunRecorder interface {
	InsertRun(runID uuid.UUID, sourceID string, result *model.ProcessingResult) error
}

// Orchestrator drives one ingestion run: connect to a source, stream items,
// extract, persist, invoke inference for the most relevant domain
// configurations, and produce one aggregated report. A single item's
// failure never aborts the run; only a failed source connect does.
type Orchestrator struct {
	schema         *model.OntologySchema
	extractor      Extractor
	upserter       Upserter
	inferencer     Inferencer
	recorder       RunRecorder
	defaultContext string
	log            *slog.Logger
}

// NewOrchestrator creates an orchestrator over explicitly passed
// collaborators. Inference and run recording are optional and attached
// with the setters.
func NewOrchestrator(schema *model.OntologySchema, extractor Extractor, upserter Upserter, logger *slog.Logger) (*Orchestrator, error) {
	if extractor == nil || upserter == nil {
		return nil, fmt.Errorf("extractor and upserter are required")
	}
	return &Orchestrator{
		schema:    schema,
		extractor: extractor,
		upserter:  upserter,
		log:       logger,
	}, nil
}

// SetInferencer attaches the inference engine invoked after the stream is
// exhausted
func (o *Orchestrator) SetInferencer(inferencer Inferencer) {
	o.inferencer = inferencer
}

// SetRecorder attaches best-effort run report persistence
func (o *Orchestrator) SetRecorder(recorder RunRecorder) {
	o.recorder = recorder
}

// SetDefaultContext sets the extraction context used for items that do not
// declare one
func (o *Orchestrator) SetDefaultContext(name string) {
	o.defaultContext = name
}

// Run processes one source end to end and returns the aggregated report.
// It returns an error only when the source connect fails; every other
// failure is captured in the report.
func (o *Orchestrator) Run(ctx context.Context, src source.Source) (*model.ProcessingResult, error) {
	start := time.Now()
	runID := uuid.New()

	result := &model.ProcessingResult{Metadata: model.NewProperties()}
	result.Metadata.Set("pipelineId", model.String(runID.String()))
	result.Metadata.Set("sourceId", model.String(src.ID()))
	result.Metadata.Set("sourceType", model.String(src.Type()))

	if err := src.Connect(ctx); err != nil {
		return nil, helper.NewError("connect to source", err)
	}

	o.log.Info("Pipeline run started",
		slog.String("run_id", runID.String()),
		slog.String("source", src.ID()))

	typeWeights := map[string]float64{}
	o.streamItems(ctx, src, result, typeWeights)
	o.runInference(ctx, result, typeWeights)

	if err := src.Disconnect(ctx); err != nil {
		o.log.Warn("Source disconnect failed",
			slog.String("source", src.ID()),
			slog.String("error", err.Error()))
	}

	result.Success = result.ItemsSucceeded >= 1
	result.Duration = time.Since(start)

	if o.recorder != nil {
		if err := o.recorder.InsertRun(runID, src.ID(), result); err != nil {
			o.log.Warn("Failed to record run report", slog.String("error", err.Error()))
		}
	}

	o.log.Info("Pipeline run finished",
		slog.String("run_id", runID.String()),
		slog.Bool("success", result.Success),
		slog.Int("items_processed", result.ItemsProcessed),
		slog.Int("items_failed", result.ItemsFailed))

	return result, nil
}

// streamItems pulls the source until exhaustion, tallying confidence
// weights per entity type for the later domain selection
func (o *Orchestrator) streamItems(ctx context.Context, src source.Source, result *model.ProcessingResult, typeWeights map[string]float64) {
	for {
		// Cooperative stop between items; in-flight batches complete
		if ctx.Err() != nil {
			o.log.Warn("Run cancelled between items", slog.String("source", src.ID()))
			return
		}

		item, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			result.AddError(src.ID(), fmt.Sprintf("source stream failed: %v", err), false)
			return
		}

		result.ItemsProcessed++
		if err := o.processItem(ctx, item, result, typeWeights); err != nil {
			result.ItemsFailed++
			result.AddError(item.ID, err.Error(), true)
			o.log.Warn("Item failed",
				slog.String("item", item.ID),
				slog.String("error", err.Error()))
			continue
		}
		result.ItemsSucceeded++
	}
}

func (o *Orchestrator) processItem(ctx context.Context, item *source.Item, result *model.ProcessingResult, typeWeights map[string]float64) error {
	contextName := item.Context
	if contextName == "" {
		contextName = o.defaultContext
	}

	entities := o.extractor.Extract(ctx, normalizeContent(item.Content), contextName)
	for _, entity := range entities {
		typeWeights[entity.Type] += entity.Confidence
	}

	relationships := o.extractor.DeriveRelationships(entities)

	report, err := o.upserter.Upsert(ctx, entities, relationships)
	if err != nil {
		return err
	}

	result.EntitiesCreated += report.NodesCreated
	result.RelationshipsCreated += report.EdgesCreated
	result.Errors = append(result.Errors, report.Errors...)
	for _, skipped := range report.SkippedEdges {
		result.AddError(
			fmt.Sprintf("%s-[%s]->%s", skipped.SourceID, skipped.Type, skipped.TargetID),
			skipped.Reason,
			true,
		)
	}

	return nil
}

// runInference selects the most relevant domain configurations by
// confidence-weighted entity-type overlap and runs their rules
func (o *Orchestrator) runInference(ctx context.Context, result *model.ProcessingResult, typeWeights map[string]float64) {
	if o.inferencer == nil || o.schema == nil || len(o.schema.Domains) == 0 {
		return
	}

	for _, domain := range o.selectDomains(typeWeights) {
		report := o.inferencer.RunRules(ctx, domain.Rules)
		result.RelationshipsCreated += report.EdgesCreated
		result.Errors = append(result.Errors, report.Errors...)

		o.log.Info("Inference finished for domain",
			slog.String("domain", domain.Name),
			slog.Int("rules_run", report.RulesRun),
			slog.Int("rules_failed", report.RulesFailed),
			slog.Int("edges_created", report.EdgesCreated))
	}
}

// selectDomains scores every domain configuration by the summed confidence
// weight of its declared entity types over this run's extractions. All
// domains sharing the best positive score are selected; when several tie
// and one declares itself default, only the default runs. With no overlap
// at all, the declared default configurations run.
func (o *Orchestrator) selectDomains(typeWeights map[string]float64) []model.DomainConfig {
	var best float64
	scores := make([]float64, len(o.schema.Domains))
	for i, domain := range o.schema.Domains {
		for _, entityType := range domain.EntityTypes {
			scores[i] += typeWeights[entityType]
		}
		if scores[i] > best {
			best = scores[i]
		}
	}

	var selected []model.DomainConfig
	if best > 0 {
		for i, domain := range o.schema.Domains {
			if scores[i] == best {
				selected = append(selected, domain)
			}
		}
		if len(selected) > 1 {
			for _, domain := range selected {
				if domain.Default {
					return []model.DomainConfig{domain}
				}
			}
		}
		return selected
	}

	for _, domain := range o.schema.Domains {
		if domain.Default {
			selected = append(selected, domain)
		}
	}
	return selected
}

// normalizeContent maps raw item content into the canonical shape fed to
// extraction
func normalizeContent(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
}
