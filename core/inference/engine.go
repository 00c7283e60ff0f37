package inference

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// NodeStore provides read access to persisted nodes
type NodeStore interface {
	SelectNode(identity string) (*model.Node, error)
	SelectNodesByLabel(label string, limit int) ([]*model.Node, error)
}

// EdgeStore provides read access to persisted edges
type EdgeStore interface {
	SelectEdgesFromNode(identity string, edgeType *string) ([]*model.Edge, error)
	EdgeExists(source string, edgeType string, target string) (bool, error)
}

// EdgeWriter persists inferred edges through the idempotent merge contract
type EdgeWriter interface {
	MergeEdges(ctx context.Context, edges []*model.Edge) (*model.UpsertReport, error)
}

// QueryRunner executes declarative read queries with bound parameters.
// Complex rules use it; *sql.DB satisfies it.
type QueryRunner interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// RunReport summarizes one inference pass over a rule set
type RunReport struct {
	RulesRun     int               `json:"rules_run"`
	RulesFailed  int               `json:"rules_failed"`
	EdgesCreated int               `json:"edges_created"`
	EdgesUpdated int               `json:"edges_updated"`
	Errors       []model.ItemError `json:"errors,omitempty"`
}

// Engine derives additional edges from already-persisted graph state. Rules
// run in a fixed family order so later families can read edges produced by
// earlier ones; a single rule's failure is logged and skipped.
type Engine struct {
	nodes   NodeStore
	edges   EdgeStore
	writer  EdgeWriter
	queries QueryRunner
	log     *slog.Logger
}

// NewEngine creates an inference engine over the given stores. queries may
// be nil when no complex rules are configured.
func NewEngine(nodes NodeStore, edges EdgeStore, writer EdgeWriter, queries QueryRunner, logger *slog.Logger) (*Engine, error) {
	if nodes == nil || edges == nil || writer == nil {
		return nil, fmt.Errorf("node store, edge store and edge writer are required")
	}
	return &Engine{
		nodes:   nodes,
		edges:   edges,
		writer:  writer,
		queries: queries,
		log:     logger,
	}, nil
}

// RunRules executes all rules grouped by family in the order
// temporal, hierarchical, similarity, complex. Re-running the same rules
// does not duplicate edges.
func (e *Engine) RunRules(ctx context.Context, rules []model.InferenceRule) *RunReport {
	report := &RunReport{}

	for _, kind := range []model.RuleKind{
		model.RuleKindTemporal,
		model.RuleKindHierarchical,
		model.RuleKindSimilarity,
		model.RuleKindComplex,
	} {
		for _, rule := range rules {
			if rule.Kind != kind {
				continue
			}
			e.runRule(ctx, rule, report)
		}
	}

	return report
}

func (e *Engine) runRule(ctx context.Context, rule model.InferenceRule, report *RunReport) {
	report.RulesRun++

	edges, err := e.deriveEdges(ctx, rule)
	if err != nil {
		report.RulesFailed++
		report.Errors = append(report.Errors, model.ItemError{
			ItemID:      ruleID(rule),
			Message:     err.Error(),
			Recoverable: true,
			Timestamp:   time.Now(),
		})
		e.log.Warn("Inference rule failed, skipping",
			slog.String("rule", ruleID(rule)),
			slog.String("error", err.Error()))
		return
	}

	if len(edges) == 0 {
		return
	}

	mergeReport, err := e.writer.MergeEdges(ctx, edges)
	if err != nil {
		report.RulesFailed++
		report.Errors = append(report.Errors, model.ItemError{
			ItemID:      ruleID(rule),
			Message:     err.Error(),
			Recoverable: true,
			Timestamp:   time.Now(),
		})
		return
	}

	report.EdgesCreated += mergeReport.EdgesCreated
	report.EdgesUpdated += mergeReport.EdgesUpdated
	report.Errors = append(report.Errors, mergeReport.Errors...)

	e.log.Info("Inference rule applied",
		slog.String("rule", ruleID(rule)),
		slog.Int("edges_created", mergeReport.EdgesCreated),
		slog.Int("edges_updated", mergeReport.EdgesUpdated))
}

func (e *Engine) deriveEdges(ctx context.Context, rule model.InferenceRule) ([]*model.Edge, error) {
	switch rule.Kind {
	case model.RuleKindTemporal:
		if rule.Temporal == nil {
			return nil, fmt.Errorf("temporal rule has no configuration")
		}
		return e.deriveTemporal(ctx, rule.Temporal)
	case model.RuleKindHierarchical:
		if rule.Hierarchical == nil {
			return nil, fmt.Errorf("hierarchical rule has no configuration")
		}
		return e.deriveHierarchical(ctx, rule.Hierarchical)
	case model.RuleKindSimilarity:
		if rule.Similarity == nil {
			return nil, fmt.Errorf("similarity rule has no configuration")
		}
		return e.deriveSimilarity(ctx, rule.Similarity)
	case model.RuleKindComplex:
		if rule.Complex == nil {
			return nil, fmt.Errorf("complex rule has no configuration")
		}
		return e.deriveComplex(ctx, rule.Complex)
	default:
		return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func ruleID(rule model.InferenceRule) string {
	switch rule.Kind {
	case model.RuleKindTemporal:
		if rule.Temporal != nil {
			return fmt.Sprintf("temporal/%s", rule.Temporal.EntityType)
		}
	case model.RuleKindHierarchical:
		if rule.Hierarchical != nil {
			return fmt.Sprintf("hierarchical/%s->%s", rule.Hierarchical.ChildType, rule.Hierarchical.ParentType)
		}
	case model.RuleKindSimilarity:
		if rule.Similarity != nil {
			return fmt.Sprintf("similarity/%s", rule.Similarity.EntityType)
		}
	case model.RuleKindComplex:
		if rule.Complex != nil {
			return fmt.Sprintf("complex/%s", rule.Complex.Name)
		}
	}
	return string(rule.Kind)
}
