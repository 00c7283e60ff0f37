package inference

import (
	"context"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// SimilarEdgeType is the relationship type of inferred similarity edges
const SimilarEdgeType = "SIMILAR_TO"

// deriveSimilarity scores all distinct pairs of the rule's entity type by
// exact-match comparison over the weighted factor list and links pairs at
// or above the threshold. Pairs that already carry a similarity edge are
// left untouched.
func (e *Engine) deriveSimilarity(ctx context.Context, rule *model.SimilarityRule) ([]*model.Edge, error) {
	nodes, err := e.nodes.SelectNodesByLabel(rule.EntityType, 0)
	if err != nil {
		return nil, err
	}
	if len(nodes) < 2 || len(rule.Factors) == 0 {
		return nil, nil
	}

	var totalWeight float64
	for _, factor := range rule.Factors {
		totalWeight += factor.Weight
	}
	if totalWeight <= 0 {
		return nil, nil
	}

	var edges []*model.Edge
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			// Deterministic direction keeps re-runs idempotent
			source, target := nodes[i], nodes[j]
			if target.Identity < source.Identity {
				source, target = target, source
			}

			score, matched := factorScore(source, target, rule.Factors)
			if score/totalWeight < rule.Threshold {
				continue
			}

			exists, err := e.edges.EdgeExists(source.Identity, SimilarEdgeType, target.Identity)
			if err != nil {
				return nil, err
			}
			if exists {
				continue
			}

			factors := make([]model.Value, 0, len(matched))
			for _, name := range matched {
				factors = append(factors, model.String(name))
			}

			properties := model.NewProperties()
			properties.Set("score", model.Number(score/totalWeight))
			properties.Set("factors", model.ListOf(factors...))
			properties.Set("inferred", model.Boolean(true))

			edges = append(edges, &model.Edge{
				SourceID:   source.Identity,
				TargetID:   target.Identity,
				Type:       SimilarEdgeType,
				Confidence: score / totalWeight,
				Properties: properties,
			})
		}
	}

	return edges, nil
}

// factorScore sums the weights of factors whose property values match
// exactly on both nodes and returns the contributing factor names
func factorScore(a *model.Node, b *model.Node, factors []model.WeightedFactor) (float64, []string) {
	var score float64
	var matched []string

	for _, factor := range factors {
		valueA, okA := a.Properties.Get(factor.Property)
		valueB, okB := b.Properties.Get(factor.Property)
		if !okA || !okB {
			continue
		}
		if valueA.Equal(valueB) {
			score += factor.Weight
			matched = append(matched, factor.Property)
		}
	}

	return score, matched
}
