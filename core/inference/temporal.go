package inference

import (
	"context"
	"sort"
	"time"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// timestampKeys are the node property names probed for a temporal marker,
// first match wins
var timestampKeys = []string{"date", "timestamp", "startDate", "time", "created"}

// timestampLayouts are the accepted formats, tried in order
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type timestampedNode struct {
	node *model.Node
	at   time.Time
}

// deriveTemporal orders all timestamped entities of the rule's type and
// emits a sequence edge between each consecutive pair inside the configured
// window. Fewer than two timestamped entities produce no edges.
func (e *Engine) deriveTemporal(ctx context.Context, rule *model.TemporalRule) ([]*model.Edge, error) {
	nodes, err := e.nodes.SelectNodesByLabel(rule.EntityType, 0)
	if err != nil {
		return nil, err
	}

	var timestamped []timestampedNode
	for _, node := range nodes {
		at, ok := nodeTimestamp(node)
		if !ok {
			continue
		}
		timestamped = append(timestamped, timestampedNode{node: node, at: at})
	}

	if len(timestamped) < 2 {
		return nil, nil
	}

	sort.Slice(timestamped, func(i, j int) bool {
		if timestamped[i].at.Equal(timestamped[j].at) {
			return timestamped[i].node.Identity < timestamped[j].node.Identity
		}
		return timestamped[i].at.Before(timestamped[j].at)
	})

	window := time.Duration(rule.WindowDays) * 24 * time.Hour

	var edges []*model.Edge
	for i := 0; i+1 < len(timestamped); i++ {
		earlier, later := timestamped[i], timestamped[i+1]
		delta := later.at.Sub(earlier.at)
		if window > 0 && delta > window {
			continue
		}

		properties := model.NewProperties()
		properties.Set("startDate", model.String(earlier.at.Format(time.RFC3339)))
		properties.Set("endDate", model.String(later.at.Format(time.RFC3339)))
		properties.Set("durationHours", model.Number(delta.Hours()))
		properties.Set("inferred", model.Boolean(true))

		edges = append(edges, &model.Edge{
			SourceID:   earlier.node.Identity,
			TargetID:   later.node.Identity,
			Type:       rule.RelationshipType,
			Confidence: rule.Confidence,
			Properties: properties,
		})
	}

	return edges, nil
}

// nodeTimestamp extracts the temporal marker of a node from its properties
func nodeTimestamp(node *model.Node) (time.Time, bool) {
	for _, key := range timestampKeys {
		value, ok := node.Properties.Get(key)
		if !ok {
			continue
		}
		raw, ok := value.Interface().(string)
		if !ok {
			continue
		}
		for _, layout := range timestampLayouts {
			if at, err := time.Parse(layout, raw); err == nil {
				return at, true
			}
		}
	}
	return time.Time{}, false
}
