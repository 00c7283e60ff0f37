package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/kohr2/dashboard-killer-graph-sub002/helper"
)

// defaultLabelTypes maps the BIO-normalized NER labels of bert-base-NER to
// ontology entity type names
var defaultLabelTypes = map[string]string{
	"PER":  "Person",
	"ORG":  "Organization",
	"LOC":  "Location",
	"MISC": "Miscellaneous",
}

// ModelDetector runs a token-classification NER model through hugot. Each
// detector owns its pipeline; invocations are independent calls whose
// results carry positions, so aggregation does not depend on call order.
type ModelDetector struct {
	source     string
	pipeline   *pipelines.TokenClassificationPipeline
	labelTypes map[string]string
}

// NewModelDetector creates a model-backed detector, downloading the model
// if needed. labelTypes maps model labels to ontology entity types; nil
// uses the bert-base-NER defaults.
func NewModelDetector(source string, modelName string, labelTypes map[string]string) (*ModelDetector, error) {
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      fmt.Sprintf("%s-pipeline", source),
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	if labelTypes == nil {
		labelTypes = defaultLabelTypes
	}

	return &ModelDetector{
		source:     source,
		pipeline:   nerPipeline,
		labelTypes: labelTypes,
	}, nil
}

// Source returns the detector's provenance name
func (d *ModelDetector) Source() string {
	return d.source
}

// Detect runs NER on the text and converts the model output to findings
func (d *ModelDetector) Detect(_ context.Context, text string, threshold float64) ([]Finding, error) {
	result, err := d.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}

	if len(result.Entities) == 0 {
		return nil, nil
	}

	var findings []Finding
	for _, entity := range result.Entities[0] {
		entityType, ok := d.labelTypes[normalizeLabel(entity.Entity)]
		if !ok {
			continue
		}
		if float64(entity.Score) < threshold {
			continue
		}

		findings = append(findings, Finding{
			Text:       strings.TrimSpace(entity.Word),
			Type:       entityType,
			Confidence: float64(entity.Score),
			Start:      int(entity.Start),
			End:        int(entity.End),
		})
	}

	return findings, nil
}

// normalizeLabel removes BIO tagging prefixes (B- for beginning, I- for inside)
func normalizeLabel(label string) string {
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
