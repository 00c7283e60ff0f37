package extraction

import (
	"context"
	"regexp"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// Finding is one raw detector hit before aggregation
type Finding struct {
	Text       string
	Type       string
	Confidence float64
	Start      int
	End        int
	Properties *model.Properties
}

// Detector produces raw findings from text. Implementations must be safe to
// call concurrently and must not mutate shared state.
type Detector interface {
	// Detect returns findings at or above the given confidence threshold
	Detect(ctx context.Context, text string, threshold float64) ([]Finding, error)
	// Source identifies the detector in entity provenance
	Source() string
}

// Pattern binds a compiled regular expression to an entity type with a
// fixed confidence
type Pattern struct {
	EntityType string
	Regexp     *regexp.Regexp
	Confidence float64
}

// PatternDetector matches a set of compiled patterns against the text
type PatternDetector struct {
	source   string
	patterns []Pattern
}

// NewPatternDetector creates a pattern detector with the given provenance
// source name
func NewPatternDetector(source string, patterns []Pattern) *PatternDetector {
	return &PatternDetector{
		source:   source,
		patterns: patterns,
	}
}

// Source returns the detector's provenance name
func (d *PatternDetector) Source() string {
	return d.source
}

// Detect runs every pattern against the text and returns one finding per
// match
func (d *PatternDetector) Detect(_ context.Context, text string, threshold float64) ([]Finding, error) {
	var findings []Finding
	for _, pattern := range d.patterns {
		if pattern.Confidence < threshold {
			continue
		}
		for _, loc := range pattern.Regexp.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Text:       text[loc[0]:loc[1]],
				Type:       pattern.EntityType,
				Confidence: pattern.Confidence,
				Start:      loc[0],
				End:        loc[1],
			})
		}
	}
	return findings, nil
}
