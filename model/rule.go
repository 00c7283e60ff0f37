package model

// RuleKind identifies which inference rule family a rule belongs to
type RuleKind string

const (
	RuleKindTemporal     RuleKind = "temporal"
	RuleKindHierarchical RuleKind = "hierarchical"
	RuleKindSimilarity   RuleKind = "similarity"
	RuleKindComplex      RuleKind = "complex"
)

// WeightedFactor is one comparable property with its weight in a
// similarity computation
type WeightedFactor struct {
	Property string  `json:"property" yaml:"property"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// TemporalRule derives sequence edges between entities of one type from
// timestamped communication records referencing them
type TemporalRule struct {
	EntityType       string  `json:"entityType" yaml:"entityType"`
	RelationshipType string  `json:"relationshipType" yaml:"relationshipType"`
	Confidence       float64 `json:"confidence" yaml:"confidence"`
	WindowDays       int     `json:"windowDays" yaml:"windowDays"`
}

// HierarchicalRule materializes dedicated hierarchy edges between declared
// parent and child entity types linked by an existing relationship type
type HierarchicalRule struct {
	ParentType       string `json:"parentType" yaml:"parentType"`
	ChildType        string `json:"childType" yaml:"childType"`
	RelationshipType string `json:"relationshipType" yaml:"relationshipType"`
	MaxDepth         int    `json:"maxDepth" yaml:"maxDepth"`
}

// SimilarityRule links pairs of one entity type whose weighted exact-match
// factor score reaches the threshold
type SimilarityRule struct {
	EntityType string           `json:"entityType" yaml:"entityType"`
	Factors    []WeightedFactor `json:"factors" yaml:"factors"`
	Threshold  float64          `json:"threshold" yaml:"threshold"`
}

// ComplexRule executes a named, pre-validated declarative query and maps its
// result columns into a generic edge record
type ComplexRule struct {
	Name          string            `json:"name" yaml:"name"`
	Query         string            `json:"query" yaml:"query"`
	Parameters    map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ColumnMapping map[string]string `json:"columnMapping" yaml:"columnMapping"`
	Confidence    float64           `json:"confidence" yaml:"confidence"`
	Enabled       bool              `json:"enabled" yaml:"enabled"`
}

// InferenceRule is a tagged union over the four rule families. Exactly the
// variant selected by Kind is populated.
type InferenceRule struct {
	Kind         RuleKind          `json:"kind"`
	Temporal     *TemporalRule     `json:"temporal,omitempty"`
	Hierarchical *HierarchicalRule `json:"hierarchical,omitempty"`
	Similarity   *SimilarityRule   `json:"similarity,omitempty"`
	Complex      *ComplexRule      `json:"complex,omitempty"`
}
