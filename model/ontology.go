package model

import "fmt"

// PropertyDefinition describes a single declared property of an entity type
type PropertyDefinition struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// EnrichmentConfig references an external enrichment collaborator for an
// entity type. AllowProperties is the explicit allow-list of property keys
// the aggregator may merge back from the collaborator.
type EnrichmentConfig struct {
	Service         string   `json:"service"`
	AllowProperties []string `json:"allowProperties,omitempty"`
}

// EntityDefinition is the canonical declaration of one entity type
type EntityDefinition struct {
	Type          string                        `json:"type"`
	Description   string                        `json:"description,omitempty"`
	Parent        string                        `json:"parent,omitempty"`
	Values        []string                      `json:"values,omitempty"`
	Properties    map[string]PropertyDefinition `json:"properties,omitempty"`
	KeyProperties []string                      `json:"keyProperties,omitempty"`
	VectorIndex   bool                          `json:"vectorIndex,omitempty"`
	Enrichment    *EnrichmentConfig             `json:"enrichment,omitempty"`
}

// IsPropertyType reports whether the type is enum-like and therefore
// excluded from graph materialization
func (d EntityDefinition) IsPropertyType() bool {
	return len(d.Values) > 0
}

// RelationshipDefinition is the canonical declaration of one relationship
// type. Domains and Ranges always hold at least one entity type name after
// normalization, regardless of which authoring dialect declared them.
type RelationshipDefinition struct {
	Type        string   `json:"type"`
	Domains     []string `json:"domains"`
	Ranges      []string `json:"ranges"`
	Description string   `json:"description,omitempty"`
}

// OntologySchema is the canonical, merged schema built from all accepted
// domain declarations. It is immutable after load; reloading produces a
// fresh value rather than mutating this one.
type OntologySchema struct {
	Name          string
	Entities      map[string]EntityDefinition
	Relationships map[string]RelationshipDefinition
	Domains       []DomainConfig
}

// DomainConfig holds the per-domain inference configuration attached to one
// accepted declaration
type DomainConfig struct {
	Name        string
	Default     bool
	EntityTypes []string
	Rules       []InferenceRule
}

// EntityTypes returns the names of all declared entity types
func (s *OntologySchema) EntityTypes() []string {
	types := make([]string, 0, len(s.Entities))
	for name := range s.Entities {
		types = append(types, name)
	}
	return types
}

// RelationshipTypes returns the names of all declared relationship types
func (s *OntologySchema) RelationshipTypes() []string {
	types := make([]string, 0, len(s.Relationships))
	for name := range s.Relationships {
		types = append(types, name)
	}
	return types
}

// PropertyTypes returns the entity types that are enum-like and excluded
// from default graph materialization
func (s *OntologySchema) PropertyTypes() []string {
	var types []string
	for name, def := range s.Entities {
		if def.IsPropertyType() {
			types = append(types, name)
		}
	}
	return types
}

// VectorIndexedTypes returns the entity types flagged for vector-similarity
// indexing
func (s *OntologySchema) VectorIndexedTypes() []string {
	var types []string
	for name, def := range s.Entities {
		if def.VectorIndex {
			types = append(types, name)
		}
	}
	return types
}

// LabelHierarchy resolves the full label hierarchy of a type by walking
// parent pointers, starting with the type itself. A cycle in the parent
// pointers returns an error instead of looping.
func (s *OntologySchema) LabelHierarchy(entityType string) ([]string, error) {
	var labels []string
	visited := map[string]bool{}

	current := entityType
	for current != "" {
		if visited[current] {
			return nil, fmt.Errorf("cycle detected in parent hierarchy at %q", current)
		}
		visited[current] = true
		labels = append(labels, current)

		def, ok := s.Entities[current]
		if !ok {
			break
		}
		current = def.Parent
	}

	return labels, nil
}

// KeyProperties returns the ordered key properties declared for a type, or
// an empty list if the type or its key properties are undeclared
func (s *OntologySchema) KeyProperties(entityType string) []string {
	def, ok := s.Entities[entityType]
	if !ok || len(def.KeyProperties) == 0 {
		return []string{}
	}
	keys := make([]string, len(def.KeyProperties))
	copy(keys, def.KeyProperties)
	return keys
}
