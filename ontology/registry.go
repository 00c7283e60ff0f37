package ontology

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// ValidationError reports why a declaration or one of its parts was rejected
type ValidationError struct {
	Declaration string
	Field       string
	Message     string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("declaration %q: %s", e.Declaration, e.Message)
	}
	return fmt.Sprintf("declaration %q, %s: %s", e.Declaration, e.Field, e.Message)
}

// Registry loads domain declarations and builds the canonical schema.
// Every load builds a fresh, immutable schema value; nothing is merged into
// previously returned schemas, so removing a domain and reloading fully
// drops its types.
type Registry struct {
	log *slog.Logger
}

// NewRegistry creates a new schema registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{log: logger}
}

// LoadDirectory parses every .yaml/.yml file in a directory as one domain
// declaration and loads them in lexical file order
func (r *Registry) LoadDirectory(path string) (*model.OntologySchema, []ValidationError) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return emptySchema(), []ValidationError{{Declaration: path, Message: err.Error()}}
	}

	var decls []Declaration
	var errs []ValidationError
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		decl, err := ParseDeclarationFile(filepath.Join(path, entry.Name()))
		if err != nil {
			errs = append(errs, ValidationError{Declaration: entry.Name(), Message: err.Error()})
			r.log.Warn("Rejected unparseable declaration file", slog.String("file", entry.Name()), slog.String("error", err.Error()))
			continue
		}
		decls = append(decls, *decl)
	}

	schema, loadErrs := r.LoadDeclarations(decls)
	return schema, append(errs, loadErrs...)
}

// LoadDeclarations validates and merges domain declarations into one
// canonical schema. A declaration that fails validation is rejected whole
// and reported, but does not abort loading of the others. When two accepted
// declarations define the same type name, the later one wins; this is the
// re-registration contract used by hot-swap style reloads.
func (r *Registry) LoadDeclarations(decls []Declaration) (*model.OntologySchema, []ValidationError) {
	schema := emptySchema()
	var errs []ValidationError
	var names []string

	for _, decl := range decls {
		declErrs := r.validate(decl)
		if len(declErrs) > 0 {
			errs = append(errs, declErrs...)
			r.log.Warn("Rejected invalid declaration",
				slog.String("declaration", decl.Name),
				slog.Int("errors", len(declErrs)))
			continue
		}

		entityTypes := make([]string, 0, len(decl.Entities))
		for _, e := range decl.Entities {
			schema.Entities[e.Name] = canonicalEntity(e)
			entityTypes = append(entityTypes, e.Name)
		}
		for _, rel := range decl.Relationships {
			schema.Relationships[rel.Name] = canonicalRelationship(rel)
		}

		domain := model.DomainConfig{
			Name:        decl.Name,
			Default:     decl.Default,
			EntityTypes: entityTypes,
			Rules:       r.parseRules(decl),
		}
		schema.Domains = append(schema.Domains, domain)
		names = append(names, decl.Name)

		r.log.Info("Loaded declaration",
			slog.String("declaration", decl.Name),
			slog.Int("entities", len(decl.Entities)),
			slog.Int("relationships", len(decl.Relationships)))
	}

	schema.Name = strings.Join(names, "+")
	errs = append(errs, r.checkHierarchies(schema)...)
	r.checkReferences(schema)

	return schema, errs
}

// validate checks one declaration in isolation; any error rejects the whole
// declaration
func (r *Registry) validate(decl Declaration) []ValidationError {
	var errs []ValidationError

	if decl.Name == "" {
		errs = append(errs, ValidationError{Declaration: decl.Name, Field: "name", Message: "declaration name is required"})
	}

	seen := map[string]bool{}
	for _, e := range decl.Entities {
		if e.Name == "" {
			errs = append(errs, ValidationError{Declaration: decl.Name, Field: "entities", Message: "entity type name is required"})
			continue
		}
		seen[e.Name] = true
		for propName, prop := range e.Properties {
			if prop.Type == "" {
				errs = append(errs, ValidationError{
					Declaration: decl.Name,
					Field:       fmt.Sprintf("entities.%s.properties.%s", e.Name, propName),
					Message:     "property type is required",
				})
			}
		}
		for _, key := range e.KeyProperties {
			if _, ok := e.Properties[key]; !ok {
				errs = append(errs, ValidationError{
					Declaration: decl.Name,
					Field:       fmt.Sprintf("entities.%s.keyProperties", e.Name),
					Message:     fmt.Sprintf("key property %q is not a declared property", key),
				})
			}
		}
	}

	// Parent cycles within the declaration must be caught here so the
	// hierarchy walk can never loop
	parents := map[string]string{}
	for _, e := range decl.Entities {
		parents[e.Name] = e.Parent
	}
	for _, e := range decl.Entities {
		visited := map[string]bool{}
		current := e.Name
		for current != "" {
			if visited[current] {
				errs = append(errs, ValidationError{
					Declaration: decl.Name,
					Field:       fmt.Sprintf("entities.%s.parent", e.Name),
					Message:     fmt.Sprintf("cycle in parent hierarchy at %q", current),
				})
				break
			}
			visited[current] = true
			current = parents[current]
		}
	}

	for _, rel := range decl.Relationships {
		if rel.Name == "" {
			errs = append(errs, ValidationError{Declaration: decl.Name, Field: "relationships", Message: "relationship type name is required"})
			continue
		}
		if len(rel.domains()) == 0 {
			errs = append(errs, ValidationError{
				Declaration: decl.Name,
				Field:       fmt.Sprintf("relationships.%s", rel.Name),
				Message:     "domain (or source) is required",
			})
		}
		if len(rel.ranges()) == 0 {
			errs = append(errs, ValidationError{
				Declaration: decl.Name,
				Field:       fmt.Sprintf("relationships.%s", rel.Name),
				Message:     "range (or target) is required",
			})
		}
	}

	return errs
}

// parseRules converts the advancedRelationships block into inference rules,
// skipping and logging rules that fail their own validation (fail-soft per
// rule, the rest of the declaration still loads)
func (r *Registry) parseRules(decl Declaration) []model.InferenceRule {
	if decl.Advanced == nil {
		return nil
	}

	var rules []model.InferenceRule

	for _, t := range decl.Advanced.Temporal {
		if t.EntityType == "" || t.RelationshipType == "" {
			r.log.Warn("Skipping invalid temporal rule", slog.String("declaration", decl.Name))
			continue
		}
		rule := t
		if rule.Confidence <= 0 {
			rule.Confidence = 0.7
		}
		rules = append(rules, model.InferenceRule{Kind: model.RuleKindTemporal, Temporal: &rule})
	}

	for _, h := range decl.Advanced.Hierarchical {
		if h.ParentType == "" || h.ChildType == "" || h.RelationshipType == "" {
			r.log.Warn("Skipping invalid hierarchical rule", slog.String("declaration", decl.Name))
			continue
		}
		rule := h
		if rule.MaxDepth <= 0 {
			rule.MaxDepth = 3
		}
		rules = append(rules, model.InferenceRule{Kind: model.RuleKindHierarchical, Hierarchical: &rule})
	}

	for _, s := range decl.Advanced.Similarity {
		if s.EntityType == "" || len(s.Factors) == 0 || s.Threshold <= 0 {
			r.log.Warn("Skipping invalid similarity rule", slog.String("declaration", decl.Name))
			continue
		}
		rule := s
		rules = append(rules, model.InferenceRule{Kind: model.RuleKindSimilarity, Similarity: &rule})
	}

	for _, c := range decl.Advanced.Complex {
		if c.Name == "" || c.Query == "" {
			r.log.Warn("Skipping invalid complex rule", slog.String("declaration", decl.Name))
			continue
		}
		rule := c
		if rule.Confidence <= 0 {
			rule.Confidence = 0.5
		}
		rules = append(rules, model.InferenceRule{Kind: model.RuleKindComplex, Complex: &rule})
	}

	return rules
}

// checkHierarchies detects parent cycles that only appear after merging
// declarations; the offending parent pointer is cleared so the schema stays
// walkable
func (r *Registry) checkHierarchies(schema *model.OntologySchema) []ValidationError {
	var errs []ValidationError
	for name := range schema.Entities {
		if _, err := schema.LabelHierarchy(name); err != nil {
			errs = append(errs, ValidationError{
				Declaration: schema.Name,
				Field:       fmt.Sprintf("entities.%s.parent", name),
				Message:     err.Error(),
			})
			def := schema.Entities[name]
			def.Parent = ""
			schema.Entities[name] = def
			r.log.Warn("Cleared cyclic parent pointer", slog.String("entity_type", name))
		}
	}
	return errs
}

// checkReferences logs a warning for every relationship endpoint that
// references an undeclared entity type. These are non-fatal; the
// relationship stays in the schema.
func (r *Registry) checkReferences(schema *model.OntologySchema) {
	for name, rel := range schema.Relationships {
		for _, endpoint := range append(append([]string{}, rel.Domains...), rel.Ranges...) {
			if _, ok := schema.Entities[endpoint]; !ok {
				r.log.Warn("Relationship references undeclared entity type",
					slog.String("relationship_type", name),
					slog.String("entity_type", endpoint))
			}
		}
	}
}

func canonicalEntity(e entityDecl) model.EntityDefinition {
	def := model.EntityDefinition{
		Type:          e.Name,
		Description:   e.Description.Text,
		Parent:        e.Parent,
		Values:        e.Values,
		KeyProperties: e.KeyProperties,
		VectorIndex:   e.VectorIndex,
	}
	if len(e.Properties) > 0 {
		def.Properties = make(map[string]model.PropertyDefinition, len(e.Properties))
		for name, prop := range e.Properties {
			def.Properties[name] = model.PropertyDefinition{
				Type:        prop.Type,
				Description: prop.Description.Text,
			}
		}
	}
	if e.Enrichment != nil && e.Enrichment.Service != "" {
		def.Enrichment = &model.EnrichmentConfig{
			Service:         e.Enrichment.Service,
			AllowProperties: e.Enrichment.AllowProperties,
		}
	}
	return def
}

func canonicalRelationship(rel relationshipDecl) model.RelationshipDefinition {
	return model.RelationshipDefinition{
		Type:        rel.Name,
		Domains:     rel.domains(),
		Ranges:      rel.ranges(),
		Description: rel.Description.Text,
	}
}

func emptySchema() *model.OntologySchema {
	return &model.OntologySchema{
		Entities:      map[string]model.EntityDefinition{},
		Relationships: map[string]model.RelationshipDefinition{},
	}
}
