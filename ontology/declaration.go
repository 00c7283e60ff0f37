package ontology

import (
	"fmt"
	"os"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
	"gopkg.in/yaml.v3"
)

// Declaration is one parsed domain declaration document before validation.
// The YAML form tolerates two authoring dialects: entities and relationships
// may each be a keyed map or an array of named objects, and relationship
// endpoints may be declared as domain/range or source/target.
type Declaration struct {
	Name          string
	Default       bool
	Entities      []entityDecl
	Relationships []relationshipDecl
	Advanced      *advancedBlock
}

// UnmarshalYAML normalizes both authoring dialects into the internal shape
func (d *Declaration) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name                  string            `yaml:"name"`
		Default               bool              `yaml:"default"`
		Entities              entityBlock       `yaml:"entities"`
		Relationships         relationshipBlock `yaml:"relationships"`
		AdvancedRelationships *advancedBlock    `yaml:"advancedRelationships"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	d.Name = raw.Name
	d.Default = raw.Default
	d.Entities = raw.Entities.decls
	d.Relationships = raw.Relationships.decls
	d.Advanced = raw.AdvancedRelationships
	return nil
}

// ParseDeclaration parses one YAML declaration document
func ParseDeclaration(data []byte) (*Declaration, error) {
	var decl Declaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("failed to parse declaration: %w", err)
	}
	return &decl, nil
}

// ParseDeclarationFile parses a YAML declaration document from disk
func ParseDeclarationFile(path string) (*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file: %w", err)
	}
	return ParseDeclaration(data)
}

// textValue accepts either a plain string or a {text, attributes} structure
// (XML-derived sources use the latter) and projects it to a plain string
type textValue struct {
	Text string
}

func (t *textValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&t.Text)
	}

	var rich struct {
		Text string `yaml:"text"`
	}
	if err := node.Decode(&rich); err != nil {
		return err
	}
	t.Text = rich.Text
	return nil
}

// stringList accepts a single scalar or a sequence of scalars
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*l = stringList{single}
		return nil
	}

	var many []string
	if err := node.Decode(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

// propertyDecl accepts either a bare type string or a {type, description}
// object
type propertyDecl struct {
	Type        string
	Description textValue
}

func (p *propertyDecl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&p.Type)
	}

	var full struct {
		Type        string    `yaml:"type"`
		Description textValue `yaml:"description"`
	}
	if err := node.Decode(&full); err != nil {
		return err
	}
	p.Type = full.Type
	p.Description = full.Description
	return nil
}

type enrichmentDecl struct {
	Service         string   `yaml:"service"`
	AllowProperties []string `yaml:"allowProperties"`
}

type entityDecl struct {
	Name          string                  `yaml:"name"`
	Description   textValue               `yaml:"description"`
	Parent        string                  `yaml:"parent"`
	Values        []string                `yaml:"values"`
	Properties    map[string]propertyDecl `yaml:"properties"`
	KeyProperties []string                `yaml:"keyProperties"`
	VectorIndex   bool                    `yaml:"vectorIndex"`
	Enrichment    *enrichmentDecl         `yaml:"enrichment"`
}

// entityBlock accepts entities as a keyed map or an array of {name, ...}
// objects, normalizing both to an ordered list of named declarations
type entityBlock struct {
	decls []entityDecl
}

func (b *entityBlock) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		// Keyed map form: decode contents pairwise to keep author order
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name string
			if err := node.Content[i].Decode(&name); err != nil {
				return err
			}
			var decl entityDecl
			if err := node.Content[i+1].Decode(&decl); err != nil {
				return err
			}
			decl.Name = name
			b.decls = append(b.decls, decl)
		}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&b.decls)
	default:
		return fmt.Errorf("entities must be a map or an array, got yaml kind %d", node.Kind)
	}
}

type relationshipDecl struct {
	Name        string    `yaml:"name"`
	Description textValue `yaml:"description"`
	// domain/range dialect
	Domain stringList `yaml:"domain"`
	Range  stringList `yaml:"range"`
	// source/target dialect
	Source stringList `yaml:"source"`
	Target stringList `yaml:"target"`
}

// domains returns the declared source types regardless of dialect
func (r relationshipDecl) domains() []string {
	if len(r.Domain) > 0 {
		return r.Domain
	}
	return r.Source
}

// ranges returns the declared target types regardless of dialect
func (r relationshipDecl) ranges() []string {
	if len(r.Range) > 0 {
		return r.Range
	}
	return r.Target
}

// relationshipBlock accepts relationships as a keyed map or an array of
// {name, ...} objects
type relationshipBlock struct {
	decls []relationshipDecl
}

func (b *relationshipBlock) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name string
			if err := node.Content[i].Decode(&name); err != nil {
				return err
			}
			var decl relationshipDecl
			if err := node.Content[i+1].Decode(&decl); err != nil {
				return err
			}
			decl.Name = name
			b.decls = append(b.decls, decl)
		}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&b.decls)
	default:
		return fmt.Errorf("relationships must be a map or an array, got yaml kind %d", node.Kind)
	}
}

// advancedBlock declares the four inference-rule families for one domain
type advancedBlock struct {
	Temporal     []model.TemporalRule     `yaml:"temporal"`
	Hierarchical []model.HierarchicalRule `yaml:"hierarchical"`
	Similarity   []model.SimilarityRule   `yaml:"similarity"`
	Complex      []model.ComplexRule      `yaml:"complex"`
}
