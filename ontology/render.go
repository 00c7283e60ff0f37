package ontology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kohr2/dashboard-killer-graph-sub002/model"
)

// RenderSchema produces a compact, human-readable listing of the schema's
// entity and relationship types with their descriptions. The chat collaborator
// feeds this rendering to its query translator.
func RenderSchema(schema *model.OntologySchema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ontology: %s\n", schema.Name)

	b.WriteString("\nEntities:\n")
	for _, name := range sortedKeys(schema.Entities) {
		def := schema.Entities[name]
		fmt.Fprintf(&b, "  %s", name)
		if def.Parent != "" {
			fmt.Fprintf(&b, " (extends %s)", def.Parent)
		}
		if def.IsPropertyType() {
			fmt.Fprintf(&b, " [values: %s]", strings.Join(def.Values, ", "))
		}
		if def.Description != "" {
			fmt.Fprintf(&b, ": %s", def.Description)
		}
		b.WriteString("\n")
		if len(def.KeyProperties) > 0 {
			fmt.Fprintf(&b, "    key properties: %s\n", strings.Join(def.KeyProperties, ", "))
		}
	}

	b.WriteString("\nRelationships:\n")
	for _, name := range sortedKeys(schema.Relationships) {
		rel := schema.Relationships[name]
		fmt.Fprintf(&b, "  %s: %s -> %s",
			name,
			strings.Join(rel.Domains, "|"),
			strings.Join(rel.Ranges, "|"))
		if rel.Description != "" {
			fmt.Fprintf(&b, " (%s)", rel.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
