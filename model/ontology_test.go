package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hierarchyTestSchema() *OntologySchema {
	return &OntologySchema{
		Name: "test",
		Entities: map[string]EntityDefinition{
			"Thing":        {Type: "Thing"},
			"LegalEntity":  {Type: "LegalEntity"},
			"Organization": {Type: "Organization", Parent: "LegalEntity"},
			"Bank":         {Type: "Bank", Parent: "Organization"},
			"Priority":     {Type: "Priority", Values: []string{"low", "high"}},
			"Account":      {Type: "Account", VectorIndex: true, KeyProperties: []string{"iban", "bic"}},
		},
	}
}

func TestOntologySchema_LabelHierarchy(t *testing.T) {
	schema := hierarchyTestSchema()

	t.Run("Type without parent resolves to itself", func(t *testing.T) {
		labels, err := schema.LabelHierarchy("LegalEntity")
		require.NoError(t, err)
		assert.Equal(t, []string{"LegalEntity"}, labels)
	})

	t.Run("Parent chain resolves in order", func(t *testing.T) {
		labels, err := schema.LabelHierarchy("Bank")
		require.NoError(t, err)
		assert.Equal(t, []string{"Bank", "Organization", "LegalEntity"}, labels)
	})

	t.Run("Undeclared type resolves to itself", func(t *testing.T) {
		labels, err := schema.LabelHierarchy("Unknown")
		require.NoError(t, err)
		assert.Equal(t, []string{"Unknown"}, labels)
	})

	t.Run("Cycle is an error, not an infinite loop", func(t *testing.T) {
		cyclic := &OntologySchema{
			Entities: map[string]EntityDefinition{
				"A": {Type: "A", Parent: "B"},
				"B": {Type: "B", Parent: "A"},
			},
		}
		_, err := cyclic.LabelHierarchy("A")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("Self-referential parent is an error", func(t *testing.T) {
		cyclic := &OntologySchema{
			Entities: map[string]EntityDefinition{
				"A": {Type: "A", Parent: "A"},
			},
		}
		_, err := cyclic.LabelHierarchy("A")
		assert.Error(t, err)
	})
}

func TestOntologySchema_Accessors(t *testing.T) {
	schema := hierarchyTestSchema()

	t.Run("PropertyTypes lists enum-like types", func(t *testing.T) {
		assert.Equal(t, []string{"Priority"}, schema.PropertyTypes())
	})

	t.Run("VectorIndexedTypes lists flagged types", func(t *testing.T) {
		assert.Equal(t, []string{"Account"}, schema.VectorIndexedTypes())
	})

	t.Run("KeyProperties returns declared order", func(t *testing.T) {
		assert.Equal(t, []string{"iban", "bic"}, schema.KeyProperties("Account"))
	})

	t.Run("KeyProperties of undeclared type is empty", func(t *testing.T) {
		assert.Empty(t, schema.KeyProperties("Unknown"))
	})

	t.Run("EntityTypes lists every declared type", func(t *testing.T) {
		assert.Len(t, schema.EntityTypes(), 6)
	})
}

func TestEntityDefinition_IsPropertyType(t *testing.T) {
	assert.True(t, EntityDefinition{Values: []string{"a"}}.IsPropertyType())
	assert.False(t, EntityDefinition{}.IsPropertyType())
}
