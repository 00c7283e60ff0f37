package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEntityName(t *testing.T) {
	t.Run("Lowercases", func(t *testing.T) {
		assert.Equal(t, "acme corp", NormalizeEntityName("ACME CORP"))
	})

	t.Run("Collapses internal whitespace", func(t *testing.T) {
		assert.Equal(t, "acme corp", NormalizeEntityName("  Acme \t Corp  "))
	})
}

func TestEntityIdentity(t *testing.T) {
	t.Run("Identity is stable across casings", func(t *testing.T) {
		a := EntityIdentity("Organization", "Acme Corp")
		b := EntityIdentity("Organization", "ACME CORP")
		assert.Equal(t, a, b)
	})

	t.Run("Identity differs across types", func(t *testing.T) {
		a := EntityIdentity("Organization", "Mercury")
		b := EntityIdentity("Planet", "Mercury")
		assert.NotEqual(t, a, b)
	})

	t.Run("Entity method matches the derivation", func(t *testing.T) {
		entity := ExtractedEntity{Type: "Person", Name: "Jane  DOE"}
		assert.Equal(t, EntityIdentity("Person", "jane doe"), entity.Identity())
	})
}
