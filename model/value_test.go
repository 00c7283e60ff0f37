package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_FromInterface(t *testing.T) {
	t.Run("String values", func(t *testing.T) {
		v := FromInterface("hello")
		assert.Equal(t, KindString, v.Kind)
		assert.Equal(t, "hello", v.Interface())
	})

	t.Run("Numeric values normalize to float64", func(t *testing.T) {
		assert.Equal(t, float64(42), FromInterface(42).Interface())
		assert.Equal(t, float64(42), FromInterface(int64(42)).Interface())
		assert.Equal(t, 4.2, FromInterface(4.2).Interface())
	})

	t.Run("Bool values", func(t *testing.T) {
		v := FromInterface(true)
		assert.Equal(t, KindBool, v.Kind)
		assert.Equal(t, true, v.Interface())
	})

	t.Run("List values", func(t *testing.T) {
		v := FromInterface([]interface{}{"a", 1})
		assert.Equal(t, KindList, v.Kind)
	})

	t.Run("Map values", func(t *testing.T) {
		v := FromInterface(map[string]interface{}{"k": "v"})
		assert.Equal(t, KindMap, v.Kind)
	})
}

func TestValue_Equal(t *testing.T) {
	t.Run("Equal scalars", func(t *testing.T) {
		assert.True(t, String("a").Equal(String("a")))
		assert.True(t, Number(1).Equal(Number(1)))
		assert.True(t, Boolean(true).Equal(Boolean(true)))
	})

	t.Run("Different kinds are never equal", func(t *testing.T) {
		assert.False(t, String("1").Equal(Number(1)))
	})

	t.Run("Different values are not equal", func(t *testing.T) {
		assert.False(t, String("a").Equal(String("b")))
	})

	t.Run("Lists compare element-wise", func(t *testing.T) {
		assert.True(t, ListOf(String("a"), Number(1)).Equal(ListOf(String("a"), Number(1))))
		assert.False(t, ListOf(String("a")).Equal(ListOf(String("b"))))
	})
}

func TestProperties_SetGet(t *testing.T) {
	t.Run("Set and get a value", func(t *testing.T) {
		p := NewProperties()
		p.Set("name", String("Acme"))

		v, ok := p.Get("name")
		require.True(t, ok)
		assert.Equal(t, "Acme", v.Interface())
	})

	t.Run("Get on missing key", func(t *testing.T) {
		p := NewProperties()
		_, ok := p.Get("missing")
		assert.False(t, ok)
	})

	t.Run("Get on nil properties", func(t *testing.T) {
		var p *Properties
		_, ok := p.Get("any")
		assert.False(t, ok)
		assert.Equal(t, 0, p.Len())
	})

	t.Run("Keys preserve insertion order", func(t *testing.T) {
		p := NewProperties()
		p.Set("b", String("1"))
		p.Set("a", String("2"))
		p.Set("c", String("3"))
		p.Set("a", String("4")) // overwrite keeps position

		assert.Equal(t, []string{"b", "a", "c"}, p.Keys())
	})
}

func TestProperties_Merge(t *testing.T) {
	t.Run("Later values win on collision", func(t *testing.T) {
		p := NewProperties()
		p.Set("sector", String("technology"))
		p.Set("city", String("Berlin"))

		other := NewProperties()
		other.Set("sector", String("finance"))
		other.Set("country", String("DE"))

		p.Merge(other)

		sector, _ := p.Get("sector")
		assert.Equal(t, "finance", sector.Interface())
		city, _ := p.Get("city")
		assert.Equal(t, "Berlin", city.Interface())
		country, _ := p.Get("country")
		assert.Equal(t, "DE", country.Interface())
	})

	t.Run("Merge nil is a no-op", func(t *testing.T) {
		p := NewProperties()
		p.Set("k", String("v"))
		p.Merge(nil)
		assert.Equal(t, 1, p.Len())
	})
}

func TestProperties_Clone(t *testing.T) {
	p := NewProperties()
	p.Set("k", String("v"))

	clone := p.Clone()
	clone.Set("k", String("changed"))
	clone.Set("extra", String("x"))

	v, _ := p.Get("k")
	assert.Equal(t, "v", v.Interface(), "Expected clone changes to not affect the original")
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestProperties_JSON(t *testing.T) {
	t.Run("Marshal preserves key order", func(t *testing.T) {
		p := NewProperties()
		p.Set("z", String("1"))
		p.Set("a", Number(2))
		p.Set("m", Boolean(true))

		bytes, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, `{"z":"1","a":2,"m":true}`, string(bytes))
	})

	t.Run("Unmarshal round-trips order and values", func(t *testing.T) {
		p := NewProperties()
		err := json.Unmarshal([]byte(`{"b":"x","a":1.5,"flag":false}`), p)
		require.NoError(t, err)

		assert.Equal(t, []string{"b", "a", "flag"}, p.Keys())
		a, _ := p.Get("a")
		assert.Equal(t, 1.5, a.Interface())
	})

	t.Run("Marshal empty properties", func(t *testing.T) {
		bytes, err := json.Marshal(NewProperties())
		require.NoError(t, err)
		assert.Equal(t, "{}", string(bytes))
	})
}

func TestProperties_SQLRoundTrip(t *testing.T) {
	p := NewProperties()
	p.Set("name", String("Acme"))
	p.Set("count", Number(3))

	value, err := p.Value()
	require.NoError(t, err)

	scanned := NewProperties()
	err = scanned.Scan(value)
	require.NoError(t, err)

	name, ok := scanned.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Acme", name.Interface())
	count, ok := scanned.Get("count")
	require.True(t, ok)
	assert.Equal(t, float64(3), count.Interface())
}
