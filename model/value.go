package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies which variant of a Value is populated
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a closed tagged union over the property value types the graph
// supports. Exactly one variant is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	List []Value
	Map  map[string]Value
}

// String creates a string Value
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Number creates a numeric Value
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// Boolean creates a boolean Value
func Boolean(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// ListOf creates a list Value
func ListOf(values ...Value) Value {
	return Value{Kind: KindList, List: values}
}

// MapOf creates a map Value
func MapOf(values map[string]Value) Value {
	return Value{Kind: KindMap, Map: values}
}

// FromInterface converts a dynamically typed value into a Value.
// Unknown types fall back to their string representation.
func FromInterface(v interface{}) Value {
	switch t := v.(type) {
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case bool:
		return Boolean(t)
	case []interface{}:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			list = append(list, FromInterface(item))
		}
		return ListOf(list...)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for key, item := range t {
			m[key] = FromInterface(item)
		}
		return MapOf(m)
	default:
		return String(fmt.Sprintf("%v", v))
	}
}

// Interface converts the Value back into a dynamically typed value
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		list := make([]interface{}, 0, len(v.List))
		for _, item := range v.List {
			list = append(list, item.Interface())
		}
		return list
	case KindMap:
		m := make(map[string]interface{}, len(v.Map))
		for key, item := range v.Map {
			m[key] = item.Interface()
		}
		return m
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for key, item := range v.Map {
			otherItem, ok := other.Map[key]
			if !ok || !item.Equal(otherItem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// Properties is an insertion-ordered map of property names to values.
// It is the canonical property bag for entities, relationships, nodes
// and edges, stored as JSONB in PostgreSQL.
type Properties struct {
	keys   []string
	values map[string]Value
}

// NewProperties creates an empty property bag
func NewProperties() *Properties {
	return &Properties{values: map[string]Value{}}
}

// Set stores a value, preserving the first-insertion position of the key
func (p *Properties) Set(key string, value Value) {
	if p.values == nil {
		p.values = map[string]Value{}
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for a key and whether it exists
func (p *Properties) Get(key string) (Value, bool) {
	if p == nil || p.values == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the property names in insertion order
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Len returns the number of properties
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Merge copies all properties from other into p, later values winning on
// key collision
func (p *Properties) Merge(other *Properties) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		p.Set(key, other.values[key])
	}
}

// Clone returns a deep copy of the property bag
func (p *Properties) Clone() *Properties {
	clone := NewProperties()
	if p == nil {
		return clone
	}
	for _, key := range p.keys {
		clone.Set(key, p.values[key])
	}
	return clone
}

// MarshalJSON implements json.Marshaler, emitting keys in insertion order
func (p *Properties) MarshalJSON() ([]byte, error) {
	if p == nil || len(p.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving the key order of
// the JSON document
func (p *Properties) UnmarshalJSON(data []byte) error {
	p.keys = nil
	p.values = map[string]Value{}

	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("properties must be a JSON object")
	}

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return errors.New("properties key must be a string")
		}

		var value Value
		if err := decoder.Decode(&value); err != nil {
			return err
		}
		p.Set(key, value)
	}

	return nil
}

// Value implements the driver.Valuer interface for database storage
func (p *Properties) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for database retrieval
func (p *Properties) Scan(value interface{}) error {
	if value == nil {
		*p = *NewProperties()
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return p.UnmarshalJSON(b)
}
