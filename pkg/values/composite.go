package values

import "strings"

// Array is an ordered list of values. An array never directly contains
// another array, and it holds at most one element of each kind: adding a
// value whose kind is already present leaves the array unchanged.
type Array struct {
	values []Value
	seen   [kindCount]bool
}

func NewArray(vals ...Value) *Array {
	a := &Array{}
	for _, v := range vals {
		a.Add(v)
	}
	return a
}

// Add appends v unless an element of the same kind exists or v is itself an
// array. It returns the array for chaining.
func (a *Array) Add(v Value) *Array {
	if !a.accepts(v) {
		return a
	}
	a.values = append(a.values, v)
	a.seen[v.kind] = true
	return a
}

func (a *Array) accepts(v Value) bool {
	if v.kind < 0 || v.kind >= kindCount || v.kind == KindArray {
		return false
	}
	return !a.seen[v.kind]
}

// Has reports whether an element of kind k is present.
func (a *Array) Has(k Kind) bool {
	if a == nil || k < 0 || k >= kindCount {
		return false
	}
	return a.seen[k]
}

func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}

func (a *Array) Values() []Value {
	if a == nil {
		return nil
	}
	out := make([]Value, len(a.values))
	copy(out, a.values)
	return out
}

// Encode renders {"arrayValue":{"values":[...]}}.
func (a *Array) Encode() string {
	return ArrayOf(a).Encode()
}

// Body renders the inner {"values":[...]} object, which is the shape field
// transforms take.
func (a *Array) Body() string {
	var sb strings.Builder
	a.writeBody(&sb)
	return sb.String()
}

func (a *Array) writeBody(sb *strings.Builder) {
	if a.Len() == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString(`{"values":[`)
	for i, v := range a.values {
		if i > 0 {
			sb.WriteByte(',')
		}
		v.writeTo(sb)
	}
	sb.WriteString("]}")
}

type field struct {
	key   string
	value Value
}

// Map is an ordered set of named values. Adding an existing key appends a
// second occurrence instead of replacing the first; a JSON reader that keeps
// the last occurrence sees the latest value.
type Map struct {
	fields []field
}

func NewMap() *Map {
	return &Map{}
}

// Add appends key/value and returns the map for chaining.
func (m *Map) Add(key string, v Value) *Map {
	m.fields = append(m.fields, field{key, v})
	return m
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Keys returns the keys in insertion order, duplicates included.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.fields))
	for i, f := range m.fields {
		keys[i] = f.key
	}
	return keys
}

// Get returns the last value added under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for i := len(m.fields) - 1; i >= 0; i-- {
		if m.fields[i].key == key {
			return m.fields[i].value, true
		}
	}
	return Value{}, false
}

// Encode renders {"mapValue":{"fields":{...}}}.
func (m *Map) Encode() string {
	return MapOf(m).Encode()
}

// Fields renders only the {"k":{...},...} object.
func (m *Map) Fields() string {
	var sb strings.Builder
	m.writeFields(&sb)
	return sb.String()
}

func (m *Map) writeBody(sb *strings.Builder) {
	if m.Len() == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString(`{"fields":`)
	m.writeFields(sb)
	sb.WriteByte('}')
}

func (m *Map) writeFields(sb *strings.Builder) {
	sb.WriteByte('{')
	if m != nil {
		for i, f := range m.fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(Quote(f.key))
			sb.WriteByte(':')
			f.value.writeTo(sb)
		}
	}
	sb.WriteByte('}')
}
