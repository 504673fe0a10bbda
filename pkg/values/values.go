// Typed document values and their wire encoding.
//
// A Value is a tagged union over the Firestore value kinds. Every encoded
// fragment is a JSON object carrying exactly one tag key, e.g.
// {"integerValue":"5"}. Encoding is one-way and total: nothing here validates
// the payload (a NaN double is passed through as-is).
package values

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindDouble
	KindTimestamp
	KindString
	KindBytes
	KindReference
	KindGeoPoint
	KindArray
	KindMap

	kindCount
)

var tagKeys = [kindCount]string{
	"nullValue",
	"booleanValue",
	"integerValue",
	"doubleValue",
	"timestampValue",
	"stringValue",
	"bytesValue",
	"referenceValue",
	"geoPointValue",
	"arrayValue",
	"mapValue",
}

// Tag returns the wire key for the kind, e.g. "integerValue".
func (k Kind) Tag() string {
	if k < 0 || k >= kindCount {
		return ""
	}
	return tagKeys[k]
}

func (k Kind) String() string {
	return k.Tag()
}

// Value is one typed Firestore value. The zero Value is Null.
type Value struct {
	kind Kind

	b   bool
	i   int64
	d   float64
	s   string
	lat float64
	lng float64
	arr *Array
	m   *Map
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

func Double(d float64) Value { return Value{kind: KindDouble, d: d} }

// Timestamp takes an RFC3339 UTC "Zulu" timestamp string.
func Timestamp(ts string) Value { return Value{kind: KindTimestamp, s: ts} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes takes an already base64-encoded string.
func Bytes(b64 string) Value { return Value{kind: KindBytes, s: b64} }

// BytesOf base64-encodes raw bytes into a Bytes value.
func BytesOf(raw []byte) Value {
	return Bytes(base64.StdEncoding.EncodeToString(raw))
}

// Reference takes a document resource name such as
// projects/p/databases/(default)/documents/users/alice.
func Reference(name string) Value { return Value{kind: KindReference, s: name} }

func GeoPoint(lat, lng float64) Value {
	return Value{kind: KindGeoPoint, lat: lat, lng: lng}
}

// ArrayOf wraps an Array. A nil Array encodes as an empty array.
func ArrayOf(a *Array) Value { return Value{kind: KindArray, arr: a} }

// MapOf wraps a Map. A nil Map encodes as an empty map.
func MapOf(m *Map) Value { return Value{kind: KindMap, m: m} }

// Kind reports the tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Encode renders the value as its single-tag wire fragment.
func (v Value) Encode() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v Value) String() string {
	return v.Encode()
}

// MarshalJSON lets values be embedded in encoding/json structures.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.Encode()), nil
}

func (v Value) writeTo(sb *strings.Builder) {
	sb.WriteByte('{')
	sb.WriteString(Quote(v.kind.Tag()))
	sb.WriteByte(':')
	v.writeBody(sb)
	sb.WriteByte('}')
}

// writeBody writes the part after the tag key.
func (v Value) writeBody(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBoolean:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInteger:
		// integers travel as strings to keep 64-bit precision
		sb.WriteString(Quote(strconv.FormatInt(v.i, 10)))
	case KindDouble:
		sb.WriteString(strconv.FormatFloat(v.d, 'g', -1, 64))
	case KindTimestamp, KindString, KindBytes, KindReference:
		sb.WriteString(Quote(v.s))
	case KindGeoPoint:
		sb.WriteString(`{"latitude":`)
		sb.WriteString(strconv.FormatFloat(v.lat, 'g', -1, 64))
		sb.WriteString(`,"longitude":`)
		sb.WriteString(strconv.FormatFloat(v.lng, 'g', -1, 64))
		sb.WriteByte('}')
	case KindArray:
		v.arr.writeBody(sb)
	case KindMap:
		v.m.writeBody(sb)
	}
}

// Quote renders s as a JSON string literal. '<', '>' and '&' are written
// as is so placeholders like <resource_path> survive.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// strings always marshal
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
