package firestore

import (
	"strings"

	"github.com/serverlessresearch/gcrest/pkg/values"
)

// object assembles a JSON object key by key. Keys are written in call order
// and commas placed as keys are added, so optional keys can appear anywhere.
type object struct {
	sb strings.Builder
	n  int
}

func (o *object) key(k string) {
	if o.n == 0 {
		o.sb.WriteByte('{')
	} else {
		o.sb.WriteByte(',')
	}
	o.n++
	o.sb.WriteString(values.Quote(k))
	o.sb.WriteByte(':')
}

// raw adds a pre-encoded JSON value.
func (o *object) raw(k, encoded string) *object {
	o.key(k)
	o.sb.WriteString(encoded)
	return o
}

func (o *object) str(k, s string) *object {
	return o.raw(k, values.Quote(s))
}

func (o *object) String() string {
	if o.n == 0 {
		return "{}"
	}
	return o.sb.String() + "}"
}

// jsonArray renders pre-encoded elements as a JSON array.
func jsonArray(elems []string) string {
	return "[" + strings.Join(elems, ",") + "]"
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = values.Quote(s)
	}
	return out
}
