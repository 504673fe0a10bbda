package request

import (
	"strconv"
	"strings"
)

type param struct {
	key, value string
}

// Query is an ordered list of url parameters. The first one rendered gets a
// '?' and the rest '&'.
type Query struct {
	params []param
}

// Add appends key=value. Empty values are skipped.
func (q *Query) Add(key, value string) *Query {
	if value == "" {
		return q
	}
	q.params = append(q.params, param{key, value})
	return q
}

func (q *Query) AddBool(key string, value bool) *Query {
	if !value {
		return q
	}
	return q.Add(key, "true")
}

// AddInt appends key=n when n is positive.
func (q *Query) AddInt(key string, n int64) *Query {
	if n <= 0 {
		return q
	}
	return q.Add(key, strconv.FormatInt(n, 10))
}

// AddTokens splits csv on commas and appends key=token for each non-empty
// token. This is how field masks travel: mask.fieldPaths=a&mask.fieldPaths=b.
func (q *Query) AddTokens(key, csv string) *Query {
	for _, tok := range strings.Split(csv, ",") {
		q.Add(key, strings.TrimSpace(tok))
	}
	return q
}

// Merge appends another query's parameters after this one's.
func (q *Query) Merge(other Query) *Query {
	q.params = append(q.params, other.params...)
	return q
}

func (q Query) Len() int {
	return len(q.params)
}

// Get returns the first value for key.
func (q Query) Get(key string) string {
	for _, p := range q.params {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Encode renders "?k=v&k2=v2", or "" for an empty query. Values are written
// verbatim; EscapeExtras is applied by the dispatcher.
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q.params {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(p.key)
		sb.WriteByte('=')
		sb.WriteString(p.value)
	}
	return sb.String()
}

var extrasReplacer = strings.NewReplacer(" ", "%20", ",", "%2C")

// EscapeExtras substitutes %20 for spaces and %2C for commas.
func EscapeExtras(s string) string {
	return extrasReplacer.Replace(s)
}
