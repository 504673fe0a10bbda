// Firestore documents, writes and the REST requests that carry them.
//
// Payloads that name documents use the ResourcePathBase placeholder in
// place of projects/<p>/databases/<db>/documents. The dispatcher replaces it
// once the request's project is known, which may only happen when the
// application's token is looked up.
package firestore

import (
	"strings"

	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/serverlessresearch/gcrest/pkg/values"
)

const ResourcePathBase = "<resource_path>"

// DocPath prefixes a relative document name with the placeholder. Names
// that already start with "/" are not given a second one.
func DocPath(name string) string {
	if name == "" {
		return ResourcePathBase
	}
	if strings.HasPrefix(name, "/") {
		return ResourcePathBase + name
	}
	return ResourcePathBase + "/" + name
}

// Document is a named set of fields. Fields are kept in insertion order and
// re-added keys are appended, not replaced.
type Document struct {
	name   string
	fields *values.Map
}

func NewDocument(name string) *Document {
	return &Document{name: name, fields: values.NewMap()}
}

// DocumentOf creates a document holding a single field.
func DocumentOf(name, key string, v values.Value) *Document {
	return NewDocument(name).Add(key, v)
}

func (d *Document) Add(key string, v values.Value) *Document {
	d.fields.Add(key, v)
	return d
}

func (d *Document) SetName(name string) *Document {
	d.name = name
	return d
}

func (d *Document) Name() string {
	return d.name
}

func (d *Document) Fields() *values.Map {
	return d.fields
}

// String serializes the document. The result is rebuilt on every call.
func (d *Document) String() string {
	var o object
	o.str("name", DocPath(d.name))
	if d.fields.Len() > 0 {
		o.raw("fields", d.fields.Fields())
	}
	return o.String()
}

// Precondition guards a write on the document's existence or last update
// time. Its zero value is "no precondition".
type Precondition struct {
	exists     *bool
	updateTime string
}

func Exists(exists bool) Precondition {
	return Precondition{exists: &exists}
}

// UpdatedAt requires the document's last update time to equal ts, an
// RFC3339 timestamp with up to nine fractional digits.
func UpdatedAt(ts string) Precondition {
	return Precondition{updateTime: ts}
}

func (p Precondition) IsSet() bool {
	return p.exists != nil || p.updateTime != ""
}

func (p Precondition) String() string {
	var o object
	switch {
	case p.exists != nil:
		o.raw("exists", boolString(*p.exists))
	case p.updateTime != "":
		o.str("updateTime", p.updateTime)
	}
	return o.String()
}

// addQuery renders the precondition as <prefix>.exists=true or
// <prefix>.updateTime=<ts>.
func (p Precondition) addQuery(q *request.Query, prefix string) {
	switch {
	case p.exists != nil:
		q.Add(prefix+".exists", boolString(*p.exists))
	case p.updateTime != "":
		q.Add(prefix+".updateTime", p.updateTime)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// DocumentMask restricts a read or update to a set of field paths.
type DocumentMask struct {
	paths []string
}

func NewMask(paths ...string) DocumentMask {
	var m DocumentMask
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			m.paths = append(m.paths, p)
		}
	}
	return m
}

// MaskOf parses a comma separated list of field paths.
func MaskOf(csv string) DocumentMask {
	return NewMask(strings.Split(csv, ",")...)
}

func (m DocumentMask) Empty() bool {
	return len(m.paths) == 0
}

func (m DocumentMask) Paths() []string {
	return append([]string(nil), m.paths...)
}

func (m DocumentMask) String() string {
	var o object
	o.raw("fieldPaths", jsonArray(quoteAll(m.paths)))
	return o.String()
}

func (m DocumentMask) addQuery(q *request.Query, prefix string) {
	for _, p := range m.paths {
		q.Add(prefix+".fieldPaths", p)
	}
}
