package firestore

import (
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/values"
)

type ServerValue int

const (
	ServerValueUnspecified ServerValue = iota
	ServerValueRequestTime
)

func (v ServerValue) String() string {
	if v == ServerValueRequestTime {
		return "REQUEST_TIME"
	}
	return "SERVER_VALUE_UNSPECIFIED"
}

// FieldTransform is a server-side mutation of one field.
type FieldTransform struct {
	fieldPath string
	op        string
	body      string
}

// Increment adds v to the field's current value.
func Increment(fieldPath string, v values.Value) FieldTransform {
	return FieldTransform{fieldPath, "increment", v.Encode()}
}

// Maximum sets the field to the larger of its value and v.
func Maximum(fieldPath string, v values.Value) FieldTransform {
	return FieldTransform{fieldPath, "maximum", v.Encode()}
}

// Minimum sets the field to the smaller of its value and v.
func Minimum(fieldPath string, v values.Value) FieldTransform {
	return FieldTransform{fieldPath, "minimum", v.Encode()}
}

// AppendMissingElements appends the elements of arr not already present.
func AppendMissingElements(fieldPath string, arr *values.Array) FieldTransform {
	return FieldTransform{fieldPath, "appendMissingElements", arr.Body()}
}

// RemoveAllFromArray removes every element equal to one in arr.
func RemoveAllFromArray(fieldPath string, arr *values.Array) FieldTransform {
	return FieldTransform{fieldPath, "removeAllFromArray", arr.Body()}
}

func SetToServerValue(fieldPath string, v ServerValue) FieldTransform {
	return FieldTransform{fieldPath, "setToServerValue", values.Quote(v.String())}
}

func (ft FieldTransform) FieldPath() string {
	return ft.fieldPath
}

func (ft FieldTransform) String() string {
	var o object
	o.str("fieldPath", ft.fieldPath)
	o.raw(ft.op, ft.body)
	return o.String()
}

func encodeTransforms(fts []FieldTransform) string {
	elems := make([]string, len(fts))
	for i, ft := range fts {
		elems[i] = ft.String()
	}
	return jsonArray(elems)
}

// DocumentTransform applies field transforms, in order, to one document.
type DocumentTransform struct {
	document   string
	transforms []FieldTransform
}

func NewDocumentTransform(document string, transforms ...FieldTransform) DocumentTransform {
	return DocumentTransform{document: document, transforms: transforms}
}

func (t DocumentTransform) String() string {
	var o object
	o.str("document", DocPath(t.document))
	o.raw("fieldTransforms", encodeTransforms(t.transforms))
	return o.String()
}

type WriteKind int

const (
	WriteUpdate WriteKind = iota + 1
	WriteDelete
	WriteTransform
)

func (k WriteKind) String() string {
	switch k {
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	case WriteTransform:
		return "transform"
	}
	return "undefined"
}

// Write is one update, delete or transform, optionally guarded by a
// precondition.
type Write struct {
	kind WriteKind
	pre  Precondition

	mask             DocumentMask
	update           *Document
	updateTransforms []FieldTransform

	deletePath string
	transform  DocumentTransform
}

// UpdateWrite writes doc. With a non-empty mask only the masked fields are
// touched; without one the document is replaced.
func UpdateWrite(mask DocumentMask, doc *Document, pre Precondition) *Write {
	return &Write{kind: WriteUpdate, mask: mask, update: doc, pre: pre}
}

func DeleteWrite(documentPath string, pre Precondition) *Write {
	return &Write{kind: WriteDelete, deletePath: documentPath, pre: pre}
}

func TransformWrite(t DocumentTransform, pre Precondition) *Write {
	return &Write{kind: WriteTransform, transform: t, pre: pre}
}

func (w *Write) Kind() WriteKind {
	return w.kind
}

// AddUpdateTransform queues a transform applied atomically after the update.
// Only update writes take them; any other kind is left unchanged and a
// structural misuse error is returned.
func (w *Write) AddUpdateTransform(ft FieldTransform) error {
	if w.kind != WriteUpdate {
		return dispatch.StructuralMisuse("update transforms apply only to update writes, not " + w.kind.String())
	}
	w.updateTransforms = append(w.updateTransforms, ft)
	return nil
}

func (w *Write) String() string {
	var o object
	switch w.kind {
	case WriteUpdate:
		doc := w.update
		if doc == nil {
			doc = NewDocument("")
		}
		o.raw("update", doc.String())
		if !w.mask.Empty() {
			o.raw("updateMask", w.mask.String())
		}
		if w.pre.IsSet() {
			o.raw("currentDocument", w.pre.String())
		}
		if len(w.updateTransforms) > 0 {
			o.raw("updateTransforms", encodeTransforms(w.updateTransforms))
		}
	case WriteDelete:
		if w.pre.IsSet() {
			o.raw("currentDocument", w.pre.String())
		}
		o.str("delete", DocPath(w.deletePath))
	case WriteTransform:
		if w.pre.IsSet() {
			o.raw("currentDocument", w.pre.String())
		}
		o.raw("transform", w.transform.String())
	}
	return o.String()
}

// Writes is an ordered batch of writes. When a transaction is set the
// writes commit in it atomically.
type Writes struct {
	transaction string
	writes      []*Write
}

func NewWrites(transaction string, writes ...*Write) *Writes {
	return &Writes{transaction: transaction, writes: writes}
}

func (ws *Writes) Add(w *Write) *Writes {
	ws.writes = append(ws.writes, w)
	return ws
}

func (ws *Writes) Len() int {
	return len(ws.writes)
}

func (ws *Writes) Transaction() string {
	return ws.transaction
}

func (ws *Writes) String() string {
	return ws.encode(true)
}

func (ws *Writes) encode(withTransaction bool) string {
	var o object
	if withTransaction && ws.transaction != "" {
		o.str("transaction", ws.transaction)
	}
	elems := make([]string, len(ws.writes))
	for i, w := range ws.writes {
		elems[i] = w.String()
	}
	o.raw("writes", jsonArray(elems))
	return o.String()
}
