package firestore

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/serverlessresearch/gcrest/pkg/request"
)

// DefaultPageSize is used by ListDocuments when no page size is given.
const DefaultPageSize = 10

// GetDocumentOptions shape a single document read. Transaction wins over
// ReadTime when both are set.
type GetDocumentOptions struct {
	Mask        DocumentMask
	Transaction string
	ReadTime    string
}

func (o GetDocumentOptions) query() request.Query {
	var q request.Query
	o.Mask.addQuery(&q, "mask")
	if o.Transaction != "" {
		q.Add("transaction", o.Transaction)
	} else {
		q.Add("readTime", o.ReadTime)
	}
	return q
}

// PatchDocumentOptions shape an update of an existing document.
type PatchDocumentOptions struct {
	UpdateMask      DocumentMask
	Mask            DocumentMask
	CurrentDocument Precondition
}

func (o PatchDocumentOptions) query() request.Query {
	var q request.Query
	o.UpdateMask.addQuery(&q, "updateMask")
	o.Mask.addQuery(&q, "mask")
	o.CurrentDocument.addQuery(&q, "currentDocument")
	return q
}

type ListDocumentsOptions struct {
	PageSize    int
	PageToken   string
	OrderBy     string
	Mask        DocumentMask
	ShowMissing bool
	Transaction string
	ReadTime    string
}

func (o ListDocumentsOptions) query() request.Query {
	var q request.Query
	size := o.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	q.AddInt("pageSize", int64(size))
	q.Add("pageToken", o.PageToken)
	q.Add("orderBy", o.OrderBy)
	o.Mask.addQuery(&q, "mask")
	q.AddBool("showMissing", o.ShowMissing)
	if o.Transaction != "" {
		q.Add("transaction", o.Transaction)
	} else {
		q.Add("readTime", o.ReadTime)
	}
	return q
}

type ListCollectionIdsOptions struct {
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
	ReadTime  string `json:"readTime,omitempty"`
}

func (o ListCollectionIdsOptions) String() string {
	return marshal(o)
}

// TransactionOptions selects a read-only or a read-write transaction.
type TransactionOptions struct {
	ReadOnly bool
	// ReadTime applies to read-only transactions.
	ReadTime string
	// RetryTransaction names a read-write transaction being retried.
	RetryTransaction string
}

func (o TransactionOptions) String() string {
	var inner object
	if o.ReadOnly {
		if o.ReadTime != "" {
			inner.str("readTime", o.ReadTime)
		}
		var outer object
		outer.raw("readOnly", inner.String())
		return outer.String()
	}
	if o.RetryTransaction != "" {
		inner.str("retryTransaction", o.RetryTransaction)
	}
	var outer object
	outer.raw("readWrite", inner.String())
	return outer.String()
}

// consistency adds whichever read-consistency selector is set. Only one of
// transaction, newTransaction and readTime is emitted.
func consistency(o *object, transaction string, newTransaction *TransactionOptions, readTime string) {
	switch {
	case transaction != "":
		o.str("transaction", transaction)
	case newTransaction != nil:
		o.raw("newTransaction", newTransaction.String())
	case readTime != "":
		o.str("readTime", readTime)
	}
}

// BatchGetDocumentOptions name the documents to read, relative to the
// database's documents root.
type BatchGetDocumentOptions struct {
	Documents      []string
	Mask           DocumentMask
	Transaction    string
	NewTransaction *TransactionOptions
	ReadTime       string
}

func (o BatchGetDocumentOptions) String() string {
	var obj object
	names := make([]string, len(o.Documents))
	for i, d := range o.Documents {
		names[i] = DocPath(d)
	}
	obj.raw("documents", jsonArray(quoteAll(names)))
	if !o.Mask.Empty() {
		obj.raw("mask", o.Mask.String())
	}
	consistency(&obj, o.Transaction, o.NewTransaction, o.ReadTime)
	return obj.String()
}

// EximDocumentOptions drive both export and import. URIPrefix becomes the
// outputUriPrefix of an export or the inputUriPrefix of an import.
type EximDocumentOptions struct {
	CollectionIDs []string
	URIPrefix     string
}

type exportPayload struct {
	CollectionIDs   []string `json:"collectionIds,omitempty"`
	OutputURIPrefix string   `json:"outputUriPrefix,omitempty"`
}

type importPayload struct {
	CollectionIDs  []string `json:"collectionIds,omitempty"`
	InputURIPrefix string   `json:"inputUriPrefix,omitempty"`
}

func (o EximDocumentOptions) exportJSON() string {
	return marshal(exportPayload{o.CollectionIDs, o.URIPrefix})
}

func (o EximDocumentOptions) importJSON() string {
	return marshal(importPayload{o.CollectionIDs, o.URIPrefix})
}

// marshal encodes payload structs whose fields are all strings, numbers,
// booleans, slices of those, or values.Value, none of which can fail.
// marshal encodes v without HTML escaping, like values.Quote.
func marshal(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
