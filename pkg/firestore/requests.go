package firestore

import (
	"strings"

	"github.com/serverlessresearch/gcrest/pkg/request"
)

const Host = "firestore.googleapis.com"

type RequestKind int

const (
	KindCreateDocument RequestKind = iota + 1
	KindPatchDocument
	KindCommit
	KindBatchWrite
	KindGetDocument
	KindBatchGet
	KindListDocuments
	KindDeleteDocument
	KindBeginTransaction
	KindRollback
	KindRunQuery
	KindListCollectionIds
	KindExportDocuments
	KindImportDocuments
	KindDatabaseIndex
	KindCollectionGroupIndex
	KindManageDatabase
)

var kindNames = map[RequestKind]string{
	KindCreateDocument:       "firestore.create",
	KindPatchDocument:        "firestore.patch",
	KindCommit:               "firestore.commit",
	KindBatchWrite:           "firestore.batchWrite",
	KindGetDocument:          "firestore.get",
	KindBatchGet:             "firestore.batchGet",
	KindListDocuments:        "firestore.list",
	KindDeleteDocument:       "firestore.delete",
	KindBeginTransaction:     "firestore.beginTransaction",
	KindRollback:             "firestore.rollback",
	KindRunQuery:             "firestore.runQuery",
	KindListCollectionIds:    "firestore.listCollectionIds",
	KindExportDocuments:      "firestore.exportDocuments",
	KindImportDocuments:      "firestore.importDocuments",
	KindDatabaseIndex:        "firestore.databaseIndex",
	KindCollectionGroupIndex: "firestore.collectionGroupIndex",
	KindManageDatabase:       "firestore.database",
}

func (k RequestKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "firestore.undefined"
}

func newRequest(kind RequestKind, version string, parent request.Parent, method request.Method, path string) *request.Descriptor {
	return &request.Descriptor{
		Kind:     int(kind),
		Name:     kind.String(),
		Host:     Host,
		Method:   method,
		Resource: &request.Resource{Version: version, Parent: parent},
		Path:     path,
	}
}

// documentsPath renders /documents[/<rel>][suffix].
func documentsPath(rel, suffix string) string {
	var sb strings.Builder
	sb.WriteString("/documents")
	if rel != "" {
		if !strings.HasPrefix(rel, "/") {
			sb.WriteByte('/')
		}
		sb.WriteString(rel)
	}
	sb.WriteString(suffix)
	return sb.String()
}

// withPayload sets a payload that may name documents through the
// placeholder.
func withPayload(d *request.Descriptor, payload string) *request.Descriptor {
	d.Payload = payload
	if strings.Contains(payload, ResourcePathBase) {
		d.Placeholder = ResourcePathBase
	}
	return d
}

// CreateDocumentRequest creates doc in collectionID. An empty documentID
// lets the server assign one.
func CreateDocumentRequest(parent request.Parent, collectionID, documentID string, mask DocumentMask, doc *Document) *request.Descriptor {
	d := newRequest(KindCreateDocument, request.V1, parent, request.MethodPost, documentsPath(collectionID, ""))
	d.Query.Add("documentId", documentID)
	mask.addQuery(&d.Query, "mask")
	return withPayload(d, doc.String())
}

func PatchDocumentRequest(parent request.Parent, documentPath string, opts PatchDocumentOptions, doc *Document) *request.Descriptor {
	d := newRequest(KindPatchDocument, request.V1, parent, request.MethodPatch, documentsPath(documentPath, ""))
	d.Query = opts.query()
	return withPayload(d, doc.String())
}

func CommitRequest(parent request.Parent, writes *Writes) *request.Descriptor {
	d := newRequest(KindCommit, request.V1, parent, request.MethodPost, documentsPath("", ":commit"))
	return withPayload(d, writes.String())
}

// BatchWriteRequest applies writes non-atomically. Batch writes cannot run
// in a transaction, so any transaction on writes is left out.
func BatchWriteRequest(parent request.Parent, writes *Writes) *request.Descriptor {
	d := newRequest(KindBatchWrite, request.V1, parent, request.MethodPost, documentsPath("", ":batchWrite"))
	return withPayload(d, writes.encode(false))
}

func GetDocumentRequest(parent request.Parent, documentPath string, opts GetDocumentOptions) *request.Descriptor {
	d := newRequest(KindGetDocument, request.V1, parent, request.MethodGet, documentsPath(documentPath, ""))
	d.Query = opts.query()
	return d
}

func BatchGetRequest(parent request.Parent, opts BatchGetDocumentOptions) *request.Descriptor {
	d := newRequest(KindBatchGet, request.V1, parent, request.MethodPost, documentsPath("", ":batchGet"))
	return withPayload(d, opts.String())
}

// ListDocumentsRequest lists collectionID, which may be nested, e.g.
// users/alice/orders.
func ListDocumentsRequest(parent request.Parent, collectionID string, opts ListDocumentsOptions) *request.Descriptor {
	d := newRequest(KindListDocuments, request.V1, parent, request.MethodGet, documentsPath(collectionID, ""))
	d.Query = opts.query()
	return d
}

func DeleteDocumentRequest(parent request.Parent, documentPath string, pre Precondition) *request.Descriptor {
	d := newRequest(KindDeleteDocument, request.V1, parent, request.MethodDelete, documentsPath(documentPath, ""))
	pre.addQuery(&d.Query, "currentDocument")
	return d
}

func BeginTransactionRequest(parent request.Parent, opts TransactionOptions) *request.Descriptor {
	d := newRequest(KindBeginTransaction, request.V1, parent, request.MethodPost, documentsPath("", ":beginTransaction"))
	var o object
	o.raw("options", opts.String())
	return withPayload(d, o.String())
}

func RollbackRequest(parent request.Parent, transaction string) *request.Descriptor {
	d := newRequest(KindRollback, request.V1, parent, request.MethodPost, documentsPath("", ":rollback"))
	var o object
	o.str("transaction", transaction)
	return withPayload(d, o.String())
}

// RunQueryRequest runs a query under documentPath, or under the documents
// root when documentPath is empty.
func RunQueryRequest(parent request.Parent, documentPath string, opts RunQueryOptions) *request.Descriptor {
	d := newRequest(KindRunQuery, request.V1, parent, request.MethodPost, documentsPath(documentPath, ":runQuery"))
	return withPayload(d, opts.String())
}

func ListCollectionIdsRequest(parent request.Parent, documentPath string, opts ListCollectionIdsOptions) *request.Descriptor {
	d := newRequest(KindListCollectionIds, request.V1, parent, request.MethodPost, documentsPath(documentPath, ":listCollectionIds"))
	return withPayload(d, opts.String())
}

func ExportDocumentsRequest(parent request.Parent, opts EximDocumentOptions) *request.Descriptor {
	d := newRequest(KindExportDocuments, request.V1, parent, request.MethodPost, ":exportDocuments")
	return withPayload(d, opts.exportJSON())
}

func ImportDocumentsRequest(parent request.Parent, opts EximDocumentOptions) *request.Descriptor {
	d := newRequest(KindImportDocuments, request.V1, parent, request.MethodPost, ":importDocuments")
	return withPayload(d, opts.importJSON())
}

// DatabaseIndexRequest manages single-field indexes through the v1beta1
// API. Pass index to create, indexID to get or delete, neither to list.
func DatabaseIndexRequest(parent request.Parent, index *DatabaseIndex, indexID string, deleteMode bool) *request.Descriptor {
	path := "/indexes"
	if indexID != "" {
		path += "/" + indexID
	}
	method := IndexMethod(index != nil, indexID != "", deleteMode)
	d := newRequest(KindDatabaseIndex, request.V1Beta1, parent, method, path)
	if index != nil {
		d.Payload = index.String()
	}
	return d
}

// CollectionGroupIndexRequest manages composite indexes of collectionID.
func CollectionGroupIndexRequest(parent request.Parent, index *CollectionGroupIndex, collectionID, indexID string, deleteMode bool) *request.Descriptor {
	path := "/collectionGroups"
	if collectionID != "" {
		path += "/" + collectionID
	}
	path += "/indexes"
	if indexID != "" {
		path += "/" + indexID
	}
	method := IndexMethod(index != nil, indexID != "", deleteMode)
	d := newRequest(KindCollectionGroupIndex, request.V1, parent, method, path)
	if index != nil {
		d.Payload = index.String()
	}
	return d
}

// ManageDatabaseRequest creates, reads, lists, patches or deletes the
// database named by parent. key is the etag of a delete or the update mask
// of a patch.
func ManageDatabaseRequest(parent request.Parent, db *Database, key string, mode DatabaseMode) *request.Descriptor {
	hasBody := db != nil
	method := DatabaseMethod(mode, hasBody, parent.DatabaseID != "")
	d := newRequest(KindManageDatabase, request.V1, parent, method, "")

	switch mode {
	case DatabaseCreate:
		d.Resource.DatabaseAsParam = true
		if hasBody {
			d.Query.Add("databaseId", parent.DatabaseID)
		}
	case DatabaseList:
		d.Resource.DatabaseAsParam = true
	case DatabaseDelete:
		d.Query.Add("etag", key)
	case DatabasePatch:
		d.Query.Add("updateMask", key)
	}
	if hasBody {
		d.Payload = db.String()
	}
	return d
}
