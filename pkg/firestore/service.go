package firestore

import (
	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/request"
)

// Service issues Firestore requests for one application. Every method
// schedules exactly one request and reports through the returned Task.
type Service struct {
	app auth.App
	d   *dispatch.Dispatcher
}

func NewService(d *dispatch.Dispatcher) *Service {
	return &Service{d: d}
}

// SetApp binds the application whose token authorizes later calls.
func (s *Service) SetApp(app auth.App) {
	s.app = app
}

func (s *Service) App() auth.App {
	return s.app
}

func (s *Service) send(desc *request.Descriptor, opts []dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, desc, opts...)
}

func (s *Service) CreateDocument(parent request.Parent, collectionID, documentID string, mask DocumentMask, doc *Document, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(CreateDocumentRequest(parent, collectionID, documentID, mask, doc), opts)
}

func (s *Service) PatchDocument(parent request.Parent, documentPath string, patch PatchDocumentOptions, doc *Document, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(PatchDocumentRequest(parent, documentPath, patch, doc), opts)
}

func (s *Service) Commit(parent request.Parent, writes *Writes, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(CommitRequest(parent, writes), opts)
}

func (s *Service) BatchWrite(parent request.Parent, writes *Writes, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(BatchWriteRequest(parent, writes), opts)
}

func (s *Service) GetDocument(parent request.Parent, documentPath string, get GetDocumentOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(GetDocumentRequest(parent, documentPath, get), opts)
}

func (s *Service) BatchGet(parent request.Parent, get BatchGetDocumentOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(BatchGetRequest(parent, get), opts)
}

func (s *Service) ListDocuments(parent request.Parent, collectionID string, list ListDocumentsOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(ListDocumentsRequest(parent, collectionID, list), opts)
}

func (s *Service) DeleteDocument(parent request.Parent, documentPath string, pre Precondition, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(DeleteDocumentRequest(parent, documentPath, pre), opts)
}

func (s *Service) BeginTransaction(parent request.Parent, tx TransactionOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(BeginTransactionRequest(parent, tx), opts)
}

func (s *Service) Rollback(parent request.Parent, transaction string, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(RollbackRequest(parent, transaction), opts)
}

func (s *Service) RunQuery(parent request.Parent, documentPath string, query RunQueryOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(RunQueryRequest(parent, documentPath, query), opts)
}

func (s *Service) ListCollectionIds(parent request.Parent, documentPath string, list ListCollectionIdsOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(ListCollectionIdsRequest(parent, documentPath, list), opts)
}

func (s *Service) ExportDocuments(parent request.Parent, exim EximDocumentOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(ExportDocumentsRequest(parent, exim), opts)
}

func (s *Service) ImportDocuments(parent request.Parent, exim EximDocumentOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(ImportDocumentsRequest(parent, exim), opts)
}

func (s *Service) DatabaseIndex(parent request.Parent, index *DatabaseIndex, indexID string, deleteMode bool, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(DatabaseIndexRequest(parent, index, indexID, deleteMode), opts)
}

func (s *Service) CollectionGroupIndex(parent request.Parent, index *CollectionGroupIndex, collectionID, indexID string, deleteMode bool, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(CollectionGroupIndexRequest(parent, index, collectionID, indexID, deleteMode), opts)
}

func (s *Service) ManageDatabase(parent request.Parent, db *Database, key string, mode DatabaseMode, opts ...dispatch.CallOption) *dispatch.Task {
	return s.send(ManageDatabaseRequest(parent, db, key, mode), opts)
}
