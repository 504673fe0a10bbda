package firestore

import (
	"github.com/serverlessresearch/gcrest/pkg/request"
)

// Field modes of a single-field database index (v1beta1).
const (
	IndexModeAscending     = "ASCENDING"
	IndexModeDescending    = "DESCENDING"
	IndexModeArrayContains = "ARRAY_CONTAINS"
)

type DatabaseIndexField struct {
	FieldPath string `json:"fieldPath"`
	Mode      string `json:"mode"`
}

// DatabaseIndex is a v1beta1 index on one collection.
type DatabaseIndex struct {
	CollectionID string               `json:"collectionId"`
	Fields       []DatabaseIndexField `json:"fields"`
}

func (i *DatabaseIndex) String() string {
	return marshal(i)
}

const (
	QueryScopeCollection      = "COLLECTION"
	QueryScopeCollectionGroup = "COLLECTION_GROUP"
)

// CollectionGroupIndexField sets exactly one of Order and ArrayConfig.
type CollectionGroupIndexField struct {
	FieldPath   string `json:"fieldPath"`
	Order       string `json:"order,omitempty"`
	ArrayConfig string `json:"arrayConfig,omitempty"`
}

// CollectionGroupIndex is a v1 composite index.
type CollectionGroupIndex struct {
	QueryScope string                      `json:"queryScope,omitempty"`
	Fields     []CollectionGroupIndexField `json:"fields"`
}

func (i *CollectionGroupIndex) String() string {
	return marshal(i)
}

// IndexMethod picks the method of an index request: a body creates, an id
// alone reads or deletes, and neither lists.
func IndexMethod(hasBody, hasID, deleteMode bool) request.Method {
	switch {
	case hasBody:
		return request.MethodPost
	case hasID && deleteMode:
		return request.MethodDelete
	default:
		return request.MethodGet
	}
}

type DatabaseMode int

const (
	DatabaseCreate DatabaseMode = iota + 1
	DatabaseGet
	DatabaseList
	DatabasePatch
	DatabaseDelete
)

func (m DatabaseMode) String() string {
	switch m {
	case DatabaseCreate:
		return "create"
	case DatabaseGet:
		return "get"
	case DatabaseList:
		return "list"
	case DatabasePatch:
		return "patch"
	case DatabaseDelete:
		return "delete"
	}
	return "undefined"
}

// DatabaseMethod picks the method of a database management request.
// Combinations that do not identify an operation fall back to a list GET.
func DatabaseMethod(mode DatabaseMode, hasBody, hasID bool) request.Method {
	switch {
	case mode == DatabaseCreate && hasBody:
		return request.MethodPost
	case mode == DatabaseDelete && hasID:
		return request.MethodDelete
	case mode == DatabaseGet && hasID:
		return request.MethodGet
	case mode == DatabasePatch && hasBody:
		return request.MethodPatch
	default:
		return request.MethodGet
	}
}

// Database is the writable part of a Firestore database resource.
type Database struct {
	LocationID                    string `json:"locationId,omitempty"`
	Type                          string `json:"type,omitempty"`
	ConcurrencyMode               string `json:"concurrencyMode,omitempty"`
	AppEngineIntegrationMode      string `json:"appEngineIntegrationMode,omitempty"`
	PointInTimeRecoveryEnablement string `json:"pointInTimeRecoveryEnablement,omitempty"`
	DeleteProtectionState         string `json:"deleteProtectionState,omitempty"`
}

func (d *Database) String() string {
	return marshal(d)
}
