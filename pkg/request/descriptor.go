// Request descriptors shared by the storage and firestore services.
//
// A Descriptor records everything the dispatcher needs to put one logical
// operation on the wire: which host, which method, the resource path, the
// query extras and either a payload or a file stream. Service packages build
// a fresh Descriptor per call; the dispatcher only reads it.
package request

import (
	"strings"
)

type Method int

const (
	MethodUndefined Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
)

var methodNames = map[Method]string{
	MethodGet:    "GET",
	MethodPost:   "POST",
	MethodPut:    "PUT",
	MethodPatch:  "PATCH",
	MethodDelete: "DELETE",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "UNDEFINED"
}

// Sends reports whether requests with this method carry a body upstream.
func (m Method) Sends() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// DefaultDatabase names the database used when none is given.
const DefaultDatabase = "(default)"

// Parent identifies the project and database a firestore request addresses.
type Parent struct {
	ProjectID  string
	DatabaseID string
}

func NewParent(projectID, databaseID string) Parent {
	return Parent{ProjectID: projectID, DatabaseID: databaseID}
}

// Database returns the database id, falling back to "(default)".
func (p Parent) Database() string {
	if p.DatabaseID == "" {
		return DefaultDatabase
	}
	return p.DatabaseID
}

// Project returns the parent's project or fallback when it has none.
func (p Parent) Project(fallback string) string {
	if p.ProjectID == "" {
		return fallback
	}
	return p.ProjectID
}

// DocumentsRoot renders projects/<p>/databases/<db>/documents.
func (p Parent) DocumentsRoot(fallbackProject string) string {
	return "projects/" + p.Project(fallbackProject) + "/databases/" + p.Database() + "/documents"
}

// Resource describes a project-scoped path prefix such as
// /v1/projects/<p>/databases/<db>. When DatabaseAsParam is set the database
// segment is left out (database create/list put it in the query instead).
type Resource struct {
	Version         string
	Parent          Parent
	DatabaseAsParam bool
}

type Descriptor struct {
	// Kind is the service-specific operation code, used for logging and
	// tests only.
	Kind int
	Name string

	Host   string
	Method Method

	// Resource is nil for services whose Path is already complete.
	Resource *Resource
	Path     string
	Query    Query

	Payload  string
	File     File
	MimeType string

	// OTA marks firmware downloads, which stream to a flash sink instead
	// of a file.
	OTA bool

	// Placeholder, when set, is replaced in Payload with the documents root
	// once the resource path is resolved.
	Placeholder string
}

// Resolve assembles the full request path. root is the documents root used
// for placeholder substitution; it is empty for descriptors without a
// Resource.
func (d *Descriptor) Resolve(defaultProject string) (path, root string) {
	if d.Resource == nil {
		return d.Path, ""
	}
	r := d.Resource
	var sb strings.Builder
	sb.WriteString(r.Version)
	sb.WriteString("projects/")
	sb.WriteString(r.Parent.Project(defaultProject))
	sb.WriteString("/databases")
	if !r.DatabaseAsParam {
		sb.WriteByte('/')
		sb.WriteString(r.Parent.Database())
	}
	sb.WriteString(d.Path)
	return sb.String(), r.Parent.DocumentsRoot(defaultProject)
}

// ResolvePayload substitutes the placeholder, once, with root.
func (d *Descriptor) ResolvePayload(root string) string {
	if d.Placeholder == "" || root == "" {
		return d.Payload
	}
	return strings.ReplaceAll(d.Payload, d.Placeholder, root)
}

// Version segments for the Google REST APIs.
const (
	V1      = "/v1/"
	V1Beta1 = "/v1beta1/"
	V1Beta2 = "/v1beta2/"
)
