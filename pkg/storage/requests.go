// Cloud Storage object requests.
//
// Builders here return complete request.Descriptors for the JSON API at
// storage.googleapis.com. Their paths carry no project, so they have no
// Resource and no payload placeholder.
package storage

import (
	"net/url"

	"github.com/serverlessresearch/gcrest/pkg/request"
)

const Host = "storage.googleapis.com"

type RequestKind int

const (
	KindDownload RequestKind = iota + 1
	KindOTA
	KindGetMetadata
	KindList
	KindDelete
	KindUpload
)

func (k RequestKind) String() string {
	switch k {
	case KindDownload:
		return "storage.download"
	case KindOTA:
		return "storage.ota"
	case KindGetMetadata:
		return "storage.getMetadata"
	case KindList:
		return "storage.list"
	case KindDelete:
		return "storage.delete"
	case KindUpload:
		return "storage.upload"
	}
	return "storage.undefined"
}

func objectsPath(bucket string) string {
	return "/storage/v1/b/" + url.PathEscape(bucket) + "/o"
}

func objectPath(p Parent) string {
	return objectsPath(p.Bucket) + "/" + url.PathEscape(p.Object)
}

func newRequest(kind RequestKind, method request.Method, path string) *request.Descriptor {
	return &request.Descriptor{
		Kind:   int(kind),
		Name:   kind.String(),
		Host:   Host,
		Method: method,
		Path:   path,
	}
}

// DownloadRequest streams the object's media into file.
func DownloadRequest(parent Parent, file request.File, opts GetOptions) *request.Descriptor {
	d := newRequest(KindDownload, request.MethodGet, objectPath(parent))
	d.Query.Add("alt", "media")
	opts.query(&d.Query)
	d.File = file
	return d
}

// OTARequest downloads the object as firmware. The transport hands the bytes
// to its firmware sink instead of a file.
func OTARequest(parent Parent, opts GetOptions) *request.Descriptor {
	d := newRequest(KindOTA, request.MethodGet, objectPath(parent))
	d.Query.Add("alt", "media")
	opts.query(&d.Query)
	d.OTA = true
	return d
}

func GetMetadataRequest(parent Parent, opts GetOptions) *request.Descriptor {
	d := newRequest(KindGetMetadata, request.MethodGet, objectPath(parent))
	opts.query(&d.Query)
	return d
}

// ListRequest lists the bucket named by parent; parent.Object is ignored.
func ListRequest(parent Parent, opts ListOptions) *request.Descriptor {
	d := newRequest(KindList, request.MethodGet, objectsPath(parent.Bucket))
	d.Query = opts.query()
	return d
}

func DeleteRequest(parent Parent, opts DeleteOptions) *request.Descriptor {
	d := newRequest(KindDelete, request.MethodDelete, objectPath(parent))
	d.Query = opts.query()
	return d
}

// UploadRequest sends file as a single media upload named parent.Object.
func UploadRequest(parent Parent, file request.File, opts UploadOptions) *request.Descriptor {
	d := newRequest(KindUpload, request.MethodPost, "/upload"+objectsPath(parent.Bucket))
	d.Query.Add("uploadType", "media")
	d.Query.Add("name", url.QueryEscape(parent.Object))
	opts.query(&d.Query)
	if opts.Gzip {
		file = Gzip(file)
	}
	d.File = file
	d.MimeType = opts.mime()
	return d
}
