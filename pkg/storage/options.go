package storage

import (
	"net/url"

	"github.com/serverlessresearch/gcrest/pkg/request"
)

// Parent names a bucket and, for object operations, an object in it.
type Parent struct {
	Bucket string
	Object string
}

func NewParent(bucket, object string) Parent {
	return Parent{Bucket: bucket, Object: object}
}

// Projection values for the projection parameter.
const (
	ProjectionFull  = "full"
	ProjectionNoACL = "noAcl"
)

// Conditions make an object request conditional on its generation or
// metageneration. Values are decimal strings; "0" in IfGenerationMatch
// requires that the object does not exist yet.
type Conditions struct {
	IfGenerationMatch        string
	IfGenerationNotMatch     string
	IfMetagenerationMatch    string
	IfMetagenerationNotMatch string
}

// addValue appends a query-escaped parameter so names holding '&', '+' or
// '#' stay intact.
func addValue(q *request.Query, key, value string) {
	q.Add(key, url.QueryEscape(value))
}

func (c Conditions) addQuery(q *request.Query) {
	addValue(q, "ifGenerationMatch", c.IfGenerationMatch)
	addValue(q, "ifGenerationNotMatch", c.IfGenerationNotMatch)
	addValue(q, "ifMetagenerationMatch", c.IfMetagenerationMatch)
	addValue(q, "ifMetagenerationNotMatch", c.IfMetagenerationNotMatch)
}

// GetOptions apply to downloads, OTA downloads and metadata reads.
type GetOptions struct {
	Generation string
	Conditions
	Projection string
}

func (o GetOptions) query(q *request.Query) {
	addValue(q, "generation", o.Generation)
	o.Conditions.addQuery(q)
	addValue(q, "projection", o.Projection)
}

type ListOptions struct {
	Delimiter                string
	Prefix                   string
	MaxResults               int
	PageToken                string
	Versions                 bool
	StartOffset              string
	EndOffset                string
	IncludeTrailingDelimiter bool
	MatchGlob                string
	Projection               string
}

func (o ListOptions) query() request.Query {
	var q request.Query
	addValue(&q, "delimiter", o.Delimiter)
	addValue(&q, "prefix", o.Prefix)
	q.AddInt("maxResults", int64(o.MaxResults))
	addValue(&q, "pageToken", o.PageToken)
	q.AddBool("versions", o.Versions)
	addValue(&q, "startOffset", o.StartOffset)
	addValue(&q, "endOffset", o.EndOffset)
	q.AddBool("includeTrailingDelimiter", o.IncludeTrailingDelimiter)
	addValue(&q, "matchGlob", o.MatchGlob)
	addValue(&q, "projection", o.Projection)
	return q
}

type DeleteOptions struct {
	Generation string
	Conditions
}

func (o DeleteOptions) query() request.Query {
	var q request.Query
	addValue(&q, "generation", o.Generation)
	o.Conditions.addQuery(&q)
	return q
}

// UploadOptions shape a media upload. MimeType defaults to
// application/octet-stream. With Gzip set the file is compressed before it
// is sent and stored with Content-Encoding gzip.
type UploadOptions struct {
	MimeType        string
	ContentEncoding string
	PredefinedACL   string
	KMSKeyName      string
	Conditions
	Projection string
	Gzip       bool
}

func (o UploadOptions) query(q *request.Query) {
	encoding := o.ContentEncoding
	if o.Gzip {
		encoding = "gzip"
	}
	addValue(q, "contentEncoding", encoding)
	addValue(q, "predefinedAcl", o.PredefinedACL)
	addValue(q, "kmsKeyName", o.KMSKeyName)
	o.Conditions.addQuery(q)
	addValue(q, "projection", o.Projection)
}

func (o UploadOptions) mime() string {
	if o.MimeType == "" {
		return "application/octet-stream"
	}
	return o.MimeType
}
