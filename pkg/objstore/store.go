package objstore

import (
	"crypto/md5"
	"encoding/base64"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zyedidia/generic"
	"github.com/zyedidia/generic/btree"
)

var (
	ErrBucketExists     = errors.New("bucket already exists")
	ErrBucketNotFound   = errors.New("bucket not found")
	ErrObjectNotFound   = errors.New("object not found")
	ErrPrecondition     = errors.New("precondition failed")
	ErrInvalidArgument  = errors.New("invalid argument")
	defaultMaxResults   = 1000
	collapsedPrefixMark = "\xff"
)

// Object is one stored object version. Only the latest generation is kept.
type Object struct {
	Bucket          string
	Name            string
	Generation      int64
	ContentType     string
	ContentEncoding string
	ETag            string
	Created         time.Time
	Data            []byte
}

// Metadata is the JSON resource of an object.
type Metadata struct {
	Kind            string `json:"kind"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	Bucket          string `json:"bucket"`
	Generation      string `json:"generation"`
	Metageneration  string `json:"metageneration"`
	ContentType     string `json:"contentType,omitempty"`
	ContentEncoding string `json:"contentEncoding,omitempty"`
	Size            string `json:"size"`
	MD5Hash         string `json:"md5Hash"`
	ETag            string `json:"etag"`
	TimeCreated     string `json:"timeCreated"`
	Updated         string `json:"updated"`
}

func (o *Object) Metadata() Metadata {
	sum := md5.Sum(o.Data)
	ts := o.Created.UTC().Format(time.RFC3339Nano)
	gen := strconv.FormatInt(o.Generation, 10)
	return Metadata{
		Kind:            "storage#object",
		ID:              o.Bucket + "/" + o.Name + "/" + gen,
		Name:            o.Name,
		Bucket:          o.Bucket,
		Generation:      gen,
		Metageneration:  "1",
		ContentType:     o.ContentType,
		ContentEncoding: o.ContentEncoding,
		Size:            strconv.Itoa(len(o.Data)),
		MD5Hash:         base64.StdEncoding.EncodeToString(sum[:]),
		ETag:            o.ETag,
		TimeCreated:     ts,
		Updated:         ts,
	}
}

type bucket struct {
	name    string
	created time.Time
	objects *btree.Tree[string, *Object]
}

// Conditions mirror the ifGeneration*/ifMetageneration* parameters. Nil
// fields are not checked.
type Conditions struct {
	IfGenerationMatch        *int64
	IfGenerationNotMatch     *int64
	IfMetagenerationMatch    *int64
	IfMetagenerationNotMatch *int64
}

// check tests the conditions against the current generation, 0 when the
// object does not exist.
func (c Conditions) check(generation int64) error {
	meta := int64(0)
	if generation != 0 {
		meta = 1
	}
	switch {
	case c.IfGenerationMatch != nil && *c.IfGenerationMatch != generation:
		return errors.Wrapf(ErrPrecondition, "ifGenerationMatch %d, have %d", *c.IfGenerationMatch, generation)
	case c.IfGenerationNotMatch != nil && *c.IfGenerationNotMatch == generation:
		return errors.Wrapf(ErrPrecondition, "ifGenerationNotMatch %d", generation)
	case c.IfMetagenerationMatch != nil && *c.IfMetagenerationMatch != meta:
		return errors.Wrapf(ErrPrecondition, "ifMetagenerationMatch %d, have %d", *c.IfMetagenerationMatch, meta)
	case c.IfMetagenerationNotMatch != nil && *c.IfMetagenerationNotMatch == meta:
		return errors.Wrapf(ErrPrecondition, "ifMetagenerationNotMatch %d", meta)
	}
	return nil
}

// Store is an in-memory set of buckets, each indexing its objects by name
// in a btree so listings come out sorted.
type Store struct {
	m       sync.RWMutex
	buckets *btree.Tree[string, *bucket]
	lastGen int64
}

func NewStore() *Store {
	return &Store{buckets: btree.New[string, *bucket](generic.Less[string])}
}

func (s *Store) CreateBucket(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidArgument, "bucket name is required")
	}
	s.m.Lock()
	defer s.m.Unlock()
	if _, ok := s.buckets.Get(name); ok {
		return errors.Wrap(ErrBucketExists, name)
	}
	s.buckets.Put(name, &bucket{
		name:    name,
		created: time.Now(),
		objects: btree.New[string, *Object](generic.Less[string]),
	})
	return nil
}

func (s *Store) Buckets() []string {
	s.m.RLock()
	defer s.m.RUnlock()
	var names []string
	s.buckets.Each(func(name string, _ *bucket) {
		names = append(names, name)
	})
	return names
}

func (s *Store) bucket(name string) (*bucket, error) {
	b, ok := s.buckets.Get(name)
	if !ok {
		return nil, errors.Wrap(ErrBucketNotFound, name)
	}
	return b, nil
}

// nextGeneration returns a strictly increasing generation number.
func (s *Store) nextGeneration() int64 {
	gen := time.Now().UnixNano() / 1000
	if gen <= s.lastGen {
		gen = s.lastGen + 1
	}
	s.lastGen = gen
	return gen
}

// Put stores a new generation of an object.
func (s *Store) Put(bucketName, name, contentType, contentEncoding string, data []byte, cond Conditions) (*Object, error) {
	if name == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "object name is required")
	}
	s.m.Lock()
	defer s.m.Unlock()
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	var current int64
	if old, ok := b.objects.Get(name); ok {
		current = old.Generation
	}
	if err := cond.check(current); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj := &Object{
		Bucket:          bucketName,
		Name:            name,
		Generation:      s.nextGeneration(),
		ContentType:     contentType,
		ContentEncoding: contentEncoding,
		ETag:            uuid.New().String(),
		Created:         time.Now(),
		Data:            append([]byte(nil), data...),
	}
	b.objects.Put(name, obj)
	return obj, nil
}

// Get returns the object. A non-zero generation must match the stored one.
func (s *Store) Get(bucketName, name string, generation int64, cond Conditions) (*Object, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	obj, ok := b.objects.Get(name)
	if !ok || (generation != 0 && obj.Generation != generation) {
		return nil, errors.Wrap(ErrObjectNotFound, bucketName+"/"+name)
	}
	if err := cond.check(obj.Generation); err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *Store) Delete(bucketName, name string, generation int64, cond Conditions) error {
	s.m.Lock()
	defer s.m.Unlock()
	b, err := s.bucket(bucketName)
	if err != nil {
		return err
	}
	obj, ok := b.objects.Get(name)
	if !ok || (generation != 0 && obj.Generation != generation) {
		return errors.Wrap(ErrObjectNotFound, bucketName+"/"+name)
	}
	if err := cond.check(obj.Generation); err != nil {
		return err
	}
	b.objects.Remove(name)
	return nil
}

type ListQuery struct {
	Prefix                   string
	Delimiter                string
	StartOffset              string
	EndOffset                string
	IncludeTrailingDelimiter bool
	MaxResults               int
	PageToken                string
}

type ListPage struct {
	Objects       []*Object
	Prefixes      []string
	NextPageToken string
}

// List walks the bucket in name order. With a delimiter, names below the
// prefix that contain it collapse into a single prefix entry. Objects and
// prefixes both count towards MaxResults.
func (s *Store) List(bucketName string, q ListQuery) (*ListPage, error) {
	after := ""
	if q.PageToken != "" {
		raw, err := base64.RawURLEncoding.DecodeString(q.PageToken)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidArgument, "malformed page token")
		}
		after = string(raw)
	}
	limit := q.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	s.m.RLock()
	defer s.m.RUnlock()
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}

	page := &ListPage{}
	seen := make(map[string]bool)
	last := ""
	full := false
	b.objects.Each(func(name string, obj *Object) {
		if full && page.NextPageToken != "" {
			return
		}
		if !strings.HasPrefix(name, q.Prefix) || (after != "" && name <= after) {
			return
		}
		if q.StartOffset != "" && name < q.StartOffset {
			return
		}
		if q.EndOffset != "" && name >= q.EndOffset {
			return
		}

		var collapsed string
		if q.Delimiter != "" {
			rest := name[len(q.Prefix):]
			if i := strings.Index(rest, q.Delimiter); i >= 0 {
				collapsed = q.Prefix + rest[:i+len(q.Delimiter)]
			}
		}
		trailing := q.IncludeTrailingDelimiter && collapsed == name
		if collapsed != "" && seen[collapsed] && !trailing {
			return
		}

		if full {
			page.NextPageToken = base64.RawURLEncoding.EncodeToString([]byte(last))
			return
		}
		switch {
		case collapsed == "":
			page.Objects = append(page.Objects, obj)
			last = name
		case trailing:
			page.Objects = append(page.Objects, obj)
			if !seen[collapsed] {
				seen[collapsed] = true
				page.Prefixes = append(page.Prefixes, collapsed)
			}
			last = collapsed + collapsedPrefixMark
		default:
			seen[collapsed] = true
			page.Prefixes = append(page.Prefixes, collapsed)
			last = collapsed + collapsedPrefixMark
		}
		full = len(page.Objects)+len(page.Prefixes) >= limit
	})
	return page, nil
}
