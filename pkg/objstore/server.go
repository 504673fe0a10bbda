package objstore

import (
	"context"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Server struct {
	store  *Store
	log    logrus.FieldLogger
	addr   string
	Addr   net.Addr
	server *http.Server
	done   chan bool
}

// NewServer creates a server bound to addr once started. A nil logger
// discards request logs below warning level.
func NewServer(addr string, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	return &Server{
		store: NewStore(),
		log:   log.WithField("module", "objstore"),
		addr:  addr,
		done:  make(chan bool),
	}
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "error opening listener")
	}
	s.Addr = listener.Addr()
	s.log.Infof("listening at %v", s.Addr)

	s.server = &http.Server{Handler: s.Handler()}
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("serve: %v", err)
		}
		close(s.done)
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) Wait() {
	<-s.done
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))
	r.Use(s.logRequests)

	r.Route("/storage/v1/b", func(r chi.Router) {
		r.Post("/", s.createBucket)
		r.Get("/", s.listBuckets)
		r.Get("/{bucket}/o", s.listObjects)
		r.Get("/{bucket}/o/*", s.getObject)
		r.Delete("/{bucket}/o/*", s.deleteObject)
	})
	r.Post("/upload/storage/v1/b/{bucket}/o", s.uploadObject)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"status":  ww.Status(),
			"elapsed": time.Since(start),
		}).Debugf("%s %s", r.Method, r.URL.RequestURI())
	})
}

type errBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errResponse struct {
	HTTPStatusCode int     `json:"-"`
	Error          errBody `json:"error"`
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch errors.Cause(err) {
	case ErrBucketNotFound, ErrObjectNotFound:
		status = http.StatusNotFound
	case ErrBucketExists:
		status = http.StatusConflict
	case ErrPrecondition:
		status = http.StatusPreconditionFailed
	case ErrInvalidArgument:
		status = http.StatusBadRequest
	}
	render.Render(w, r, &errResponse{
		HTTPStatusCode: status,
		Error:          errBody{Code: status, Message: err.Error()},
	})
}

type bucketResource struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	TimeCreated string `json:"timeCreated,omitempty"`
}

func (s *Server) createBucket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		s.fail(w, r, errors.Wrap(ErrInvalidArgument, err.Error()))
		return
	}
	if err := s.store.CreateBucket(body.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, bucketResource{
		Kind:        "storage#bucket",
		ID:          body.Name,
		Name:        body.Name,
		TimeCreated: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) listBuckets(w http.ResponseWriter, r *http.Request) {
	items := []bucketResource{}
	for _, name := range s.store.Buckets() {
		items = append(items, bucketResource{Kind: "storage#bucket", ID: name, Name: name})
	}
	render.JSON(w, r, map[string]interface{}{
		"kind":  "storage#buckets",
		"items": items,
	})
}

// objectName recovers the object name from the wildcard. chi matches against
// the escaped path when one is present, so names with %2F arrive escaped.
func objectName(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		return "", errors.Wrap(ErrInvalidArgument, "malformed object name")
	}
	if name == "" {
		return "", errors.Wrap(ErrInvalidArgument, "object name is required")
	}
	return name, nil
}

func int64Param(q url.Values, key string) (*int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s: %q is not an integer", key, raw)
	}
	return &n, nil
}

func parseConditions(q url.Values) (Conditions, int64, error) {
	var c Conditions
	var err error
	fields := []struct {
		key string
		dst **int64
	}{
		{"ifGenerationMatch", &c.IfGenerationMatch},
		{"ifGenerationNotMatch", &c.IfGenerationNotMatch},
		{"ifMetagenerationMatch", &c.IfMetagenerationMatch},
		{"ifMetagenerationNotMatch", &c.IfMetagenerationNotMatch},
	}
	for _, f := range fields {
		if *f.dst, err = int64Param(q, f.key); err != nil {
			return c, 0, err
		}
	}
	gen, err := int64Param(q, "generation")
	if err != nil || gen == nil {
		return c, 0, err
	}
	return c, *gen, nil
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	name, err := objectName(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	cond, gen, err := parseConditions(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	obj, err := s.store.Get(chi.URLParam(r, "bucket"), name, gen, cond)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if q.Get("alt") != "media" {
		render.JSON(w, r, obj.Metadata())
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	if obj.ContentEncoding != "" {
		w.Header().Set("Content-Encoding", obj.ContentEncoding)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("ETag", obj.ETag)
	w.Header().Set("X-Goog-Generation", strconv.FormatInt(obj.Generation, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	name, err := objectName(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cond, gen, err := parseConditions(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Delete(chi.URLParam(r, "bucket"), name, gen, cond); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadObject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if t := q.Get("uploadType"); t != "media" {
		s.fail(w, r, errors.Wrapf(ErrInvalidArgument, "unsupported uploadType %q", t))
		return
	}
	cond, _, err := parseConditions(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		s.fail(w, r, errors.Wrap(ErrInvalidArgument, err.Error()))
		return
	}
	obj, err := s.store.Put(chi.URLParam(r, "bucket"), q.Get("name"), r.Header.Get("Content-Type"), q.Get("contentEncoding"), data, cond)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, obj.Metadata())
}

type objectList struct {
	Kind          string     `json:"kind"`
	Items         []Metadata `json:"items,omitempty"`
	Prefixes      []string   `json:"prefixes,omitempty"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := ListQuery{
		Prefix:                   q.Get("prefix"),
		Delimiter:                q.Get("delimiter"),
		StartOffset:              q.Get("startOffset"),
		EndOffset:                q.Get("endOffset"),
		IncludeTrailingDelimiter: q.Get("includeTrailingDelimiter") == "true",
		PageToken:                q.Get("pageToken"),
	}
	maxResults, err := int64Param(q, "maxResults")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if maxResults != nil {
		lq.MaxResults = int(*maxResults)
	}
	page, err := s.store.List(chi.URLParam(r, "bucket"), lq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := objectList{Kind: "storage#objects", Prefixes: page.Prefixes, NextPageToken: page.NextPageToken}
	for _, obj := range page.Objects {
		out.Items = append(out.Items, obj.Metadata())
	}
	render.JSON(w, r, out)
}
