package transport_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/serverlessresearch/gcrest/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHost = "api.test"

type fixture struct {
	client *transport.Client
	d      *dispatch.Dispatcher
	app    auth.App
}

func newFixture(t *testing.T, handler http.Handler, tweak func(*transport.Config)) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := transport.DefaultConfig()
	cfg.RateLimit = 1000
	cfg.RateBurst = 100
	cfg.Endpoints = map[string]string{testHost: srv.URL}
	if tweak != nil {
		tweak(&cfg)
	}
	client := transport.New(cfg)
	t.Cleanup(func() { client.Close() })

	reg := auth.NewRegistry()
	app := auth.NewApp()
	reg.Register(app, auth.Token{AccessToken: "secret", ProjectID: "proj"})
	d := dispatch.New(client, reg, dispatch.WithPumpInterval(time.Millisecond))
	return &fixture{client: client, d: d, app: app}
}

func await(t *testing.T, task *dispatch.Task) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok := task.Await(ctx)
	require.True(t, task.Done(), "task did not settle")
	return ok
}

func TestPayloadExchange(t *testing.T) {
	var got struct {
		method, path, query, auth, agent, contentType, body string
	}
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := ioutil.ReadAll(r.Body)
		got.method, got.path, got.query = r.Method, r.URL.EscapedPath(), r.URL.RawQuery
		got.auth, got.agent, got.contentType = r.Header.Get("Authorization"), r.Header.Get("User-Agent"), r.Header.Get("Content-Type")
		got.body = string(raw)
		w.Header().Set("X-Test", "yes")
		w.Write([]byte(`{"ok":true}`))
	}), nil)

	var q request.Query
	q.Add("orderBy", "a desc")
	task := f.d.Dispatch(f.app, &request.Descriptor{
		Name:    "test",
		Host:    testHost,
		Method:  request.MethodPost,
		Path:    "/v1/things:run",
		Payload: `{"a":1}`,
		Query:   q,
	})
	require.True(t, await(t, task))

	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "/v1/things:run", got.path)
	assert.Equal(t, "orderBy=a%20desc", got.query)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "gcrest/1.0", got.agent)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, `{"a":1}`, got.body)

	r := task.Result()
	assert.True(t, r.Available)
	assert.Equal(t, 200, r.Status)
	assert.Equal(t, `{"ok":true}`, r.Payload)
	assert.Equal(t, "yes", r.Header.Get("X-Test"))

	f.d.Loop()
	assert.Equal(t, 0, f.client.Live())
}

func TestRetriesTransientFailures(t *testing.T) {
	var hits int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("done"))
	}), nil)

	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/x"})
	require.True(t, await(t, task))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, "done", task.Result().Payload)
}

func TestRetriesExhausted(t *testing.T) {
	var hits int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}), func(cfg *transport.Config) { cfg.MaxRetries = 1 })

	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/x"})
	require.False(t, await(t, task))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.True(t, errors.Is(task.Err(), dispatch.ErrServerError))
	assert.Equal(t, http.StatusTooManyRequests, task.Result().LastError.Code)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var hits int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":{"code":404,"message":"nope"}}`, http.StatusNotFound)
	}), nil)

	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/missing"})
	require.False(t, await(t, task))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	r := task.Result()
	assert.True(t, r.ErrorAvailable)
	assert.Equal(t, 404, r.Status)
	assert.Contains(t, r.LastError.Message, "nope")
	assert.Equal(t, dispatch.StateFailed, task.State())
}

func TestConnectionFailure(t *testing.T) {
	f := newFixture(t, http.NotFoundHandler(), func(cfg *transport.Config) {
		cfg.MaxRetries = 0
		cfg.Endpoints = map[string]string{testHost: "http://127.0.0.1:1"}
	})
	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/x"})
	require.False(t, await(t, task))
	assert.True(t, errors.Is(task.Err(), dispatch.ErrClientError))
	assert.Equal(t, dispatch.CodeConnection, task.Result().LastError.Code)
}

func TestCapacity(t *testing.T) {
	f := newFixture(t, http.NotFoundHandler(), func(cfg *transport.Config) { cfg.Capacity = 1 })

	first := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/a"}, dispatch.Async(false))
	second := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/b"}, dispatch.Async(false))

	assert.False(t, first.Done())
	assert.True(t, second.Done())
	assert.True(t, errors.Is(second.Err(), dispatch.ErrOperationCancelled))
	assert.Equal(t, 1, f.client.Live())
}

func TestFileUploadAndDownload(t *testing.T) {
	var uploaded []byte
	var contentType string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploaded, _ = ioutil.ReadAll(r.Body)
			contentType = r.Header.Get("Content-Type")
			w.Write([]byte(`{"name":"obj"}`))
			return
		}
		w.Write([]byte("downloaded bytes"))
	}), nil)

	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, ioutil.WriteFile(src, []byte("upload me"), 0644))
	in, err := request.LocalFile(src)
	require.NoError(t, err)

	up := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodPost, Path: "/upload", File: in, MimeType: "text/plain"})
	require.True(t, await(t, up))
	assert.Equal(t, "upload me", string(uploaded))
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, int64(9), up.Result().Upload.Total)
	assert.Equal(t, int64(9), up.Result().Upload.Done)

	out, err := request.LocalFile(filepath.Join(dir, "sub", "out.txt"))
	require.NoError(t, err)
	down := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/download", File: out})
	require.True(t, await(t, down))
	assert.Empty(t, down.Result().Payload)
	assert.Equal(t, int64(16), down.Result().Download.Done)

	raw, err := ioutil.ReadFile(filepath.Join(dir, "sub", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "downloaded bytes", string(raw))
}

type firmware struct {
	bytes.Buffer
	size   int64
	closed bool
}

func (f *firmware) Close() error {
	f.closed = true
	return nil
}

func TestOTA(t *testing.T) {
	image := []byte("firmware image")
	fw := &firmware{}
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(image)
	}), func(cfg *transport.Config) {
		cfg.Firmware = func(size int64) (io.WriteCloser, error) {
			fw.size = size
			return fw, nil
		}
	})

	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/fw", OTA: true})
	require.True(t, await(t, task))
	assert.Equal(t, image, fw.Bytes())
	assert.Equal(t, int64(len(image)), fw.size)
	assert.True(t, fw.closed)
	assert.True(t, task.Result().Download.OTA)
}

func TestOTAWithoutFirmwareSink(t *testing.T) {
	var hits int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}), nil)

	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/fw", OTA: true})
	require.False(t, await(t, task))
	assert.Equal(t, dispatch.CodeNoFirmware, task.Result().LastError.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestCloseCancelsLiveSlots(t *testing.T) {
	f := newFixture(t, http.NotFoundHandler(), nil)

	task := f.d.Dispatch(f.app, &request.Descriptor{Host: testHost, Method: request.MethodGet, Path: "/a"}, dispatch.Async(false))
	require.False(t, task.Done())

	err := f.client.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/a")
	assert.Equal(t, dispatch.StateCancelled, task.State())
	assert.True(t, errors.Is(task.Err(), dispatch.ErrOperationCancelled))

	_, ok := f.client.AcquireSlot(dispatch.SlotOptions{})
	assert.False(t, ok)
	assert.NoError(t, f.client.Close())
}
