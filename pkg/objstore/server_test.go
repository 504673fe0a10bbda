package objstore_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/objstore"
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/serverlessresearch/gcrest/pkg/storage"
	"github.com/serverlessresearch/gcrest/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*objstore.Server, *httptest.Server) {
	t.Helper()
	s := objstore.NewServer("127.0.0.1:0", nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestBucketRoutes(t *testing.T) {
	_, srv := newServer(t)

	resp, body := do(t, "POST", srv.URL+"/storage/v1/b?project=p", `{"name":"photos"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"name":"photos"`)

	resp, body = do(t, "POST", srv.URL+"/storage/v1/b", `{"name":"photos"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var e struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	assert.Equal(t, 409, e.Error.Code)
	assert.Contains(t, e.Error.Message, "photos")

	resp, body = do(t, "GET", srv.URL+"/storage/v1/b", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"kind":"storage#buckets"`)
	assert.Contains(t, body, `"photos"`)
}

func TestObjectRoutes(t *testing.T) {
	s, srv := newServer(t)
	require.NoError(t, s.Store().CreateBucket("b"))

	resp, body := do(t, "POST", srv.URL+"/upload/storage/v1/b/b/o?uploadType=media&name=dir%2Fa.txt", "hello")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var md objstore.Metadata
	require.NoError(t, json.Unmarshal([]byte(body), &md))
	assert.Equal(t, "dir/a.txt", md.Name)
	assert.Equal(t, "5", md.Size)

	resp, body = do(t, "GET", srv.URL+"/storage/v1/b/b/o/dir%2Fa.txt?alt=media", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", body)

	resp, body = do(t, "GET", srv.URL+"/storage/v1/b/b/o/dir/a.txt", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"generation":"`+md.Generation+`"`)

	resp, _ = do(t, "GET", srv.URL+"/storage/v1/b/b/o/dir%2Fa.txt?ifGenerationMatch=1", "")
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp, _ = do(t, "GET", srv.URL+"/storage/v1/b/b/o/dir%2Fa.txt?ifGenerationMatch=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, "GET", srv.URL+"/storage/v1/b/b/o?delimiter=/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"prefixes":["dir/"]`)

	resp, _ = do(t, "DELETE", srv.URL+"/storage/v1/b/b/o/dir%2Fa.txt", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, "GET", srv.URL+"/storage/v1/b/b/o/dir%2Fa.txt", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejectsOtherTypes(t *testing.T) {
	s, srv := newServer(t)
	require.NoError(t, s.Store().CreateBucket("b"))
	resp, body := do(t, "POST", srv.URL+"/upload/storage/v1/b/b/o?uploadType=resumable&name=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "resumable")
}

func TestStartAndShutdown(t *testing.T) {
	s := objstore.NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr)

	resp, _ := do(t, "GET", "http://"+s.Addr.String()+"/storage/v1/b", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	s.Wait()
}

// The storage requests run through the dispatcher and transport against
// the emulator standing in for storage.googleapis.com.
func TestStorageServiceRoundTrip(t *testing.T) {
	s, srv := newServer(t)
	require.NoError(t, s.Store().CreateBucket("bucket"))

	cfg := transport.DefaultConfig()
	cfg.RateLimit = 1000
	cfg.RateBurst = 100
	cfg.Endpoints = map[string]string{storage.Host: srv.URL}
	client := transport.New(cfg)
	defer client.Close()

	reg := auth.NewRegistry()
	app := auth.NewApp()
	reg.Register(app, auth.Token{AccessToken: "t", ProjectID: "p"})
	svc := storage.NewService(dispatch.New(client, reg, dispatch.WithPumpInterval(time.Millisecond)))
	svc.SetApp(app)

	await := func(task *dispatch.Task) *dispatch.Result {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.True(t, task.Await(ctx), "%v", task.Err())
		return task.Result()
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "report.csv")
	require.NoError(t, ioutil.WriteFile(src, []byte("a,b\n1,2\n"), 0644))
	in, err := request.LocalFile(src)
	require.NoError(t, err)

	parent := storage.NewParent("bucket", "reports/2024 q1.csv")
	r := await(svc.Upload(parent, in, storage.UploadOptions{MimeType: "text/csv"}))
	var md objstore.Metadata
	require.NoError(t, json.Unmarshal([]byte(r.Payload), &md))
	assert.Equal(t, "reports/2024 q1.csv", md.Name)
	assert.Equal(t, "text/csv", md.ContentType)

	r = await(svc.GetMetadata(parent, storage.GetOptions{Conditions: storage.Conditions{IfGenerationMatch: md.Generation}}))
	assert.Contains(t, r.Payload, `"size":"8"`)

	out, err := request.LocalFile(filepath.Join(dir, "copy.csv"))
	require.NoError(t, err)
	await(svc.Download(parent, out, storage.GetOptions{}))
	raw, err := ioutil.ReadFile(filepath.Join(dir, "copy.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(raw))

	r = await(svc.List(storage.NewParent("bucket", ""), storage.ListOptions{Delimiter: "/"}))
	assert.Contains(t, r.Payload, `"prefixes":["reports/"]`)

	await(svc.Delete(parent, storage.DeleteOptions{}))

	task := svc.GetMetadata(parent, storage.GetOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.False(t, task.Await(ctx))
	assert.Equal(t, http.StatusNotFound, task.Result().Status)
}
