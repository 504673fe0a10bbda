package request_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryTracksSeparator(t *testing.T) {
	var q request.Query
	assert.Equal(t, "", q.Encode())

	q.Add("documentId", "a")
	assert.Equal(t, "?documentId=a", q.Encode())

	q.AddTokens("mask.fieldPaths", "x, y,,z").Add("skipped", "")
	assert.Equal(t, "?documentId=a&mask.fieldPaths=x&mask.fieldPaths=y&mask.fieldPaths=z", q.Encode())
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, "a", q.Get("documentId"))
}

func TestQueryNumbersAndBools(t *testing.T) {
	var q request.Query
	q.AddInt("pageSize", 0).AddBool("showMissing", false)
	assert.Equal(t, "", q.Encode())

	q.AddInt("pageSize", 10).AddBool("showMissing", true)
	assert.Equal(t, "?pageSize=10&showMissing=true", q.Encode())
}

func TestQueryMerge(t *testing.T) {
	var a, b request.Query
	a.Add("k", "1")
	b.Add("j", "2")
	a.Merge(b)
	assert.Equal(t, "?k=1&j=2", a.Encode())
}

func TestEscapeExtras(t *testing.T) {
	assert.Equal(t, "/documents/my%20col?orderBy=a%2Cb%20desc", request.EscapeExtras("/documents/my col?orderBy=a,b desc"))
}

func TestResolveFirestorePath(t *testing.T) {
	d := &request.Descriptor{
		Resource: &request.Resource{Version: request.V1, Parent: request.NewParent("", "")},
		Path:     "/documents:commit",
	}
	path, root := d.Resolve("token-project")
	assert.Equal(t, "/v1/projects/token-project/databases/(default)/documents:commit", path)
	assert.Equal(t, "projects/token-project/databases/(default)/documents", root)

	d.Resource = &request.Resource{Version: request.V1Beta1, Parent: request.NewParent("p", "db")}
	d.Path = "/indexes"
	path, root = d.Resolve("ignored")
	assert.Equal(t, "/v1beta1/projects/p/databases/db/indexes", path)
	assert.Equal(t, "projects/p/databases/db/documents", root)
}

func TestResolveDatabaseAsParam(t *testing.T) {
	d := &request.Descriptor{
		Resource: &request.Resource{Version: request.V1, Parent: request.NewParent("p", "db"), DatabaseAsParam: true},
	}
	path, _ := d.Resolve("")
	assert.Equal(t, "/v1/projects/p/databases", path)
}

func TestResolveWithoutResource(t *testing.T) {
	d := &request.Descriptor{Path: "/storage/v1/b/bkt/o"}
	path, root := d.Resolve("p")
	assert.Equal(t, "/storage/v1/b/bkt/o", path)
	assert.Equal(t, "", root)
}

func TestResolvePayload(t *testing.T) {
	d := &request.Descriptor{
		Payload:     `{"writes":[{"delete":"<resource_path>/a/b"},{"delete":"<resource_path>/a/c"}]}`,
		Placeholder: "<resource_path>",
	}
	assert.Equal(t,
		`{"writes":[{"delete":"projects/p/databases/(default)/documents/a/b"},{"delete":"projects/p/databases/(default)/documents/a/c"}]}`,
		d.ResolvePayload("projects/p/databases/(default)/documents"))

	d.Placeholder = ""
	assert.Equal(t, d.Payload, d.ResolvePayload("x"))
}

func TestMethod(t *testing.T) {
	assert.Equal(t, "PATCH", request.MethodPatch.String())
	assert.Equal(t, "UNDEFINED", request.MethodUndefined.String())
	assert.True(t, request.MethodPut.Sends())
	assert.False(t, request.MethodGet.Sends())
}

func TestLocalFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gcrest-file")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	f, err := request.LocalFile(filepath.Join(dir, "nested", "obj.bin"))
	require.NoError(t, err)

	w, err := f.Create()
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	r, err := f.Open()
	require.NoError(t, err)
	defer r.Close()
	data, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
