package firestore

import (
	"encoding/json"
	"testing"

	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/serverlessresearch/gcrest/pkg/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentString(t *testing.T) {
	doc := DocumentOf("docs/a", "n", values.Integer(5))
	assert.Equal(t, `{"name":"<resource_path>/docs/a","fields":{"n":{"integerValue":"5"}}}`, doc.String())
}

func TestDocumentWithoutFields(t *testing.T) {
	assert.Equal(t, `{"name":"<resource_path>/docs/a"}`, NewDocument("docs/a").String())
	assert.Equal(t, `{"name":"<resource_path>"}`, NewDocument("").String())
	assert.Equal(t, `{"name":"<resource_path>/docs/b"}`, NewDocument("/docs/b").String())
}

func TestDocumentIsRecomputed(t *testing.T) {
	doc := NewDocument("docs/a")
	before := doc.String()
	doc.Add("s", values.String("x"))
	assert.NotEqual(t, before, doc.String())
	assert.Equal(t, `{"name":"<resource_path>/docs/a","fields":{"s":{"stringValue":"x"}}}`, doc.String())

	doc.SetName("docs/c")
	assert.Equal(t, "docs/c", doc.Name())
	assert.Equal(t, 1, doc.Fields().Len())
}

func TestDocumentIsValidJSON(t *testing.T) {
	m := values.NewMap().Add("inner", values.Bool(true))
	doc := NewDocument("docs/a").
		Add("geo", values.GeoPoint(1.5, -2)).
		Add("m", values.MapOf(m)).
		Add("arr", values.ArrayOf(values.NewArray(values.Integer(1), values.String("a"))))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc.String()), &decoded))
	assert.Equal(t, "<resource_path>/docs/a", decoded["name"])
	assert.Len(t, decoded["fields"], 3)
}

func TestPrecondition(t *testing.T) {
	var none Precondition
	assert.False(t, none.IsSet())
	assert.Equal(t, `{"exists":true}`, Exists(true).String())
	assert.Equal(t, `{"exists":false}`, Exists(false).String())
	assert.Equal(t, `{"updateTime":"2024-01-01T00:00:00Z"}`, UpdatedAt("2024-01-01T00:00:00Z").String())

	var q request.Query
	UpdatedAt("2024-01-01T00:00:00Z").addQuery(&q, "currentDocument")
	assert.Equal(t, "?currentDocument.updateTime=2024-01-01T00:00:00Z", q.Encode())
}

func TestDocumentMask(t *testing.T) {
	m := MaskOf("a, b,,c")
	assert.Equal(t, []string{"a", "b", "c"}, m.Paths())
	assert.Equal(t, `{"fieldPaths":["a","b","c"]}`, m.String())

	var q request.Query
	m.addQuery(&q, "mask")
	assert.Equal(t, "?mask.fieldPaths=a&mask.fieldPaths=b&mask.fieldPaths=c", q.Encode())

	assert.True(t, MaskOf("").Empty())
}
