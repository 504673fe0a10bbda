package firestore

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBareUpdateWrite(t *testing.T) {
	w := UpdateWrite(DocumentMask{}, NewDocument("docs/a"), Precondition{})
	assert.Equal(t, `{"update":{"name":"<resource_path>/docs/a"}}`, w.String())
}

func TestUpdateWriteKeyOrder(t *testing.T) {
	doc := DocumentOf("docs/a", "n", values.Integer(1))
	w := UpdateWrite(NewMask("n"), doc, Exists(true))
	require.NoError(t, w.AddUpdateTransform(Increment("n", values.Integer(2))))

	assert.Equal(t,
		`{"update":{"name":"<resource_path>/docs/a","fields":{"n":{"integerValue":"1"}}},`+
			`"updateMask":{"fieldPaths":["n"]},`+
			`"currentDocument":{"exists":true},`+
			`"updateTransforms":[{"fieldPath":"n","increment":{"integerValue":"2"}}]}`,
		w.String())
}

func TestUpdateTransformsAppend(t *testing.T) {
	w := UpdateWrite(DocumentMask{}, NewDocument("docs/a"), Precondition{})
	require.NoError(t, w.AddUpdateTransform(Increment("a", values.Integer(1))))
	require.NoError(t, w.AddUpdateTransform(SetToServerValue("t", ServerValueRequestTime)))

	var decoded struct {
		UpdateTransforms []map[string]interface{} `json:"updateTransforms"`
	}
	require.NoError(t, json.Unmarshal([]byte(w.String()), &decoded))
	require.Len(t, decoded.UpdateTransforms, 2)
	assert.Equal(t, "a", decoded.UpdateTransforms[0]["fieldPath"])
	assert.Equal(t, "REQUEST_TIME", decoded.UpdateTransforms[1]["setToServerValue"])
}

func TestUpdateTransformOnOtherKinds(t *testing.T) {
	del := DeleteWrite("docs/a", Precondition{})
	before := del.String()

	err := del.AddUpdateTransform(Increment("a", values.Integer(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrStructuralMisuse))
	assert.Equal(t, before, del.String())

	tr := TransformWrite(NewDocumentTransform("docs/a"), Precondition{})
	assert.True(t, errors.Is(tr.AddUpdateTransform(Increment("a", values.Integer(1))), dispatch.ErrStructuralMisuse))
}

func TestDeleteWrite(t *testing.T) {
	assert.Equal(t, `{"delete":"<resource_path>/docs/a"}`, DeleteWrite("docs/a", Precondition{}).String())
	assert.Equal(t,
		`{"currentDocument":{"updateTime":"2024-01-01T00:00:00Z"},"delete":"<resource_path>/docs/a"}`,
		DeleteWrite("docs/a", UpdatedAt("2024-01-01T00:00:00Z")).String())
}

func TestTransformWrite(t *testing.T) {
	arr := values.NewArray(values.String("x"))
	tr := NewDocumentTransform("docs/a",
		AppendMissingElements("tags", arr),
		Maximum("hi", values.Double(1.5)),
	)
	w := TransformWrite(tr, Exists(true))
	assert.Equal(t,
		`{"currentDocument":{"exists":true},"transform":{"document":"<resource_path>/docs/a","fieldTransforms":[`+
			`{"fieldPath":"tags","appendMissingElements":{"values":[{"stringValue":"x"}]}},`+
			`{"fieldPath":"hi","maximum":{"doubleValue":1.5}}]}}`,
		w.String())
}

func TestFieldTransforms(t *testing.T) {
	arr := values.NewArray(values.Integer(3))
	cases := []struct {
		want string
		ft   FieldTransform
	}{
		{`{"fieldPath":"f","minimum":{"integerValue":"1"}}`, Minimum("f", values.Integer(1))},
		{`{"fieldPath":"f","removeAllFromArray":{"values":[{"integerValue":"3"}]}}`, RemoveAllFromArray("f", arr)},
		{`{"fieldPath":"f","setToServerValue":"SERVER_VALUE_UNSPECIFIED"}`, SetToServerValue("f", ServerValueUnspecified)},
		{`{"fieldPath":"f","appendMissingElements":{}}`, AppendMissingElements("f", values.NewArray())},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.ft.String())
		assert.Equal(t, "f", c.ft.FieldPath())
	}
}

func TestWrites(t *testing.T) {
	ws := NewWrites("", DeleteWrite("docs/a", Precondition{}))
	assert.Equal(t, `{"writes":[{"delete":"<resource_path>/docs/a"}]}`, ws.String())

	ws = NewWrites("tx1").
		Add(DeleteWrite("docs/a", Precondition{})).
		Add(DeleteWrite("docs/b", Precondition{}))
	assert.Equal(t, 2, ws.Len())
	assert.Equal(t, "tx1", ws.Transaction())
	assert.Equal(t,
		`{"transaction":"tx1","writes":[{"delete":"<resource_path>/docs/a"},{"delete":"<resource_path>/docs/b"}]}`,
		ws.String())
	assert.Equal(t,
		`{"writes":[{"delete":"<resource_path>/docs/a"},{"delete":"<resource_path>/docs/b"}]}`,
		ws.encode(false))
}
