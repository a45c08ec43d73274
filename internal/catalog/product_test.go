package catalog_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProductCatalog/internal/catalog"
)

func TestProduct_MarshalOrdersIDCodeThenAttrs(t *testing.T) {
	p := catalog.Product{
		ID:   3,
		Code: "P003",
		Attrs: catalog.Fields{
			"title": json.RawMessage(`"tequeño"`),
			"price": json.RawMessage(`5.50`),
			"code":  json.RawMessage(`"ignored"`),
		},
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"code":"P003","price":5.50,"title":"tequeño"}`, string(raw))
}

func TestProduct_NullAttrKeptAsNull(t *testing.T) {
	p, err := catalog.NewMemStore().Add(context.Background(), fields(t, map[string]any{"code": "A", "note": nil}))
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"code":"A","note":null}`, string(raw))
}

func TestProduct_UnmarshalSplitsIdentity(t *testing.T) {
	var p catalog.Product
	require.NoError(t, json.Unmarshal([]byte(`{"code":"A","id":2,"tags":[ "x", "y" ]}`), &p))

	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "A", p.Code)
	assert.Equal(t, catalog.Fields{"tags": json.RawMessage(`["x","y"]`)}, p.Attrs)
}

func TestProduct_UnmarshalRejects(t *testing.T) {
	tests := map[string]string{
		"array":      `[]`,
		"null":       `null`,
		"no id":      `{"code":"A"}`,
		"float id":   `{"id":1.5,"code":"A"}`,
		"no code":    `{"id":1}`,
		"empty code": `{"id":1,"code":""}`,
		"bool code":  `{"id":1,"code":true}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			var p catalog.Product
			assert.Error(t, json.Unmarshal([]byte(in), &p))
		})
	}
}

func TestProduct_Attr(t *testing.T) {
	p := catalog.Product{Attrs: fields(t, map[string]any{"stock": 7})}

	var stock int
	ok, err := p.Attr("stock", &stock)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, stock)

	ok, err = p.Attr("missing", &stock)
	require.NoError(t, err)
	assert.False(t, ok)
}
