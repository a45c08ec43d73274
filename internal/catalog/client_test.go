package catalog_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
)

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newCatalogTS(t, catalog.NewMemStore(), catalog.HTTPDeps{})
	c := catalog.NewClient(ts.URL+"/", "")

	require.NoError(t, c.Ping(ctx))

	p, err := c.Add(ctx, fields(t, map[string]any{"code": "P001", "price": 20.88, "stock": 50}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "20.88", string(p.Attrs["price"]))

	_, err = c.Add(ctx, fields(t, map[string]any{"code": "P001"}))
	require.ErrorIs(t, err, catalog.ErrDuplicateCode)

	_, err = c.Add(ctx, fields(t, map[string]any{"title": "no code"}))
	require.ErrorIs(t, err, catalog.ErrCodeRequired)

	got, ok, err := c.Update(ctx, p.ID, fields(t, map[string]any{"stock": 10}))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, attr[int](t, got, "stock"))

	_, ok, err = c.Update(ctx, 99, fields(t, map[string]any{"stock": 1}))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.Update(ctx, p.ID, fields(t, map[string]any{"id": 2}))
	require.ErrorIs(t, err, catalog.ErrIDImmutable)

	fetched, ok, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, fetched)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Product{got}, list)

	ok, err = c.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Unauthorized(t *testing.T) {
	ts := newCatalogTS(t, catalog.NewMemStore(), catalog.HTTPDeps{Auth: newAuthServer(t)})

	_, err := catalog.NewClient(ts.URL, "").Add(context.Background(), fields(t, map[string]any{"code": "A"}))
	require.ErrorIs(t, err, catalog.ErrUnauthorized)

	_, err = catalog.NewClient(ts.URL, "not-a-jwt").Add(context.Background(), fields(t, map[string]any{"code": "A"}))
	require.ErrorIs(t, err, catalog.ErrUnauthorized)
}

func TestClient_PersistFailureReturnsStoredState(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store := catalog.OpenFileStore(ctx, filepath.Join(dir, "products.json"), catalog.FileStoreOptions{Log: zap.NewNop()})
	ts := newCatalogTS(t, store, catalog.HTTPDeps{})
	c := catalog.NewClient(ts.URL, "")

	_, err := c.Add(ctx, fields(t, map[string]any{"code": "A", "stock": 5}))
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))

	p, err := c.Add(ctx, fields(t, map[string]any{"code": "B", "title": "arepa"}))
	require.ErrorIs(t, err, catalog.ErrPersist)
	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "B", p.Code)
	assert.Equal(t, "arepa", attr[string](t, p, "title"))

	got, ok, err := c.Update(ctx, 1, fields(t, map[string]any{"stock": 9}))
	require.ErrorIs(t, err, catalog.ErrPersist)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, 9, attr[int](t, got, "stock"))

	ok, err = c.Delete(ctx, 2)
	require.ErrorIs(t, err, catalog.ErrPersist)
	assert.True(t, ok)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "memory stays authoritative")
	assert.Equal(t, int64(1), list[0].ID)
}

func TestClient_Unavailable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	c := catalog.NewClient(url, "")
	_, err := c.List(context.Background())
	require.ErrorIs(t, err, catalog.ErrUnavailable)
	require.ErrorIs(t, c.Ping(context.Background()), catalog.ErrUnavailable)
}
