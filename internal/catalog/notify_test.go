package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestNotifyingStore_PublishesSuccessfulMutations(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := catalog.NewNotifyingStore(catalog.NewMemStore(), pub, zap.NewNop())

	p, err := s.Add(ctx, fields(t, map[string]any{"code": "A"}))
	require.NoError(t, err)
	_, err = s.Add(ctx, fields(t, map[string]any{"code": "A"}))
	require.ErrorIs(t, err, catalog.ErrDuplicateCode)

	_, ok, err := s.Update(ctx, p.ID, fields(t, map[string]any{"stock": 3}))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = s.Update(ctx, 42, fields(t, map[string]any{"stock": 3}))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Delete(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Delete(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, ok)

	assert.Equal(t, []string{
		events.TypeProductCreated,
		events.TypeProductUpdated,
		events.TypeProductDeleted,
	}, pub.types())

	var created catalog.Product
	require.NoError(t, json.Unmarshal(pub.events[0].Data, &created))
	assert.Equal(t, p.ID, created.ID)
	assert.JSONEq(t, `{"id":1}`, string(pub.events[2].Data))
	assert.NotEmpty(t, pub.events[0].ID)
}

func TestNotifyingStore_PublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	pub := &recordingPublisher{err: errors.New("nats down")}
	s := catalog.NewNotifyingStore(catalog.NewMemStore(), pub, zap.New(core))

	p, err := s.Add(ctx, fields(t, map[string]any{"code": "A"}))
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("publish catalog event failed").Len())
}

func TestNotifyingStore_PublishesAppliedButUnpersisted(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	inner := catalog.OpenFileStore(ctx, filepath.Join(dir, "products.json"), catalog.FileStoreOptions{Log: zap.NewNop()})
	pub := &recordingPublisher{}
	s := catalog.NewNotifyingStore(inner, pub, zap.NewNop())

	require.NoError(t, os.RemoveAll(dir))

	p, err := s.Add(ctx, fields(t, map[string]any{"code": "A"}))
	require.ErrorIs(t, err, catalog.ErrPersist)
	_, ok, err := s.Update(ctx, p.ID, fields(t, map[string]any{"stock": 1}))
	require.ErrorIs(t, err, catalog.ErrPersist)
	require.True(t, ok)
	ok, err = s.Delete(ctx, p.ID)
	require.ErrorIs(t, err, catalog.ErrPersist)
	require.True(t, ok)

	_, err = s.Add(ctx, fields(t, map[string]any{"title": "no code"}))
	require.ErrorIs(t, err, catalog.ErrCodeRequired)

	assert.Equal(t, []string{
		events.TypeProductCreated,
		events.TypeProductUpdated,
		events.TypeProductDeleted,
	}, pub.types())
}
