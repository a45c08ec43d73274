package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ProductCatalog/internal/events"
)

// NotifyingStore publishes an event after each mutation the wrapped store
// applied, including ones it could not persist. A failed publish is logged and
// never fails the mutation.
type NotifyingStore struct {
	Store
	pub events.Publisher
	log *zap.Logger
}

func NewNotifyingStore(inner Store, pub events.Publisher, log *zap.Logger) *NotifyingStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotifyingStore{Store: inner, pub: pub, log: log}
}

func (s *NotifyingStore) Add(ctx context.Context, f Fields) (Product, error) {
	p, err := s.Store.Add(ctx, f)
	if applied(err) && p.ID != 0 {
		s.publish(ctx, events.TypeProductCreated, p)
	}
	return p, err
}

func (s *NotifyingStore) Update(ctx context.Context, id int64, patch Fields) (Product, bool, error) {
	p, ok, err := s.Store.Update(ctx, id, patch)
	if applied(err) && ok {
		s.publish(ctx, events.TypeProductUpdated, p)
	}
	return p, ok, err
}

func (s *NotifyingStore) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.Store.Delete(ctx, id)
	if applied(err) && ok {
		s.publish(ctx, events.TypeProductDeleted, map[string]int64{"id": id})
	}
	return ok, err
}

// applied reports whether a mutation that returned err changed the catalog.
func applied(err error) bool {
	return err == nil || errors.Is(err, ErrPersist)
}

func (s *NotifyingStore) publish(ctx context.Context, eventType string, data any) {
	ev, err := events.New(eventType, data)
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("publish catalog event failed", zap.String("type", eventType), zap.Error(err))
	}
}
