package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshotter reads and writes the whole catalog at once.
type Snapshotter interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
}

// MemStore keeps the catalog in insertion order. With a Snapshotter attached
// every successful mutation is written out before the call returns; the write
// happens under the store lock so snapshots never interleave.
//
// A mutation whose context is already done is refused without touching the
// catalog. Once memory has changed, the write ignores cancellation so the file
// cannot fall behind because a caller went away.
type MemStore struct {
	mu      sync.RWMutex
	records []Product
	nextID  int64

	snap    Snapshotter
	log     *zap.Logger
	metrics *StoreMetrics
}

// NewMemStore returns a store without a backing file, holding seed in order.
// Seed records keep their ids.
func NewMemStore(seed ...Product) *MemStore {
	s := &MemStore{log: zap.NewNop()}
	s.reset(seed)
	return s
}

func (s *MemStore) reset(products []Product) {
	s.records = make([]Product, 0, len(products))
	for _, p := range products {
		s.records = append(s.records, p.clone())
	}
	s.nextID = nextIDAfter(s.records)
	s.metrics.setProducts(len(s.records))
}

func nextIDAfter(products []Product) int64 {
	var hi int64
	for _, p := range products {
		hi = max(hi, p.ID)
	}
	return hi + 1
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, p.clone())
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, false, nil
	}
	return s.records[i].clone(), true, nil
}

func (s *MemStore) Add(ctx context.Context, f Fields) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	p, err := newProduct(s.nextID, f)
	if err != nil {
		return Product{}, err
	}
	if s.indexOfCode(p.Code) >= 0 {
		s.log.Debug("add rejected", zap.String("code", p.Code), zap.Error(ErrDuplicateCode))
		return Product{}, ErrDuplicateCode
	}

	s.nextID++
	s.records = append(s.records, p)
	return p.clone(), s.persistLocked(context.WithoutCancel(ctx))
}

func (s *MemStore) Update(ctx context.Context, id int64, patch Fields) (Product, bool, error) {
	patch, code, hasCode, err := checkPatch(patch)
	if err != nil {
		return Product{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Product{}, false, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return Product{}, false, nil
	}
	if hasCode {
		if j := s.indexOfCode(code); j >= 0 && j != i {
			return Product{}, true, ErrDuplicateCode
		}
	}

	s.records[i] = merge(s.records[i], patch)
	return s.records[i].clone(), true, s.persistLocked(context.WithoutCancel(ctx))
}

func (s *MemStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	s.records = slices.Delete(s.records, i, i+1)
	return true, s.persistLocked(context.WithoutCancel(ctx))
}

// Persist writes the current catalog to the snapshotter.
func (s *MemStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *MemStore) persistLocked(ctx context.Context) error {
	s.metrics.setProducts(len(s.records))
	if s.snap == nil {
		return nil
	}

	start := time.Now()
	err := s.snap.Save(ctx, s.records)
	s.metrics.observePersist(start, err)
	if err != nil {
		s.log.Error("persist catalog failed", zap.Error(err), zap.Int("products", len(s.records)))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *MemStore) indexOf(id int64) int {
	return slices.IndexFunc(s.records, func(p Product) bool { return p.ID == id })
}

func (s *MemStore) indexOfCode(code string) int {
	return slices.IndexFunc(s.records, func(p Product) bool { return p.Code == code })
}
