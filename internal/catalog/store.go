package catalog

import (
	"context"
	"errors"
)

var (
	ErrDuplicateCode = errors.New("product code is already in use")
	ErrCodeRequired  = errors.New("product code is required")
	ErrInvalidCode   = errors.New("product code must be a string")
	ErrIDImmutable   = errors.New("product id is assigned by the catalog")
	ErrPersist       = errors.New("persist catalog")
)

// Store is the catalog surface shared by the file-backed store, the Postgres
// store and the HTTP client.
//
// A missing product is reported through the bool results, never as an error.
// When a mutation returns an error wrapping ErrPersist the change was applied
// but could not be written out.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, bool, error)
	Add(ctx context.Context, f Fields) (Product, error)
	Update(ctx context.Context, id int64, patch Fields) (Product, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*NotifyingStore)(nil)
	_ Store = (*Client)(nil)
)
