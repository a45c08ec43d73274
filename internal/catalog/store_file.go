package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const filePerm = 0o644

var ErrCorruptSnapshot = errors.New("corrupt catalog file")

// JSONFile stores the catalog as an indented JSON array in a single file.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (f *JSONFile) Path() string { return f.path }

func (f *JSONFile) Load(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	var products []Product
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrCorruptSnapshot)
	}
	if err := checkUnique(products); err != nil {
		return nil, err
	}
	return products, nil
}

func checkUnique(products []Product) error {
	ids := make(map[int64]struct{}, len(products))
	codes := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrCorruptSnapshot, p.ID)
		}
		if _, dup := codes[p.Code]; dup {
			return fmt.Errorf("%w: duplicate code %q", ErrCorruptSnapshot, p.Code)
		}
		ids[p.ID] = struct{}{}
		codes[p.Code] = struct{}{}
	}
	return nil
}

// Save replaces the file through a temp file and a rename, so readers see
// either the previous catalog or the new one.
func (f *JSONFile) Save(ctx context.Context, products []Product) error {
	if products == nil {
		products = []Product{}
	}
	b, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return err
	}

	dir, base := filepath.Split(f.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

type FileStoreOptions struct {
	Log     *zap.Logger
	Metrics *StoreMetrics
}

// OpenFileStore loads the catalog kept at path. A missing or unreadable file
// yields an empty catalog; the cause is logged, never returned.
func OpenFileStore(ctx context.Context, path string, opts FileStoreOptions) *MemStore {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	file := NewJSONFile(path)
	s := &MemStore{
		snap:    file,
		log:     log,
		metrics: opts.Metrics,
	}

	products, err := file.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		log.Info("catalog file not found, starting empty", zap.String("path", path))
	default:
		log.Warn("catalog file unreadable, starting empty", zap.String("path", path), zap.Error(err))
	}

	s.reset(products)
	log.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("products", len(s.records)),
		zap.Int64("next_id", s.nextID),
	)
	return s
}
