package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"

	productsTable = "products"
)

// PostgresStore keeps products in a table; ids come from a BIGSERIAL column so
// they keep increasing after deletes.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	query, args, err := s.sb.
		Select("id", "code", "attrs").
		From(productsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out []Product
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	query, args, err := s.sb.
		Select("id", "code", "attrs").
		From(productsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return Product{}, false, err
	}

	var p Product
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.db.QueryRowContext(ctx, query, args...))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

// Add checks the code under a table lock before inserting, so a rejected add
// never draws a value from the id sequence.
func (s *PostgresStore) Add(ctx context.Context, f Fields) (Product, error) {
	p, err := newProduct(0, f)
	if err != nil {
		return Product{}, err
	}
	attrs, err := encodeAttrs(p.Attrs)
	if err != nil {
		return Product{}, err
	}

	exists, existsArgs, err := s.sb.
		Select("1").
		From(productsTable).
		Where(sq.Eq{"code": p.Code}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return Product{}, err
	}
	insert, insertArgs, err := s.sb.
		Insert(productsTable).
		Columns("code", "attrs").
		Values(p.Code, attrs).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Product{}, err
	}

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		// Serializes adds with each other but not with readers.
		if _, err := tx.ExecContext(ctx, "LOCK TABLE "+productsTable+" IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return err
		}

		var taken bool
		if err := tx.QueryRowContext(ctx, exists, existsArgs...).Scan(&taken); err != nil {
			return err
		}
		if taken {
			return ErrDuplicateCode
		}

		if err := tx.QueryRowContext(ctx, insert, insertArgs...).Scan(&p.ID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, ErrDuplicateCode) || isUniqueViolation(err) {
		return Product{}, ErrDuplicateCode
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, patch Fields) (Product, bool, error) {
	patch, _, _, err := checkPatch(patch)
	if err != nil {
		return Product{}, false, err
	}

	var (
		updated Product
		found   bool
	)
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		query, args, err := s.sb.
			Select("id", "code", "attrs").
			From(productsTable).
			Where(sq.Eq{"id": id}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return err
		}

		current, err := scanProduct(tx.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		updated = merge(current, patch)
		attrs, err := encodeAttrs(updated.Attrs)
		if err != nil {
			return err
		}

		query, args, err = s.sb.
			Update(productsTable).
			Set("code", updated.Code).
			Set("attrs", attrs).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		return tx.Commit()
	})
	if isUniqueViolation(err) {
		return Product{}, true, ErrDuplicateCode
	}
	if err != nil {
		return Product{}, found, err
	}
	if !found {
		return Product{}, false, nil
	}
	return updated, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.sb.
		Delete(productsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, err
	}

	var n int64
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p   Product
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.Code, &raw); err != nil {
		return Product{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Attrs); err != nil {
			return Product{}, fmt.Errorf("product %d attrs: %w", p.ID, err)
		}
	}
	if p.Attrs == nil {
		p.Attrs = Fields{}
	}
	return p, nil
}

func encodeAttrs(attrs Fields) (string, error) {
	if attrs == nil {
		attrs = Fields{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
