// Package sqlstore implements data.Provider on top of database/sql.
//
// Backend packages (postgres, mysql, sqlite) open the *sql.DB with their
// driver and pick a Dialect; this package renders and runs the queries.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
)

// Store reads survey tables through a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open opens and pings a database with the given database/sql driver,
// applying the pool settings of cfg.
func Open(ctx context.Context, driverName string, dialect Dialect, cfg *config.Data) (*Store, error) {
	if cfg == nil || cfg.Source == "" {
		return nil, fmt.Errorf("%s: connection source is empty", dialect.Name)
	}

	db, err := sql.Open(driverName, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open connection: %w", dialect.Name, err)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", dialect.Name, err)
	}
	return New(db, dialect), nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect queries are rendered in.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Name() string { return s.dialect.Name }

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%s: failed to close connection: %w", s.dialect.Name, err)
	}
	return nil
}

// Read implements data.Provider.
func (s *Store) Read(ctx context.Context, req data.ReadRequest) (*data.ReadResult, error) {
	op := s.dialect.Name + ".read"
	rowsQuery, countQuery, err := Build(s.dialect, req)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery.SQL, countQuery.Args...).Scan(&total); err != nil {
		return nil, ecode.Classify(op, err)
	}

	rows, err := s.db.QueryContext(ctx, rowsQuery.SQL, rowsQuery.Args...)
	if err != nil {
		return nil, ecode.Classify(op, err)
	}
	defer rows.Close()

	out, err := scan(rows)
	if err != nil {
		return nil, ecode.Classify(op, err)
	}
	return &data.ReadResult{Rows: out, Count: total}, nil
}

func scan(rows *sql.Rows) ([]types.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]types.Row, 0)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for rows.Next() {
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ErrSubscribeUnsupported is returned by backends without change notifications.
var ErrSubscribeUnsupported = errors.New("change subscriptions not supported")

// Subscribe implements data.Provider for backends that cannot push changes.
func (s *Store) Subscribe(context.Context, data.SubscribeRequest, func(data.ChangeEvent)) (data.Subscription, error) {
	return nil, ecode.NewProviderError(s.dialect.Name+".subscribe", fmt.Errorf("%w: %w", ErrSubscribeUnsupported, errors.ErrUnsupported))
}
