// Package sqlite provides a SQLite survey data provider using
// github.com/mattn/go-sqlite3, suited to local or embedded survey stores.
//
//	import _ "github.com/ncobase/ohsmetrics/data/sqlite"
//
// Sources accept the usual forms:
//
//	"survey.db"
//	"file:survey.db?cache=shared&mode=ro"
//	"file::memory:?cache=shared"
package sqlite

import (
	"context"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/data/sqlstore"
)

func init() {
	data.RegisterDriver(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return "sqlite" }

func (d *driver) Open(ctx context.Context, cfg *config.Data) (data.Provider, error) {
	store, err := sqlstore.Open(ctx, "sqlite3", sqlstore.SQLite, cfg)
	if err != nil {
		return nil, err
	}
	// one writer at a time
	if cfg.MaxOpenConns <= 0 {
		store.DB().SetMaxOpenConns(1)
	}
	return store, nil
}
