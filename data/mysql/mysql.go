// Package mysql provides a MySQL survey data provider using
// github.com/go-sql-driver/mysql. MySQL has no change notifications, so
// Subscribe reports an unsupported provider error.
//
//	import _ "github.com/ncobase/ohsmetrics/data/mysql"
package mysql

import (
	"context"

	"github.com/go-sql-driver/mysql"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/data/sqlstore"
)

func init() {
	data.RegisterDriver(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return "mysql" }

func (d *driver) Open(ctx context.Context, cfg *config.Data) (data.Provider, error) {
	if cfg != nil && cfg.Source != "" {
		source, err := normalizeDSN(cfg.Source)
		if err != nil {
			return nil, err
		}
		c := *cfg
		c.Source = source
		cfg = &c
	}
	return sqlstore.Open(ctx, "mysql", sqlstore.MySQL, cfg)
}

// normalizeDSN forces parseTime so DATETIME columns scan into time.Time.
func normalizeDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	c.ParseTime = true
	return c.FormatDSN(), nil
}
