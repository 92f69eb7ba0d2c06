// Package postgres provides a PostgreSQL survey data provider.
//
// Reads go through database/sql with the pgx stdlib driver. Change
// subscriptions LISTEN on a channel named after the table; a trigger is
// expected to NOTIFY a JSON payload:
//
//	{"table": "responses", "type": "insert", "new": {...}, "old": {...}}
//
// The driver registers itself when imported:
//
//	import _ "github.com/ncobase/ohsmetrics/data/postgres"
package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/data/sqlstore"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/types"
)

func init() {
	data.RegisterDriver(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return "postgres" }

func (d *driver) Open(ctx context.Context, cfg *config.Data) (data.Provider, error) {
	store, err := sqlstore.Open(ctx, "pgx", sqlstore.Postgres, cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{Store: store, dsn: cfg.Source}, nil
}

// Provider reads with SQL and subscribes with LISTEN/NOTIFY.
type Provider struct {
	*sqlstore.Store
	dsn string
}

var _ data.Provider = (*Provider)(nil)

// payload is the NOTIFY body.
type payload struct {
	Table string          `json:"table"`
	Type  data.ChangeType `json:"type"`
	New   types.Row       `json:"new"`
	Old   types.Row       `json:"old"`
}

func decode(channel string, n *pgx.PgNotification, now time.Time) data.ChangeEvent {
	var p payload
	if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
		return data.ChangeEvent{Channel: channel, Table: n.Channel, At: now, Err: ecode.NewProviderError("postgres.notify", err)}
	}
	if p.Table == "" {
		p.Table = n.Channel
	}
	return data.ChangeEvent{Channel: channel, Table: p.Table, Type: p.Type, New: p.New, Old: p.Old, At: now}
}

// Subscribe opens a dedicated connection and LISTENs until the
// subscription is closed or ctx is done.
func (p *Provider) Subscribe(ctx context.Context, req data.SubscribeRequest, fn func(data.ChangeEvent)) (data.Subscription, error) {
	if fn == nil {
		return nil, ecode.NewValidationError("postgres.subscribe", ecode.FieldIsRequired("callback"))
	}
	if req.Table == "" {
		return nil, ecode.NewValidationError("postgres.subscribe", ecode.FieldIsRequired("table"))
	}

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return nil, ecode.NewProviderError("postgres.subscribe", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{req.Table}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, ecode.NewProviderError("postgres.subscribe", err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close(context.Background())
		for {
			n, err := conn.WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					logger.Warnf(ctx, "postgres: listen on %s stopped: %v", req.Table, err)
					fn(data.ChangeEvent{Channel: req.Channel, Table: req.Table, At: time.Now(), Err: ecode.NewProviderError("postgres.listen", err)})
				}
				return
			}
			ev := decode(req.Channel, n, time.Now())
			if req.Accepts(ev) {
				fn(ev)
			}
		}
	}()

	var once sync.Once
	return data.SubscriptionFunc(func() error {
		once.Do(func() {
			cancel()
			<-done
		})
		return nil
	}), nil
}
