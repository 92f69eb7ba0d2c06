// Package mongodb provides a MongoDB survey data provider.
//
// Tables map to collections of the configured database. Subscriptions use
// change streams, which need a replica set or sharded cluster.
//
//	import _ "github.com/ncobase/ohsmetrics/data/mongodb"
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/logging/logger"
	"github.com/ncobase/ohsmetrics/types"
)

func init() {
	data.RegisterDriver(&driver{})
}

type driver struct{}

func (d *driver) Name() string { return "mongodb" }

func (d *driver) Open(ctx context.Context, cfg *config.Data) (data.Provider, error) {
	if cfg == nil || cfg.Source == "" {
		return nil, errors.New("mongodb: connection source is empty")
	}

	opts := options.Client().ApplyURI(cfg.Source)
	if cfg.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}
	if cfg.MaxIdleConns > 0 {
		opts.SetMinPoolSize(uint64(cfg.MaxIdleConns))
	}
	if cfg.ConnMaxLifetime > 0 {
		opts.SetMaxConnIdleTime(cfg.ConnMaxLifetime)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect error: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping error: %w", err)
	}
	return &Provider{client: client, db: client.Database(cfg.Database)}, nil
}

// Provider reads collections of one database.
type Provider struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ data.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return "mongodb" }

func (p *Provider) Close() error {
	return p.client.Disconnect(context.Background())
}

var operators = map[data.Op]string{
	data.OpNeq: "$ne",
	data.OpGt:  "$gt",
	data.OpGte: "$gte",
	data.OpLt:  "$lt",
	data.OpLte: "$lte",
}

// buildFilter translates filters into a query document. Several filters on
// one column are combined with $and.
func buildFilter(filters []data.Filter) (bson.M, error) {
	clauses := make(bson.A, 0, len(filters))
	for _, f := range filters {
		var cond any
		switch f.Op {
		case data.OpEq:
			cond = f.Value
		case data.OpNeq, data.OpGt, data.OpGte, data.OpLt, data.OpLte:
			cond = bson.M{operators[f.Op]: f.Value}
		case data.OpLike, data.OpILike:
			pattern, ok := f.Value.(string)
			if !ok {
				return nil, ecode.NewValidationError("mongodb.filter", ecode.FieldIsInvalid(f.Column))
			}
			var opts string
			if f.Op == data.OpILike {
				opts = "i"
			}
			cond = primitive.Regex{Pattern: data.LikeRegexp(pattern, false), Options: opts}
		case data.OpIn:
			values, err := data.InValues(f.Value)
			if err != nil {
				return nil, ecode.NewValidationError("mongodb.filter", ecode.FieldIsInvalid(f.Column))
			}
			cond = bson.M{"$in": values}
		default:
			return nil, ecode.NewValidationError("mongodb.filter", ecode.NotSupported(fmt.Sprintf("operator %q", f.Op)))
		}
		clauses = append(clauses, bson.M{f.Column: cond})
	}
	switch len(clauses) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauses[0].(bson.M), nil
	}
	return bson.M{"$and": clauses}, nil
}

func buildSort(criteria []types.Criterion) bson.D {
	if len(criteria) == 0 {
		return nil
	}
	sort := make(bson.D, len(criteria))
	for i, c := range criteria {
		dir := 1
		if c.Order == types.Descending {
			dir = -1
		}
		sort[i] = bson.E{Key: c.Field, Value: dir}
	}
	return sort
}

func buildProjection(columns []string) bson.D {
	if len(columns) == 0 {
		return nil
	}
	proj := make(bson.D, 0, len(columns)+1)
	keepID := false
	for _, c := range columns {
		if c == "_id" {
			keepID = true
		}
		proj = append(proj, bson.E{Key: c, Value: 1})
	}
	if !keepID {
		proj = append(proj, bson.E{Key: "_id", Value: 0})
	}
	return proj
}

// Read implements data.Provider.
func (p *Provider) Read(ctx context.Context, req data.ReadRequest) (*data.ReadResult, error) {
	filter, err := buildFilter(req.Filters)
	if err != nil {
		return nil, err
	}
	coll := p.db.Collection(req.Table)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, ecode.Classify("mongodb.read", err)
	}

	opts := options.Find()
	if sort := buildSort(req.Sort); sort != nil {
		opts.SetSort(sort)
	}
	if proj := buildProjection(req.Columns); proj != nil {
		opts.SetProjection(proj)
	}
	if req.Offset > 0 {
		opts.SetSkip(int64(req.Offset))
	}
	if req.Limit > 0 {
		opts.SetLimit(int64(req.Limit))
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, ecode.Classify("mongodb.read", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, ecode.Classify("mongodb.read", err)
	}

	rows := make([]types.Row, len(docs))
	for i, doc := range docs {
		rows[i] = toRow(doc)
	}
	return &data.ReadResult{Rows: rows, Count: int(total)}, nil
}

// toRow flattens driver specific values into plain Go values.
func toRow(doc bson.M) types.Row {
	row := make(types.Row, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case primitive.DateTime:
			row[k] = val.Time().UTC()
		case primitive.ObjectID:
			row[k] = val.Hex()
		case bson.M:
			row[k] = toRow(val)
		case int32:
			row[k] = int64(val)
		default:
			row[k] = v
		}
	}
	return row
}

type changeDoc struct {
	OperationType string `bson:"operationType"`
	FullDocument  bson.M `bson:"fullDocument"`
	DocumentKey   bson.M `bson:"documentKey"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
}

func changeType(op string) (data.ChangeType, bool) {
	switch op {
	case "insert":
		return data.ChangeInsert, true
	case "update", "replace":
		return data.ChangeUpdate, true
	case "delete":
		return data.ChangeDelete, true
	}
	return "", false
}

func (c changeDoc) event(channel string, now time.Time) (data.ChangeEvent, bool) {
	t, ok := changeType(c.OperationType)
	if !ok {
		return data.ChangeEvent{}, false
	}
	ev := data.ChangeEvent{Channel: channel, Table: c.NS.Coll, Type: t, At: now}
	if t == data.ChangeDelete {
		ev.Old = toRow(c.DocumentKey)
	} else {
		ev.New = toRow(c.FullDocument)
	}
	return ev, true
}

// Subscribe watches the collection's change stream.
func (p *Provider) Subscribe(ctx context.Context, req data.SubscribeRequest, fn func(data.ChangeEvent)) (data.Subscription, error) {
	if fn == nil {
		return nil, ecode.NewValidationError("mongodb.subscribe", ecode.FieldIsRequired("callback"))
	}
	if req.Table == "" {
		return nil, ecode.NewValidationError("mongodb.subscribe", ecode.FieldIsRequired("table"))
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := p.db.Collection(req.Table).Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, ecode.NewProviderError("mongodb.subscribe", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			var doc changeDoc
			if err := stream.Decode(&doc); err != nil {
				fn(data.ChangeEvent{Channel: req.Channel, Table: req.Table, At: time.Now(), Err: ecode.NewProviderError("mongodb.decode", err)})
				continue
			}
			if ev, ok := doc.event(req.Channel, time.Now()); ok && req.Accepts(ev) {
				fn(ev)
			}
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			logger.Warnf(ctx, "mongodb: change stream on %s stopped: %v", req.Table, err)
			fn(data.ChangeEvent{Channel: req.Channel, Table: req.Table, At: time.Now(), Err: ecode.NewProviderError("mongodb.watch", err)})
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
