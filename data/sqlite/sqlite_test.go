package sqlite

import (
	"context"
	"testing"

	"github.com/ncobase/ohsmetrics/config"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/data/sqlstore"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) data.Provider {
	t.Helper()
	p, err := (&driver{}).Open(context.Background(), &config.Data{Driver: "sqlite", Source: "file::memory:?cache=shared"})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	db := p.(*sqlstore.Store).DB()
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS persons (id INTEGER PRIMARY KEY, name TEXT, department TEXT);
		DELETE FROM persons;
		INSERT INTO persons (id, name, department) VALUES
			(1, 'Ana', 'Operations'), (2, 'Bo', 'Finance'), (3, 'Cy', 'operations'), (4, 'Di', 'Operations');`)
	require.NoError(t, err)
	return p
}

func TestDriverName(t *testing.T) {
	d := &driver{}
	assert.Equal(t, "sqlite", d.Name())
}

func TestRead(t *testing.T) {
	p := openTest(t)

	res, err := p.Read(context.Background(), data.ReadRequest{
		Table:   "persons",
		Columns: []string{"id", "name"},
		Filters: []data.Filter{{Column: "department", Op: data.OpILike, Value: "oper%"}},
		Sort:    []types.Criterion{{Field: "id", Order: types.Descending}},
		Offset:  1,
		Limit:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Cy", res.Rows[0]["name"])
	assert.Equal(t, int64(1), res.Rows[1]["id"])
}

func TestSubscribeUnsupported(t *testing.T) {
	p := openTest(t)
	_, err := p.Subscribe(context.Background(), data.SubscribeRequest{Table: "persons"}, func(data.ChangeEvent) {})
	assert.ErrorIs(t, err, ecode.ErrProvider)
	assert.ErrorIs(t, err, sqlstore.ErrSubscribeUnsupported)
}
