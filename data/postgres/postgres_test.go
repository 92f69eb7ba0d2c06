package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/stretchr/testify/assert"
)

func TestDriverName(t *testing.T) {
	d := &driver{}
	assert.Equal(t, "postgres", d.Name())
}

func TestDecodeNotification(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ev := decode("sub-1", &pgx.PgNotification{
		Channel: "responses",
		Payload: `{"type":"insert","new":{"person_id":"p1","value":3}}`,
	}, now)

	assert.NoError(t, ev.Err)
	assert.Equal(t, "sub-1", ev.Channel)
	assert.Equal(t, "responses", ev.Table)
	assert.Equal(t, data.ChangeInsert, ev.Type)
	assert.Equal(t, "p1", ev.New["person_id"])
	assert.Equal(t, now, ev.At)
}

func TestDecodeBadPayload(t *testing.T) {
	ev := decode("sub-1", &pgx.PgNotification{Channel: "responses", Payload: "not json"}, time.Now())
	assert.ErrorIs(t, ev.Err, ecode.ErrProvider)
}
