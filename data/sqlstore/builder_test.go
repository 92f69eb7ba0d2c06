package sqlstore

import (
	"testing"

	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgres(t *testing.T) {
	rows, count, err := Build(Postgres, data.ReadRequest{
		Table:   "responses",
		Columns: []string{"person_id", "value"},
		Filters: []data.Filter{
			{Column: "submitted_at", Op: data.OpGte, Value: "2024-01-01"},
			{Column: "department", Op: data.OpILike, Value: "ops%"},
			{Column: "question_id", Op: data.OpIn, Value: []string{"q1", "q2"}},
		},
		Sort:   []types.Criterion{{Field: "submitted_at", Order: types.Descending}, {Field: "id"}},
		Offset: 20,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "person_id", "value" FROM "responses" WHERE "submitted_at" >= $1 AND "department" ILIKE $2 AND "question_id" IN ($3, $4) ORDER BY "submitted_at" DESC, "id" ASC LIMIT 10 OFFSET 20`, rows.SQL)
	assert.Equal(t, []any{"2024-01-01", "ops%", "q1", "q2"}, rows.Args)
	assert.Equal(t, `SELECT COUNT(*) FROM "responses" WHERE "submitted_at" >= $1 AND "department" ILIKE $2 AND "question_id" IN ($3, $4)`, count.SQL)
	assert.Equal(t, rows.Args, count.Args)
}

func TestBuildMySQL(t *testing.T) {
	rows, _, err := Build(MySQL, data.ReadRequest{
		Table:   "survey.persons",
		Filters: []data.Filter{{Column: "name", Op: data.OpILike, Value: "a%"}, {Column: "left_at", Op: data.OpEq}},
		Offset:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `survey`.`persons` WHERE LOWER(`name`) LIKE LOWER(?) AND `left_at` IS NULL LIMIT 18446744073709551615 OFFSET 5", rows.SQL)
	assert.Equal(t, []any{"a%"}, rows.Args)
}

func TestBuildSQLite(t *testing.T) {
	rows, _, err := Build(SQLite, data.ReadRequest{
		Table:   "questions",
		Filters: []data.Filter{{Column: "id", Op: data.OpIn, Value: []int{}}},
		Offset:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "questions" WHERE 1 = 0 LIMIT -1 OFFSET 3`, rows.SQL)
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, _, err := Build(Postgres, data.ReadRequest{Table: "responses; DROP TABLE x"})
	assert.ErrorIs(t, err, ecode.ErrValidation)

	_, _, err = Build(Postgres, data.ReadRequest{Table: "responses", Sort: []types.Criterion{{Field: "a b"}}})
	assert.ErrorIs(t, err, ecode.ErrValidation)

	_, _, err = Build(Postgres, data.ReadRequest{Table: "responses", Filters: []data.Filter{{Column: "a", Op: "near"}}})
	assert.ErrorIs(t, err, ecode.ErrValidation)
}
