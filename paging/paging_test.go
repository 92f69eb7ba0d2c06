package paging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetInfo(t *testing.T) {
	info := OffsetInfo(2, 10, 10, 25)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNextPage)
	assert.True(t, info.HasPreviousPage)

	last := OffsetInfo(3, 10, 5, 25)
	assert.False(t, last.HasNextPage)

	first := OffsetInfo(1, 10, 0, 0)
	assert.Equal(t, 0, first.TotalPages)
	assert.False(t, first.HasPreviousPage)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestTrim(t *testing.T) {
	items, more := Trim([]int{1, 2, 3}, 2)
	assert.Equal(t, []int{1, 2}, items)
	assert.True(t, more)

	items, more = Trim([]int(nil), 2)
	assert.NotNil(t, items)
	assert.False(t, more)
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 8, time.UTC)
	c, err := EncodeCursor(ts)
	require.NoError(t, err)
	v, err := DecodeCursor(c)
	require.NoError(t, err)
	assert.True(t, ts.Equal(v.(time.Time)))

	c, err = EncodeCursor(42)
	require.NoError(t, err)
	v, err = DecodeCursor(c)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)

	_, err = DecodeCursor("not a cursor")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
