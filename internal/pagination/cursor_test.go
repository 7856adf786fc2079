package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource serves offset/limit windows over a fixed backing slice.
type sliceSource struct {
	rows    []int
	offsets []int
}

func (s *sliceSource) fetch(_ context.Context, offset, limit int) ([]int, error) {
	s.offsets = append(s.offsets, offset)
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := min(offset+limit, len(s.rows))
	return append([]int(nil), s.rows[offset:end]...), nil
}

func backing(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i * 10
	}
	return rows
}

func TestCollect_ReturnsBackingSequenceForEveryPageSize(t *testing.T) {
	for n := 0; n <= 12; n++ {
		for limit := 1; limit <= 13; limit++ {
			t.Run(fmt.Sprintf("n=%d/limit=%d", n, limit), func(t *testing.T) {
				src := &sliceSource{rows: backing(n)}

				got, err := Collect(context.Background(), limit, src.fetch)
				require.NoError(t, err)
				assert.Equal(t, backing(n), got)

				// Exact multiples (including n=0) pay for one extra empty fetch.
				wantCalls := n/limit + 1
				assert.Len(t, src.offsets, wantCalls)
				for i, off := range src.offsets {
					assert.Equal(t, i*limit, off)
				}
			})
		}
	}
}

func TestCollect_EmptyResultIsEmptySlice(t *testing.T) {
	src := &sliceSource{}
	got, err := Collect(context.Background(), 10, src.fetch)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCursor_ExactMultipleIssuesExtraEmptyCall(t *testing.T) {
	src := &sliceSource{rows: backing(4)}
	cursor, err := New(2, src.fetch)
	require.NoError(t, err)

	ctx := context.Background()
	page, ok, err := cursor.Next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 10}, page)

	page, ok, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{20, 30}, page)
	assert.False(t, cursor.Done())

	page, ok, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, page)
	assert.True(t, cursor.Done())
	assert.Equal(t, 3, cursor.Calls())

	// Exhausted cursors do not fetch again.
	_, ok, err = cursor.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, cursor.Calls())
}

func TestCursor_ShortPageStopsWithoutExtraCall(t *testing.T) {
	src := &sliceSource{rows: backing(3)}
	cursor, err := New(2, src.fetch)
	require.NoError(t, err)

	_, _, _ = cursor.Next(context.Background())
	page, ok, err := cursor.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{20}, page)
	assert.True(t, cursor.Done())
	assert.Equal(t, 2, cursor.Calls())
}

func TestCollect_FetchErrorAbortsTraversal(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	fetch := func(_ context.Context, offset, limit int) ([]int, error) {
		calls++
		if offset >= limit {
			return nil, boom
		}
		return backing(limit), nil
	}

	got, err := Collect(context.Background(), 5, fetch)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "offset 5")
	assert.Equal(t, 2, calls)
}

func TestCollect_PassesContextToFetch(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")

	fetch := func(ctx context.Context, _, _ int) ([]int, error) {
		assert.Equal(t, "request-1", ctx.Value(ctxKey{}))
		return nil, nil
	}
	_, err := Collect(ctx, 3, fetch)
	require.NoError(t, err)
}

func TestNew_RejectsInvalidArguments(t *testing.T) {
	src := &sliceSource{}

	_, err := New(0, src.fetch)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = New(-3, src.fetch)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = New[int](5, nil)
	assert.Error(t, err)

	_, err = Collect(context.Background(), 0, src.fetch)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
	assert.Empty(t, src.offsets)
}

func ExampleCollect() {
	rows := []string{"a", "b", "c", "d", "e"}
	fetch := func(_ context.Context, offset, limit int) ([]string, error) {
		if offset >= len(rows) {
			return nil, nil
		}
		fmt.Printf("fetch offset=%d limit=%d\n", offset, limit)
		return rows[offset:min(offset+limit, len(rows))], nil
	}

	all, _ := Collect(context.Background(), 2, fetch)
	fmt.Println(all)
	// Output:
	// fetch offset=0 limit=2
	// fetch offset=2 limit=2
	// fetch offset=4 limit=2
	// [a b c d e]
}
