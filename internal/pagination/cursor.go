// Package pagination drives limit/offset queries until the remote side runs out of rows.
package pagination

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPageSize is used by callers that do not configure a page size.
const DefaultPageSize = 1000

// ErrInvalidPageSize is returned when a cursor is built with a page size below 1.
var ErrInvalidPageSize = errors.New("pagination: page size must be at least 1")

// FetchFunc retrieves at most limit records starting at offset.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Cursor walks a paginated query one page at a time. A short or empty page ends the
// walk. A cursor cannot be rewound.
type Cursor[T any] struct {
	fetch  FetchFunc[T]
	limit  int
	offset int
	calls  int
	done   bool
}

// New returns a cursor positioned at offset 0.
func New[T any](limit int, fetch FetchFunc[T]) (*Cursor[T], error) {
	if limit < 1 {
		return nil, ErrInvalidPageSize
	}
	if fetch == nil {
		return nil, errors.New("pagination: fetch function is nil")
	}
	return &Cursor[T]{fetch: fetch, limit: limit}, nil
}

// Next fetches the next page. It returns ok=false once the previous page proved the
// result set exhausted; the final page is returned together with ok=true.
func (c *Cursor[T]) Next(ctx context.Context) (page []T, ok bool, err error) {
	if c.done {
		return nil, false, nil
	}

	page, err = c.fetch(ctx, c.offset, c.limit)
	c.calls++
	if err != nil {
		c.done = true
		return nil, false, fmt.Errorf("failed to fetch page at offset %d: %w", c.offset, err)
	}

	// An exactly full last page costs one more round trip that comes back empty.
	if len(page) < c.limit {
		c.done = true
	}
	c.offset += c.limit

	if len(page) == 0 {
		return nil, false, nil
	}
	return page, true, nil
}

// Calls reports how many fetches the cursor has issued.
func (c *Cursor[T]) Calls() int { return c.calls }

// Done reports whether the cursor has reached the end of the result set.
func (c *Cursor[T]) Done() bool { return c.done }

// Collect drains a fresh cursor and returns every record in fetch order.
func Collect[T any](ctx context.Context, limit int, fetch FetchFunc[T]) ([]T, error) {
	cursor, err := New(limit, fetch)
	if err != nil {
		return nil, err
	}

	all := make([]T, 0)
	for !cursor.Done() {
		page, _, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	return all, nil
}
