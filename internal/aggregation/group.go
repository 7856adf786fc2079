package aggregation

import (
	"strings"

	"github.com/jonathan/jobstats/internal/types"
)

// Groups holds records partitioned by key. Keys lists each key once, in the order it
// was first seen.
type Groups[T any] struct {
	Keys    []string
	Members map[string][]T
}

// GroupBy partitions records by the value keyFn returns. Keys compare by exact string
// equality and the empty key is a group like any other.
func GroupBy[T any](records []T, keyFn func(T) string) Groups[T] {
	g := Groups[T]{Members: make(map[string][]T)}
	for _, rec := range records {
		key := keyFn(rec)
		if _, seen := g.Members[key]; !seen {
			g.Keys = append(g.Keys, key)
		}
		g.Members[key] = append(g.Members[key], rec)
	}
	return g
}

// firmKey groups reviews by employer name as stored.
func firmKey(r types.Review) string { return r.Firm }

// cityKey groups reviews by trimmed location.
func cityKey(r types.Review) string { return strings.TrimSpace(r.Location) }

// correlationKey builds the (title, location) key shared by postings and reviews.
func correlationKey(title, location string) string {
	return strings.TrimSpace(title) + "\x00" + strings.TrimSpace(location)
}

func reviewCorrelationKey(r types.Review) string {
	return correlationKey(r.JobTitle, r.Location)
}
