package aggregation

import "sort"

// Fixed result sizes per ranking.
const (
	BestEmployersK    = 5
	BestCitiesK       = 10
	LargestEmployersN = 5
)

// Aggregate is the numeric summary of one group.
type Aggregate struct {
	Key   string
	Count int
	// Means holds one mean per tracked dimension, in the caller's dimension order.
	Means []float64
	// Score is the unweighted mean of Means and only drives ranking.
	Score float64
}

// NewAggregate computes Score from the per-dimension means, so a group's record count
// has no weight of its own.
func NewAggregate(key string, count int, means ...float64) Aggregate {
	return Aggregate{
		Key:   key,
		Count: count,
		Means: means,
		Score: MeanIncludingZero(means),
	}
}

// TopK returns up to k aggregates ordered by Score descending, ties broken by Key
// descending. The input slice is left untouched.
func TopK(aggregates []Aggregate, k int) []Aggregate {
	if k <= 0 || len(aggregates) == 0 {
		return []Aggregate{}
	}

	sorted := make([]Aggregate, len(aggregates))
	copy(sorted, aggregates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Key > sorted[j].Key
	})

	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
