package aggregation

import "github.com/jonathan/jobstats/internal/types"

// MeanExcludingZero averages the non-zero values. Zero means "not rated" and adds to
// neither the sum nor the count. With no rated value the mean is 0.
func MeanExcludingZero(values []float64) float64 {
	var sum float64
	var count int
	for _, v := range values {
		if v == 0 {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MeanIncludingZero averages every value, zeros included, over len(values). The mean of
// an empty slice is 0.
func MeanIncludingZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ReviewMean is the mean of a review's seven rating dimensions, skipping blank ones.
func ReviewMean(r types.Review) float64 {
	ratings := r.Ratings()
	return MeanExcludingZero(ratings[:])
}

// meanOfReviewMeans averages ReviewMean across reviews. Every review counts, including
// one whose dimensions are all blank.
func meanOfReviewMeans(reviews []types.Review) float64 {
	means := make([]float64, len(reviews))
	for i, r := range reviews {
		means[i] = ReviewMean(r)
	}
	return MeanIncludingZero(means)
}
