package services

import (
	"sort"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// SortResults orders results in place by the requested key and returns them.
// The sort is stable: results with equal keys keep their relative order.
func SortResults(results []entities.ScoredResult, sortBy entities.SortBy) []entities.ScoredResult {
	var less func(a, b entities.ScoredResult) bool

	switch sortBy {
	case entities.SortByPopular:
		less = func(a, b entities.ScoredResult) bool {
			return a.Entry.PopularitySeed > b.Entry.PopularitySeed
		}
	case entities.SortByRecent:
		less = func(a, b entities.ScoredResult) bool {
			return a.Entry.SortTime().After(b.Entry.SortTime())
		}
	case entities.SortByOldest:
		less = func(a, b entities.ScoredResult) bool {
			return a.Entry.SortTime().Before(b.Entry.SortTime())
		}
	case entities.SortByDistance:
		// results without a distance go last
		less = func(a, b entities.ScoredResult) bool {
			switch {
			case a.DistanceKm == nil:
				return false
			case b.DistanceKm == nil:
				return true
			default:
				return *a.DistanceKm < *b.DistanceKm
			}
		}
	case entities.SortByAlphabetical:
		less = func(a, b entities.ScoredResult) bool {
			return a.Entry.PrimaryText < b.Entry.PrimaryText
		}
	default:
		less = func(a, b entities.ScoredResult) bool {
			return a.Score > b.Score
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	return results
}
