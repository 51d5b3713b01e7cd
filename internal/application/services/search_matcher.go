package services

import (
	"sort"
	"strings"
	"time"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// ScoringWeights are the per-field points awarded for each matching query term
type ScoringWeights struct {
	VenueName  int
	VenueTerm  int
	VenueCity  int
	BlogTitle  int
	BlogTerm   int
	BlogAuthor int
	BlogVenue  int
}

// DefaultScoringWeights returns the product-tuned weights
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		VenueName:  5,
		VenueTerm:  3,
		VenueCity:  2,
		BlogTitle:  10,
		BlogTerm:   3,
		BlogAuthor: 5,
		BlogVenue:  4,
	}
}

// QueryMatcher filters and scores index entries against a query
type QueryMatcher struct {
	weights ScoringWeights
	now     func() time.Time
}

// NewQueryMatcher creates a matcher with the given weights
func NewQueryMatcher(weights ScoringWeights) *QueryMatcher {
	return &QueryMatcher{weights: weights, now: time.Now}
}

// Match applies the filters to every entry, scores the survivors and returns
// them best first. A blank query scores by the popularity seed; any other query
// drops entries scoring zero, including queries made only of stop words.
func (m *QueryMatcher) Match(query string, filters entities.SearchFilters, entries []*entities.IndexEntry) []entities.ScoredResult {
	browse := strings.TrimSpace(query) == ""
	terms := ExtractTerms(query)
	now := m.now()

	results := make([]entities.ScoredResult, 0, len(entries))
	for _, entry := range entries {
		if entry == nil || !m.accepts(entry, filters, now) {
			continue
		}

		if browse {
			results = append(results, entities.ScoredResult{Entry: entry, Score: entry.PopularitySeed})
			continue
		}

		score, matched := m.score(entry, terms)
		if score == 0 {
			continue
		}
		results = append(results, entities.ScoredResult{Entry: entry, Score: score, MatchedTerms: matched})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return rankedBefore(results[i], results[j])
	})
	return results
}

// rankedBefore orders by score, then recency, then key so equal inputs always rank the same
func rankedBefore(a, b entities.ScoredResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	ta, tb := a.Entry.SortTime(), b.Entry.SortTime()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.Entry.Key() < b.Entry.Key()
}

func (m *QueryMatcher) accepts(entry *entities.IndexEntry, filters entities.SearchFilters, now time.Time) bool {
	if !entry.IsPublished {
		return false
	}

	if c := strings.TrimSpace(filters.Category); c != "" && !strings.EqualFold(c, "all") {
		if !strings.EqualFold(entry.Category, c) {
			return false
		}
	}

	if filters.AuthorID != "" {
		owner := entry.AuthorID
		if entry.EntityType == entities.EntityTypeVenue {
			owner = entry.CreatedBy
		}
		if owner != filters.AuthorID {
			return false
		}
	}

	if len(filters.Tags) > 0 && !sharesTag(entry.Tags, filters.Tags) {
		return false
	}

	if cutoff, ok := dateRangeCutoff(filters.DateRange, now); ok {
		if entry.SortTime().Before(cutoff) {
			return false
		}
	}

	return true
}

func (m *QueryMatcher) score(entry *entities.IndexEntry, terms []string) (int, []string) {
	var (
		total   int
		matched []string
	)

	for _, term := range terms {
		points := 0
		switch entry.EntityType {
		case entities.EntityTypeVenue:
			if strings.Contains(entry.PrimaryText, term) {
				points += m.weights.VenueName
			}
			if anyContains(entry.SearchTerms, term) {
				points += m.weights.VenueTerm
			}
			if strings.Contains(strings.ToLower(entry.City), term) {
				points += m.weights.VenueCity
			}
		case entities.EntityTypeBlog:
			if strings.Contains(entry.PrimaryText, term) {
				points += m.weights.BlogTitle
			}
			if anyContains(entry.SearchTerms, term) {
				points += m.weights.BlogTerm
			}
			if strings.Contains(strings.ToLower(entry.AuthorName), term) {
				points += m.weights.BlogAuthor
			}
			if anyContainsFold(entry.LinkedVenueNames, term) {
				points += m.weights.BlogVenue
			}
		}

		if points > 0 {
			total += points
			matched = append(matched, term)
		}
	}

	return total, matched
}

func anyContains(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(v, term) {
			return true
		}
	}
	return false
}

func anyContainsFold(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func sharesTag(entryTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range entryTags {
			if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

func dateRangeCutoff(r entities.DateRange, now time.Time) (time.Time, bool) {
	switch r {
	case entities.DateRangeWeek:
		return now.AddDate(0, 0, -7), true
	case entities.DateRangeMonth:
		return now.AddDate(0, -1, 0), true
	case entities.DateRangeYear:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
