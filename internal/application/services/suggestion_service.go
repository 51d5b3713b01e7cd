package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
)

const (
	minSuggestionLength    = 2
	defaultSuggestionLimit = 10
	maxHistorySuggestions  = 3
)

// SuggestionService produces auto-complete suggestions from a sample of the index
type SuggestionService struct {
	index      repositories.SearchIndexRepository
	analytics  *SearchAnalyticsService
	sampleSize int
}

// NewSuggestionService creates a suggestion service. analytics may be nil, which disables personalization.
func NewSuggestionService(index repositories.SearchIndexRepository, analytics *SearchAnalyticsService, sampleSize int) *SuggestionService {
	if sampleSize <= 0 {
		sampleSize = 50
	}
	return &SuggestionService{index: index, analytics: analytics, sampleSize: sampleSize}
}

// Suggest returns names, terms and cities matching the partial query.
// Partial queries shorter than two characters yield no suggestions.
func (s *SuggestionService) Suggest(ctx context.Context, partial string, contentType entities.ContentType, limit int) []string {
	start := time.Now()
	defer func() {
		recordMillis(ctx, metrics().suggestionLatency, float64(time.Since(start).Microseconds())/1000)
	}()

	p := strings.ToLower(strings.TrimSpace(partial))
	if utf8.RuneCountInString(p) < minSuggestionLength {
		return []string{}
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	var names, terms, cities []string
	for _, entityType := range []entities.EntityType{entities.EntityTypeVenue, entities.EntityTypeBlog} {
		if !contentType.Includes(entityType) {
			continue
		}
		sample, err := s.index.Sample(ctx, entityType, s.sampleSize)
		if err != nil {
			log.Warn().Err(err).Str("entity_type", string(entityType)).Msg("failed to sample index for suggestions")
			continue
		}
		for _, entry := range sample {
			if strings.Contains(entry.PrimaryText, p) {
				names = append(names, entry.PrimaryText)
			}
			for _, term := range entry.SearchTerms {
				if strings.HasPrefix(term, p) {
					terms = append(terms, term)
				}
			}
			if city := strings.ToLower(strings.TrimSpace(entry.City)); city != "" && strings.Contains(city, p) {
				cities = append(cities, city)
			}
		}
	}

	return dedupeCapped(limit, names, terms, cities)
}

// SuggestPersonalized puts up to three of the user's matching recent queries
// first and appends suggestions built from the user's preferred content type
// and category.
func (s *SuggestionService) SuggestPersonalized(ctx context.Context, userID, partial string, contentType entities.ContentType, limit int) []string {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	p := strings.ToLower(strings.TrimSpace(partial))
	if utf8.RuneCountInString(p) < minSuggestionLength {
		return []string{}
	}

	base := s.Suggest(ctx, partial, contentType, limit)
	if s.analytics == nil || userID == "" {
		return base
	}

	var recent []string
	for _, e := range s.analytics.RecentSearches(userID) {
		if len(recent) == maxHistorySuggestions {
			break
		}
		q := e.NormalizedQuery
		if q == "" {
			q = NormalizeQuery(e.Query)
		}
		if q != "" && strings.Contains(q, p) && !contains(recent, q) {
			recent = append(recent, q)
		}
	}

	var heuristics []string
	prefs := s.analytics.Preferences(userID)
	if prefs.TopContentType == entities.ContentTypeVenues || prefs.TopContentType == entities.ContentTypeBlogs {
		heuristics = append(heuristics, p+" "+string(prefs.TopContentType))
	}
	if prefs.TopCategory != "" {
		heuristics = append(heuristics, p+" "+prefs.TopCategory)
	}

	return dedupeCapped(limit, recent, base, heuristics)
}

func dedupeCapped(limit int, groups ...[]string) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, v := range group {
			if len(out) == limit {
				return out
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
