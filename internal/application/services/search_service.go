package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// SearchOptions bounds result sizes and branch latency
type SearchOptions struct {
	DefaultLimit    int
	MaxLimit        int
	BranchTimeout   time.Duration
	DefaultRadiusKm float64
}

// DefaultSearchOptions returns 10 results per type, at most 100, a 3s branch timeout and a 10km radius
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		DefaultLimit:    10,
		MaxLimit:        100,
		BranchTimeout:   3 * time.Second,
		DefaultRadiusKm: 10,
	}
}

// SearchService runs venue and blog searches concurrently and combines them into one response
type SearchService struct {
	index     repositories.SearchIndexRepository
	matcher   *QueryMatcher
	cache     *SearchCacheService
	analytics *SearchAnalyticsService
	opts      SearchOptions
	now       func() time.Time
}

// NewSearchService creates a search service. cache and analytics may be nil.
func NewSearchService(
	index repositories.SearchIndexRepository,
	matcher *QueryMatcher,
	cache *SearchCacheService,
	analytics *SearchAnalyticsService,
	opts SearchOptions,
) *SearchService {
	defaults := DefaultSearchOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaults.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = defaults.MaxLimit
	}
	if opts.BranchTimeout <= 0 {
		opts.BranchTimeout = defaults.BranchTimeout
	}
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = defaults.DefaultRadiusKm
	}
	if matcher == nil {
		matcher = NewQueryMatcher(DefaultScoringWeights())
	}
	return &SearchService{
		index:     index,
		matcher:   matcher,
		cache:     cache,
		analytics: analytics,
		opts:      opts,
		now:       time.Now,
	}
}

// Search returns the best venue and blog matches for the request. A lookup
// that fails or times out contributes no results instead of failing the search.
func (s *SearchService) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error) {
	start := s.now()
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "SearchService.Search")
	defer span.End()

	limit := s.clampLimit(req.Limit)
	filters := req.Filters
	contentType := filters.ContentType
	if contentType == "" {
		contentType = entities.ContentTypeAll
	}

	span.SetAttributes(
		attribute.String("search.query", req.Query),
		attribute.String("search.content_type", string(contentType)),
		attribute.Int("search.limit", limit),
	)

	var cacheKey string
	if s.cache != nil {
		keyFilters := filters.CacheMap()
		keyFilters["limit"] = limit
		cacheKey = s.cache.GenerateKey(req.Query, keyFilters, contentType)
		if hit, ok := s.cache.Get(ctx, cacheKey); ok {
			resp := hit.Response
			resp.SearchID = uuid.NewString()
			resp.FromCache = true
			span.SetAttributes(attribute.Bool("search.cache_hit", true))
			s.record(req, contentType, resp, start)
			return resp, nil
		}
	}

	var (
		wg     sync.WaitGroup
		venues []entities.ScoredResult
		blogs  []entities.ScoredResult
	)
	if contentType.Includes(entities.EntityTypeVenue) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			venues = s.runBranch(ctx, entities.EntityTypeVenue, req.Query, filters)
		}()
	}
	if contentType.Includes(entities.EntityTypeBlog) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blogs = s.runBranch(ctx, entities.EntityTypeBlog, req.Query, filters)
		}()
	}
	wg.Wait()

	resp := &entities.SearchResponse{
		SearchID:   uuid.NewString(),
		VenueTotal: len(venues),
		BlogTotal:  len(blogs),
		Venues:     truncate(venues, limit),
		Blogs:      truncate(blogs, limit),
	}
	resp.TotalFound = resp.VenueTotal + resp.BlogTotal
	resp.HasMore = resp.TotalFound > limit

	span.SetAttributes(attribute.Int("search.total_found", resp.TotalFound))

	if s.cache != nil {
		s.cache.Put(ctx, cacheKey, resp)
	}
	s.record(req, contentType, resp, start)

	return resp, nil
}

// SearchNear searches around a centre point. Every returned item carries its distance.
func (s *SearchService) SearchNear(ctx context.Context, req entities.NearRequest) (*entities.SearchResponse, error) {
	if !ValidCoordinates(req.Coordinates) {
		return nil, apperrors.NewInvalidArgumentError("valid coordinates are required for a location search")
	}

	radius := req.RadiusKm
	if radius <= 0 {
		radius = s.opts.DefaultRadiusKm
	}

	filters := req.Filters
	center := *req.Coordinates
	filters.Coordinates = &center
	filters.MaxDistanceKm = radius
	if req.ContentType != "" {
		filters.ContentType = req.ContentType
	}
	if filters.SortBy == "" {
		filters.SortBy = entities.SortByDistance
	}

	return s.Search(ctx, entities.SearchRequest{
		Query:   req.Query,
		Filters: filters,
		Limit:   req.Limit,
		UserID:  req.UserID,
	})
}

// runBranch gathers, scores, filters and sorts one entity type. It never
// blocks past the branch timeout and never panics into the caller.
func (s *SearchService) runBranch(ctx context.Context, entityType entities.EntityType, query string, filters entities.SearchFilters) []entities.ScoredResult {
	ctx, cancel := context.WithTimeout(ctx, s.opts.BranchTimeout)
	defer cancel()

	type outcome struct {
		results []entities.ScoredResult
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic in %s search: %v", entityType, r)}
			}
		}()
		results, err := s.searchType(ctx, entityType, query, filters)
		done <- outcome{results: results, err: err}
	}()

	var err error
	select {
	case res := <-done:
		if res.err == nil {
			return res.results
		}
		err = res.err
	case <-ctx.Done():
		err = ctx.Err()
	}

	addCount(ctx, metrics().branchFailures, attribute.String("entity_type", string(entityType)))
	log.Warn().Err(err).
		Str("entity_type", string(entityType)).
		Str("query", query).
		Msg("search branch failed, returning no results for it")
	return []entities.ScoredResult{}
}

func (s *SearchService) searchType(ctx context.Context, entityType entities.EntityType, query string, filters entities.SearchFilters) ([]entities.ScoredResult, error) {
	candidates, err := s.index.List(ctx, repositories.IndexQuery{
		EntityType:    entityType,
		Category:      filters.Category,
		Tags:          filters.Tags,
		PublishedOnly: true,
	})
	if err != nil {
		return nil, err
	}

	results := s.matcher.Match(query, filters, candidates)
	results = applyCrossFilters(results, entityType, filters)

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = entities.SortByRelevance
	}
	results = SortResults(results, sortBy)

	if entityType == entities.EntityTypeVenue {
		for i := range results {
			results[i].Badge = entities.BadgeForRegulars(results[i].Entry.PopularitySeed)
		}
	}
	return results, nil
}

// applyCrossFilters applies the filters that do not depend on the query
func applyCrossFilters(results []entities.ScoredResult, entityType entities.EntityType, filters entities.SearchFilters) []entities.ScoredResult {
	if filters.Coordinates != nil {
		AttachDistances(results, filters.Coordinates)
		if filters.MaxDistanceKm > 0 {
			results = FilterByRadius(results, filters.MaxDistanceKm)
		}
	}

	kept := results[:0]
	for _, r := range results {
		if filters.MinimumViews > 0 && r.Entry.PopularitySeed < filters.MinimumViews {
			continue
		}
		if entityType == entities.EntityTypeBlog {
			if !filters.ReadTimeRange.Contains(r.Entry.ReadTimeMinutes) {
				continue
			}
			if filters.HasVenues != nil && r.Entry.HasVenues() != *filters.HasVenues {
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept
}

func (s *SearchService) record(req entities.SearchRequest, contentType entities.ContentType, resp *entities.SearchResponse, start time.Time) {
	elapsed := s.now().Sub(start)
	attrs := []attribute.KeyValue{
		attribute.String("content_type", string(contentType)),
		attribute.Bool("from_cache", resp.FromCache),
	}
	addCount(context.Background(), metrics().searchCount, attrs...)
	recordMillis(context.Background(), metrics().searchDuration, float64(elapsed.Microseconds())/1000, attrs...)

	if s.analytics == nil {
		return
	}
	s.analytics.Record(&entities.SearchEvent{
		ID:              resp.SearchID,
		UserID:          req.UserID,
		Query:           req.Query,
		NormalizedQuery: NormalizeQuery(req.Query),
		ContentType:     contentType,
		Filters:         req.Filters,
		ResultCount:     resp.ResultCount(),
		ExecutionTimeMs: elapsed.Milliseconds(),
		Timestamp:       start,
	})
}

func (s *SearchService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

func truncate(results []entities.ScoredResult, limit int) []entities.ScoredResult {
	if results == nil {
		return []entities.ScoredResult{}
	}
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
