package services

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
)

const (
	topQueriesLimit       = 10
	maxPerformanceSample  = 1000
	slowSearchThreshold   = 1000 // ms
	trendThresholdPct     = 20.0
	analyticsWriteTimeout = 5 * time.Second
)

// AnalyticsOptions tunes the analytics tracker
type AnalyticsOptions struct {
	SampleRate    float64
	HistoryWindow int
	HistoryMaxAge time.Duration
	QueueSize     int

	// bounds of the in-process state; the history store keeps the full record
	MaxTrackedUsers   int
	MaxPopularQueries int

	Random func() float64
	Now    func() time.Time
}

// DefaultAnalyticsOptions samples 10% of latencies and keeps 50 searches per user for 90 days
func DefaultAnalyticsOptions() AnalyticsOptions {
	return AnalyticsOptions{
		SampleRate:        0.1,
		HistoryWindow:     50,
		HistoryMaxAge:     90 * 24 * time.Hour,
		QueueSize:         1024,
		MaxTrackedUsers:   10000,
		MaxPopularQueries: 10000,
		Random:            rand.Float64,
		Now:               time.Now,
	}
}

type analyticsTask struct {
	event       *entities.SearchEvent
	searchID    string
	interaction *entities.Interaction
}

// SearchAnalyticsService records searches and interactions off the request
// path and derives usage summaries from the history. Write failures are
// logged and never reach the caller.
type SearchAnalyticsService struct {
	repo      repositories.SearchHistoryRepository
	publisher providers.SearchEventPublisher
	opts      AnalyticsOptions

	queueMu sync.RWMutex
	queue   chan analyticsTask
	closed  bool
	done    chan struct{}

	mu      sync.RWMutex
	windows map[string][]*entities.SearchEvent
	popular map[string]int
	samples []int64
}

// NewSearchAnalyticsService starts the background worker. publisher may be nil.
func NewSearchAnalyticsService(
	repo repositories.SearchHistoryRepository,
	publisher providers.SearchEventPublisher,
	opts AnalyticsOptions,
) *SearchAnalyticsService {
	defaults := DefaultAnalyticsOptions()
	if opts.SampleRate < 0 {
		opts.SampleRate = 0
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaults.HistoryWindow
	}
	if opts.HistoryMaxAge <= 0 {
		opts.HistoryMaxAge = defaults.HistoryMaxAge
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.MaxTrackedUsers <= 0 {
		opts.MaxTrackedUsers = defaults.MaxTrackedUsers
	}
	if opts.MaxPopularQueries <= 0 {
		opts.MaxPopularQueries = defaults.MaxPopularQueries
	}
	if opts.Random == nil {
		opts.Random = defaults.Random
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	s := &SearchAnalyticsService{
		repo:      repo,
		publisher: publisher,
		opts:      opts,
		queue:     make(chan analyticsTask, opts.QueueSize),
		done:      make(chan struct{}),
		windows:   make(map[string][]*entities.SearchEvent),
		popular:   make(map[string]int),
	}
	go s.run()
	return s
}

// Record enqueues a search event without blocking; a full queue drops the event
func (s *SearchAnalyticsService) Record(event *entities.SearchEvent) {
	if event == nil {
		return
	}
	s.enqueue(analyticsTask{event: event.Clone()})
}

// RecordInteraction enqueues a result interaction for a previously recorded search
func (s *SearchAnalyticsService) RecordInteraction(searchID, resultID string, position int, interactionType entities.InteractionType) {
	if searchID == "" || resultID == "" {
		return
	}
	s.enqueue(analyticsTask{
		searchID: searchID,
		interaction: &entities.Interaction{
			ResultID:        resultID,
			Position:        position,
			InteractionType: interactionType,
			Timestamp:       s.opts.Now(),
		},
	})
}

func (s *SearchAnalyticsService) enqueue(task analyticsTask) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.queue <- task:
	default:
		addCount(context.Background(), metrics().analyticsDropped)
		log.Warn().Msg("analytics queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be written
func (s *SearchAnalyticsService) Close() {
	s.queueMu.Lock()
	if s.closed {
		s.queueMu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.queueMu.Unlock()
	<-s.done
}

func (s *SearchAnalyticsService) run() {
	defer close(s.done)
	for task := range s.queue {
		if task.event != nil {
			s.processSearch(task.event)
		} else {
			s.processInteraction(task.searchID, *task.interaction)
		}
	}
}

func (s *SearchAnalyticsService) processSearch(event *entities.SearchEvent) {
	if event.NormalizedQuery == "" {
		event.NormalizedQuery = NormalizeQuery(event.Query)
	}

	s.mu.Lock()
	window := append(s.windows[event.UserID], event.Clone())
	if len(window) > s.opts.HistoryWindow {
		window = window[len(window)-s.opts.HistoryWindow:]
	}
	if _, tracked := s.windows[event.UserID]; !tracked && len(s.windows) >= s.opts.MaxTrackedUsers {
		s.evictStalestUserLocked()
	}
	s.windows[event.UserID] = window
	if event.NormalizedQuery != "" {
		s.popular[event.NormalizedQuery]++
		if len(s.popular) > s.opts.MaxPopularQueries {
			s.trimPopularLocked()
		}
	}
	if s.opts.Random() < s.opts.SampleRate {
		s.samples = append(s.samples, event.ExecutionTimeMs)
		if len(s.samples) > maxPerformanceSample {
			s.samples = s.samples[len(s.samples)-maxPerformanceSample:]
		}
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
	defer cancel()

	if err := s.repo.Append(ctx, event); err != nil {
		log.Warn().Err(err).Str("search_id", event.ID).Msg("failed to persist search event")
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Warn().Err(err).Str("search_id", event.ID).Msg("failed to publish search event")
		}
	}
}

// evictStalestUserLocked drops the user whose latest search is oldest; mu must be held
func (s *SearchAnalyticsService) evictStalestUserLocked() {
	var (
		stalest string
		oldest  time.Time
		found   bool
	)
	for user, window := range s.windows {
		last := window[len(window)-1].Timestamp
		if !found || last.Before(oldest) {
			stalest, oldest, found = user, last, true
		}
	}
	if found {
		delete(s.windows, stalest)
	}
}

// trimPopularLocked keeps the most searched half of the popular counter; mu must be held
func (s *SearchAnalyticsService) trimPopularLocked() {
	keep := max(s.opts.MaxPopularQueries/2, 1)
	kept := make(map[string]int, keep)
	for _, qc := range topQueries(s.popular, keep) {
		kept[qc.Query] = qc.Count
	}
	s.popular = kept
}

func (s *SearchAnalyticsService) processInteraction(searchID string, interaction entities.Interaction) {
	s.mu.Lock()
	for _, window := range s.windows {
		for _, e := range window {
			if e.ID == searchID {
				e.Interactions = append(e.Interactions, interaction)
			}
		}
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
	defer cancel()

	if err := s.repo.AddInteraction(ctx, searchID, interaction); err != nil {
		log.Warn().Err(err).Str("search_id", searchID).Msg("failed to persist search interaction")
	}
}

// NormalizeQuery lowercases a query and collapses its whitespace
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// GetAnalytics summarizes the history of the timeframe ending now
func (s *SearchAnalyticsService) GetAnalytics(ctx context.Context, timeframe entities.Timeframe) (*entities.SearchAnalytics, error) {
	now := s.opts.Now()
	window := timeframe.Duration()
	start := now.Add(-window)

	events, err := s.repo.ListSince(ctx, start.Add(-window))
	if err != nil {
		return nil, err
	}
	current, previous := splitWindows(events, start)

	summary := &entities.SearchAnalytics{
		Timeframe:               timeframe,
		TotalSearches:           len(current),
		TopQueries:              []entities.QueryCount{},
		ContentTypeDistribution: make(map[entities.ContentType]int),
	}

	counts := queryCounts(current)
	summary.UniqueQueries = len(counts)
	summary.TopQueries = topQueries(counts, topQueriesLimit)

	var totalResults, totalMs int64
	var withResults, converted int
	for _, e := range current {
		totalResults += int64(e.ResultCount)
		totalMs += e.ExecutionTimeMs
		contentType := e.ContentType
		if contentType == "" {
			contentType = entities.ContentTypeAll
		}
		summary.ContentTypeDistribution[contentType]++
		if e.ResultCount > 0 {
			withResults++
			if e.HasClick() {
				converted++
			}
		}
	}
	if len(current) > 0 {
		summary.AverageResultCount = float64(totalResults) / float64(len(current))
		summary.AverageExecutionTimeMs = float64(totalMs) / float64(len(current))
	}
	if withResults > 0 {
		summary.ConversionRate = float64(converted) / float64(withResults)
	}

	summary.DailySearches = dailySeries(current, start, now)
	summary.Trends = compareWindows(counts, queryCounts(previous))
	return summary, nil
}

// QueryTrends classifies each query of the window ending now against the window before it
func (s *SearchAnalyticsService) QueryTrends(ctx context.Context, window time.Duration) ([]entities.QueryTrend, error) {
	if window <= 0 {
		window = entities.TimeframeWeek.Duration()
	}
	start := s.opts.Now().Add(-window)

	events, err := s.repo.ListSince(ctx, start.Add(-window))
	if err != nil {
		return nil, err
	}
	current, previous := splitWindows(events, start)
	return compareWindows(queryCounts(current), queryCounts(previous)), nil
}

// ClassifyTrend compares a query's count in the current window to the previous one
func ClassifyTrend(current, previous int) (entities.Trend, float64) {
	if previous == 0 {
		if current > 0 {
			return entities.TrendNew, 0
		}
		return entities.TrendStable, 0
	}

	change := float64(current-previous) * 100 / float64(previous)
	switch {
	case change > trendThresholdPct:
		return entities.TrendRising, change
	case change < -trendThresholdPct:
		return entities.TrendDeclining, change
	default:
		return entities.TrendStable, change
	}
}

// PurgeHistory removes history older than maxAge; a non-positive maxAge uses the configured default
func (s *SearchAnalyticsService) PurgeHistory(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = s.opts.HistoryMaxAge
	}
	cutoff := s.opts.Now().Add(-maxAge)

	s.mu.Lock()
	for user, window := range s.windows {
		kept := window[:0]
		for _, e := range window {
			if !e.Timestamp.Before(cutoff) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.windows, user)
		} else {
			s.windows[user] = kept
		}
	}
	s.mu.Unlock()

	removed, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("search history purged")
	return removed, nil
}

// RecentSearches returns copies of a user's recorded searches, newest first
func (s *SearchAnalyticsService) RecentSearches(userID string) []*entities.SearchEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := s.windows[userID]
	out := make([]*entities.SearchEvent, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		out = append(out, window[i].Clone())
	}
	return out
}

// Preferences returns the content type and category a user searches most
func (s *SearchAnalyticsService) Preferences(userID string) entities.UserPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make(map[string]int)
	categories := make(map[string]int)
	for _, e := range s.windows[userID] {
		if e.ContentType == entities.ContentTypeVenues || e.ContentType == entities.ContentTypeBlogs {
			types[string(e.ContentType)]++
		}
		if c := strings.ToLower(strings.TrimSpace(e.Filters.Category)); c != "" && c != "all" {
			categories[c]++
		}
	}

	return entities.UserPreferences{
		TopContentType: entities.ContentType(mostFrequent(types)),
		TopCategory:    mostFrequent(categories),
	}
}

// PopularQueries returns the n most searched queries since startup
func (s *SearchAnalyticsService) PopularQueries(n int) []entities.QueryCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return topQueries(s.popular, n)
}

// Performance summarizes the sampled execution times
func (s *SearchAnalyticsService) Performance() entities.PerformanceSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := entities.PerformanceSummary{Samples: len(s.samples)}
	if len(s.samples) == 0 {
		return summary
	}
	var total int64
	for _, ms := range s.samples {
		total += ms
		if ms > summary.MaxMs {
			summary.MaxMs = ms
		}
		if ms > slowSearchThreshold {
			summary.SlowSearches++
		}
	}
	summary.AverageMs = float64(total) / float64(len(s.samples))
	return summary
}

func splitWindows(events []*entities.SearchEvent, start time.Time) (current, previous []*entities.SearchEvent) {
	for _, e := range events {
		if e.Timestamp.Before(start) {
			previous = append(previous, e)
		} else {
			current = append(current, e)
		}
	}
	return current, previous
}

func queryCounts(events []*entities.SearchEvent) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		q := e.NormalizedQuery
		if q == "" {
			q = NormalizeQuery(e.Query)
		}
		if q != "" {
			counts[q]++
		}
	}
	return counts
}

func topQueries(counts map[string]int, n int) []entities.QueryCount {
	out := make([]entities.QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, entities.QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// compareWindows classifies every query present in either window
func compareWindows(current, previous map[string]int) []entities.QueryTrend {
	queries := make(map[string]struct{}, len(current)+len(previous))
	for q := range current {
		queries[q] = struct{}{}
	}
	for q := range previous {
		queries[q] = struct{}{}
	}

	trends := make([]entities.QueryTrend, 0, len(queries))
	for q := range queries {
		trend, change := ClassifyTrend(current[q], previous[q])
		trends = append(trends, entities.QueryTrend{
			Query:         q,
			CurrentCount:  current[q],
			PreviousCount: previous[q],
			ChangePercent: change,
			Trend:         trend,
		})
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].CurrentCount != trends[j].CurrentCount {
			return trends[i].CurrentCount > trends[j].CurrentCount
		}
		return trends[i].Query < trends[j].Query
	})
	return trends
}

func dailySeries(events []*entities.SearchEvent, start, end time.Time) []entities.DailyCount {
	byDay := make(map[string]int)
	for _, e := range events {
		byDay[e.Timestamp.UTC().Format(time.DateOnly)]++
	}

	var series []entities.DailyCount
	day := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(end.UTC()) {
		key := day.Format(time.DateOnly)
		series = append(series, entities.DailyCount{Date: key, Count: byDay[key]})
		day = day.AddDate(0, 0, 1)
	}
	return series
}

func mostFrequent(counts map[string]int) string {
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}
