package services

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Charliemcfish/MyThirdPlace-sub002/search"

var (
	searchMetricsOnce sync.Once
	searchMetrics     *engineMetrics
)

type engineMetrics struct {
	searchCount       metric.Int64Counter
	searchDuration    metric.Float64Histogram
	branchFailures    metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	cacheEvictions    metric.Int64Counter
	analyticsDropped  metric.Int64Counter
	suggestionLatency metric.Float64Histogram
}

// metrics returns the engine instruments, created against the global meter
// provider on first use. Instruments that fail to register stay nil.
func metrics() *engineMetrics {
	searchMetricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		m := &engineMetrics{}
		m.searchCount, _ = meter.Int64Counter("search.request.count",
			metric.WithDescription("Number of searches served"))
		m.searchDuration, _ = meter.Float64Histogram("search.request.duration",
			metric.WithDescription("Search execution time in milliseconds"),
			metric.WithUnit("ms"))
		m.branchFailures, _ = meter.Int64Counter("search.branch.failure.count",
			metric.WithDescription("Venue or blog lookups that failed and contributed no results"))
		m.cacheHits, _ = meter.Int64Counter("search.cache.hit.count",
			metric.WithDescription("Number of search cache hits"))
		m.cacheMisses, _ = meter.Int64Counter("search.cache.miss.count",
			metric.WithDescription("Number of search cache misses"))
		m.cacheEvictions, _ = meter.Int64Counter("search.cache.eviction.count",
			metric.WithDescription("Number of search cache entries evicted"))
		m.analyticsDropped, _ = meter.Int64Counter("search.analytics.dropped.count",
			metric.WithDescription("Analytics events dropped because the queue was full"))
		m.suggestionLatency, _ = meter.Float64Histogram("search.suggest.duration",
			metric.WithDescription("Suggestion latency in milliseconds"),
			metric.WithUnit("ms"))
		searchMetrics = m
	})
	return searchMetrics
}

func addCount(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func recordMillis(ctx context.Context, histogram metric.Float64Histogram, ms float64, attrs ...attribute.KeyValue) {
	if histogram == nil {
		return
	}
	histogram.Record(ctx, ms, metric.WithAttributes(attrs...))
}
