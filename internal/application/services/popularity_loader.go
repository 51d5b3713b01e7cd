package services

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
)

// PopularitySource resolves the popularity seed of an entity
type PopularitySource interface {
	Seed(ctx context.Context, entityType entities.EntityType, id string) int
}

// PopularityLoader batches regular and view count lookups issued concurrently
// during indexing. Results are not cached; counts change between rebuilds.
type PopularityLoader struct {
	regulars *dataloader.Loader[string, int]
	views    *dataloader.Loader[string, int]
	timeout  time.Duration
}

// NewPopularityLoader creates a loader over the relationship repository.
// Every lookup is bounded by timeout; a failed or slow lookup yields 0.
func NewPopularityLoader(repo repositories.RelationshipRepository, timeout time.Duration) *PopularityLoader {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PopularityLoader{
		regulars: newCountLoader(repo.RegularCounts),
		views:    newCountLoader(repo.ViewCounts),
		timeout:  timeout,
	}
}

func newCountLoader(fetch func(ctx context.Context, ids []string) (map[string]int, error)) *dataloader.Loader[string, int] {
	return dataloader.NewBatchedLoader(
		func(ctx context.Context, keys []string) []*dataloader.Result[int] {
			results := make([]*dataloader.Result[int], len(keys))
			counts, err := fetch(ctx, keys)
			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[int]{Error: err}
					continue
				}
				// IDs without relationships have a count of zero
				results[i] = &dataloader.Result[int]{Data: counts[key]}
			}
			return results
		},
		dataloader.WithCache[string, int](&dataloader.NoCache[string, int]{}),
		dataloader.WithBatchCapacity[string, int](100),
		dataloader.WithWait[string, int](2*time.Millisecond),
	)
}

// Seed returns the regular count of a venue or the view count of a blog
func (l *PopularityLoader) Seed(ctx context.Context, entityType entities.EntityType, id string) int {
	loader := l.regulars
	if entityType == entities.EntityTypeBlog {
		loader = l.views
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type outcome struct {
		count int
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		count, err := loader.Load(ctx, id)()
		done <- outcome{count: count, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			log.Warn().Err(res.err).
				Str("entity_type", string(entityType)).
				Str("id", id).
				Msg("popularity lookup failed, defaulting to 0")
			return 0
		}
		return res.count
	case <-ctx.Done():
		log.Warn().
			Str("entity_type", string(entityType)).
			Str("id", id).
			Msg("popularity lookup timed out, defaulting to 0")
		return 0
	}
}
