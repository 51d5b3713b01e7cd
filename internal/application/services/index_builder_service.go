package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// blogContentPrefix bounds how much of a blog body contributes search terms
const blogContentPrefix = 1000

// NewVenueIndexEntry converts a venue into its index entry
func NewVenueIndexEntry(v *entities.Venue, popularitySeed int) *entities.IndexEntry {
	terms := mergeTerms(
		ExtractTerms(v.Name),
		ExtractTerms(v.Description),
		ExtractTerms(v.City),
		ExtractTerms(v.Country),
		ExtractTerms(strings.Join(v.Tags, " ")),
		literalTerms(append([]string{v.Category}, v.Tags...)...),
	)

	var location *entities.GeoPoint
	if v.Location != nil {
		loc := *v.Location
		location = &loc
	}

	return &entities.IndexEntry{
		ID:             v.ID,
		EntityType:     entities.EntityTypeVenue,
		PrimaryText:    strings.ToLower(strings.TrimSpace(v.Name)),
		DisplayName:    v.Name,
		SearchTerms:    terms,
		Category:       v.Category,
		Tags:           append([]string(nil), v.Tags...),
		Location:       location,
		City:           v.City,
		Country:        v.Country,
		CreatedBy:      v.CreatedBy,
		PopularitySeed: popularitySeed,
		CreatedAt:      v.CreatedAt,
		IsPublished:    v.IsPublished,
	}
}

// NewBlogIndexEntry converts a blog into its index entry. Linked venue names and
// cities are folded into the terms so blog search surfaces venue-name matches.
func NewBlogIndexEntry(b *entities.Blog, popularitySeed int) *entities.IndexEntry {
	sets := [][]string{
		ExtractTerms(b.Title),
		ExtractTerms(truncateRunes(b.Content, blogContentPrefix)),
		ExtractTerms(b.AuthorName),
		ExtractTerms(b.Excerpt),
		ExtractTerms(b.Category),
		ExtractTerms(strings.Join(b.Tags, " ")),
		literalTerms(append([]string{b.Category}, b.Tags...)...),
	}

	venueNames := make([]string, 0, len(b.LinkedVenues))
	for _, lv := range b.LinkedVenues {
		sets = append(sets, ExtractTerms(lv.VenueName), ExtractTerms(lv.VenueCity))
		if name := strings.TrimSpace(lv.VenueName); name != "" {
			venueNames = append(venueNames, name)
		}
	}

	var publishedAt *time.Time
	if b.PublishedAt != nil {
		t := *b.PublishedAt
		publishedAt = &t
	}

	return &entities.IndexEntry{
		ID:               b.ID,
		EntityType:       entities.EntityTypeBlog,
		PrimaryText:      strings.ToLower(strings.TrimSpace(b.Title)),
		DisplayName:      b.Title,
		SearchTerms:      mergeTerms(sets...),
		Category:         b.Category,
		Tags:             append([]string(nil), b.Tags...),
		AuthorID:         b.AuthorID,
		AuthorName:       b.AuthorName,
		LinkedVenueNames: venueNames,
		ReadTimeMinutes:  b.EstimatedReadTime(),
		Excerpt:          b.Excerpt,
		PopularitySeed:   popularitySeed,
		CreatedAt:        b.CreatedAt,
		PublishedAt:      publishedAt,
		IsPublished:      b.IsPublished,
	}
}

// literalTerms keeps whole category and tag values as terms, lowercased
func literalTerms(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// RebuildStats summarizes a full index rebuild
type RebuildStats struct {
	Venues   int           `json:"venues"`
	Blogs    int           `json:"blogs"`
	Failed   int           `json:"failed"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
}

// IndexBuilderService builds index entries from content records and writes them to the index store
type IndexBuilderService struct {
	content    repositories.ContentRepository
	index      repositories.SearchIndexRepository
	popularity PopularitySource
	poolSize   int
	pageSize   int
}

// NewIndexBuilderService creates a new index builder. popularity may be nil, in which case every seed is 0.
func NewIndexBuilderService(
	content repositories.ContentRepository,
	index repositories.SearchIndexRepository,
	popularity PopularitySource,
	poolSize int,
	pageSize int,
) *IndexBuilderService {
	if poolSize <= 0 {
		poolSize = 8
	}
	if pageSize <= 0 {
		pageSize = 200
	}
	return &IndexBuilderService{
		content:    content,
		index:      index,
		popularity: popularity,
		poolSize:   poolSize,
		pageSize:   pageSize,
	}
}

// BuildVenueIndex builds and upserts the entry for a venue
func (s *IndexBuilderService) BuildVenueIndex(ctx context.Context, venue *entities.Venue) (*entities.IndexEntry, error) {
	if venue == nil || venue.ID == "" {
		return nil, apperrors.NewValidationError("venue id is required")
	}

	entry := NewVenueIndexEntry(venue, s.seed(ctx, entities.EntityTypeVenue, venue.ID))
	if err := s.index.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// BuildBlogIndex builds and upserts the entry for a blog
func (s *IndexBuilderService) BuildBlogIndex(ctx context.Context, blog *entities.Blog) (*entities.IndexEntry, error) {
	if blog == nil || blog.ID == "" {
		return nil, apperrors.NewValidationError("blog id is required")
	}

	entry := NewBlogIndexEntry(blog, s.seed(ctx, entities.EntityTypeBlog, blog.ID))
	if err := s.index.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove deletes the entry of an entity from the index
func (s *IndexBuilderService) Remove(ctx context.Context, entityType entities.EntityType, id string) error {
	if !entityType.Valid() {
		return apperrors.NewValidationError("unknown entity type " + string(entityType))
	}
	return s.index.Delete(ctx, entityType, id)
}

// RebuildAll pages through every published venue and blog and rebuilds their
// entries on a bounded worker pool. A failing page stops that content type
// only; the other type still indexes. Entries whose content was not listed are
// removed, but only for a type whose listing completed.
func (s *IndexBuilderService) RebuildAll(ctx context.Context) (*RebuildStats, error) {
	start := time.Now()

	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create index worker pool", err)
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		venues atomic.Int64
		blogs  atomic.Int64
		failed atomic.Int64
	)
	seen := map[entities.EntityType]map[string]struct{}{
		entities.EntityTypeVenue: {},
		entities.EntityTypeBlog:  {},
	}

	submit := func(task func() error, counter *atomic.Int64) {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := task(); err != nil {
				failed.Add(1)
				log.Warn().Err(err).Msg("failed to index record")
				return
			}
			counter.Add(1)
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			log.Error().Err(err).Msg("failed to submit index task")
		}
	}

	venuesListed := s.forEachPage(ctx, entities.EntityTypeVenue, func(filter repositories.ContentFilter) (int, error) {
		page, err := s.content.ListVenues(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, v := range page {
			seen[entities.EntityTypeVenue][v.ID] = struct{}{}
			submit(func() error {
				_, err := s.BuildVenueIndex(ctx, v)
				return err
			}, &venues)
		}
		return len(page), nil
	})

	blogsListed := s.forEachPage(ctx, entities.EntityTypeBlog, func(filter repositories.ContentFilter) (int, error) {
		page, err := s.content.ListBlogs(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, b := range page {
			seen[entities.EntityTypeBlog][b.ID] = struct{}{}
			submit(func() error {
				_, err := s.BuildBlogIndex(ctx, b)
				return err
			}, &blogs)
		}
		return len(page), nil
	})

	wg.Wait()

	stats := &RebuildStats{
		Venues: int(venues.Load()),
		Blogs:  int(blogs.Load()),
		Failed: int(failed.Load()),
	}

	if err := ctx.Err(); err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	if venuesListed {
		stats.Removed += s.prune(ctx, entities.EntityTypeVenue, seen[entities.EntityTypeVenue])
	}
	if blogsListed {
		stats.Removed += s.prune(ctx, entities.EntityTypeBlog, seen[entities.EntityTypeBlog])
	}
	stats.Duration = time.Since(start)

	log.Info().
		Int("venues", stats.Venues).
		Int("blogs", stats.Blogs).
		Int("failed", stats.Failed).
		Int("removed", stats.Removed).
		Dur("duration", stats.Duration).
		Msg("search index rebuilt")

	return stats, nil
}

// prune deletes the entries of entityType whose id is not in keep
func (s *IndexBuilderService) prune(ctx context.Context, entityType entities.EntityType, keep map[string]struct{}) int {
	entries, err := s.index.List(ctx, repositories.IndexQuery{EntityType: entityType})
	if err != nil {
		log.Warn().Err(err).Str("entity_type", string(entityType)).Msg("failed to list entries for pruning")
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if _, ok := keep[entry.ID]; ok {
			continue
		}
		if err := s.index.Delete(ctx, entityType, entry.ID); err != nil {
			log.Warn().Err(err).Str("id", entry.ID).Msg("failed to remove stale index entry")
			continue
		}
		removed++
	}
	return removed
}

// forEachPage reports whether every page was listed
func (s *IndexBuilderService) forEachPage(ctx context.Context, entityType entities.EntityType, fetch func(repositories.ContentFilter) (int, error)) bool {
	filter := repositories.ContentFilter{PublishedOnly: true, Limit: s.pageSize}
	for ctx.Err() == nil {
		n, err := fetch(filter)
		if err != nil {
			log.Error().Err(err).
				Str("entity_type", string(entityType)).
				Int("offset", filter.Offset).
				Msg("failed to list content for indexing")
			return false
		}
		if n < s.pageSize {
			return true
		}
		filter.Offset += n
	}
	return false
}

func (s *IndexBuilderService) seed(ctx context.Context, entityType entities.EntityType, id string) int {
	if s.popularity == nil {
		return 0
	}
	return s.popularity.Seed(ctx, entityType, id)
}
