package repositories

import (
	"context"
	"time"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// ContentRepository is the read-only view of venue and blog records owned by the content service
type ContentRepository interface {
	// ListVenues returns one page of venues
	ListVenues(ctx context.Context, filter ContentFilter) ([]*entities.Venue, error)

	// ListBlogs returns one page of blogs, with their linked venues populated
	ListBlogs(ctx context.Context, filter ContentFilter) ([]*entities.Blog, error)
}

// ContentFilter defines paging and eligibility for content listing
type ContentFilter struct {
	PublishedOnly bool
	UpdatedSince  *time.Time
	Limit         int
	Offset        int
}

// RelationshipRepository provides the popularity signals of content
type RelationshipRepository interface {
	// RegularCount returns how many users marked the venue as a regular spot
	RegularCount(ctx context.Context, venueID string) (int, error)

	// ViewCount returns how many times the blog was viewed
	ViewCount(ctx context.Context, blogID string) (int, error)

	// RegularCounts batches RegularCount; missing IDs are absent from the map
	RegularCounts(ctx context.Context, venueIDs []string) (map[string]int, error)

	// ViewCounts batches ViewCount; missing IDs are absent from the map
	ViewCounts(ctx context.Context, blogIDs []string) (map[string]int, error)
}
