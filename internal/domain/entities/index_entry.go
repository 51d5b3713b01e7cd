package entities

import (
	"time"
)

// EntityType identifies the kind of content an index entry was built from
type EntityType string

const (
	EntityTypeVenue EntityType = "venue"
	EntityTypeBlog  EntityType = "blog"
)

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	return t == EntityTypeVenue || t == EntityTypeBlog
}

// IndexEntry is the searchable, denormalized representation of one venue or blog
type IndexEntry struct {
	ID          string     `json:"id"`
	EntityType  EntityType `json:"entity_type"`
	PrimaryText string     `json:"primary_text"`
	DisplayName string     `json:"display_name"`
	SearchTerms []string   `json:"search_terms"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Location    *GeoPoint  `json:"location,omitempty"`
	City        string     `json:"city,omitempty"`
	Country     string     `json:"country,omitempty"`

	// Venue owner
	CreatedBy string `json:"created_by,omitempty"`

	// Blog author and venue links
	AuthorID         string   `json:"author_id,omitempty"`
	AuthorName       string   `json:"author_name,omitempty"`
	LinkedVenueNames []string `json:"linked_venue_names,omitempty"`
	ReadTimeMinutes  int      `json:"read_time_minutes,omitempty"`
	Excerpt          string   `json:"excerpt,omitempty"`

	PopularitySeed int        `json:"popularity_seed"`
	CreatedAt      time.Time  `json:"created_at"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	IsPublished    bool       `json:"is_published"`
}

// IndexKey builds the store key for an entity
func IndexKey(entityType EntityType, id string) string {
	return string(entityType) + "_" + id
}

// Key returns the store key of the entry
func (e *IndexEntry) Key() string {
	return IndexKey(e.EntityType, e.ID)
}

// HasVenues reports whether a blog entry links at least one venue
func (e *IndexEntry) HasVenues() bool {
	return len(e.LinkedVenueNames) > 0
}

// SortTime is the timestamp used for recency ordering: publication for blogs, creation otherwise
func (e *IndexEntry) SortTime() time.Time {
	if e.EntityType == EntityTypeBlog && e.PublishedAt != nil && !e.PublishedAt.IsZero() {
		return *e.PublishedAt
	}
	return e.CreatedAt
}

// Clone returns a deep copy so callers never share slices with the store
func (e *IndexEntry) Clone() *IndexEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.SearchTerms = append([]string(nil), e.SearchTerms...)
	c.Tags = append([]string(nil), e.Tags...)
	c.LinkedVenueNames = append([]string(nil), e.LinkedVenueNames...)
	if e.Location != nil {
		loc := *e.Location
		c.Location = &loc
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
