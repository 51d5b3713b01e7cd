package entities

import (
	"strings"
	"time"
)

// wordsPerMinute is the reading speed used when a blog has no stored read time
const wordsPerMinute = 200

// Blog represents an editorial post
type Blog struct {
	ID              string        `json:"id" db:"id"`
	Title           string        `json:"title" db:"title"`
	Content         string        `json:"content" db:"content"`
	Excerpt         string        `json:"excerpt" db:"excerpt"`
	AuthorID        string        `json:"author_id" db:"author_id"`
	AuthorName      string        `json:"author_name" db:"author_name"`
	Category        string        `json:"category" db:"category"`
	Tags            []string      `json:"tags,omitempty" db:"tags"`
	ReadTimeMinutes int           `json:"read_time_minutes" db:"read_time_minutes"`
	LinkedVenues    []LinkedVenue `json:"linked_venues,omitempty" db:"-"`
	IsPublished     bool          `json:"is_published" db:"is_published"`
	PublishedAt     *time.Time    `json:"published_at,omitempty" db:"published_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// LinkedVenue is a venue referenced by a blog post
type LinkedVenue struct {
	VenueID   string `json:"venue_id" db:"venue_id"`
	VenueName string `json:"venue_name" db:"venue_name"`
	VenueCity string `json:"venue_city" db:"venue_city"`
}

// EstimatedReadTime returns the stored read time, or one derived from the word count
func (b *Blog) EstimatedReadTime() int {
	if b.ReadTimeMinutes > 0 {
		return b.ReadTimeMinutes
	}
	words := len(strings.Fields(b.Content))
	if words == 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return minutes
}
