package entities

import (
	"time"
)

// Venue represents a third place (cafe, library, coworking space...) as stored by the content service
type Venue struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Tags        []string  `json:"tags,omitempty" db:"tags"`
	City        string    `json:"city" db:"city"`
	Country     string    `json:"country" db:"country"`
	Location    *GeoPoint `json:"location,omitempty" db:"-"`
	CreatedBy   string    `json:"created_by,omitempty" db:"created_by"`
	IsPublished bool      `json:"is_published" db:"is_published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// GeoPoint represents geographical coordinates
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// PopularityBadge labels a venue by its number of regulars.
type PopularityBadge string

const (
	BadgeNone         PopularityBadge = ""
	BadgePopular      PopularityBadge = "popular"
	BadgeCommunityHub PopularityBadge = "community_hub"
)

// Regular-count thresholds for badges. Product-tuned values, flagged for review.
const (
	PopularThreshold      = 20
	CommunityHubThreshold = 50
)

// BadgeForRegulars returns the badge earned by a venue with the given number of regulars
func BadgeForRegulars(regulars int) PopularityBadge {
	switch {
	case regulars >= CommunityHubThreshold:
		return BadgeCommunityHub
	case regulars >= PopularThreshold:
		return BadgePopular
	default:
		return BadgeNone
	}
}
