package entities

import (
	"time"
)

// SearchRequest is the input of a combined venue/blog search
type SearchRequest struct {
	Query   string        `json:"query"`
	Filters SearchFilters `json:"filters"`
	Limit   int           `json:"limit"`
	UserID  string        `json:"user_id,omitempty"`
}

// NearRequest is the input of a location-centred search
type NearRequest struct {
	Coordinates *GeoPoint     `json:"coordinates"`
	RadiusKm    float64       `json:"radius_km"`
	ContentType ContentType   `json:"content_type"`
	Query       string        `json:"query,omitempty"`
	Filters     SearchFilters `json:"filters"`
	Limit       int           `json:"limit"`
	UserID      string        `json:"user_id,omitempty"`
}

// ScoredResult is one matched index entry with its score and optional distance
type ScoredResult struct {
	Entry         *IndexEntry     `json:"entry"`
	Score         int             `json:"score"`
	MatchedTerms  []string        `json:"matched_terms,omitempty"`
	DistanceKm    *float64        `json:"distance_km,omitempty"`
	DistanceLabel string          `json:"distance_label,omitempty"`
	Badge         PopularityBadge `json:"badge,omitempty"`
}

// Clone returns a deep copy of the result
func (r ScoredResult) Clone() ScoredResult {
	c := r
	c.Entry = r.Entry.Clone()
	c.MatchedTerms = append([]string(nil), r.MatchedTerms...)
	if r.DistanceKm != nil {
		d := *r.DistanceKm
		c.DistanceKm = &d
	}
	return c
}

// SearchResponse is the ranked, truncated output of a search
type SearchResponse struct {
	SearchID   string         `json:"search_id"`
	Venues     []ScoredResult `json:"venues"`
	Blogs      []ScoredResult `json:"blogs"`
	TotalFound int            `json:"total_found"`
	HasMore    bool           `json:"has_more"`
	VenueTotal int            `json:"venue_total"`
	BlogTotal  int            `json:"blog_total"`
	FromCache  bool           `json:"from_cache"`
}

// ResultCount is the number of results actually returned
func (r *SearchResponse) ResultCount() int {
	return len(r.Venues) + len(r.Blogs)
}

// Clone returns a deep copy so cached payloads are never shared by reference
func (r *SearchResponse) Clone() *SearchResponse {
	if r == nil {
		return nil
	}
	c := *r
	c.Venues = cloneResults(r.Venues)
	c.Blogs = cloneResults(r.Blogs)
	return &c
}

func cloneResults(in []ScoredResult) []ScoredResult {
	if in == nil {
		return nil
	}
	out := make([]ScoredResult, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// CachedSearch is a cache hit: the stored payload plus its bookkeeping
type CachedSearch struct {
	Response *SearchResponse `json:"response"`
	StoredAt time.Time       `json:"stored_at"`
	HitCount int             `json:"hit_count"`
}
