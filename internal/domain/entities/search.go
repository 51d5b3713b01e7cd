package entities

import (
	"sort"
	"strconv"
	"strings"
)

// SortBy selects the ordering applied to search results
type SortBy string

const (
	SortByRelevance    SortBy = "relevance"
	SortByPopular      SortBy = "popular"
	SortByRecent       SortBy = "recent"
	SortByOldest       SortBy = "oldest"
	SortByDistance     SortBy = "distance"
	SortByAlphabetical SortBy = "alphabetical"
)

// ParseSortBy maps a raw value onto a SortBy, falling back to relevance
func ParseSortBy(raw string) SortBy {
	switch s := SortBy(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortByPopular, SortByRecent, SortByOldest, SortByDistance, SortByAlphabetical:
		return s
	default:
		return SortByRelevance
	}
}

// ContentType restricts a search to venues, blogs, or both
type ContentType string

const (
	ContentTypeAll    ContentType = "all"
	ContentTypeVenues ContentType = "venues"
	ContentTypeBlogs  ContentType = "blogs"
)

// ParseContentType accepts singular and plural spellings, defaulting to all
func ParseContentType(raw string) ContentType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "venue", "venues":
		return ContentTypeVenues
	case "blog", "blogs":
		return ContentTypeBlogs
	default:
		return ContentTypeAll
	}
}

// Includes reports whether the content type covers the given entity type
func (c ContentType) Includes(t EntityType) bool {
	switch c {
	case ContentTypeVenues:
		return t == EntityTypeVenue
	case ContentTypeBlogs:
		return t == EntityTypeBlog
	default:
		return true
	}
}

// ReadTimeRange buckets blog read time
type ReadTimeRange string

const (
	ReadTimeAny    ReadTimeRange = ""
	ReadTimeQuick  ReadTimeRange = "quick"  // up to 5 minutes
	ReadTimeShort  ReadTimeRange = "short"  // 6-10 minutes
	ReadTimeMedium ReadTimeRange = "medium" // 11-20 minutes
	ReadTimeLong   ReadTimeRange = "long"   // over 20 minutes
)

// Contains reports whether minutes falls within the bucket
func (r ReadTimeRange) Contains(minutes int) bool {
	switch r {
	case ReadTimeQuick:
		return minutes <= 5
	case ReadTimeShort:
		return minutes >= 6 && minutes <= 10
	case ReadTimeMedium:
		return minutes >= 11 && minutes <= 20
	case ReadTimeLong:
		return minutes > 20
	default:
		return true
	}
}

// DateRange restricts results to recent content
type DateRange string

const (
	DateRangeAny   DateRange = ""
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
	DateRangeYear  DateRange = "year"
)

// SearchFilters is the validated filter set accepted by search operations
type SearchFilters struct {
	Category      string        `json:"category,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	SortBy        SortBy        `json:"sortBy,omitempty"`
	Coordinates   *GeoPoint     `json:"coordinates,omitempty"`
	MaxDistanceKm float64       `json:"maxDistance,omitempty"`
	MinimumViews  int           `json:"minimumViews,omitempty"`
	HasVenues     *bool         `json:"hasVenues,omitempty"`
	ReadTimeRange ReadTimeRange `json:"readTimeRange,omitempty"`
	DateRange     DateRange     `json:"dateRange,omitempty"`
	AuthorID      string        `json:"authorId,omitempty"`
	ContentType   ContentType   `json:"contentType,omitempty"`
}

// IsEmpty reports whether no filter narrows the result set
func (f SearchFilters) IsEmpty() bool {
	return (f.Category == "" || strings.EqualFold(f.Category, "all")) &&
		len(f.Tags) == 0 &&
		f.Coordinates == nil &&
		f.MaxDistanceKm <= 0 &&
		f.MinimumViews <= 0 &&
		f.HasVenues == nil &&
		f.ReadTimeRange == ReadTimeAny &&
		f.DateRange == DateRangeAny &&
		f.AuthorID == ""
}

// CacheMap flattens the filters into a map for cache key generation.
// Only set fields are included so equivalent filter sets map to the same key.
func (f SearchFilters) CacheMap() map[string]any {
	m := make(map[string]any)
	if f.Category != "" && !strings.EqualFold(f.Category, "all") {
		m["category"] = strings.ToLower(f.Category)
	}
	if len(f.Tags) > 0 {
		tags := normalizedTags(f.Tags)
		sort.Strings(tags)
		m["tags"] = tags
	}
	if f.SortBy != "" && f.SortBy != SortByRelevance {
		m["sortBy"] = string(f.SortBy)
	}
	if f.Coordinates != nil {
		m["coordinates"] = strconv.FormatFloat(f.Coordinates.Latitude, 'g', -1, 64) + "," +
			strconv.FormatFloat(f.Coordinates.Longitude, 'g', -1, 64)
	}
	if f.MaxDistanceKm > 0 {
		m["maxDistance"] = f.MaxDistanceKm
	}
	if f.MinimumViews > 0 {
		m["minimumViews"] = f.MinimumViews
	}
	if f.HasVenues != nil {
		m["hasVenues"] = *f.HasVenues
	}
	if f.ReadTimeRange != ReadTimeAny {
		m["readTimeRange"] = string(f.ReadTimeRange)
	}
	if f.DateRange != DateRangeAny {
		m["dateRange"] = string(f.DateRange)
	}
	if f.AuthorID != "" {
		m["authorId"] = f.AuthorID
	}
	return m
}

// ParseSearchFilters validates a loosely typed filter object at the boundary.
// Unrecognized keys and values of the wrong shape are ignored, never rejected.
func ParseSearchFilters(raw map[string]any) SearchFilters {
	var f SearchFilters
	for key, value := range raw {
		switch key {
		case "category":
			if s, ok := value.(string); ok {
				f.Category = strings.TrimSpace(s)
			}
		case "tags":
			f.Tags = toStringSlice(value)
		case "sortBy":
			if s, ok := value.(string); ok {
				f.SortBy = ParseSortBy(s)
			}
		case "coordinates":
			f.Coordinates = toGeoPoint(value)
		case "maxDistance":
			if v, ok := toFloat(value); ok && v > 0 {
				f.MaxDistanceKm = v
			}
		case "minimumViews":
			if v, ok := toFloat(value); ok && v > 0 {
				f.MinimumViews = int(v)
			}
		case "hasVenues":
			if b, ok := value.(bool); ok {
				f.HasVenues = &b
			}
		case "readTimeRange":
			if s, ok := value.(string); ok {
				switch r := ReadTimeRange(strings.ToLower(s)); r {
				case ReadTimeQuick, ReadTimeShort, ReadTimeMedium, ReadTimeLong:
					f.ReadTimeRange = r
				}
			}
		case "dateRange":
			if s, ok := value.(string); ok {
				switch d := DateRange(strings.ToLower(s)); d {
				case DateRangeWeek, DateRangeMonth, DateRangeYear:
					f.DateRange = d
				}
			}
		case "authorId":
			if s, ok := value.(string); ok {
				f.AuthorID = strings.TrimSpace(s)
			}
		case "contentType":
			if s, ok := value.(string); ok {
				f.ContentType = ParseContentType(s)
			}
		}
	}
	return f
}

func normalizedTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return normalizedTags(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return normalizedTags(out)
	case string:
		return normalizedTags(strings.Split(v, ","))
	}
	return nil
}

func toGeoPoint(value any) *GeoPoint {
	switch v := value.(type) {
	case *GeoPoint:
		return v
	case GeoPoint:
		return &v
	case map[string]any:
		lat, okLat := toFloat(v["lat"])
		lng, okLng := toFloat(v["lng"])
		if !okLat || !okLng {
			return nil
		}
		return &GeoPoint{Latitude: lat, Longitude: lng}
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
