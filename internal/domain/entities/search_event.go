package entities

import (
	"time"
)

// InteractionType describes what a user did with a search result
type InteractionType string

const (
	InteractionClick    InteractionType = "click"
	InteractionView     InteractionType = "view"
	InteractionSave     InteractionType = "save"
	InteractionNavigate InteractionType = "navigate"
)

// SearchEvent is one entry of the search history: a search and what the user did with it.
type SearchEvent struct {
	ID              string        `json:"id" db:"id"`
	UserID          string        `json:"user_id,omitempty" db:"user_id"`
	Query           string        `json:"query" db:"query"`
	NormalizedQuery string        `json:"normalized_query" db:"normalized_query"`
	ContentType     ContentType   `json:"content_type" db:"content_type"`
	Filters         SearchFilters `json:"filters" db:"-"`
	ResultCount     int           `json:"result_count" db:"result_count"`
	ExecutionTimeMs int64         `json:"execution_time_ms" db:"execution_time_ms"`
	Timestamp       time.Time     `json:"timestamp" db:"created_at"`
	Interactions    []Interaction `json:"interactions,omitempty" db:"-"`
}

// Interaction records a user acting on one result of a search
type Interaction struct {
	ResultID        string          `json:"result_id" db:"result_id"`
	Position        int             `json:"position" db:"position"`
	InteractionType InteractionType `json:"interaction_type" db:"interaction_type"`
	Timestamp       time.Time       `json:"timestamp" db:"created_at"`
}

// HasClick reports whether any interaction on the search was a click
func (e *SearchEvent) HasClick() bool {
	for _, i := range e.Interactions {
		if i.InteractionType == InteractionClick {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the event
func (e *SearchEvent) Clone() *SearchEvent {
	if e == nil {
		return nil
	}
	c := *e
	c.Interactions = append([]Interaction(nil), e.Interactions...)
	c.Filters.Tags = append([]string(nil), e.Filters.Tags...)
	if e.Filters.Coordinates != nil {
		p := *e.Filters.Coordinates
		c.Filters.Coordinates = &p
	}
	return &c
}

// Timeframe selects the analytics reporting window
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// ParseTimeframe defaults to a week for unknown values
func ParseTimeframe(raw string) Timeframe {
	switch t := Timeframe(raw); t {
	case TimeframeDay, TimeframeMonth, TimeframeYear:
		return t
	default:
		return TimeframeWeek
	}
}

// Duration returns the length of the timeframe
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	case TimeframeYear:
		return 365 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Trend classifies how a query's volume changed between two equal windows
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
	TrendNew       Trend = "new"
)

// QueryCount pairs a query with how often it was searched
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// DailyCount is one point of the per-day search series
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// QueryTrend is the trend classification of one query
type QueryTrend struct {
	Query         string  `json:"query"`
	CurrentCount  int     `json:"current_count"`
	PreviousCount int     `json:"previous_count"`
	ChangePercent float64 `json:"change_percent"`
	Trend         Trend   `json:"trend"`
}

// SearchAnalytics summarizes search history over a timeframe
type SearchAnalytics struct {
	Timeframe               Timeframe           `json:"timeframe"`
	TotalSearches           int                 `json:"total_searches"`
	UniqueQueries           int                 `json:"unique_queries"`
	AverageResultCount      float64             `json:"average_result_count"`
	AverageExecutionTimeMs  float64             `json:"average_execution_time_ms"`
	TopQueries              []QueryCount        `json:"top_queries"`
	DailySearches           []DailyCount        `json:"daily_searches"`
	ContentTypeDistribution map[ContentType]int `json:"content_type_distribution"`
	ConversionRate          float64             `json:"conversion_rate"`
	Trends                  []QueryTrend        `json:"trends,omitempty"`
}

// PerformanceSummary aggregates sampled search latencies
type PerformanceSummary struct {
	Samples      int     `json:"samples"`
	AverageMs    float64 `json:"average_ms"`
	MaxMs        int64   `json:"max_ms"`
	SlowSearches int     `json:"slow_searches"`
}

// UserPreferences are the content type and category a user searches most
type UserPreferences struct {
	TopContentType ContentType `json:"top_content_type,omitempty"`
	TopCategory    string      `json:"top_category,omitempty"`
}
