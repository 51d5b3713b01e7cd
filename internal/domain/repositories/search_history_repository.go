package repositories

import (
	"context"
	"time"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// SearchHistoryRepository persists the search history used for analytics
type SearchHistoryRepository interface {
	// Append stores a search event
	Append(ctx context.Context, event *entities.SearchEvent) error

	// AddInteraction attaches an interaction to a stored search
	AddInteraction(ctx context.Context, searchID string, interaction entities.Interaction) error

	// ListSince returns events at or after since, oldest first
	ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error)

	// PurgeOlderThan removes events before cutoff and returns how many were removed
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
