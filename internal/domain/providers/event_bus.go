package providers

import (
	"context"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// SearchEventPublisher fans recorded search events out to other consumers
type SearchEventPublisher interface {
	// Publish publishes a search event
	Publish(ctx context.Context, event *entities.SearchEvent) error

	// Close releases the publisher
	Close() error
}

// EventChannelSearches is the channel recorded searches are published on
const EventChannelSearches = "search:events"
