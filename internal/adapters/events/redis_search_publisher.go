package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
	redisclient "github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/redis"
)

// RedisSearchPublisher publishes recorded searches over Redis Pub/Sub
type RedisSearchPublisher struct {
	client  *redisclient.Client
	channel string
}

// NewRedisSearchPublisher creates a publisher on channel, defaulting to providers.EventChannelSearches
func NewRedisSearchPublisher(client *redisclient.Client, channel string) providers.SearchEventPublisher {
	if channel == "" {
		channel = providers.EventChannelSearches
	}
	return &RedisSearchPublisher{client: client, channel: channel}
}

// Publish publishes a search event to all subscribers
func (p *RedisSearchPublisher) Publish(ctx context.Context, event *entities.SearchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal search event: %w", err)
	}

	receivers, err := p.client.Client().Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish search event: %w", err)
	}

	log.Debug().Str("channel", p.channel).Str("search_id", event.ID).Int64("receivers", receivers).Msg("published search event")
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (p *RedisSearchPublisher) Close() error {
	return nil
}
