package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
)

// Mocks

type MockRelationshipRepository struct {
	mock.Mock
}

func (m *MockRelationshipRepository) RegularCount(ctx context.Context, venueID string) (int, error) {
	args := m.Called(ctx, venueID)
	return args.Int(0), args.Error(1)
}

func (m *MockRelationshipRepository) ViewCount(ctx context.Context, blogID string) (int, error) {
	args := m.Called(ctx, blogID)
	return args.Int(0), args.Error(1)
}

func (m *MockRelationshipRepository) RegularCounts(ctx context.Context, venueIDs []string) (map[string]int, error) {
	args := m.Called(ctx, venueIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRelationshipRepository) ViewCounts(ctx context.Context, blogIDs []string) (map[string]int, error) {
	args := m.Called(ctx, blogIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) ListVenues(ctx context.Context, filter repositories.ContentFilter) ([]*entities.Venue, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Venue), args.Error(1)
}

func (m *MockContentRepository) ListBlogs(ctx context.Context, filter repositories.ContentFilter) ([]*entities.Blog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Blog), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, event *entities.SearchEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockHistoryRepository) AddInteraction(ctx context.Context, searchID string, interaction entities.Interaction) error {
	args := m.Called(ctx, searchID, interaction)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SearchEvent), args.Error(1)
}

func (m *MockHistoryRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *entities.SearchEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return nil
}

type MockGeolocationProvider struct {
	mock.Mock
}

func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*entities.GeoPoint, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GeoPoint), args.Error(1)
}

func (m *MockGeolocationProvider) CurrentLocation(ctx context.Context) (*entities.GeoPoint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GeoPoint), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// stubIndex wraps an index store and can fail or stall one entity type
type stubIndex struct {
	repositories.SearchIndexRepository
	failType  entities.EntityType
	stallType entities.EntityType
	panicType entities.EntityType
}

func (s *stubIndex) List(ctx context.Context, query repositories.IndexQuery) ([]*entities.IndexEntry, error) {
	switch query.EntityType {
	case s.failType:
		return nil, context.DeadlineExceeded
	case s.stallType:
		<-ctx.Done()
		return nil, ctx.Err()
	case s.panicType:
		panic("corrupt index")
	}
	return s.SearchIndexRepository.List(ctx, query)
}
