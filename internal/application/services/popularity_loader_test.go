package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

func TestPopularityLoader_Seed(t *testing.T) {
	repo := new(MockRelationshipRepository)
	repo.On("RegularCounts", mock.Anything, []string{"venue-1"}).Return(map[string]int{"venue-1": 42}, nil)
	repo.On("ViewCounts", mock.Anything, []string{"blog-1"}).Return(map[string]int{}, nil)

	loader := NewPopularityLoader(repo, time.Second)

	assert.Equal(t, 42, loader.Seed(context.Background(), entities.EntityTypeVenue, "venue-1"))
	assert.Equal(t, 0, loader.Seed(context.Background(), entities.EntityTypeBlog, "blog-1"))
	repo.AssertExpectations(t)
}

func TestPopularityLoader_FailureDefaultsToZero(t *testing.T) {
	repo := new(MockRelationshipRepository)
	repo.On("RegularCounts", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	loader := NewPopularityLoader(repo, time.Second)

	assert.Equal(t, 0, loader.Seed(context.Background(), entities.EntityTypeVenue, "venue-1"))
}

func TestPopularityLoader_TimeoutDefaultsToZero(t *testing.T) {
	repo := new(MockRelationshipRepository)
	repo.On("ViewCounts", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { time.Sleep(200 * time.Millisecond) }).
		Return(map[string]int{"blog-1": 7}, nil)

	loader := NewPopularityLoader(repo, 20*time.Millisecond)

	start := time.Now()
	assert.Equal(t, 0, loader.Seed(context.Background(), entities.EntityTypeBlog, "blog-1"))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
