package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// MemoryHistoryAdapter keeps the search history in process, ordered by timestamp.
// When bounded, the oldest events are dropped once the cap is exceeded.
type MemoryHistoryAdapter struct {
	mu        sync.RWMutex
	events    []*entities.SearchEvent
	maxEvents int
}

// NewMemoryHistoryAdapter creates an empty, unbounded in-memory history
func NewMemoryHistoryAdapter() repositories.SearchHistoryRepository {
	return &MemoryHistoryAdapter{}
}

// NewBoundedMemoryHistoryAdapter creates an in-memory history holding at most
// maxEvents events; a non-positive maxEvents leaves it unbounded
func NewBoundedMemoryHistoryAdapter(maxEvents int) repositories.SearchHistoryRepository {
	return &MemoryHistoryAdapter{maxEvents: maxEvents}
}

// Append stores a copy of the event
func (a *MemoryHistoryAdapter) Append(ctx context.Context, event *entities.SearchEvent) error {
	if event == nil || event.ID == "" {
		return apperrors.NewValidationError("search event requires an id")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// keep timestamp order; equal timestamps stay in arrival order
	i := sort.Search(len(a.events), func(i int) bool {
		return a.events[i].Timestamp.After(event.Timestamp)
	})
	a.events = append(a.events, nil)
	copy(a.events[i+1:], a.events[i:])
	a.events[i] = event.Clone()

	if a.maxEvents > 0 && len(a.events) > a.maxEvents {
		a.events = append([]*entities.SearchEvent(nil), a.events[len(a.events)-a.maxEvents:]...)
	}
	return nil
}

// AddInteraction attaches an interaction to a stored search
func (a *MemoryHistoryAdapter) AddInteraction(ctx context.Context, searchID string, interaction entities.Interaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range a.events {
		if e.ID == searchID {
			e.Interactions = append(e.Interactions, interaction)
			return nil
		}
	}
	return apperrors.NewNotFoundError(fmt.Sprintf("search %s not found", searchID))
}

// ListSince returns copies of the events at or after since, oldest first
func (a *MemoryHistoryAdapter) ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	start := sort.Search(len(a.events), func(i int) bool {
		return !a.events[i].Timestamp.Before(since)
	})
	out := make([]*entities.SearchEvent, 0, len(a.events)-start)
	for _, e := range a.events[start:] {
		out = append(out, e.Clone())
	}
	return out, nil
}

// PurgeOlderThan drops events before cutoff
func (a *MemoryHistoryAdapter) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := sort.Search(len(a.events), func(i int) bool {
		return !a.events[i].Timestamp.Before(cutoff)
	})
	a.events = append([]*entities.SearchEvent(nil), a.events[n:]...)
	return n, nil
}
