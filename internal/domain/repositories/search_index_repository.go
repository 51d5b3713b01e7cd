package repositories

import (
	"context"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
)

// SearchIndexRepository stores index entries keyed by entityType_id.
// Implementations return copies; callers never share entries with the store.
type SearchIndexRepository interface {
	// Upsert inserts the entry or replaces the one stored under the same key
	Upsert(ctx context.Context, entry *entities.IndexEntry) error

	// Get returns the entry for a key
	Get(ctx context.Context, entityType entities.EntityType, id string) (*entities.IndexEntry, error)

	// Delete removes an entry; deleting a missing key is not an error
	Delete(ctx context.Context, entityType entities.EntityType, id string) error

	// List returns the entries matching the query in insertion order
	List(ctx context.Context, query IndexQuery) ([]*entities.IndexEntry, error)

	// Sample returns up to n published entries of a type in insertion order
	Sample(ctx context.Context, entityType entities.EntityType, n int) ([]*entities.IndexEntry, error)

	// Count returns the number of entries of a type
	Count(ctx context.Context, entityType entities.EntityType) (int, error)

	// Clear removes every entry
	Clear(ctx context.Context) error
}

// IndexQuery selects index entries by type and exact-match metadata
type IndexQuery struct {
	EntityType    entities.EntityType
	Category      string
	AuthorID      string
	Tags          []string // any-of, case-insensitive
	PublishedOnly bool
}
