package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// MemoryIndexAdapter is the process-wide index store. Entries are addressed by a
// stable ordinal assigned on first insert; secondary indexes are roaring bitmaps
// of ordinals so type/category/author lookups are bitmap intersections.
type MemoryIndexAdapter struct {
	mu          sync.RWMutex
	entries     map[uint32]*entities.IndexEntry
	ordinals    map[string]uint32
	nextOrdinal uint32

	byType     map[entities.EntityType]*roaring.Bitmap
	byCategory map[string]*roaring.Bitmap
	byAuthor   map[string]*roaring.Bitmap
	byTag      map[string]*roaring.Bitmap
	published  *roaring.Bitmap
}

// NewMemoryIndexAdapter creates an empty index store
func NewMemoryIndexAdapter() repositories.SearchIndexRepository {
	return newMemoryIndexAdapter()
}

func newMemoryIndexAdapter() *MemoryIndexAdapter {
	return &MemoryIndexAdapter{
		entries:    make(map[uint32]*entities.IndexEntry),
		ordinals:   make(map[string]uint32),
		byType:     make(map[entities.EntityType]*roaring.Bitmap),
		byCategory: make(map[string]*roaring.Bitmap),
		byAuthor:   make(map[string]*roaring.Bitmap),
		byTag:      make(map[string]*roaring.Bitmap),
		published:  roaring.NewBitmap(),
	}
}

// Upsert inserts the entry or replaces the one stored under the same key.
// A replaced entry keeps its ordinal, so listing order is stable across rebuilds.
func (a *MemoryIndexAdapter) Upsert(ctx context.Context, entry *entities.IndexEntry) error {
	if entry == nil || entry.ID == "" || !entry.EntityType.Valid() {
		return apperrors.NewValidationError("index entry requires an id and a valid entity type")
	}

	stored := entry.Clone()
	key := stored.Key()

	a.mu.Lock()
	defer a.mu.Unlock()

	ordinal, exists := a.ordinals[key]
	if exists {
		a.unindex(ordinal, a.entries[ordinal])
	} else {
		ordinal = a.nextOrdinal
		a.nextOrdinal++
		a.ordinals[key] = ordinal
	}

	a.entries[ordinal] = stored
	a.index(ordinal, stored)
	return nil
}

// Get returns a copy of the entry stored under entityType_id
func (a *MemoryIndexAdapter) Get(ctx context.Context, entityType entities.EntityType, id string) (*entities.IndexEntry, error) {
	key := entities.IndexKey(entityType, id)

	a.mu.RLock()
	defer a.mu.RUnlock()

	ordinal, ok := a.ordinals[key]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("index entry %s not found", key))
	}
	return a.entries[ordinal].Clone(), nil
}

// Delete removes an entry; deleting a missing key is a no-op
func (a *MemoryIndexAdapter) Delete(ctx context.Context, entityType entities.EntityType, id string) error {
	key := entities.IndexKey(entityType, id)

	a.mu.Lock()
	defer a.mu.Unlock()

	ordinal, ok := a.ordinals[key]
	if !ok {
		return nil
	}
	a.unindex(ordinal, a.entries[ordinal])
	delete(a.entries, ordinal)
	delete(a.ordinals, key)
	return nil
}

// List returns copies of the entries matching the query, in insertion order
func (a *MemoryIndexAdapter) List(ctx context.Context, query repositories.IndexQuery) ([]*entities.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.collect(a.selectOrdinals(query), 0), nil
}

// Sample returns up to n published entries of a type, in insertion order
func (a *MemoryIndexAdapter) Sample(ctx context.Context, entityType entities.EntityType, n int) ([]*entities.IndexEntry, error) {
	if n <= 0 {
		return []*entities.IndexEntry{}, nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	selected := a.selectOrdinals(repositories.IndexQuery{EntityType: entityType, PublishedOnly: true})
	return a.collect(selected, n), nil
}

// Count returns the number of entries of a type; an empty type counts everything
func (a *MemoryIndexAdapter) Count(ctx context.Context, entityType entities.EntityType) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if entityType == "" {
		return len(a.entries), nil
	}
	bm, ok := a.byType[entityType]
	if !ok {
		return 0, nil
	}
	return int(bm.GetCardinality()), nil
}

// Clear removes every entry
func (a *MemoryIndexAdapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fresh := newMemoryIndexAdapter()
	a.entries = fresh.entries
	a.ordinals = fresh.ordinals
	a.nextOrdinal = 0
	a.byType = fresh.byType
	a.byCategory = fresh.byCategory
	a.byAuthor = fresh.byAuthor
	a.byTag = fresh.byTag
	a.published = fresh.published
	return nil
}

// selectOrdinals intersects the secondary indexes for the query. Caller holds the read lock.
func (a *MemoryIndexAdapter) selectOrdinals(query repositories.IndexQuery) *roaring.Bitmap {
	var result *roaring.Bitmap
	if query.EntityType != "" {
		bm, ok := a.byType[query.EntityType]
		if !ok {
			return roaring.NewBitmap()
		}
		result = bm.Clone()
	} else {
		result = roaring.NewBitmap()
		for _, bm := range a.byType {
			result.Or(bm)
		}
	}

	if category := normalizeCategory(query.Category); category != "" {
		bm, ok := a.byCategory[category]
		if !ok {
			return roaring.NewBitmap()
		}
		result.And(bm)
	}

	if query.AuthorID != "" {
		bm, ok := a.byAuthor[query.AuthorID]
		if !ok {
			return roaring.NewBitmap()
		}
		result.And(bm)
	}

	if len(query.Tags) > 0 {
		tagged := roaring.NewBitmap()
		for _, tag := range query.Tags {
			if bm, ok := a.byTag[normalizeTag(tag)]; ok {
				tagged.Or(bm)
			}
		}
		result.And(tagged)
	}

	if query.PublishedOnly {
		result.And(a.published)
	}
	return result
}

// collect clones the entries of the bitmap in ordinal order, stopping at limit when positive
func (a *MemoryIndexAdapter) collect(bm *roaring.Bitmap, limit int) []*entities.IndexEntry {
	size := int(bm.GetCardinality())
	if limit > 0 && limit < size {
		size = limit
	}
	out := make([]*entities.IndexEntry, 0, size)

	it := bm.Iterator()
	for it.HasNext() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if entry, ok := a.entries[it.Next()]; ok {
			out = append(out, entry.Clone())
		}
	}
	return out
}

func (a *MemoryIndexAdapter) index(ordinal uint32, entry *entities.IndexEntry) {
	bitmapFor(a.byType, entry.EntityType).Add(ordinal)
	if category := normalizeCategory(entry.Category); category != "" {
		bitmapFor(a.byCategory, category).Add(ordinal)
	}
	if entry.AuthorID != "" {
		bitmapFor(a.byAuthor, entry.AuthorID).Add(ordinal)
	}
	for _, tag := range entry.Tags {
		if t := normalizeTag(tag); t != "" {
			bitmapFor(a.byTag, t).Add(ordinal)
		}
	}
	if entry.IsPublished {
		a.published.Add(ordinal)
	}
}

func (a *MemoryIndexAdapter) unindex(ordinal uint32, entry *entities.IndexEntry) {
	if entry == nil {
		return
	}
	removeFrom(a.byType, entry.EntityType, ordinal)
	removeFrom(a.byCategory, normalizeCategory(entry.Category), ordinal)
	removeFrom(a.byAuthor, entry.AuthorID, ordinal)
	for _, tag := range entry.Tags {
		removeFrom(a.byTag, normalizeTag(tag), ordinal)
	}
	a.published.Remove(ordinal)
}

func bitmapFor[K comparable](m map[K]*roaring.Bitmap, key K) *roaring.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring.NewBitmap()
		m[key] = bm
	}
	return bm
}

func removeFrom[K comparable](m map[K]*roaring.Bitmap, key K, ordinal uint32) {
	bm, ok := m[key]
	if !ok {
		return
	}
	bm.Remove(ordinal)
	if bm.IsEmpty() {
		delete(m, key)
	}
}

func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "all" {
		return ""
	}
	return c
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
