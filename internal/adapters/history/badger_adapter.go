package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	apperrors "github.com/Charliemcfish/MyThirdPlace-sub002/pkg/errors"
)

// Key layout:
//
//	srch:<unix micro, big endian><id>  -> JSON event
//	srchid:<id>                        -> primary key
const (
	eventPrefix = "srch:"
	idPrefix    = "srchid:"
)

// BadgerHistoryAdapter persists the search history in an embedded Badger database
type BadgerHistoryAdapter struct {
	db *badger.DB
}

var _ repositories.SearchHistoryRepository = (*BadgerHistoryAdapter)(nil)

// badgerLogger routes badger's logging through zerolog
type badgerLogger struct{}

func (badgerLogger) Errorf(msg string, args ...any)   { log.Error().Msgf(msg, args...) }
func (badgerLogger) Warningf(msg string, args ...any) { log.Warn().Msgf(msg, args...) }
func (badgerLogger) Infof(msg string, args ...any)    { log.Debug().Msgf(msg, args...) }
func (badgerLogger) Debugf(msg string, args ...any)   { log.Trace().Msgf(msg, args...) }

// OpenBadgerHistoryAdapter opens the database at path, creating the directory when needed.
// An empty path opens an in-memory database.
func OpenBadgerHistoryAdapter(path string) (*BadgerHistoryAdapter, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, apperrors.NewInternalError("failed to create history directory", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = badgerLogger{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to open history database", err)
	}
	return &BadgerHistoryAdapter{db: db}, nil
}

// Close closes the database
func (a *BadgerHistoryAdapter) Close() error {
	return a.db.Close()
}

func eventKey(ts time.Time, id string) []byte {
	buf := make([]byte, 0, len(eventPrefix)+8+len(id))
	buf = append(buf, eventPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, micros(ts))
	return append(buf, id...)
}

func eventSeekKey(ts time.Time) []byte {
	buf := make([]byte, 0, len(eventPrefix)+8)
	buf = append(buf, eventPrefix...)
	return binary.BigEndian.AppendUint64(buf, micros(ts))
}

// micros clamps pre-epoch timestamps to zero so they still sort first
func micros(ts time.Time) uint64 {
	if us := ts.UnixMicro(); us > 0 {
		return uint64(us)
	}
	return 0
}

func idKey(id string) []byte {
	return []byte(idPrefix + id)
}

// Append stores the event under its timestamp
func (a *BadgerHistoryAdapter) Append(ctx context.Context, event *entities.SearchEvent) error {
	if event == nil || event.ID == "" {
		return apperrors.NewValidationError("search event requires an id")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewInternalError("failed to encode search event", err)
	}

	key := eventKey(event.Timestamp, event.ID)
	err = a.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(idKey(event.ID), key)
	})
	if err != nil {
		return apperrors.NewInternalError("failed to store search event", err)
	}
	return nil
}

// AddInteraction attaches an interaction to a stored search
func (a *BadgerHistoryAdapter) AddInteraction(ctx context.Context, searchID string, interaction entities.Interaction) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		ref, err := txn.Get(idKey(searchID))
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var event entities.SearchEvent
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &event)
		}); err != nil {
			return err
		}

		event.Interactions = append(event.Interactions, interaction)
		data, err := json.Marshal(&event)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NewNotFoundError(fmt.Sprintf("search %s not found", searchID))
	}
	if err != nil {
		return apperrors.NewInternalError("failed to store search interaction", err)
	}
	return nil
}

// ListSince returns the events at or after since, oldest first
func (a *BadgerHistoryAdapter) ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error) {
	var events []*entities.SearchEvent

	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(eventSeekKey(since)); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var event entities.SearchEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return err
			}
			events = append(events, &event)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list search history", err)
	}
	return events, nil
}

// PurgeOlderThan deletes events before cutoff
func (a *BadgerHistoryAdapter) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	type stale struct {
		key []byte
		id  string
	}
	var victims []stale

	end := eventSeekKey(cutoff)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(end) {
				break
			}
			victims = append(victims, stale{key: key, id: string(key[len(eventPrefix)+8:])})
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.NewInternalError("failed to scan search history", err)
	}

	wb := a.db.NewWriteBatch()
	defer wb.Cancel()
	for _, v := range victims {
		if err := wb.Delete(v.key); err != nil {
			return 0, apperrors.NewInternalError("failed to purge search history", err)
		}
		if err := wb.Delete(idKey(v.id)); err != nil {
			return 0, apperrors.NewInternalError("failed to purge search history", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, apperrors.NewInternalError("failed to purge search history", err)
	}
	return len(victims), nil
}
