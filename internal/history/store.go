// Package history keeps the bounded, newest-first list of past analyses and mirrors it to a
// durable Backend under a single key. The list is loaded once when the Store is opened and
// rewritten in full after every mutation.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/metrics"
	"github.com/comigor/sentix/internal/sentiment"
)

// ErrPersistenceCorrupt marks stored history that could not be decoded. It is logged, never returned.
var ErrPersistenceCorrupt = errors.New("stored history is corrupt")

const DefaultLimit = 10

// persistTimeout bounds a backend write once it is detached from the caller's cancellation.
const persistTimeout = 5 * time.Second

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	key     string
	limit   int
	items   []Item

	now   func() time.Time
	newID func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// Open loads the collection stored under key. Missing data yields an empty store; so does
// corrupt data, which is logged and counted instead of returned.
func Open(ctx context.Context, backend Backend, key string, limit int, opts ...Option) *Store {
	if limit < 1 {
		limit = DefaultLimit
	}
	s := &Store{
		backend: backend,
		key:     key,
		limit:   limit,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	items, err := s.load(ctx)
	if err != nil {
		logger.L.Warn("discarding stored history", "key", key, "error", err)
		metrics.HistoryLoadFailures.Inc()
		items = nil
	}
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	s.items = items
	return s
}

func (s *Store) load(ctx context.Context) ([]Item, error) {
	raw, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	return items, nil
}

// Record prepends a new item built from result and text and evicts anything past the limit.
func (s *Store) Record(ctx context.Context, result sentiment.Result, text string) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if len(s.items) > 0 && ts < s.items[0].Timestamp {
		ts = s.items[0].Timestamp
	}
	item := Item{
		Result:    result,
		ID:        s.newID(),
		Text:      text,
		Timestamp: ts,
	}

	items := make([]Item, 0, min(len(s.items)+1, s.limit))
	items = append(items, item)
	items = append(items, s.items[:min(len(s.items), s.limit-1)]...)
	s.items = items

	s.persist(ctx)
	return item
}

// Remove deletes the item with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.DeleteFunc(slices.Clone(s.items), func(it Item) bool { return it.ID == id })
	s.persist(ctx)
}

// Clear empties the collection.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

// List returns a newest-first copy of the collection.
func (s *Store) List() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Get returns the item with id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return Item{}, false
	}
	return s.items[i], true
}

// Len reports the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// persist must be called with mu held. Failures keep the in-memory copy authoritative.
// The write outlives a cancelled caller so that an accepted mutation still reaches the backend.
func (s *Store) persist(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err == nil {
		err = s.backend.Put(ctx, s.key, raw)
	}
	if err != nil {
		logger.L.Error("failed to persist history; keeping in-memory copy", "key", s.key, "error", err)
		metrics.HistoryPersistFailures.Inc()
	}
}
