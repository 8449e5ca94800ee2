package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Lister reads the full contents of one user's collection
type Lister[T any] interface {
	List(ctx context.Context, userID string) ([]T, error)
}

// Subscribable is implemented by every service that exposes a live collection
type Subscribable interface {
	Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error)
}

// ScopePath returns the store partition of a user's collection
func ScopePath(userID, collection string) string {
	return "users/" + userID + "/" + collection
}

// Collection mirrors one per-user collection into the feed. Writes go
// through Write so that each scope publishes snapshots in write order.
type Collection[T any] struct {
	name      string
	lister    Lister[T]
	feed      *Feed
	seed      func(ctx context.Context, userID string) (bool, error)
	summarize func([]T) any
	locks     scopeLocks
}

// CollectionOption configures a Collection
type CollectionOption[T any] func(*Collection[T])

// WithSeed sets the function that fills an empty collection with defaults.
// It must report whether it wrote anything.
func WithSeed[T any](seed func(ctx context.Context, userID string) (bool, error)) CollectionOption[T] {
	return func(c *Collection[T]) { c.seed = seed }
}

// WithSummary attaches a derived summary to every snapshot
func WithSummary[T any](summarize func([]T) any) CollectionOption[T] {
	return func(c *Collection[T]) { c.summarize = summarize }
}

// NewCollection creates a collection named name backed by lister
func NewCollection[T any](name string, lister Lister[T], feed *Feed, opts ...CollectionOption[T]) *Collection[T] {
	c := &Collection[T]{
		name:   name,
		lister: lister,
		feed:   feed,
		locks:  scopeLocks{m: make(map[string]*scopeLock)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Load returns the current records, seeding an empty collection first
func (c *Collection[T]) Load(ctx context.Context, userID string) ([]T, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := c.locks.lock(ScopePath(userID, c.name))
	defer unlock()

	records, err := c.lister.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.name, err)
	}
	if len(records) > 0 {
		return records, nil
	}

	seeded, err := c.seedIfEmpty(ctx, userID)
	if err != nil || !seeded {
		return records, err
	}
	return c.publishLocked(ctx, userID)
}

// Subscribe opens a live subscription. The first snapshot holds the
// collection as read; an empty collection is then seeded and the seeded
// contents follow as the next snapshot.
func (c *Collection[T]) Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	scope := ScopePath(userID, c.name)
	unlock := c.locks.lock(scope)
	defer unlock()

	records, err := c.lister.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.name, err)
	}

	sub := c.feed.Subscribe(scope, sessionID)
	initial := c.snapshot(userID, records)
	initial.Initial = true
	sub.offer(initial)

	if len(records) == 0 {
		seeded, err := c.seedIfEmpty(ctx, userID)
		if err != nil {
			log.Error().Err(err).Str("scope", scope).Msg("Failed to seed collection")
		} else if seeded {
			if _, err := c.publishLocked(ctx, userID); err != nil {
				log.Error().Err(err).Str("scope", scope).Msg("Failed to publish seeded collection")
			}
		}
	}

	return sub, nil
}

// Write runs fn while holding the scope and publishes a fresh snapshot when
// fn reports a change. A failure to read back after a successful write is
// logged, not returned.
func (c *Collection[T]) Write(ctx context.Context, userID string, fn func(ctx context.Context) (bool, error)) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	scope := ScopePath(userID, c.name)
	unlock := c.locks.lock(scope)
	defer unlock()

	changed, err := fn(ctx)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if _, err := c.publishLocked(ctx, userID); err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("Write applied but snapshot publish failed")
	}
	return nil
}

// SeedIfEmpty seeds the collection if the seed guard allows it
func (c *Collection[T]) SeedIfEmpty(ctx context.Context, userID string) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	unlock := c.locks.lock(ScopePath(userID, c.name))
	defer unlock()

	seeded, err := c.seedIfEmpty(ctx, userID)
	if err != nil || !seeded {
		return seeded, err
	}
	_, err = c.publishLocked(ctx, userID)
	return true, err
}

// Summarize returns the configured summary of records, or nil
func (c *Collection[T]) Summarize(records []T) any {
	if c.summarize == nil {
		return nil
	}
	return c.summarize(records)
}

func (c *Collection[T]) seedIfEmpty(ctx context.Context, userID string) (bool, error) {
	if c.seed == nil {
		return false, nil
	}
	seeded, err := c.seed(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to seed %s: %w: %w", c.name, ErrWriteFailed, err)
	}
	if seeded {
		log.Info().Str("user_id", userID).Str("collection", c.name).Msg("Collection seeded with defaults")
	}
	return seeded, nil
}

func (c *Collection[T]) publishLocked(ctx context.Context, userID string) ([]T, error) {
	records, err := c.lister.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.name, err)
	}
	c.feed.Publish(c.snapshot(userID, records))
	return records, nil
}

func (c *Collection[T]) snapshot(userID string, records []T) Snapshot {
	return Snapshot{
		Scope:      ScopePath(userID, c.name),
		Collection: c.name,
		Records:    records,
		Summary:    c.Summarize(records),
	}
}

// scopeLocks hands out one mutex per scope, dropping it when unused
type scopeLocks struct {
	mu sync.Mutex
	m  map[string]*scopeLock
}

type scopeLock struct {
	sync.Mutex
	refs int
}

func (l *scopeLocks) lock(key string) func() {
	l.mu.Lock()
	sl, ok := l.m[key]
	if !ok {
		sl = &scopeLock{}
		l.m[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
