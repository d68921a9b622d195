// Package memory implements the record collections in process memory. Records are kept
// bson-encoded with a revision drawn from a collection-wide sequence, so every reader and
// transaction works on a private copy and commits are compare-and-swap on the revision,
// like the persistent stores.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/exp/slog"
)

// subscriberBuffer is how many undelivered changes a subscriber may fall behind by
// before it is dropped with repositories.ErrSubscriberLagged.
const subscriberBuffer = 64

var _ repositories.Collection[models.Team] = (*Collection[models.Team])(nil)

type record struct {
	rev  int64
	data []byte
}

type subscriber[T any] struct {
	key    string
	events chan repositories.Change[T]
	// err is set under the collection lock before events is closed by the store
	err error
}

// Collection is an in-memory repositories.Collection
type Collection[T any] struct {
	name        string
	maxAttempts int

	mu      sync.Mutex
	seq     int64
	records map[string]record
	subs    map[int]*subscriber[T]
	nextSub int
}

// NewCollection creates an empty collection
func NewCollection[T any](name string, maxAttempts int) *Collection[T] {
	if maxAttempts <= 0 {
		maxAttempts = repositories.DefaultMaxAttempts
	}
	return &Collection[T]{
		name:        name,
		maxAttempts: maxAttempts,
		records:     make(map[string]record),
		subs:        make(map[int]*subscriber[T]),
	}
}

// NewRepositories creates the four raffle collections in memory
func NewRepositories(maxAttempts int) repositories.Repositories {
	return repositories.Repositories{
		Teams:      NewCollection[models.Team](repositories.CollectionTeams, maxAttempts),
		Selections: NewCollection[models.Selection](repositories.CollectionSelection, maxAttempts),
		Prizes:     NewCollection[models.Prizes](repositories.CollectionPrizes, maxAttempts),
		Results:    NewCollection[models.Results](repositories.CollectionResults, maxAttempts),
	}
}

// Read returns a copy of the record stored under key
func (c *Collection[T]) Read(ctx context.Context, key string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	rec, ok := c.records[key]
	c.mu.Unlock()
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return decode[T](rec.data)
}

// Write stores doc under key with a fresh revision
func (c *Collection[T]) Write(ctx context.Context, key string, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.records[key]
	c.records[key] = record{rev: c.nextRev(), data: data}
	if exists {
		c.publish(key, repositories.ChangeModified, data)
	} else {
		c.publish(key, repositories.ChangeCreated, data)
	}
	return nil
}

// Create stores doc under key if the key is free
func (c *Collection[T]) Create(ctx context.Context, key string, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.records[key]; exists {
		return repositories.ErrAlreadyExists
	}
	c.records[key] = record{rev: c.nextRev(), data: data}
	c.publish(key, repositories.ChangeCreated, data)
	return nil
}

// Transact applies fn to a copy of the record and commits it if the revision is unchanged
func (c *Collection[T]) Transact(ctx context.Context, key string, fn func(doc *T) error) (*T, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.mu.Lock()
		snapshot, ok := c.records[key]
		c.mu.Unlock()
		if !ok {
			return nil, repositories.ErrNotFound
		}

		doc, err := decode[T](snapshot.data)
		if err != nil {
			return nil, err
		}
		if err := fn(doc); err != nil {
			return nil, err
		}
		data, err := bson.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", c.name, key, err)
		}

		c.mu.Lock()
		current, ok := c.records[key]
		if !ok {
			c.mu.Unlock()
			return nil, repositories.ErrNotFound
		}
		if current.rev != snapshot.rev {
			c.mu.Unlock()
			slog.Debug("Transaction conflict, retrying", "collection", c.name, "key", key, "attempt", attempt)
			continue
		}
		c.records[key] = record{rev: c.nextRev(), data: data}
		c.publish(key, repositories.ChangeModified, data)
		c.mu.Unlock()
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s/%s after %d attempts: %w",
		repositories.ErrTransactionAborted, c.name, key, c.maxAttempts, repositories.ErrConflict)
}

// Delete removes the record under key
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.records[key]; !exists {
		return nil
	}
	delete(c.records, key)
	c.publish(key, repositories.ChangeDeleted, nil)
	return nil
}

// Subscribe delivers changes of key to onChange from a dedicated goroutine
func (c *Collection[T]) Subscribe(ctx context.Context, key string, onChange func(repositories.Change[T])) (repositories.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscriber[T]{key: key, events: make(chan repositories.Change[T], subscriberBuffer)}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for change := range sub.events {
			onChange(change)
		}
		if sub.err != nil {
			onChange(repositories.StoppedChange[T](key, sub.err))
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			c.mu.Lock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub.events)
			}
			c.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return unsubscribe, nil
}

// publish fans a committed change out to the key's subscribers. Must hold c.mu.
func (c *Collection[T]) publish(key string, changeType repositories.ChangeType, data []byte) {
	for id, sub := range c.subs {
		if sub.key != key {
			continue
		}
		change := repositories.Change[T]{Type: changeType, Key: key}
		if data != nil {
			doc, err := decode[T](data)
			if err != nil {
				slog.Error("Failed to decode change for subscriber", "collection", c.name, "key", key, "error", err)
				continue
			}
			change.Doc = doc
		}
		select {
		case sub.events <- change:
		default:
			// Subscriber is too slow, drop it; it learns why once the buffer drains
			slog.Warn("Dropping slow subscriber", "collection", c.name, "key", key)
			sub.err = repositories.ErrSubscriberLagged
			close(sub.events)
			delete(c.subs, id)
		}
	}
}

// nextRev hands out the next revision. Revisions outlive deletes, so a recreated record
// never matches a snapshot of its predecessor. Must hold c.mu.
func (c *Collection[T]) nextRev() int64 {
	c.seq++
	return c.seq
}

func decode[T any](data []byte) (*T, error) {
	doc := new(T)
	if err := bson.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}
