package store

import (
	"sync"

	"github.com/efreitasn/tradecore/internal/domain"
)

// Registry is a thread-safe in-memory entity store with optimistic
// concurrency control. Every successful write increments the entity's
// version; a write whose submitted version does not match the stored
// version fails with domain.StaleWriteError and leaves the store
// unchanged. Values are deep-copied on the way in and out, so callers
// always hold private snapshots and the race window is exactly the
// version check.
type Registry[T domain.Entity[T]] struct {
	mu       sync.RWMutex
	nextID   int
	items    map[int]T
	notFound error
}

// NewRegistry creates an empty Registry. notFound is the error returned
// when a lookup misses, letting each entity type surface its own sentinel.
func NewRegistry[T domain.Entity[T]](notFound error) *Registry[T] {
	return &Registry[T]{
		items:    make(map[int]T),
		notFound: notFound,
	}
}

// Persist inserts or updates an entity. An entity with no identity yet is
// inserted with a newly assigned id and version 0. Otherwise the submitted
// version must equal the stored version; on match the stored value is
// overwritten and its version incremented. The returned entity is a copy
// carrying the authoritative id and version.
func (r *Registry[T]) Persist(e T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked(e)
}

func (r *Registry[T]) persistLocked(e T) (T, error) {
	var zero T

	meta := e.Meta()
	if meta.ID == 0 {
		r.nextID++
		c := e.Clone()
		c.Meta().ID = r.nextID
		c.Meta().Version = 0
		r.items[r.nextID] = c
		return c.Clone(), nil
	}

	stored, ok := r.items[meta.ID]
	if !ok {
		return zero, r.notFound
	}
	if stored.Meta().Version != meta.Version {
		return zero, &domain.StaleWriteError{
			EntityID:         meta.ID,
			StoredVersion:    stored.Meta().Version,
			SubmittedVersion: meta.Version,
		}
	}

	c := e.Clone()
	c.Meta().Version = stored.Meta().Version + 1
	r.items[meta.ID] = c
	return c.Clone(), nil
}

// FindByID returns a copy of the stored entity, or the registry's
// not-found error if absent.
func (r *Registry[T]) FindByID(id int) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByIDLocked(id)
}

func (r *Registry[T]) findByIDLocked(id int) (T, error) {
	var zero T
	stored, ok := r.items[id]
	if !ok {
		return zero, r.notFound
	}
	return stored.Clone(), nil
}

// Refresh reloads the authoritative stored state for an entity, discarding
// any local uncommitted fields. Used after a known external mutation to
// reconcile an in-memory copy before the next write.
func (r *Registry[T]) Refresh(e T) (T, error) {
	return r.FindByID(e.Meta().ID)
}

// Remove deletes the entity if the submitted version matches the stored
// version; otherwise it fails with domain.StaleWriteError. Removing an
// absent entity returns the not-found error.
func (r *Registry[T]) Remove(e T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(e)
}

func (r *Registry[T]) removeLocked(e T) error {
	meta := e.Meta()
	stored, ok := r.items[meta.ID]
	if !ok {
		return r.notFound
	}
	if stored.Meta().Version != meta.Version {
		return &domain.StaleWriteError{
			EntityID:         meta.ID,
			StoredVersion:    stored.Meta().Version,
			SubmittedVersion: meta.Version,
		}
	}
	delete(r.items, meta.ID)
	return nil
}

// All returns copies of all stored entities in unspecified order.
func (r *Registry[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, e.Clone())
	}
	return out
}
