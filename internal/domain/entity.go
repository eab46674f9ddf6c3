package domain

// EntityMeta carries the identity and optimistic-concurrency version of a
// persisted entity. A zero ID means the entity has not been persisted yet.
// The version is compared on every write and incremented by the store on
// every successful one; entities never bump it themselves.
type EntityMeta struct {
	ID      int
	Version int
}

// Meta returns the embedded metadata. Embedding EntityMeta in an entity
// struct is all that is needed to satisfy the store's Entity constraint.
func (m *EntityMeta) Meta() *EntityMeta {
	return m
}

// Entity is the capability set the persistence gateway operates over:
// has-identity, has-version, and deep-copyable. Clone must return a copy
// sharing no mutable state with the receiver, so the store can hand out
// snapshots without exposing its internal arena.
type Entity[T any] interface {
	Meta() *EntityMeta
	Clone() T
}
