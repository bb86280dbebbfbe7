package identity

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrOccupied is returned when a key is already held by a different value.
var ErrOccupied = errors.New("identity already registered")

// Index is a process-wide name-keyed table (identity -> holder) maintained by
// some holder kinds. It is shared state: every mutation, including a rekey,
// happens under one lock so a concurrent lookup never observes a holder that
// is registered under neither its old nor its new key.
type Index[T comparable] struct {
	mu      sync.RWMutex
	byToken map[string]T
	byHash  map[int64]string
	name    string
	log     *zap.Logger
}

// NewIndex creates an empty index. name only labels log lines.
func NewIndex[T comparable](name string, log *zap.Logger) *Index[T] {
	return &Index[T]{
		byToken: make(map[string]T, 64),
		byHash:  make(map[int64]string, 64),
		name:    name,
		log:     log,
	}
}

// Register inserts v under id. Registering the same value twice is a no-op.
// A key held by another value is left alone and logged; the caller stays
// unindexed.
func (ix *Index[T]) Register(id Identity, v T) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if cur, ok := ix.byToken[id.token]; ok {
		if cur == v {
			return nil
		}
		ix.log.Warn("identity already registered, holder not indexed",
			zap.String("index", ix.name),
			zap.String("identity", id.token))
		return ErrOccupied
	}
	ix.byToken[id.token] = v
	ix.byHash[id.hash] = id.token
	return nil
}

// Unregister removes id only if it is still held by v.
func (ix *Index[T]) Unregister(id Identity, v T) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id, v)
}

// Rekey moves v from old to next in a single step. On ErrOccupied nothing
// changes.
func (ix *Index[T]) Rekey(old, next Identity, v T) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if cur, ok := ix.byToken[next.token]; ok && cur != v {
		return ErrOccupied
	}
	ix.removeLocked(old, v)
	ix.byToken[next.token] = v
	ix.byHash[next.hash] = next.token
	return nil
}

func (ix *Index[T]) removeLocked(id Identity, v T) {
	cur, ok := ix.byToken[id.token]
	if !ok || cur != v {
		return
	}
	delete(ix.byToken, id.token)
	if ix.byHash[id.hash] == id.token {
		delete(ix.byHash, id.hash)
	}
}

// Lookup returns the holder registered under id.
func (ix *Index[T]) Lookup(id Identity) (T, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	v, ok := ix.byToken[id.token]
	return v, ok
}

// LookupHash resolves a holder from a hash alone, as stored in anchor
// references.
func (ix *Index[T]) LookupHash(hash int64) (T, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	token, ok := ix.byHash[hash]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := ix.byToken[token]
	return v, ok
}

func (ix *Index[T]) Has(id Identity) bool {
	_, ok := ix.Lookup(id)
	return ok
}

func (ix *Index[T]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byToken)
}
