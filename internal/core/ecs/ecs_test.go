package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityPool_GenerationInvalidatesStaleIDs(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero())
	require.True(t, p.Alive(a))
	require.False(t, p.Alive(0))

	p.Destroy(a)
	require.False(t, p.Alive(a))
	require.Zero(t, p.Live())

	b := p.Create()
	require.Equal(t, a.Index(), b.Index(), "index is recycled")
	require.Equal(t, a.Generation()+1, b.Generation())
	require.False(t, p.Alive(a))
	require.True(t, p.Alive(b))

	p.Destroy(a) // stale, ignored
	require.True(t, p.Alive(b))
	require.Equal(t, 1, p.Live())
}

func TestWorld_FlushRemovesFromStores(t *testing.T) {
	w := NewWorld()
	store := NewPtrComponentStore[string]()
	w.Registry().Register(store)

	id := w.CreateEntity()
	name := "crate"
	store.Set(id, &name)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	require.Equal(t, 2, w.Pending())
	require.True(t, w.Alive(id), "destruction is deferred")

	w.FlushDestroyQueue()
	require.Zero(t, w.Pending())
	require.False(t, w.Alive(id))
	require.False(t, store.Has(id))
	require.Zero(t, w.Pool().Live())
}
