package ecs

// World owns the entity pool, the store registry, and a deferred destruction
// queue. Destroyed scene objects stay addressable (but not Alive) until the
// cleanup phase flushes the queue.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for release. Marking twice is harmless:
// the second Destroy sees a bumped generation and is ignored.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending is the number of queued destructions.
func (w *World) Pending() int {
	return len(w.destroyQueue)
}

// FlushDestroyQueue releases all queued entities and drops their data from
// every registered store.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
