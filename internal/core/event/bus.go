package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during tick N are
// delivered during tick N+1, in emission order, when EventDispatchSystem
// calls SwapBuffers and DispatchAll.
type Bus struct {
	mu       sync.Mutex // guards handler registration only
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
}

type queued struct {
	typ reflect.Type
	ev  any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]func(any))}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Emit queues an event for the next dispatch.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, queued{typ: typeOf[T](), ev: event})
}

// Subscribe registers a handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers makes the events emitted since the last swap dispatchable.
// The two buffers never share storage, so handlers may emit while
// DispatchAll walks the front buffer.
func (b *Bus) SwapBuffers() {
	b.front = append(b.front[:0], b.back...)
	b.back = b.back[:0]
}

// DispatchAll delivers the front buffer and returns the number of events.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	handlers := b.handlers
	b.mu.Unlock()
	for _, q := range b.front {
		for _, h := range handlers[q.typ] {
			h(q.ev)
		}
	}
	return len(b.front)
}

// Pending is the number of events waiting for the next swap.
func (b *Bus) Pending() int { return len(b.back) }
