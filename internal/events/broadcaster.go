// Package events provides in-process publish/subscribe for state changes.
package events

import "sync"

// Broadcaster fans a value out to every current subscriber. Subscribers run
// synchronously on the publishing goroutine and must not block.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(T)
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[uint64]func(T))}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster[T]) Publish(value T) {
	b.mu.RLock()
	subs := make([]func(T), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(value)
	}
}

func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}
