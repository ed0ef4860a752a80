package progress

import (
	"sync"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// Handler receives lecture completed notifications.
type Handler func(models.LectureCompleted)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus broadcasts lecture completed notifications to every subscriber in
// registration order. Past events are not replayed to late subscribers.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

// NewBus creates an empty bus. One bus is shared by the whole process.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler and returns a function that removes it. The
// returned function may be called any number of times.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	subs := make([]subscription, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish synchronously invokes the subscribers registered at call time.
// Handlers run outside the bus lock and may subscribe or unsubscribe.
func (b *Bus) Publish(event models.LectureCompleted) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.id != id {
			subs = append(subs, sub)
		}
	}
	b.subs = subs
}
