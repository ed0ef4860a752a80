package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

func TestBusPublishesInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe(func(models.LectureCompleted) { calls = append(calls, "h1") })
	bus.Subscribe(func(models.LectureCompleted) { calls = append(calls, "h2") })
	bus.Subscribe(func(models.LectureCompleted) { calls = append(calls, "h3") })

	bus.Publish(models.LectureCompleted{LectureID: "l1"})

	assert.Equal(t, []string{"h1", "h2", "h3"}, calls)
}

func TestBusDeliversPayload(t *testing.T) {
	bus := NewBus()
	var got models.LectureCompleted
	bus.Subscribe(func(e models.LectureCompleted) { got = e })

	event := models.LectureCompleted{BatchID: "b", SubjectID: "s", TopicID: "t", LectureID: "l"}
	bus.Publish(event)

	assert.Equal(t, event, got)
}

func TestBusDoesNotReplayToLateSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(models.LectureCompleted{LectureID: "early"})

	calls := 0
	bus.Subscribe(func(models.LectureCompleted) { calls++ })

	assert.Equal(t, 0, calls)
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	var calls []string
	unsubscribe := bus.Subscribe(func(models.LectureCompleted) { calls = append(calls, "gone") })
	bus.Subscribe(func(models.LectureCompleted) { calls = append(calls, "kept") })

	unsubscribe()
	unsubscribe()
	bus.Publish(models.LectureCompleted{})

	assert.Equal(t, []string{"kept"}, calls)
	assert.Equal(t, 1, bus.Len())
}

func TestBusHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	calls := 0
	var unsubscribe func()
	unsubscribe = bus.Subscribe(func(models.LectureCompleted) {
		calls++
		unsubscribe()
	})

	bus.Publish(models.LectureCompleted{})
	bus.Publish(models.LectureCompleted{})

	assert.Equal(t, 1, calls)
}

func TestBusConcurrentUse(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsubscribe := bus.Subscribe(func(models.LectureCompleted) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			bus.Publish(models.LectureCompleted{})
			unsubscribe()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.Len())
	assert.Positive(t, total)
}
