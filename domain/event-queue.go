package domain

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// EventQueue is the FIFO connecting the connection worker to the dispatch
// loop: single producer, single consumer. It is the only state shared
// between the two goroutines.
type EventQueue struct {
	mu     sync.Mutex
	events deque.Deque[FeedEvent]

	// One-slot wake signal so PopWait can block instead of spinning.
	wake chan struct{}
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		wake: make(chan struct{}, 1),
	}
}

func (q *EventQueue) Push(ev FeedEvent) {
	q.mu.Lock()
	q.events.PushBack(ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// PopWait removes the oldest event, waiting up to timeout for one to arrive.
// The second return value is false if the queue stayed empty.
func (q *EventQueue) PopWait(timeout time.Duration) (FeedEvent, bool) {
	if ev, ok := q.tryPop(); ok {
		return ev, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.wake:
			if ev, ok := q.tryPop(); ok {
				return ev, true
			}
		case <-timer.C:
			return FeedEvent{}, false
		}
	}
}

func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.events.Len()
}

func (q *EventQueue) tryPop() (FeedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.events.Len() == 0 {
		return FeedEvent{}, false
	}
	return q.events.PopFront(), true
}
