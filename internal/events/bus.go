// Package events fans lifecycle events out to subscribers: the in-process
// bus feeds the websocket hub and, when configured, a Redis mirror. The
// stream is a read-only mirror of state transitions, never authoritative.
package events

import (
	"log"
	"sync"

	"parity-league/models"
)

const busBuffer = 100

// Subscriber receives every published event. Slow subscribers drop events
// rather than stall the publisher.
type Subscriber func(models.Event)

// Bus is the in-process event channel. Publishing never blocks the caller;
// a full buffer drops the event with a log line.
type Bus struct {
	mu     sync.RWMutex
	subs   []Subscriber
	ch     chan models.Event
	done   chan struct{}
	closed bool
}

// NewBus starts the fan-out goroutine.
func NewBus() *Bus {
	b := &Bus{
		ch:   make(chan models.Event, busBuffer),
		done: make(chan struct{}),
	}
	go b.loop()
	return b
}

// Subscribe adds a subscriber. Subscribers registered after publication
// started only see subsequent events.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Publish enqueues an event for delivery.
func (b *Bus) Publish(event models.Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	select {
	case b.ch <- event:
	default:
		log.Printf("[EVENTS] bus full, dropping %s", event.Kind)
	}
}

// Close stops delivery after draining the buffer.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.ch)
	<-b.done
}

func (b *Bus) loop() {
	defer close(b.done)
	for event := range b.ch {
		b.mu.RLock()
		subs := append([]Subscriber(nil), b.subs...)
		b.mu.RUnlock()
		for _, sub := range subs {
			sub(event)
		}
	}
}
