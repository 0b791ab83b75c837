package base

import (
	"sync"
)

// EventBus fans out output events to subscribers
//
// Channel subscribers never block the publisher: events are dropped for a subscriber whose channel is full.
type EventBus struct {
	lock        sync.RWMutex
	subscribers []EventSink
}

// NewEventBus creates an EventBus without subscribers
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe adds a sink to receive all subsequent events
func (bus *EventBus) Subscribe(sink EventSink) {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	bus.subscribers = append(bus.subscribers, sink)
}

// SubscribeChannel creates a buffered channel to receive all subsequent events
func (bus *EventBus) SubscribeChannel(size int) <-chan OutputEvent {
	ch := make(chan OutputEvent, size)
	bus.Subscribe(channelEventSink(ch))
	return ch
}

// OnOutputEvent publishes the event to all subscribers
func (bus *EventBus) OnOutputEvent(event OutputEvent) {
	bus.lock.RLock()
	defer bus.lock.RUnlock()
	for _, sink := range bus.subscribers {
		sink.OnOutputEvent(event)
	}
}

type channelEventSink chan OutputEvent

func (ch channelEventSink) OnOutputEvent(event OutputEvent) {
	select {
	case ch <- event:
	default:
	}
}
