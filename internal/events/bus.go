// ABOUTME: Typed event bus decoupling server notifications from consumers
// ABOUTME: Also adapts the bus to the broadcast server's Listener interface
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish delivers an event to all matching subscribers.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ServerStartedEvent:
		event.Publish(b.dispatcher, e)
	case ServerStoppedEvent:
		event.Publish(b.dispatcher, e)
	case ServerErrorEvent:
		event.Publish(b.dispatcher, e)
	case ClientConnectedEvent:
		event.Publish(b.dispatcher, e)
	case ClientDisconnectedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; its parameter type selects the events it
// receives. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ServerStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ServerStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ServerErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClientConnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClientDisconnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// BusListener bridges the broadcast server's Listener callbacks onto the bus.
type BusListener struct {
	bus *Bus
}

func NewBusListener(bus *Bus) *BusListener {
	return &BusListener{bus: bus}
}

func (l *BusListener) OnServerStarted(streamURL string) {
	l.bus.Publish(ServerStartedEvent{StreamURL: streamURL})
}

func (l *BusListener) OnServerStopped() {
	l.bus.Publish(ServerStoppedEvent{})
}

func (l *BusListener) OnServerError(err error) {
	l.bus.Publish(ServerErrorEvent{Error: err.Error()})
}

func (l *BusListener) OnClientConnected(id, addr, userAgent string) {
	l.bus.Publish(ClientConnectedEvent{ID: id, Addr: addr, UserAgent: userAgent})
}

func (l *BusListener) OnClientDisconnected(id, addr, reason string) {
	l.bus.Publish(ClientDisconnectedEvent{ID: id, Addr: addr, Reason: reason})
}
