// ABOUTME: Tests for the event bus and the server listener bridge
// ABOUTME: Verifies type-routed delivery and unsubscribe behavior
package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// collect waits until check passes or the deadline expires.
func waitFor(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !check() {
		if time.Now().After(deadline) {
			t.Fatal("condition never met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishRoutesByType(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var connected []string
	var stops int

	unsub := bus.Subscribe(func(e ClientConnectedEvent) {
		mu.Lock()
		connected = append(connected, e.ID)
		mu.Unlock()
	})
	defer unsub()
	defer bus.Subscribe(func(e ServerStoppedEvent) {
		mu.Lock()
		stops++
		mu.Unlock()
	})()

	bus.Publish(ClientConnectedEvent{ID: "c1", Addr: "1.2.3.4:5", UserAgent: "vlc"})
	bus.Publish(ServerStoppedEvent{})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(connected) == 1 && stops == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if connected[0] != "c1" {
		t.Errorf("connected = %v", connected)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	count := 0
	unsub := bus.Subscribe(func(e ServerStartedEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(ServerStartedEvent{StreamURL: "http://x/stream"})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	unsub()
	bus.Publish(ServerStartedEvent{StreamURL: "http://x/stream"})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("count = %d after unsubscribe", count)
	}
}

func TestUnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(s string) {})
	unsub()
}

func TestBusListenerBridgesCallbacks(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var got []uint32
	record := func(typ uint32) {
		mu.Lock()
		got = append(got, typ)
		mu.Unlock()
	}
	defer bus.Subscribe(func(e ServerStartedEvent) { record(e.Type()) })()
	defer bus.Subscribe(func(e ServerErrorEvent) { record(e.Type()) })()
	defer bus.Subscribe(func(e ClientDisconnectedEvent) { record(e.Type()) })()

	l := NewBusListener(bus)
	l.OnServerStarted("http://h:8000/stream")
	l.OnServerError(errors.New("bind failed"))
	l.OnClientDisconnected("c1", "a", "saturated")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
}
