// ABOUTME: Event types carried over the server notification bus
// ABOUTME: One type per server lifecycle and client transition
package events

// Event type constants for kelindar/event.
const (
	TypeServerStarted uint32 = iota + 1
	TypeServerStopped
	TypeServerError
	TypeClientConnected
	TypeClientDisconnected
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ServerStartedEvent fires once the listen socket is ready.
type ServerStartedEvent struct {
	StreamURL string
}

func (e ServerStartedEvent) Type() uint32 { return TypeServerStarted }

// ServerStoppedEvent fires after the client set has drained.
type ServerStoppedEvent struct{}

func (e ServerStoppedEvent) Type() uint32 { return TypeServerStopped }

// ServerErrorEvent carries initialization failures.
type ServerErrorEvent struct {
	Error string
}

func (e ServerErrorEvent) Type() uint32 { return TypeServerError }

// ClientConnectedEvent fires when a stream client registers.
type ClientConnectedEvent struct {
	ID        string
	Addr      string
	UserAgent string
}

func (e ClientConnectedEvent) Type() uint32 { return TypeClientConnected }

// ClientDisconnectedEvent fires on any client teardown.
type ClientDisconnectedEvent struct {
	ID     string
	Addr   string
	Reason string
}

func (e ClientDisconnectedEvent) Type() uint32 { return TypeClientDisconnected }
