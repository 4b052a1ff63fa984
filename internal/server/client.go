// ABOUTME: Per-client connection state for the broadcast server
// ABOUTME: Owns the socket, the send ring buffer and backpressure counters
package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// drainWriteTimeout bounds each drain write so a stalled client costs the
// broadcast caller at most one short deadline. A timeout counts as
// would-block, not as a failure.
const drainWriteTimeout = 10 * time.Millisecond

// headerWriteTimeout bounds the synchronous stream-header write.
const headerWriteTimeout = 5 * time.Second

var (
	errClientOverflow  = errors.New("client buffer overflow")
	errClientWrite     = errors.New("client write failed")
	errClientSaturated = errors.New("client persistently saturated")
)

// clientConn is one registered stream listener.
type clientConn struct {
	ID        string
	Conn      net.Conn
	Addr      string
	UserAgent string

	mu          sync.Mutex
	ring        *ringBuffer
	headerSent  bool
	failedSends int
	lastSend    time.Time
}

func newClientConn(conn net.Conn, userAgent string, bufferSize int) *clientConn {
	return &clientConn{
		ID:        uuid.New().String(),
		Conn:      conn,
		Addr:      conn.RemoteAddr().String(),
		UserAgent: userAgent,
		ring:      newRingBuffer(bufferSize),
		lastSend:  time.Now(),
	}
}

// sendHeader writes the stream header synchronously. A short or failed write
// leaves the client's decoder desynchronized, so any error is fatal to the
// connection.
func (c *clientConn) sendHeader(header []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headerSent || len(header) == 0 {
		c.headerSent = true
		return nil
	}
	c.Conn.SetWriteDeadline(time.Now().Add(headerWriteTimeout))
	n, err := c.Conn.Write(header)
	if err != nil || n != len(header) {
		return errClientWrite
	}
	c.headerSent = true
	c.lastSend = time.Now()
	return nil
}

// push appends chunk to the ring buffer and drains it with bounded writes.
// It returns nil, or one of the client-fatal sentinels. threshold is the
// buffered fraction above which a drain counts as a failed send, maxFailed
// the consecutive-failure budget before disconnection.
func (c *clientConn) push(chunk []byte, threshold float64, maxFailed int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ring.Write(chunk) {
		return errClientOverflow
	}

	if err := c.drainLocked(); err != nil {
		return err
	}

	if float64(c.ring.Len()) > threshold*float64(c.ring.Cap()) {
		c.failedSends++
		if c.failedSends >= maxFailed {
			return errClientSaturated
		}
	} else {
		c.failedSends = 0
	}
	return nil
}

// drainLocked writes contiguous runs until the buffer is empty or a write
// would block. Zero-byte writes without an error are treated as failure.
func (c *clientConn) drainLocked() error {
	for {
		run := c.ring.Run()
		if len(run) == 0 {
			return nil
		}

		c.Conn.SetWriteDeadline(time.Now().Add(drainWriteTimeout))
		n, err := c.Conn.Write(run)
		if n > 0 {
			c.ring.Advance(n)
			c.lastSend = time.Now()
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil
			}
			return errClientWrite
		}
		if n == 0 {
			return errClientWrite
		}
	}
}

// clearBuffer discards buffered bytes, used on output-format changes so no
// stale bytes in the old format reach the client.
func (c *clientConn) clearBuffer() {
	c.mu.Lock()
	c.ring.Clear()
	c.failedSends = 0
	c.mu.Unlock()
}

func (c *clientConn) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Len()
}
