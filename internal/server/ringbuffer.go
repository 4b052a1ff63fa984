// ABOUTME: Fixed-capacity circular byte buffer with explicit cursors
// ABOUTME: Backs the per-client send queue during broadcast
package server

// ringBuffer is a fixed-capacity circular byte buffer. It is not safe for
// concurrent use; the owning client connection guards it with its own lock.
type ringBuffer struct {
	buf   []byte
	read  int
	write int
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]byte, capacity)}
}

func (r *ringBuffer) Cap() int  { return len(r.buf) }
func (r *ringBuffer) Len() int  { return r.count }
func (r *ringBuffer) Free() int { return len(r.buf) - r.count }

// Write appends p in full, or nothing at all. It reports whether the data
// fit; a false return means the buffer would overflow.
func (r *ringBuffer) Write(p []byte) bool {
	if len(p) > r.Free() {
		return false
	}
	n := copy(r.buf[r.write:], p)
	if n < len(p) {
		copy(r.buf, p[n:])
	}
	r.write = (r.write + len(p)) % len(r.buf)
	r.count += len(p)
	return true
}

// Run returns the largest contiguous readable slice. The slice aliases the
// internal storage and is invalidated by the next Write, Advance or Clear.
func (r *ringBuffer) Run() []byte {
	if r.count == 0 {
		return nil
	}
	end := r.read + r.count
	if end > len(r.buf) {
		end = len(r.buf)
	}
	return r.buf[r.read:end]
}

// Advance consumes n bytes previously returned by Run.
func (r *ringBuffer) Advance(n int) {
	if n > r.count {
		n = r.count
	}
	r.read = (r.read + n) % len(r.buf)
	r.count -= n
}

func (r *ringBuffer) Clear() {
	r.read = 0
	r.write = 0
	r.count = 0
}
