// ABOUTME: Raw-TCP HTTP server broadcasting encoded audio to many clients
// ABOUTME: Owns the accept loop, client registry and per-client fan-out
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/netcast-project/netcast-go/internal/metrics"
)

const (
	acceptTimeout      = 1 * time.Second
	requestReadTimeout = 5 * time.Second

	// Kernel send buffer and client ring sizes are clamped to this range.
	minSendBuffer = 8 * 1024
	maxSendBuffer = 512 * 1024

	serverName = "netcast-go/1.0"
)

// State tracks the server lifecycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	ErrServerRunning    = errors.New("server already running")
	ErrServerNotRunning = errors.New("server not running")
)

// StreamInfo is the metadata advertised to newly connected clients.
type StreamInfo struct {
	Name       string
	MimeType   string
	CodecName  string
	SampleRate int
	Channels   int
	Bitrate    int
}

// Listener receives lifecycle notifications. All methods are called from
// server goroutines or the broadcast caller and must not block.
type Listener interface {
	OnServerStarted(streamURL string)
	OnServerStopped()
	OnServerError(err error)
	OnClientConnected(id, addr, userAgent string)
	OnClientDisconnected(id, addr, reason string)
}

// Resources supplies the embedded index page and named static assets.
type Resources interface {
	Index() []byte
	Resource(name string) ([]byte, bool)
}

// Config carries the tunables the server needs.
type Config struct {
	Port                  int
	MaxClients            int
	SendBufferSeconds     float64
	BackpressureThreshold float64
	MaxFailedSends        int
}

// Server accepts HTTP connections and fans encoded audio out to every
// registered stream client. The broadcast path never blocks on a slow client
// past one bounded write.
type Server struct {
	logger    *slog.Logger
	cfg       Config
	resources Resources
	listener  Listener
	mx        *metrics.Metrics

	stateMu sync.Mutex
	state   State
	ln      *net.TCPListener
	wg      sync.WaitGroup
	stopCh  chan struct{}

	clientsMu sync.Mutex
	clients   []*clientConn

	// The stream header has its own lock so replacing it on a format change
	// does not serialize against every broadcast's per-client check.
	headerMu     sync.RWMutex
	streamHeader []byte

	infoMu sync.RWMutex
	info   StreamInfo
}

func New(cfg Config, resources Resources, listener Listener, mx *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 10
	}
	if cfg.SendBufferSeconds <= 0 {
		cfg.SendBufferSeconds = 1.0
	}
	if cfg.BackpressureThreshold <= 0 || cfg.BackpressureThreshold > 1 {
		cfg.BackpressureThreshold = 0.9
	}
	if cfg.MaxFailedSends <= 0 {
		cfg.MaxFailedSends = 10
	}
	return &Server{
		logger:    logger,
		cfg:       cfg,
		resources: resources,
		listener:  listener,
		mx:        mx,
	}
}

// Start binds the listening socket and spawns the accept loop. It fails if
// the server is not stopped, and the server only counts as started once the
// socket is listening.
func (s *Server) Start() error {
	s.stateMu.Lock()
	if s.state != StateStopped {
		s.stateMu.Unlock()
		return ErrServerRunning
	}
	s.state = StateStarting
	s.stateMu.Unlock()

	addr := &net.TCPAddr{Port: s.cfg.Port}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.setState(StateStopped)
		err = fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
		s.notifyError(err)
		return err
	}

	s.stateMu.Lock()
	s.ln = ln
	s.stopCh = make(chan struct{})
	s.state = StateRunning
	s.stateMu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(ln)

	url := s.StreamURL()
	s.logger.Info("server started", "port", s.cfg.Port, "url", url, "max_clients", s.cfg.MaxClients)
	if s.listener != nil {
		s.listener.OnServerStarted(url)
	}
	return nil
}

// Stop closes the listener, joins the accept loop and drains the client set.
// It is idempotent.
func (s *Server) Stop() {
	s.stateMu.Lock()
	if s.state != StateRunning {
		s.stateMu.Unlock()
		return
	}
	s.state = StateStopping
	close(s.stopCh)
	ln := s.ln
	s.stateMu.Unlock()

	ln.Close()
	s.wg.Wait()

	s.clientsMu.Lock()
	clients := s.clients
	s.clients = nil
	s.clientsMu.Unlock()
	for _, c := range clients {
		c.Conn.Close()
		s.mx.ClientDisconnected("shutdown")
		if s.listener != nil {
			s.listener.OnClientDisconnected(c.ID, c.Addr, "shutdown")
		}
	}

	s.setState(StateStopped)
	s.logger.Info("server stopped", "clients_dropped", len(clients))
	if s.listener != nil {
		s.listener.OnServerStopped()
	}
}

func (s *Server) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Server) notifyError(err error) {
	if s.listener != nil {
		s.listener.OnServerError(err)
	}
}

func (s *Server) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Server) acceptLoop(ln *net.TCPListener) {
	defer s.wg.Done()
	for {
		ln.SetDeadline(time.Now().Add(acceptTimeout))
		conn, err := ln.AcceptTCP()
		if err != nil {
			if s.stopping() {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		if s.ClientCount() >= s.cfg.MaxClients {
			s.mx.Rejected()
			s.logger.Warn("client limit reached, rejecting", "addr", conn.RemoteAddr())
			writeResponse(conn, "503 Service Unavailable", "text/plain",
				[]byte("Server busy - maximum clients reached"))
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn *net.TCPConn) {
	defer s.wg.Done()

	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		s.logger.Debug("request read failed", "addr", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}

	req, err := parseRequest(buf[:n])
	if err != nil {
		writeResponse(conn, "400 Bad Request", "text/plain", []byte("Invalid HTTP request"))
		conn.Close()
		return
	}

	switch {
	case isStreamPath(req.Path):
		s.registerClient(conn, req)
	case isIndexPath(req.Path):
		s.serveResource(conn, "index.html")
	case strings.HasPrefix(req.Path, "/resource/"):
		s.serveResource(conn, strings.TrimPrefix(req.Path, "/resource/"))
	default:
		writeResponse(conn, "404 Not Found", "text/plain", []byte("Not found. Try /stream"))
		conn.Close()
	}
}

// registerClient writes the stream response headers and adds the connection
// to the broadcast set. The socket is tuned for streaming: Nagle off, kernel
// send buffer sized to roughly SendBufferSeconds of audio.
func (s *Server) registerClient(conn *net.TCPConn, req clientRequest) {
	info := s.GetStreamInfo()
	bufSize := CalculateOptimalSendBuffer(info.MimeType, info.SampleRate, info.Channels,
		info.Bitrate, s.cfg.SendBufferSeconds)

	conn.SetNoDelay(true)
	if err := conn.SetWriteBuffer(bufSize); err != nil {
		s.logger.Debug("set write buffer failed", "error", err)
	}

	conn.SetWriteDeadline(time.Now().Add(requestReadTimeout))
	if _, err := conn.Write([]byte(streamResponseHeaders(info))); err != nil {
		s.logger.Warn("response header write failed", "addr", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}

	c := newClientConn(conn, req.UserAgent, bufSize)

	s.clientsMu.Lock()
	if s.stopping() {
		s.clientsMu.Unlock()
		conn.Close()
		return
	}
	s.clients = append(s.clients, c)
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.mx.ClientConnected()
	s.logger.Info("client connected",
		"id", c.ID, "addr", c.Addr, "user_agent", c.UserAgent,
		"buffer", bufSize, "clients", count)
	if s.listener != nil {
		s.listener.OnClientConnected(c.ID, c.Addr, c.UserAgent)
	}
}

func (s *Server) serveResource(conn net.Conn, name string) {
	defer conn.Close()

	var body []byte
	if s.resources != nil {
		if name == "index.html" {
			body = s.resources.Index()
		} else if b, ok := s.resources.Resource(name); ok {
			body = b
		}
	}
	if body == nil {
		writeResponse(conn, "404 Not Found", "text/plain", []byte("Not found. Try /stream"))
		return
	}

	conn.SetWriteDeadline(time.Now().Add(requestReadTimeout))
	writeResponse(conn, "200 OK", mimeTypeForName(name), body)
}

// BroadcastData pushes one encoded chunk to every registered client. Clients
// that overflow, fail a write or stay saturated past the failure budget are
// disconnected in place; iteration runs in reverse so removal never skips an
// entry.
func (s *Server) BroadcastData(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	s.mx.Broadcast(len(chunk))
	if len(s.clients) == 0 {
		return
	}

	header := s.getStreamHeader()
	for i := len(s.clients) - 1; i >= 0; i-- {
		c := s.clients[i]

		if err := c.sendHeader(header); err != nil {
			s.dropClientLocked(i, "header_write_failed")
			continue
		}

		err := c.push(chunk, s.cfg.BackpressureThreshold, s.cfg.MaxFailedSends)
		switch {
		case err == nil:
		case errors.Is(err, errClientOverflow):
			s.dropClientLocked(i, "buffer_overflow")
		case errors.Is(err, errClientSaturated):
			s.dropClientLocked(i, "saturated")
		default:
			s.dropClientLocked(i, "write_failed")
		}
	}
}

// dropClientLocked removes the client at index i. Caller holds clientsMu.
func (s *Server) dropClientLocked(i int, reason string) {
	c := s.clients[i]
	c.Conn.Close()
	s.clients = append(s.clients[:i], s.clients[i+1:]...)

	s.mx.ClientDisconnected(reason)
	s.logger.Info("client disconnected",
		"id", c.ID, "addr", c.Addr, "reason", reason, "clients", len(s.clients))
	if s.listener != nil {
		s.listener.OnClientDisconnected(c.ID, c.Addr, reason)
	}
}

// ClearClientBuffers discards all buffered bytes, called on output-format
// changes so stale bytes in the old format never reach a client.
func (s *Server) ClearClientBuffers() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for _, c := range s.clients {
		c.clearBuffer()
	}
}

// SetStreamHeader replaces the header sent to clients before their first
// chunk. Pass nil for codecs that need no header.
func (s *Server) SetStreamHeader(header []byte) {
	s.headerMu.Lock()
	s.streamHeader = header
	s.headerMu.Unlock()
}

func (s *Server) getStreamHeader() []byte {
	s.headerMu.RLock()
	defer s.headerMu.RUnlock()
	return s.streamHeader
}

// SetStreamInfo replaces the metadata advertised to new clients.
func (s *Server) SetStreamInfo(info StreamInfo) {
	s.infoMu.Lock()
	s.info = info
	s.infoMu.Unlock()
}

func (s *Server) GetStreamInfo() StreamInfo {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info
}

// Port returns the bound listener port, which differs from the configured
// port when 0 requested an ephemeral one. Returns 0 when not running.
func (s *Server) Port() int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.ln == nil || s.state != StateRunning {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// StreamURL reports the stream endpoint on the first non-loopback IPv4
// address, falling back to localhost.
func (s *Server) StreamURL() string {
	host := "127.0.0.1"
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				host = ip4.String()
				break
			}
		}
	}
	return fmt.Sprintf("http://%s:%d/stream", host, s.cfg.Port)
}

// CalculateOptimalSendBuffer sizes the kernel send buffer and the client
// ring for roughly seconds of audio at the stream's data rate, clamped to
// [8 KiB, 512 KiB]. MP3 rates derive from the bitrate, PCM from the raw
// frame rate.
func CalculateOptimalSendBuffer(mimeType string, sampleRate, channels, bitrate int, seconds float64) int {
	var bytesPerSecond int
	if mimeType == "audio/mpeg" {
		bytesPerSecond = bitrate * 1024 / 8
	} else {
		bytesPerSecond = sampleRate * channels * 2
	}

	size := int(float64(bytesPerSecond) * seconds)
	if size < minSendBuffer {
		size = minSendBuffer
	}
	if size > maxSendBuffer {
		size = maxSendBuffer
	}
	return size
}
