// ABOUTME: Best-effort parse of the first request chunk from a client
// ABOUTME: Extracts method, path and User-Agent without a full HTTP parser
package server

import (
	"errors"
	"strings"
)

// maxRequestBytes bounds the single read taken from a new connection.
const maxRequestBytes = 4096

var errMalformedRequest = errors.New("malformed request line")

// clientRequest is the subset of an HTTP request the server acts on.
type clientRequest struct {
	Method    string
	Path      string
	UserAgent string
}

// parseRequest scans one buffered chunk of request bytes. Only the request
// line and the User-Agent header are extracted; everything else is ignored.
func parseRequest(raw []byte) (clientRequest, error) {
	var req clientRequest

	text := string(raw)
	lines := strings.Split(text, "\r\n")
	if len(lines) == 1 {
		lines = strings.Split(text, "\n")
	}
	if len(lines) == 0 {
		return req, errMalformedRequest
	}

	fields := strings.Fields(lines[0])
	if len(fields) != 3 || !strings.HasPrefix(fields[2], "HTTP/") {
		return req, errMalformedRequest
	}
	req.Method = fields[0]
	req.Path = fields[1]
	if req.Path == "" || req.Path[0] != '/' {
		return req, errMalformedRequest
	}

	// Strip any query string; the server routes on the bare path.
	if i := strings.IndexByte(req.Path, '?'); i >= 0 {
		req.Path = req.Path[:i]
	}

	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "User-Agent") {
			req.UserAgent = strings.TrimSpace(value)
			break
		}
	}

	return req, nil
}

// isStreamPath reports whether path names the live stream. The codec-suffixed
// aliases all serve the active codec.
func isStreamPath(path string) bool {
	switch path {
	case "/stream", "/stream.wav", "/stream.mp3":
		return true
	}
	return false
}

// isIndexPath reports whether path names the embedded player page.
func isIndexPath(path string) bool {
	return path == "/" || path == "/index.html"
}
