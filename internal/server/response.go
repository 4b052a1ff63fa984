// ABOUTME: Hand-rolled HTTP response framing for the stream server
// ABOUTME: Builds status responses, stream headers and asset MIME types
package server

import (
	"fmt"
	"net"
	"strings"
)

// writeResponse frames a complete close-delimited HTTP response.
func writeResponse(conn net.Conn, status, contentType string, body []byte) {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %s\r\n", status)
	fmt.Fprintf(&b, "Server: %s\r\n", serverName)
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Connection: close\r\n\r\n")

	conn.Write([]byte(b.String()))
	conn.Write(body)
}

// streamResponseHeaders builds the response prefix for a stream client. The
// body that follows is the live byte stream, so there is no Content-Length;
// the connection stays open until one side drops it.
func streamResponseHeaders(info StreamInfo) string {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&b, "Server: %s\r\n", serverName)

	if info.MimeType == "audio/wav" {
		fmt.Fprintf(&b, "Content-Type: audio/wav; rate=%d;channels=%d;bits=16\r\n",
			info.SampleRate, info.Channels)
	} else {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", info.MimeType)
	}

	b.WriteString("Connection: close\r\n")
	b.WriteString("Cache-Control: no-cache, no-store\r\n")
	b.WriteString("Pragma: no-cache\r\n")

	name := info.Name
	if name == "" {
		name = "NetCast Audio Stream"
	}
	fmt.Fprintf(&b, "icy-name: %s\r\n", name)
	if info.MimeType == "audio/mpeg" {
		fmt.Fprintf(&b, "icy-br: %d\r\n", info.Bitrate)
	}

	fmt.Fprintf(&b, "X-Audio-Sample-Rate: %d\r\n", info.SampleRate)
	fmt.Fprintf(&b, "X-Audio-Channels: %d\r\n", info.Channels)
	fmt.Fprintf(&b, "X-Audio-Codec: %s\r\n", info.CodecName)

	b.WriteString("\r\n")
	return b.String()
}

// mimeTypeForName derives the Content-Type of an embedded asset from its
// file extension.
func mimeTypeForName(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return "text/html"
	case strings.HasSuffix(name, ".css"):
		return "text/css"
	case strings.HasSuffix(name, ".js"):
		return "application/javascript"
	case strings.HasSuffix(name, ".svg"):
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}
