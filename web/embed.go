// ABOUTME: Embedded player page and static assets for the stream server
// ABOUTME: Implements the Resources lookup the broadcast server serves from
package web

import (
	"embed"
)

//go:embed assets
var assetsFS embed.FS

// Assets satisfies the broadcast server's Resources interface.
type Assets struct{}

// Index returns the player page.
func (Assets) Index() []byte {
	b, err := assetsFS.ReadFile("assets/index.html")
	if err != nil {
		return nil
	}
	return b
}

// Resource returns a named embedded asset. Names with path separators are
// rejected so a request can never traverse outside the asset set.
func (Assets) Resource(name string) ([]byte, bool) {
	for _, c := range name {
		if c == '/' || c == '\\' {
			return nil, false
		}
	}
	b, err := assetsFS.ReadFile("assets/" + name)
	if err != nil {
		return nil, false
	}
	return b, true
}
