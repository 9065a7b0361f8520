// If you are AI: This file defines StreamKey, the "app/name" identity of a published stream.

package bus

import (
	"fmt"
	"strings"
)

// StreamKey names a stream inside the registry. The zero value is invalid.
type StreamKey struct {
	App  string
	Name string
}

// NewStreamKey builds a key from its two parts without validating them.
func NewStreamKey(app, name string) StreamKey {
	return StreamKey{App: app, Name: name}
}

// ParseStreamKey splits "app/name" at the first slash; both parts must be non-empty.
func ParseStreamKey(s string) (StreamKey, error) {
	app, name, ok := strings.Cut(s, "/")
	if key := NewStreamKey(app, name); ok && key.Valid() {
		return key, nil
	}
	return StreamKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
}

// String renders the key as "app/name", the form used in logs, events and the API.
func (k StreamKey) String() string {
	return k.App + "/" + k.Name
}

// Valid reports whether both parts are non-empty.
func (k StreamKey) Valid() bool {
	return k.App != "" && k.Name != ""
}
