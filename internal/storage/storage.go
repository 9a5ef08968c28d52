package storage

import "context"

// ObjectStore persists result artifacts under a namespaced key and returns a
// durable, client-deliverable URL for the stored object.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// PublicBaseURL returns the URL prefix under which stored objects are
	// served. Useful for callers asserting that a URL is durable.
	PublicBaseURL() string
}
