package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store is the durable blob store collaborator. Implementations must be
// safe for concurrent use; every call honors ctx cancellation where the
// backend allows.
type Store interface {
	// Put writes data under key and returns the number of bytes stored.
	Put(ctx context.Context, key string, data []byte) (int64, error)

	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object stored under key. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}
