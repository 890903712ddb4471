package ports

import "context"

// KeyValueStore is durable client-side storage of plain string pairs. Writes
// and deletes must be durable, or have failed, by the time they return.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
