// Package storage defines the durable key/value record backing a conversation.
package storage

import "context"

// Driver persists opaque values under string keys.
// A conversation occupies a single key holding its serialized message list,
// so drivers only need whole-value reads and writes.
type Driver interface {
	// Get returns the value stored under key. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the driver.
	Close() error
}

// ErrNotFound is returned when a key doesn't exist in the store.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	if e.Key == "" {
		return "key not found"
	}

	return "key not found: " + e.Key
}
