// Package inmemory provides a map backed storage.Driver.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/hookchat/pkg/storage"
)

// Driver keeps values in process memory. Safe for concurrent use.
type Driver struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{values: make(map[string][]byte)}
}

func (d *Driver) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.values[key]
	if !ok {
		return nil, storage.ErrNotFound{Key: key}
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *Driver) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	d.mu.Lock()
	d.values[key] = v
	d.mu.Unlock()
	return nil
}

func (d *Driver) Close() error {
	return nil
}
