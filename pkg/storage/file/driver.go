// Package file provides a storage.Driver that keeps one file per key in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/hookchat/pkg/storage"
)

const fileSuffix = ".json"

// Driver stores each key as <dir>/<key>.json.
type Driver struct {
	dir string
}

// NewDriver creates the directory if needed and returns a driver rooted at it.
func NewDriver(dir string) (*Driver, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create storage directory %s: %w", dir, err)
	}

	return &Driver{dir: dir}, nil
}

// Dir returns the directory the driver writes to.
func (d *Driver) Dir() string {
	return d.dir
}

func (d *Driver) Get(_ context.Context, key string) ([]byte, error) {
	path, err := d.pathFor(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound{Key: key}
		}
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	return data, nil
}

// Put writes to a temp file in the same directory and renames it over the
// target, so readers never observe a partially written record.
func (d *Driver) Put(_ context.Context, key string, value []byte) error {
	path, err := d.pathFor(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not replace %s: %w", path, err)
	}

	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) pathFor(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(d.dir, key+fileSuffix), nil
}
