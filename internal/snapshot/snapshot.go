// Package snapshot persists the contents of a data store between runs.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jask/livetree/internal/viewmodel"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown snapshot driver")
	// ErrNotFound is returned by Load when no snapshot has the name.
	ErrNotFound = errors.New("snapshot not found")
)

// Info describes a saved snapshot.
type Info struct {
	Name    string
	SavedAt time.Time
	Size    int
}

// Store saves and loads named snapshots of store data.
type Store interface {
	Save(ctx context.Context, name string, data map[string]any) error
	Load(ctx context.Context, name string) (map[string]any, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open opens the snapshot store for driver at path. Drivers are sqlite and
// bolt.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bolt":
		s, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%q: %w", driver, ErrUnknownDriver)
}

func encode(data map[string]any) ([]byte, error) {
	b, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func decode(b []byte) (map[string]any, error) {
	data, err := viewmodel.LoadYAML(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return data, nil
}

// now returns UTC time truncated to seconds (consistent with SQLite default).
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
