// Package persist loads and saves the notice store snapshot. Backends are a
// JSON file, SQLite, PostgreSQL and memory, selected by a storage URL.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jonathan/procurement-watch/internal/schemas"
	"github.com/jonathan/procurement-watch/internal/store"
)

// ErrNotFound is returned by Load when nothing has been saved yet
var ErrNotFound = errors.New("no saved store")

// CorruptError is returned by Load when the saved snapshot cannot be used
type CorruptError struct {
	Location string
	Cause    error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt store at %s: %v", e.Location, e.Cause)
}

func (e *CorruptError) Unwrap() error {
	return e.Cause
}

// Persister persists the store snapshot
type Persister interface {
	// Load reads the snapshot. Returns ErrNotFound when none exists and a
	// *CorruptError when it exists but does not decode.
	Load(ctx context.Context) (*store.Store, error)
	// Save replaces the snapshot atomically
	Save(ctx context.Context, s *store.Store) error
	// Location describes where the snapshot lives, for logs
	Location() string
	// Close releases any resources held by the persister
	Close() error
}

// Clearer is implemented by persisters that can drop the saved snapshot
// outright. A cleared persister reports ErrNotFound on the next Load.
type Clearer interface {
	Clear(ctx context.Context) error
}

// LoadOrInit loads the snapshot and falls back to an empty store when none
// exists or the saved one is corrupt. Other errors are returned.
func LoadOrInit(ctx context.Context, p Persister, logger *log.Logger) (*store.Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	s, err := p.Load(ctx)
	if err == nil {
		return s, nil
	}

	var corrupt *CorruptError
	switch {
	case errors.Is(err, ErrNotFound):
		return store.New(), nil
	case errors.As(err, &corrupt):
		logger.Printf("[store] warning: %v; starting with an empty store", err)
		return store.New(), nil
	default:
		return nil, err
	}
}

// encode renders a store snapshot
func encode(s *store.Store) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal store: %w", err)
	}
	return data, nil
}

// decode validates and decodes a snapshot read from location
func decode(location string, data []byte) (*store.Store, error) {
	if err := schemas.Validate(schemas.Store, data); err != nil {
		return nil, &CorruptError{Location: location, Cause: err}
	}

	var s store.Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &CorruptError{Location: location, Cause: err}
	}
	if s.Version > store.SchemaVersion {
		return nil, &CorruptError{
			Location: location,
			Cause:    fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, store.SchemaVersion),
		}
	}
	s.Normalize()
	return &s, nil
}
