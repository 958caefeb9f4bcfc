// Package mirror persists the last known good copy of each catalog
// collection on local storage so a cache can start without the remote
// store.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

var (
	// ErrEmpty means no usable entry exists for the collection.
	ErrEmpty = errors.New("mirror empty")
	// ErrCorrupt means an entry exists but cannot be decoded or fails its
	// checksum.
	ErrCorrupt = errors.New("mirror corrupt")
)

// Mirror is a durable key-value store of serialized collections.
type Mirror interface {
	// Load returns the stored items, ErrEmpty when nothing non-empty is
	// stored, or ErrCorrupt when the stored value is unusable.
	Load(ctx context.Context, c catalog.Collection) ([]catalog.Item, error)
	// Save replaces the stored collection.
	Save(ctx context.Context, c catalog.Collection, items []catalog.Item) error
	// Clear removes the stored collection. Clearing an absent entry is not
	// an error.
	Clear(ctx context.Context, c catalog.Collection) error
	// Info describes the stored entry without decoding it fully.
	Info(ctx context.Context, c catalog.Collection) (Info, error)
	Close() error
}

// Info summarizes one stored collection.
type Info struct {
	Collection catalog.Collection
	Location   string
	Exists     bool
	Items      int
	Bytes      int64
	Checksum   string
	SavedAt    time.Time
}

// Open builds a mirror for the named backend ("file" or "sqlite").
func Open(backend, dir, sqlitePath string) (Mirror, error) {
	switch backend {
	case "", "file":
		return NewFile(dir), nil
	case "sqlite":
		return OpenSQLite(sqlitePath)
	}
	return nil, fmt.Errorf("unknown mirror backend %q", backend)
}

func decode(data []byte) ([]catalog.Item, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	items, err := catalog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	return items, nil
}
