// Package remote defines the hosted document store that holds the
// authoritative catalog, with memory, GitHub, Firestore and Postgres
// backends.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

var (
	// ErrNotFound is returned for operations on a document that does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable wraps transport, auth and server failures.
	ErrUnavailable = errors.New("remote store unavailable")
	// ErrConflict is returned when a create collides with an existing id or
	// a write loses a concurrent update race.
	ErrConflict = errors.New("remote write conflict")
)

// Store is a keyed document store partitioned into collections.
type Store interface {
	// List returns every document in the collection.
	List(ctx context.Context, c catalog.Collection) ([]catalog.Item, error)
	// Get returns one document, or ErrNotFound.
	Get(ctx context.Context, c catalog.Collection, id string) (catalog.Item, error)
	// Set writes the patch fields to the document. With merge the document
	// must already exist (ErrNotFound otherwise) and unset fields are kept.
	// Without merge the document is replaced, or created if absent.
	Set(ctx context.Context, c catalog.Collection, id string, p catalog.Patch, merge bool) error
	// Create stores a new document and returns its id. An empty it.ID gets
	// a fresh one.
	Create(ctx context.Context, c catalog.Collection, it catalog.Item) (string, error)
	// Delete removes a document, or returns ErrNotFound.
	Delete(ctx context.Context, c catalog.Collection, id string) error
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// applySet is the shared merge/replace rule for backends that hold whole
// items.
func applySet(existing *catalog.Item, c catalog.Collection, id string, p catalog.Patch, merge bool) (catalog.Item, error) {
	if merge {
		if existing == nil {
			return catalog.Item{}, ErrNotFound
		}
		it := *existing
		p.Apply(&it)
		return it, nil
	}
	it := catalog.Item{ID: id, Kind: c.Kind()}
	p.Apply(&it)
	if it.Slug == "" && it.DisplayName != "" {
		it.Slug = catalog.Slugify(it.DisplayName)
	}
	return it, nil
}

func prepareCreate(c catalog.Collection, it catalog.Item, id string) catalog.Item {
	it.ID = id
	if it.Kind == "" {
		it.Kind = c.Kind()
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = time.Now().UTC()
	}
	return it
}
