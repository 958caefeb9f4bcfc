// Package store holds the in-memory catalog state for one collection. It
// loads from the remote store with a mirror and seed fallback, serves
// reads from memory, and pushes mutations to the remote store, the mirror
// and the event bus.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
	"github.com/sinhabinayak2207/extrawork/internal/mirror"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
)

// DefaultActor is recorded as UpdatedBy when a caller gives none.
const DefaultActor = catalog.SeedAuthor

var (
	ErrNotFound        = errors.New("item not found")
	ErrSlugTaken       = errors.New("slug already in use")
	ErrInvalidItem     = errors.New("invalid item")
	ErrEmptyImageURL   = errors.New("image url is empty")
	ErrWrongCollection = errors.New("operation not supported for this collection")
	ErrClosed          = errors.New("store is closed")
	ErrMirrorWrite     = errors.New("mirror write failed")
)

// Options configures a Store. Remote and Bus are required.
type Options struct {
	Collection catalog.Collection
	Remote     remote.Store
	Mirror     mirror.Mirror // optional
	Bus        *events.Bus
	// Seed is the last-resort item list; catalog.Seed(Collection) when nil.
	Seed   []catalog.Item
	Images catalog.ImagePolicy
	Logger *zap.Logger
	Now    func() time.Time
	// MirrorAttempts bounds mirror writes per mutation (default 3).
	MirrorAttempts int
	// MirrorBackoff is the base delay between mirror attempts.
	MirrorBackoff time.Duration
	// SharedMirror marks the mirror as the state shared with other
	// processes. Refresh then reloads an in-process remote (one with a
	// Put method, such as *remote.Memory) from the mirror first.
	SharedMirror bool
}

// Store is the catalog state cache for one collection. Reads never block
// on I/O. Mutations are serialized; events are published in mutation
// order after the in-memory commit.
type Store struct {
	coll     catalog.Collection
	remote   remote.Store
	mirror   mirror.Mirror
	bus      *events.Bus
	seed     []catalog.Item
	images   catalog.ImagePolicy
	log      *zap.Logger
	now      func() time.Time
	attempts int
	backoff  time.Duration
	shared   bool

	writeMu     sync.Mutex // serializes mutations; held through publish
	mirrorDirty bool       // guarded by writeMu
	closed      bool       // guarded by writeMu

	mu    sync.RWMutex
	items []catalog.Item
	tier  Tier
}

// New creates a store. It holds the seed list until Init runs.
func New(opts Options) *Store {
	s := &Store{
		coll:     opts.Collection,
		remote:   opts.Remote,
		mirror:   opts.Mirror,
		bus:      opts.Bus,
		seed:     opts.Seed,
		images:   opts.Images,
		log:      opts.Logger,
		now:      opts.Now,
		attempts: opts.MirrorAttempts,
		backoff:  opts.MirrorBackoff,
		shared:   opts.SharedMirror,
	}
	if s.seed == nil {
		s.seed = catalog.Seed(s.coll)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("store").With(zap.String("collection", string(s.coll)))
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.attempts <= 0 {
		s.attempts = 3
	}
	if s.backoff <= 0 {
		s.backoff = 100 * time.Millisecond
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}
	s.items = catalog.Clone(s.seed)
	s.tier = TierNone
	return s
}

// Collection returns the collection this store serves.
func (s *Store) Collection() catalog.Collection { return s.coll }

// Tier reports where the current snapshot came from.
func (s *Store) Tier() Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tier
}

// GetAll returns a copy of the current snapshot.
func (s *Store) GetAll() []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Clone(s.items)
}

// Len returns the number of items in the snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// GetBySlug returns the first item with the slug.
func (s *Store) GetBySlug(slug string) (catalog.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if it := catalog.BySlug(s.items, slug); it != nil {
		return *it, true
	}
	return catalog.Item{}, false
}

// GetByID returns the item with the id.
func (s *Store) GetByID(id string) (catalog.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if it := catalog.ByID(s.items, id); it != nil {
		return *it, true
	}
	return catalog.Item{}, false
}

// Lookup finds an item by id first, then by slug.
func (s *Store) Lookup(ref string) (catalog.Item, bool) {
	if it, ok := s.GetByID(ref); ok {
		return it, true
	}
	return s.GetBySlug(ref)
}

// Featured returns the featured items.
func (s *Store) Featured() []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Filter{FeaturedOnly: true}.Apply(s.items)
}

// MirrorDirty reports whether the last mirror write failed.
func (s *Store) MirrorDirty() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.mirrorDirty
}

// Close flushes a pending mirror write. The remote store and mirror are
// owned by the caller and stay open.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.mirrorDirty {
		if err := s.persist(context.Background(), s.GetAll()); err != nil {
			return fmt.Errorf("flushing on close: %w", err)
		}
	}
	return nil
}

// commit swaps in a new snapshot.
func (s *Store) commit(items []catalog.Item, tier Tier) {
	s.mu.Lock()
	s.items = items
	if tier != TierNone {
		s.tier = tier
	}
	s.mu.Unlock()
}

// modify applies fn to the live snapshot under the write lock and returns
// a copy of the result.
func (s *Store) modify(fn func(items []catalog.Item) []catalog.Item) []catalog.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = fn(s.items)
	return catalog.Clone(s.items)
}

// persist writes snapshot to the mirror, retrying with linear backoff.
// Failure leaves the mirror dirty and returns ErrMirrorWrite; the next
// successful write clears it. Callers hold writeMu.
func (s *Store) persist(ctx context.Context, snapshot []catalog.Item) error {
	if s.mirror == nil {
		return nil
	}
	// The remote write already happened; a cancelled request must not
	// leave the mirror behind.
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.mirror.Save(ctx, s.coll, snapshot); err == nil {
			if s.mirrorDirty {
				s.log.Info("mirror caught up")
			}
			s.mirrorDirty = false
			return nil
		}
		if attempt < s.attempts {
			time.Sleep(time.Duration(attempt) * s.backoff)
		}
	}
	s.mirrorDirty = true
	s.log.Warn("mirror write failed; will retry on next change",
		zap.Int("attempts", s.attempts), zap.Error(err))
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrMirrorWrite, s.coll, s.attempts, err)
}

func (s *Store) publish(e events.Event) {
	e.Collection = s.coll
	if e.At.IsZero() {
		e.At = s.now()
	}
	s.bus.Publish(e)
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return DefaultActor
	}
	return actor
}
