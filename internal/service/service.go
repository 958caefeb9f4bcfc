// Package service composes the product and category caches into the
// catalog backend: startup, derived product counts, image replacement,
// and background refresh.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sinhabinayak2207/extrawork/internal/assets"
	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
	"github.com/sinhabinayak2207/extrawork/internal/mirror"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
	"github.com/sinhabinayak2207/extrawork/internal/store"
)

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNoAssetHost       = errors.New("no asset host configured")
	ErrStarted           = errors.New("service already started")
)

// Options configures a Service. Remote is required.
type Options struct {
	Remote remote.Store
	Mirror mirror.Mirror // optional
	Assets assets.Host   // required for ReplaceImage
	Images catalog.ImagePolicy
	Logger *zap.Logger
	Now    func() time.Time
	// Seeds overrides the built-in last-resort data per collection.
	Seeds map[catalog.Collection][]catalog.Item
	// SharedMirror is set when other processes write the same mirror and
	// the remote is an in-process copy of it.
	SharedMirror bool

	// RefreshInterval re-reads the remote store periodically; 0 disables.
	RefreshInterval time.Duration
	// WatchMirror requests a refresh when another process rewrites the
	// file mirror.
	WatchMirror   bool
	WatchDebounce time.Duration

	MirrorAttempts int
	MaxDimension   int
	JPEGQuality    int
}

// Service owns one cache per collection and the bus they publish on.
type Service struct {
	opts       Options
	log        *zap.Logger
	now        func() time.Time
	bus        *events.Bus
	products   *store.Store
	categories *store.Store

	started        atomic.Bool
	refreshing     atomic.Bool
	refreshPending atomic.Bool // a request arrived during a reload

	mu     sync.Mutex
	cancel context.CancelFunc
	ctx    context.Context
	closed bool
	unsubs []func()
	wg     sync.WaitGroup
}

// New builds the bus and both caches. Nothing is loaded until Start.
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	bus := events.NewBus()
	mk := func(c catalog.Collection) *store.Store {
		return store.New(store.Options{
			Collection:     c,
			Remote:         opts.Remote,
			Mirror:         opts.Mirror,
			Bus:            bus,
			Images:         opts.Images,
			Seed:           opts.Seeds[c],
			Logger:         log,
			Now:            now,
			MirrorAttempts: opts.MirrorAttempts,
			SharedMirror:   opts.SharedMirror,
		})
	}
	return &Service{
		opts:       opts,
		log:        log.Named("service"),
		now:        now,
		bus:        bus,
		products:   mk(catalog.Products),
		categories: mk(catalog.Categories),
	}
}

// Bus returns the bus every cache publishes on.
func (s *Service) Bus() *events.Bus { return s.bus }

// Products returns the product cache.
func (s *Service) Products() *store.Store { return s.products }

// Categories returns the category cache.
func (s *Service) Categories() *store.Store { return s.categories }

// Store returns the cache for a collection.
func (s *Service) Store(c catalog.Collection) (*store.Store, error) {
	switch c {
	case catalog.Products:
		return s.products, nil
	case catalog.Categories:
		return s.categories, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

// Start loads both caches concurrently, derives every category's product
// count, and starts the refresh loop and mirror watcher when enabled.
// Background work stops when ctx is cancelled or Close is called.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range []*store.Store{s.products, s.categories} {
		st := st
		g.Go(func() error {
			st.Init(gctx)
			return nil
		})
	}
	_ = g.Wait()
	s.recountAll()

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.ctx, s.cancel = loopCtx, cancel
	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(s.onProductChange, events.ItemAdded, events.ItemRemoved, events.ItemUpdated),
		s.bus.Subscribe(s.onRefreshRequested, events.RefreshRequested),
	)
	s.mu.Unlock()

	if s.opts.RefreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(loopCtx, s.opts.RefreshInterval)
	}
	if f, ok := s.opts.Mirror.(*mirror.File); ok && s.opts.WatchMirror {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := f.Watch(loopCtx, s.opts.WatchDebounce, s.log, func(catalog.Collection) {
				s.RequestRefresh()
			})
			if err != nil {
				s.log.Warn("mirror watch stopped", zap.Error(err))
			}
		}()
	}

	s.log.Info("catalog service started",
		zap.String("products_tier", string(s.products.Tier())),
		zap.String("categories_tier", string(s.categories.Tier())))
	return nil
}

// Close stops background work, waits for it, and flushes both caches.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	s.wg.Wait()
	return errors.Join(s.products.Close(), s.categories.Close())
}

// ReplaceImage prepares an uploaded image, stores it on the asset host and
// records the new URL on the item. ref is an id or slug. If the upload
// fails nothing is committed; if the remote write fails the uploaded file
// is left orphaned on the host.
func (s *Service) ReplaceImage(ctx context.Context, c catalog.Collection, ref string, r io.Reader, filename, actor string) (string, error) {
	st, err := s.Store(c)
	if err != nil {
		return "", err
	}
	if s.opts.Assets == nil {
		return "", ErrNoAssetHost
	}
	it, ok := st.Lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s %q", store.ErrNotFound, c.Kind(), ref)
	}
	data, err := assets.PrepareImage(r, s.opts.MaxDimension, s.opts.JPEGQuality)
	if err != nil {
		return "", fmt.Errorf("%w: %v", assets.ErrUpload, err)
	}
	dest := assets.DestPath(string(c), it.ID, filename, s.now())
	url, err := s.opts.Assets.Upload(ctx, data, dest)
	if err != nil {
		s.log.Error("image upload failed", zap.String("dest", dest), zap.Error(err))
		return "", err
	}
	if err := st.ReplaceImage(ctx, it.ID, url, actor); err != nil {
		s.log.Warn("uploaded image not recorded", zap.String("url", url), zap.Error(err))
		return "", err
	}
	return url, nil
}

// AddProduct creates a product. A non-empty category must name a known
// category by slug or id; it is stored as the slug.
func (s *Service) AddProduct(ctx context.Context, it catalog.Item, actor string) (catalog.Item, error) {
	if it.Category != "" {
		slug, err := s.resolveCategory(it.Category)
		if err != nil {
			return catalog.Item{}, err
		}
		it.Category = slug
	}
	return s.products.Add(ctx, it, actor)
}

// AddCategory creates a category and derives its product count.
func (s *Service) AddCategory(ctx context.Context, it catalog.Item, actor string) (catalog.Item, error) {
	it.ProductCount = 0
	added, err := s.categories.Add(ctx, it, actor)
	if err != nil {
		return catalog.Item{}, err
	}
	added.ProductCount = s.Recount(added.Slug, nil)
	return added, nil
}

// Add creates an item in the collection.
func (s *Service) Add(ctx context.Context, c catalog.Collection, it catalog.Item, actor string) (catalog.Item, error) {
	switch c {
	case catalog.Products:
		return s.AddProduct(ctx, it, actor)
	case catalog.Categories:
		return s.AddCategory(ctx, it, actor)
	}
	return catalog.Item{}, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

// Update applies a partial update. A product category change is validated
// like AddProduct. Category product counts are derived and cannot be
// patched.
func (s *Service) Update(ctx context.Context, c catalog.Collection, ref string, p catalog.Patch, actor string) (catalog.Item, error) {
	st, err := s.Store(c)
	if err != nil {
		return catalog.Item{}, err
	}
	it, ok := st.Lookup(ref)
	if !ok {
		return catalog.Item{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, c.Kind(), ref)
	}
	p.ProductCount = nil
	if p.Category != nil && *p.Category != "" {
		if c != catalog.Products {
			return catalog.Item{}, fmt.Errorf("%w: only products have a category", store.ErrInvalidItem)
		}
		slug, err := s.resolveCategory(*p.Category)
		if err != nil {
			return catalog.Item{}, err
		}
		p.Category = &slug
	}
	if p.IsEmpty() {
		return it, nil
	}
	if !st.Update(ctx, it.ID, p, actor) {
		return catalog.Item{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, c.Kind(), ref)
	}
	it, _ = st.GetByID(it.ID)
	return it, nil
}

// Remove deletes an item by id or slug.
func (s *Service) Remove(ctx context.Context, c catalog.Collection, ref string) error {
	st, err := s.Store(c)
	if err != nil {
		return err
	}
	it, ok := st.Lookup(ref)
	if !ok {
		return fmt.Errorf("%w: %s %q", store.ErrNotFound, c.Kind(), ref)
	}
	return st.Remove(ctx, it.ID)
}

func (s *Service) resolveCategory(ref string) (string, error) {
	cat, ok := s.categories.Lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, ref)
	}
	return cat.Slug, nil
}
