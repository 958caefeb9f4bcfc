package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
)

// Recount sets a category's product count. With explicit set the value is
// used as is; otherwise it is the number of cached products whose category
// is the slug (or the category's id). Returns the count, or 0 when no
// category has the slug.
func (s *Service) Recount(slug string, explicit *int) int {
	cat, ok := s.categories.GetBySlug(slug)
	if !ok {
		s.log.Debug("recount skipped; unknown category", zap.String("slug", slug))
		return 0
	}
	n := 0
	if explicit != nil {
		n = *explicit
	} else {
		products := s.products.GetAll()
		n = catalog.CountInCategory(products, cat.Slug)
		if cat.ID != cat.Slug {
			n += catalog.CountInCategory(products, cat.ID)
		}
	}
	if _, err := s.categories.SetProductCount(cat.Slug, n); err != nil {
		s.log.Error("setting product count", zap.String("slug", slug), zap.Error(err))
	}
	return n
}

func (s *Service) recountAll() {
	for _, c := range s.categories.GetAll() {
		s.Recount(c.Slug, nil)
	}
}

// onProductChange keeps category counts in step with product membership.
func (s *Service) onProductChange(e events.Event) {
	if e.Collection != catalog.Products {
		return
	}
	switch e.Kind {
	case events.ItemAdded, events.ItemRemoved:
		if e.Category == "" {
			return
		}
		if cat, ok := s.categories.Lookup(e.Category); ok {
			s.Recount(cat.Slug, nil)
		}
	case events.ItemUpdated:
		// The previous category is not on the event, so every count is
		// derived again.
		if e.Category != "" {
			s.recountAll()
		}
	}
}

// RequestRefresh asks for a background reload of both caches. Requests
// made while a reload is running are coalesced into one more reload.
func (s *Service) RequestRefresh() {
	s.bus.Publish(events.Event{Kind: events.RefreshRequested, At: s.now()})
}

func (s *Service) onRefreshRequested(events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx == nil {
		return
	}
	if !s.refreshing.CompareAndSwap(false, true) {
		s.refreshPending.Store(true)
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn("background refresh failed", zap.Error(err))
			}
			s.refreshing.Store(false)
			if ctx.Err() != nil || !s.refreshPending.Swap(false) || !s.refreshing.CompareAndSwap(false, true) {
				return
			}
		}
	}()
}

// Refresh reloads both caches from the remote store and derives every
// category count again. A cache whose reload fails keeps its snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	var g errgroup.Group
	errs := make([]error, 2)
	g.Go(func() error {
		errs[0] = s.products.Refresh(ctx)
		return nil
	})
	g.Go(func() error {
		errs[1] = s.categories.Refresh(ctx)
		return nil
	})
	_ = g.Wait()
	s.recountAll()
	return errors.Join(errs...)
}

func (s *Service) refreshLoop(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.RequestRefresh()
		}
	}
}
