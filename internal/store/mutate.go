package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
)

// ReplaceImage records an already uploaded image as the item's image.
// The remote store is written first; if that fails nothing else changes
// and the error is returned. Otherwise memory and the mirror are updated
// and exactly one ItemUpdated carrying the id and url is published.
func (s *Store) ReplaceImage(ctx context.Context, id, imageURL, actor string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return ErrEmptyImageURL
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrClosed
	}

	patch := catalog.Patch{ImageURL: &imageURL}.Stamp(s.now(), actorOrDefault(actor))
	log := s.log.With(zap.String("id", id))

	if err := s.remote.Set(ctx, s.coll, id, patch, true); err != nil {
		log.Error("image update rejected by remote store", zap.Error(err))
		return fmt.Errorf("saving image for %s %s: %w", s.coll.Kind(), id, err)
	}

	found := false
	snapshot := s.modify(func(items []catalog.Item) []catalog.Item {
		if it := catalog.ByID(items, id); it != nil {
			patch.Apply(it)
			found = true
		}
		return items
	})
	if !found {
		log.Warn("image saved remotely for an item not in the local snapshot")
	}
	_ = s.persist(ctx, snapshot)
	log.Info("image replaced", zap.String("url", imageURL))
	s.publish(events.Event{Kind: events.ItemUpdated, ItemID: id, ImageURL: imageURL})
	return nil
}

// Update merges a partial update into the item. A remote failure is logged
// and does not block the local change. Returns false when the id is not
// in the snapshot or the store is closed.
func (s *Store) Update(ctx context.Context, id string, p catalog.Patch, actor string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		s.log.Warn("update after close ignored", zap.String("id", id))
		return false
	}

	if _, ok := s.GetByID(id); !ok {
		return false
	}
	p = p.Stamp(s.now(), actorOrDefault(actor))
	log := s.log.With(zap.String("id", id))

	if err := s.remote.Set(ctx, s.coll, id, p, true); err != nil {
		log.Warn("remote update failed; applied locally only", zap.Error(err))
	}

	snapshot := s.modify(func(items []catalog.Item) []catalog.Item {
		if it := catalog.ByID(items, id); it != nil {
			p.Apply(it)
		}
		return items
	})
	_ = s.persist(ctx, snapshot)

	e := events.Event{Kind: events.ItemUpdated, ItemID: id}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	s.publish(e)
	return true
}

// SetFeatured toggles the featured flag.
func (s *Store) SetFeatured(ctx context.Context, id string, featured bool, actor string) bool {
	return s.Update(ctx, id, catalog.Patch{Featured: &featured}, actor)
}

// SetProductCount sets a category's derived product count in memory and
// the mirror. It is not written to the remote store. Setting the current
// value is a no-op. Returns false when no category has the slug. A mirror
// failure is returned as ErrMirrorWrite after memory has been updated and
// the event published.
func (s *Store) SetProductCount(slug string, n int) (bool, error) {
	if s.coll != catalog.Categories {
		return false, ErrWrongCollection
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	cur, ok := s.GetBySlug(slug)
	if !ok {
		return false, nil
	}
	if cur.ProductCount == n {
		return true, nil
	}
	snapshot := s.modify(func(items []catalog.Item) []catalog.Item {
		if it := catalog.BySlug(items, slug); it != nil {
			it.ProductCount = n
		}
		return items
	})
	err := s.persist(context.Background(), snapshot)
	s.log.Debug("product count updated", zap.String("slug", slug), zap.Int("count", n))
	s.publish(events.Event{Kind: events.ItemUpdated, ItemID: cur.ID})
	return true, err
}

// Add creates an item. The slug defaults to Slugify(DisplayName) and must
// be unused in this collection. The remote store assigns the id.
func (s *Store) Add(ctx context.Context, it catalog.Item, actor string) (catalog.Item, error) {
	it.DisplayName = strings.TrimSpace(it.DisplayName)
	if it.DisplayName == "" {
		return catalog.Item{}, fmt.Errorf("%w: display name is required", ErrInvalidItem)
	}
	if it.Slug == "" {
		it.Slug = catalog.Slugify(it.DisplayName)
	} else if it.Slug != catalog.Slugify(it.Slug) {
		return catalog.Item{}, fmt.Errorf("%w: slug %q is not URL-safe", ErrInvalidItem, it.Slug)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return catalog.Item{}, ErrClosed
	}

	if _, taken := s.GetBySlug(it.Slug); taken {
		return catalog.Item{}, fmt.Errorf("%w: %s", ErrSlugTaken, it.Slug)
	}
	it.ID = ""
	it.Kind = s.coll.Kind()
	if s.coll != catalog.Categories {
		it.ProductCount = 0
	}
	it.UpdatedAt = s.now()
	it.UpdatedBy = actorOrDefault(actor)

	id, err := s.remote.Create(ctx, s.coll, it)
	if err != nil {
		s.log.Error("create rejected by remote store", zap.String("slug", it.Slug), zap.Error(err))
		return catalog.Item{}, fmt.Errorf("creating %s %q: %w", s.coll.Kind(), it.Slug, err)
	}
	it.ID = id
	if it.ImageURL == "" {
		it.ImageURL = s.images.Placeholder
	}

	snapshot := s.modify(func(items []catalog.Item) []catalog.Item {
		return append(items, it)
	})
	_ = s.persist(ctx, snapshot)
	s.log.Info("item added", zap.String("id", id), zap.String("slug", it.Slug))
	s.publish(events.Event{Kind: events.ItemAdded, ItemID: id, Category: it.Category})
	return it, nil
}

// Remove deletes an item remotely and then locally. A document already
// gone from the remote store is still removed locally.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrClosed
	}

	existing, ok := s.GetByID(id)
	if !ok {
		return ErrNotFound
	}
	if err := s.remote.Delete(ctx, s.coll, id); err != nil && !errors.Is(err, remote.ErrNotFound) {
		s.log.Error("delete rejected by remote store", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("deleting %s %s: %w", s.coll.Kind(), id, err)
	}

	snapshot := s.modify(func(items []catalog.Item) []catalog.Item {
		items, _ = catalog.Remove(items, id)
		return items
	})
	_ = s.persist(ctx, snapshot)
	s.log.Info("item removed", zap.String("id", id))
	s.publish(events.Event{Kind: events.ItemRemoved, ItemID: id, Category: existing.Category})
	return nil
}
