package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
)

// Tier names a data source in the startup fallback chain.
type Tier string

const (
	TierNone   Tier = ""
	TierRemote Tier = "remote"
	TierMirror Tier = "mirror"
	TierSeed   Tier = "seed"
)

// Outcome tags a source attempt.
type Outcome int

const (
	Unavailable Outcome = iota
	Available
)

func (o Outcome) String() string {
	if o == Available {
		return "available"
	}
	return "unavailable"
}

// Result is the tagged outcome of asking one source for the collection.
type Result struct {
	Tier    Tier
	Outcome Outcome
	Items   []catalog.Item
	Err     error // cause when Unavailable
}

var errEmptySource = errors.New("source returned no items")

// Source yields the collection from one tier.
type Source struct {
	Tier  Tier
	Fetch func(ctx context.Context) ([]catalog.Item, error)
}

// Sources returns the fallback chain in priority order: remote, mirror,
// seed.
func (s *Store) Sources() []Source {
	chain := []Source{{
		Tier: TierRemote,
		Fetch: func(ctx context.Context) ([]catalog.Item, error) {
			items, err := s.remote.List(ctx, s.coll)
			if err != nil {
				return nil, err
			}
			s.images.NormalizeAll(items, s.now())
			return items, nil
		},
	}}
	if s.mirror != nil {
		chain = append(chain, Source{
			Tier: TierMirror,
			Fetch: func(ctx context.Context) ([]catalog.Item, error) {
				return s.mirror.Load(ctx, s.coll)
			},
		})
	}
	return append(chain, Source{
		Tier: TierSeed,
		Fetch: func(context.Context) ([]catalog.Item, error) {
			return catalog.Clone(s.seed), nil
		},
	})
}

// try runs one source and tags the result. An empty list counts as
// unavailable so a blank remote never wipes a good mirror.
func try(ctx context.Context, src Source) Result {
	items, err := src.Fetch(ctx)
	if err == nil && len(items) == 0 {
		err = errEmptySource
	}
	if err != nil {
		return Result{Tier: src.Tier, Outcome: Unavailable, Err: err}
	}
	return Result{Tier: src.Tier, Outcome: Available, Items: items}
}

// Resolve walks the chain and returns the first available result. It
// never fails: if even the seed list is empty the result is an empty,
// available seed tier.
func Resolve(ctx context.Context, chain []Source, log *zap.Logger) Result {
	for _, src := range chain {
		res := try(ctx, src)
		if res.Outcome == Available {
			return res
		}
		log.Warn("catalog source unavailable",
			zap.String("tier", string(src.Tier)), zap.Error(res.Err))
	}
	return Result{Tier: TierSeed, Outcome: Available, Items: []catalog.Item{}}
}

// Init loads the collection through the fallback chain. A remote load is
// normalized and written through to the mirror. Init never fails; the
// result reports which tier served.
func (s *Store) Init(ctx context.Context) Result {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := Resolve(ctx, s.Sources(), s.log)
	s.commit(catalog.Clone(res.Items), res.Tier)
	if res.Tier == TierRemote {
		_ = s.persist(ctx, res.Items)
	}
	s.log.Info("catalog loaded",
		zap.String("tier", string(res.Tier)), zap.Int("items", len(res.Items)))
	s.publish(events.Event{Kind: events.Refreshed})
	return res
}

// Refresh reloads from the remote store only. On failure the snapshot is
// kept. On success items that appeared or disappeared are announced as
// ItemAdded and ItemRemoved, followed by one Refreshed.
func (s *Store) Refresh(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.syncSharedMirror(ctx)

	res := try(ctx, s.Sources()[0])
	if res.Outcome != Available {
		s.log.Warn("refresh failed; keeping current snapshot", zap.Error(res.Err))
		return fmt.Errorf("refreshing %s: %w", s.coll, res.Err)
	}

	before := s.GetAll()
	s.commit(catalog.Clone(res.Items), TierRemote)
	_ = s.persist(ctx, res.Items)

	added, removed := diff(before, res.Items)
	if len(added) > 0 || len(removed) > 0 {
		s.log.Info("refresh changed membership",
			zap.Int("added", len(added)), zap.Int("removed", len(removed)))
	}
	for _, it := range added {
		s.publish(events.Event{Kind: events.ItemAdded, ItemID: it.ID, Category: it.Category})
	}
	for _, it := range removed {
		s.publish(events.Event{Kind: events.ItemRemoved, ItemID: it.ID, Category: it.Category})
	}
	s.publish(events.Event{Kind: events.Refreshed})
	return nil
}

// primer is an in-process remote that can be loaded wholesale.
type primer interface {
	Put(c catalog.Collection, items []catalog.Item)
}

// syncSharedMirror reloads an in-process remote from a shared mirror
// before a refresh. Other processes write the mirror, not this remote, so
// refreshing from it unsynced would write their changes back over. A
// dirty mirror holds older data than memory and is skipped. Callers hold
// writeMu.
func (s *Store) syncSharedMirror(ctx context.Context) {
	p, ok := s.remote.(primer)
	if !ok || !s.shared || s.mirror == nil || s.mirrorDirty {
		return
	}
	items, err := s.mirror.Load(ctx, s.coll)
	if err != nil {
		s.log.Debug("shared mirror not reloaded", zap.Error(err))
		return
	}
	p.Put(s.coll, items)
}

// diff returns the items of after missing from before, and of before
// missing from after, keyed by id.
func diff(before, after []catalog.Item) (added, removed []catalog.Item) {
	seen := make(map[string]bool, len(before))
	for _, it := range before {
		seen[it.ID] = true
	}
	now := make(map[string]bool, len(after))
	for _, it := range after {
		now[it.ID] = true
		if !seen[it.ID] {
			added = append(added, it)
		}
	}
	for _, it := range before {
		if !now[it.ID] {
			removed = append(removed, it)
		}
	}
	return added, removed
}
