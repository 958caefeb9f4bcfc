package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/events"
	"github.com/sinhabinayak2207/extrawork/internal/mirror"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
	"github.com/sinhabinayak2207/extrawork/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

const placeholder = "https://example.com/placeholder.jpg"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) of(k events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	remote *remote.Memory
	dir    string
	mirror mirror.Mirror
	bus    *events.Bus
	rec    *recorder
	store  *store.Store
}

func newFixture(t *testing.T, c catalog.Collection, m mirror.Mirror, tweaks ...func(*store.Options)) *fixture {
	t.Helper()
	f := &fixture{remote: remote.NewMemory(), dir: t.TempDir(), bus: events.NewBus(), rec: &recorder{}}
	if m == nil {
		m = mirror.NewFile(f.dir)
	}
	f.mirror = m
	f.bus.Subscribe(f.rec.handle)
	opts := store.Options{
		Collection: c,
		Remote:     f.remote,
		Mirror:     f.mirror,
		Bus:        f.bus,
		Images: catalog.ImagePolicy{
			Placeholder: placeholder,
			OpaqueHosts: []string{"cloudinary.com"},
		},
		Logger:        zaptest.NewLogger(t),
		Now:           func() time.Time { return fixedNow },
		MirrorBackoff: time.Millisecond,
	}
	for _, tw := range tweaks {
		tw(&opts)
	}
	f.store = store.New(opts)
	return f
}

func remoteProducts() []catalog.Item {
	return []catalog.Item{
		{ID: "1", Kind: catalog.KindProduct, DisplayName: "Basmati", Slug: "basmati", Category: "rice",
			ImageURL: "https://res.cloudinary.com/demo/rice.jpg", Featured: true},
		{ID: "2", Kind: catalog.KindProduct, DisplayName: "Soy Oil", Slug: "soy-oil", Category: "oil",
			ImageURL: "https://images.pexels.com/oil.jpeg?w=600"},
		{ID: "3", Kind: catalog.KindProduct, DisplayName: "HDPE", Slug: "hdpe", Category: "raw-polymers"},
	}
}

// --- Init fallback chain ---

func TestInit_RemoteAvailable(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())

	res := f.store.Init(context.Background())

	assert.Equal(t, store.TierRemote, res.Tier)
	assert.Equal(t, store.Available, res.Outcome)
	assert.Equal(t, store.TierRemote, f.store.Tier())

	items := f.store.GetAll()
	require.Len(t, items, 3)
	assert.Equal(t, "https://res.cloudinary.com/demo/rice.jpg", items[0].ImageURL, "opaque host untouched")
	assert.Equal(t, "https://images.pexels.com/oil.jpeg?t=1751371200000&w=600", items[1].ImageURL, "cache-busted")
	assert.Equal(t, placeholder, items[2].ImageURL, "empty image gets placeholder")

	mirrored, err := f.mirror.Load(context.Background(), catalog.Products)
	require.NoError(t, err)
	if diff := cmp.Diff(items, mirrored); diff != "" {
		t.Errorf("mirror differs from snapshot (-mem +mirror):\n%s", diff)
	}
}

func TestInit_RemoteDownUsesMirror(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	require.NoError(t, f.mirror.Save(context.Background(), catalog.Products, remoteProducts()[:2]))
	f.remote.Fail(errors.New("offline"))

	res := f.store.Init(context.Background())

	assert.Equal(t, store.TierMirror, res.Tier)
	assert.Len(t, f.store.GetAll(), 2)
}

func TestInit_RemoteAndMirrorDownUsesSeed(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Fail(errors.New("offline"))

	res := f.store.Init(context.Background())

	assert.Equal(t, store.TierSeed, res.Tier)
	assert.NotEmpty(t, f.store.GetAll())
	assert.Len(t, f.store.GetAll(), len(catalog.Seed(catalog.Products)))
}

func TestInit_CorruptMirrorFallsToSeed(t *testing.T) {
	f := newFixture(t, catalog.Categories, nil)
	file := f.mirror.(*mirror.File)
	require.NoError(t, os.WriteFile(file.Path(catalog.Categories), []byte(":: not yaml ["), 0600))
	f.remote.Fail(errors.New("offline"))

	res := f.store.Init(context.Background())

	assert.Equal(t, store.TierSeed, res.Tier)
	assert.Len(t, f.store.GetAll(), 5)
}

func TestInit_EmptyRemoteIsUnavailable(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	require.NoError(t, f.mirror.Save(context.Background(), catalog.Products, remoteProducts()))

	res := f.store.Init(context.Background())

	assert.Equal(t, store.TierMirror, res.Tier)
	assert.Len(t, f.store.GetAll(), 3)
}

func TestInit_NoMirrorConfigured(t *testing.T) {
	s := store.New(store.Options{
		Collection: catalog.Products,
		Remote:     remote.NewMemory(),
		Logger:     zaptest.NewLogger(t),
	})
	res := s.Init(context.Background())
	assert.Equal(t, store.TierSeed, res.Tier)
	assert.NotEmpty(t, s.GetAll())
}

func TestResolve_LogsAndSkips(t *testing.T) {
	calls := []store.Tier{}
	chain := []store.Source{
		{Tier: store.TierRemote, Fetch: func(context.Context) ([]catalog.Item, error) {
			calls = append(calls, store.TierRemote)
			return nil, errors.New("down")
		}},
		{Tier: store.TierMirror, Fetch: func(context.Context) ([]catalog.Item, error) {
			calls = append(calls, store.TierMirror)
			return []catalog.Item{}, nil
		}},
		{Tier: store.TierSeed, Fetch: func(context.Context) ([]catalog.Item, error) {
			calls = append(calls, store.TierSeed)
			return []catalog.Item{{ID: "s"}}, nil
		}},
	}
	res := store.Resolve(context.Background(), chain, zaptest.NewLogger(t))
	assert.Equal(t, store.TierSeed, res.Tier)
	assert.Equal(t, []store.Tier{store.TierRemote, store.TierMirror, store.TierSeed}, calls)
}

// --- Reads ---

func TestGetBySlug(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	items := remoteProducts()
	items = append(items, catalog.Item{ID: "9", Slug: "basmati", DisplayName: "dup"})
	f.remote.Put(catalog.Products, items)
	f.store.Init(context.Background())

	it, ok := f.store.GetBySlug("soy-oil")
	require.True(t, ok)
	assert.Equal(t, "2", it.ID)

	_, ok = f.store.GetBySlug("missing")
	assert.False(t, ok)

	it, _ = f.store.GetBySlug("basmati")
	assert.Equal(t, "1", it.ID, "first match wins")

	it, ok = f.store.Lookup("3")
	assert.True(t, ok)
	assert.Equal(t, "hdpe", it.Slug)
	assert.Len(t, f.store.Featured(), 1)
}

func TestGetAll_ReturnsCopy(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.store.Init(context.Background())
	items := f.store.GetAll()
	items[0].DisplayName = "mutated"
	assert.NotEqual(t, "mutated", f.store.GetAll()[0].DisplayName)
}

// --- ReplaceImage ---

func TestReplaceImage_Success(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.rec.reset()

	const url = "https://res.cloudinary.com/demo/new-oil.jpg"
	require.NoError(t, f.store.ReplaceImage(context.Background(), "2", url, "master@example.com"))

	doc, err := f.remote.Get(context.Background(), catalog.Products, "2")
	require.NoError(t, err)
	assert.Equal(t, url, doc.ImageURL)
	assert.Equal(t, "master@example.com", doc.UpdatedBy)
	assert.True(t, doc.UpdatedAt.Equal(fixedNow))

	it, _ := f.store.GetByID("2")
	assert.Equal(t, url, it.ImageURL)

	reread, err := mirror.NewFile(f.dir).Load(context.Background(), catalog.Products)
	require.NoError(t, err)
	assert.Equal(t, url, catalog.ByID(reread, "2").ImageURL)

	updated := f.rec.of(events.ItemUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, "2", updated[0].ItemID)
	assert.Equal(t, url, updated[0].ImageURL)
	assert.Equal(t, catalog.Products, updated[0].Collection)
	assert.Len(t, f.rec.events, 1, "exactly one event")
}

func TestReplaceImage_RemoteFailureChangesNothing(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	before := f.store.GetAll()
	mirrorBefore, err := f.mirror.Load(context.Background(), catalog.Products)
	require.NoError(t, err)
	f.rec.reset()

	f.remote.Fail(errors.New("quota exceeded"))
	err = f.store.ReplaceImage(context.Background(), "2", "https://res.cloudinary.com/x.jpg", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	if diff := cmp.Diff(before, f.store.GetAll()); diff != "" {
		t.Errorf("snapshot changed (-before +after):\n%s", diff)
	}
	mirrorAfter, err := f.mirror.Load(context.Background(), catalog.Products)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(mirrorBefore, mirrorAfter))
	assert.Empty(t, f.rec.events)
}

func TestReplaceImage_MissingDocument(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())

	err := f.store.ReplaceImage(context.Background(), "404", "https://res.cloudinary.com/x.jpg", "")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestReplaceImage_EmptyURL(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.store.Init(context.Background())
	assert.ErrorIs(t, f.store.ReplaceImage(context.Background(), "1", "  ", ""), store.ErrEmptyImageURL)
	assert.Zero(t, f.remote.Calls("Set"))
}

// --- Update ---

func TestUpdate_RemoteFailureStillAppliesLocally(t *testing.T) {
	f := newFixture(t, catalog.Categories, nil)
	f.store.Init(context.Background()) // seed: remote is empty
	f.rec.reset()
	f.remote.Fail(errors.New("offline"))

	ok := f.store.SetFeatured(context.Background(), "3", true, "admin@example.com")

	require.True(t, ok)
	it, _ := f.store.GetByID("3")
	assert.True(t, it.Featured)
	assert.Equal(t, "admin@example.com", it.UpdatedBy)
	assert.Len(t, f.rec.of(events.ItemUpdated), 1)

	reread, err := f.mirror.Load(context.Background(), catalog.Categories)
	require.NoError(t, err)
	assert.True(t, catalog.ByID(reread, "3").Featured)
}

func TestUpdate_UnknownID(t *testing.T) {
	f := newFixture(t, catalog.Categories, nil)
	f.store.Init(context.Background())
	assert.False(t, f.store.Update(context.Background(), "nope", catalog.Patch{Featured: catalog.Ptr(true)}, ""))
	assert.Zero(t, f.remote.Calls("Set"))
}

func TestUpdate_CategoryChangeCarriedOnEvent(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.rec.reset()

	require.True(t, f.store.Update(context.Background(), "3", catalog.Patch{Category: catalog.Ptr("oil")}, ""))
	ev := f.rec.of(events.ItemUpdated)
	require.Len(t, ev, 1)
	assert.Equal(t, "oil", ev[0].Category)

	doc, _ := f.remote.Get(context.Background(), catalog.Products, "3")
	assert.Equal(t, "oil", doc.Category)
	assert.Equal(t, store.DefaultActor, doc.UpdatedBy)
}

// --- Add / Remove ---

func TestAdd(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.rec.reset()

	it, err := f.store.Add(context.Background(), catalog.Item{DisplayName: "Jasmine Rice", Category: "rice"}, "ops@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "jasmine-rice", it.Slug)
	assert.Equal(t, placeholder, it.ImageURL)
	assert.Equal(t, catalog.KindProduct, it.Kind)

	got, ok := f.store.GetBySlug("jasmine-rice")
	require.True(t, ok)
	assert.Equal(t, it.ID, got.ID)

	added := f.rec.of(events.ItemAdded)
	require.Len(t, added, 1)
	assert.Equal(t, it.ID, added[0].ItemID)
	assert.Equal(t, "rice", added[0].Category)

	_, err = f.remote.Get(context.Background(), catalog.Products, it.ID)
	assert.NoError(t, err)
}

func TestAdd_RejectsDuplicateSlug(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())

	_, err := f.store.Add(context.Background(), catalog.Item{DisplayName: "Soy  Oil"}, "")
	assert.ErrorIs(t, err, store.ErrSlugTaken)
	assert.Zero(t, f.remote.Calls("Create"))

	_, err = f.store.Add(context.Background(), catalog.Item{DisplayName: "  "}, "")
	assert.ErrorIs(t, err, store.ErrInvalidItem)

	_, err = f.store.Add(context.Background(), catalog.Item{DisplayName: "X", Slug: "Not A Slug"}, "")
	assert.ErrorIs(t, err, store.ErrInvalidItem)
}

func TestAdd_RemoteFailure(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.store.Init(context.Background())
	n := f.store.Len()
	f.remote.Fail(errors.New("offline"))

	_, err := f.store.Add(context.Background(), catalog.Item{DisplayName: "Brand New"}, "")
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.Equal(t, n, f.store.Len())
}

func TestRemove(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.rec.reset()

	require.NoError(t, f.store.Remove(context.Background(), "1"))

	_, ok := f.store.GetByID("1")
	assert.False(t, ok)
	removed := f.rec.of(events.ItemRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "rice", removed[0].Category)

	reread, err := f.mirror.Load(context.Background(), catalog.Products)
	require.NoError(t, err)
	assert.Nil(t, catalog.ByID(reread, "1"))

	assert.ErrorIs(t, f.store.Remove(context.Background(), "1"), store.ErrNotFound)
}

func TestRemove_RemoteFailureKeepsItem(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.remote.Fail(errors.New("offline"))

	assert.Error(t, f.store.Remove(context.Background(), "1"))
	_, ok := f.store.GetByID("1")
	assert.True(t, ok)
}

// --- Product counts ---

func TestSetProductCount_Idempotent(t *testing.T) {
	f := newFixture(t, catalog.Categories, nil)
	f.store.Init(context.Background())
	f.rec.reset()

	for i := 0; i < 2; i++ {
		ok, err := f.store.SetProductCount("rice", 3)
		require.NoError(t, err)
		require.True(t, ok)
		it, _ := f.store.GetBySlug("rice")
		assert.Equal(t, 3, it.ProductCount)
	}
	assert.Len(t, f.rec.of(events.ItemUpdated), 1, "second call is a no-op")
	assert.Zero(t, f.remote.Calls("Set"), "derived counts stay local")

	ok, err := f.store.SetProductCount("nope", 1)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSetProductCount_WrongCollection(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	_, err := f.store.SetProductCount("rice", 1)
	assert.ErrorIs(t, err, store.ErrWrongCollection)
}

func TestSetProductCount_ReportsMirrorFailure(t *testing.T) {
	flaky := &flakyMirror{Mirror: mirror.NewFile(t.TempDir())}
	f := newFixture(t, catalog.Categories, flaky)
	f.store.Init(context.Background())
	f.rec.reset()

	flaky.mu.Lock()
	flaky.fails = 3
	flaky.mu.Unlock()
	ok, err := f.store.SetProductCount("rice", 7)

	assert.True(t, ok)
	assert.ErrorIs(t, err, store.ErrMirrorWrite)
	it, _ := f.store.GetBySlug("rice")
	assert.Equal(t, 7, it.ProductCount, "memory committed")
	assert.Len(t, f.rec.of(events.ItemUpdated), 1)
	assert.True(t, f.store.MirrorDirty())
}

// --- Close ---

func TestMutationsAfterCloseAreRejected(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	ctx := context.Background()
	f.store.Init(ctx)
	require.NoError(t, f.store.Close())
	before := f.store.GetAll()
	sets := f.remote.Calls("Set")
	f.rec.reset()

	assert.ErrorIs(t, f.store.ReplaceImage(ctx, "1", "https://res.cloudinary.com/a.jpg", ""), store.ErrClosed)
	assert.False(t, f.store.SetFeatured(ctx, "1", false, ""))
	_, err := f.store.Add(ctx, catalog.Item{DisplayName: "Sesame"}, "")
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, f.store.Remove(ctx, "2"), store.ErrClosed)
	assert.ErrorIs(t, f.store.Refresh(ctx), store.ErrClosed)

	assert.Equal(t, sets, f.remote.Calls("Set"), "no remote writes after close")
	assert.Empty(t, cmp.Diff(before, f.store.GetAll()))
	assert.Empty(t, f.rec.events)
	saved, err := f.mirror.Load(ctx, catalog.Products)
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/rice.jpg", catalog.ByID(saved, "1").ImageURL)
}

// --- Refresh ---

func TestRefresh_SharedMirrorKeepsOtherWriters(t *testing.T) {
	f := newFixture(t, catalog.Products, nil, func(o *store.Options) { o.SharedMirror = true })
	f.remote.Put(catalog.Products, remoteProducts())
	ctx := context.Background()
	f.store.Init(ctx)

	// another process on the same mirror directory clears the flag
	other := mirror.NewFile(f.dir)
	items, err := other.Load(ctx, catalog.Products)
	require.NoError(t, err)
	catalog.ByID(items, "1").Featured = false
	require.NoError(t, other.Save(ctx, catalog.Products, items))

	require.NoError(t, f.store.Refresh(ctx))

	it, _ := f.store.GetByID("1")
	assert.False(t, it.Featured, "snapshot picks up the other write")
	saved, err := other.Load(ctx, catalog.Products)
	require.NoError(t, err)
	assert.False(t, catalog.ByID(saved, "1").Featured, "mirror not reverted")
}

func TestRefresh_UnsharedMirrorTrustsRemote(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	ctx := context.Background()
	f.store.Init(ctx)

	other := mirror.NewFile(f.dir)
	items, err := other.Load(ctx, catalog.Products)
	require.NoError(t, err)
	catalog.ByID(items, "1").Featured = false
	require.NoError(t, other.Save(ctx, catalog.Products, items))

	require.NoError(t, f.store.Refresh(ctx))
	it, _ := f.store.GetByID("1")
	assert.True(t, it.Featured, "remote is authoritative")
}

func TestRefresh_AnnouncesMembershipChanges(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.rec.reset()

	next := remoteProducts()[1:]
	next = append(next, catalog.Item{ID: "4", DisplayName: "Sesame", Slug: "sesame", Category: "seeds"})
	f.remote.Put(catalog.Products, next)

	require.NoError(t, f.store.Refresh(context.Background()))

	added := f.rec.of(events.ItemAdded)
	removed := f.rec.of(events.ItemRemoved)
	require.Len(t, added, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, "4", added[0].ItemID)
	assert.Equal(t, "seeds", added[0].Category)
	assert.Equal(t, "1", removed[0].ItemID)
	assert.Equal(t, "rice", removed[0].Category)
	assert.Len(t, f.rec.of(events.Refreshed), 1)
	assert.Len(t, f.store.GetAll(), 3)
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	f := newFixture(t, catalog.Products, nil)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	before := f.store.GetAll()
	f.remote.Fail(errors.New("offline"))

	assert.Error(t, f.store.Refresh(context.Background()))
	assert.Empty(t, cmp.Diff(before, f.store.GetAll()))
}

// --- Mirror failure policy ---

// flakyMirror fails the next n saves.
type flakyMirror struct {
	mirror.Mirror
	mu    sync.Mutex
	fails int
	saves int
}

func (m *flakyMirror) Save(ctx context.Context, c catalog.Collection, items []catalog.Item) error {
	m.mu.Lock()
	m.saves++
	if m.fails > 0 {
		m.fails--
		m.mu.Unlock()
		return errors.New("disk full")
	}
	m.mu.Unlock()
	return m.Mirror.Save(ctx, c, items)
}

func TestMirrorRetriesThenRecovers(t *testing.T) {
	flaky := &flakyMirror{Mirror: mirror.NewFile(t.TempDir())}
	f := newFixture(t, catalog.Products, flaky)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())

	flaky.mu.Lock()
	flaky.fails = 2
	flaky.saves = 0
	flaky.mu.Unlock()
	require.NoError(t, f.store.ReplaceImage(context.Background(), "1", "https://res.cloudinary.com/a.jpg", ""))
	assert.False(t, f.store.MirrorDirty(), "third attempt succeeds")
	assert.Equal(t, 3, flaky.saves)
}

func TestMirrorDirtyAfterExhaustedRetries(t *testing.T) {
	flaky := &flakyMirror{Mirror: mirror.NewFile(t.TempDir())}
	f := newFixture(t, catalog.Products, flaky)
	f.remote.Put(catalog.Products, remoteProducts())
	f.store.Init(context.Background())
	f.rec.reset()

	flaky.mu.Lock()
	flaky.fails = 3
	flaky.mu.Unlock()
	const url = "https://res.cloudinary.com/a.jpg"
	require.NoError(t, f.store.ReplaceImage(context.Background(), "1", url, ""), "remote + memory committed")
	assert.True(t, f.store.MirrorDirty())
	it, _ := f.store.GetByID("1")
	assert.Equal(t, url, it.ImageURL)
	assert.Len(t, f.rec.of(events.ItemUpdated), 1, "broadcast still fires")

	require.NoError(t, f.store.Close())
	assert.False(t, f.store.MirrorDirty())
	reread, err := flaky.Load(context.Background(), catalog.Products)
	require.NoError(t, err)
	assert.Equal(t, url, catalog.ByID(reread, "1").ImageURL)
}

// --- Concurrency ---

func TestConcurrentMutationsAndReads(t *testing.T) {
	f := newFixture(t, catalog.Categories, nil)
	f.remote.Put(catalog.Categories, catalog.Seed(catalog.Categories))
	f.store.Init(context.Background())
	f.rec.reset()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = f.store.SetFeatured(context.Background(), "1", i%2 == 0, "")
		}(i)
		go func() {
			defer wg.Done()
			assert.Len(t, f.store.GetAll(), 5)
		}()
	}
	wg.Wait()
	assert.Len(t, f.rec.of(events.ItemUpdated), 20)
}
