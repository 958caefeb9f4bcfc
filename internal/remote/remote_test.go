package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s remote.Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 2, 3, 4, 5, 6, 700000000, time.UTC)

	items, err := s.List(ctx, catalog.Products)
	require.NoError(t, err)
	assert.Empty(t, items)

	id, err := s.Create(ctx, catalog.Products, catalog.Item{
		ID: "p1", DisplayName: "Basmati", Slug: "basmati", Category: "rice",
		ImageURL: "https://img.example/a.jpg", Featured: true, UpdatedAt: at, UpdatedBy: "seed",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	generated, err := s.Create(ctx, catalog.Products, catalog.Item{DisplayName: "Soy Oil", Slug: "soy-oil", Category: "oil"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated)

	_, err = s.Create(ctx, catalog.Products, catalog.Item{ID: "p1", DisplayName: "dup"})
	assert.True(t, errors.Is(err, remote.ErrConflict), "duplicate create: %v", err)

	got, err := s.Get(ctx, catalog.Products, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Basmati", got.DisplayName)
	assert.Equal(t, catalog.KindProduct, got.Kind)
	assert.True(t, got.UpdatedAt.Equal(at), "UpdatedAt = %v", got.UpdatedAt)

	_, err = s.Get(ctx, catalog.Products, "missing")
	assert.True(t, errors.Is(err, remote.ErrNotFound), "get missing: %v", err)

	later := at.Add(time.Hour)
	patch := catalog.Patch{ImageURL: catalog.Ptr("https://img.example/b.jpg")}.Stamp(later, "admin@example.com")
	require.NoError(t, s.Set(ctx, catalog.Products, "p1", patch, true))

	got, err = s.Get(ctx, catalog.Products, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/b.jpg", got.ImageURL)
	assert.Equal(t, "admin@example.com", got.UpdatedBy)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.Equal(t, "Basmati", got.DisplayName, "merge keeps unset fields")
	assert.True(t, got.Featured, "merge keeps unset fields")

	err = s.Set(ctx, catalog.Products, "ghost", patch, true)
	assert.True(t, errors.Is(err, remote.ErrNotFound), "merge on missing doc: %v", err)

	require.NoError(t, s.Set(ctx, catalog.Products, "p9", catalog.Patch{DisplayName: catalog.Ptr("Jasmine Rice")}, false))
	got, err = s.Get(ctx, catalog.Products, "p9")
	require.NoError(t, err)
	assert.Equal(t, "jasmine-rice", got.Slug)

	items, err = s.List(ctx, catalog.Products)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	other, err := s.List(ctx, catalog.Categories)
	require.NoError(t, err)
	assert.Empty(t, other, "collections are independent")

	require.NoError(t, s.Delete(ctx, catalog.Products, "p1"))
	err = s.Delete(ctx, catalog.Products, "p1")
	assert.True(t, errors.Is(err, remote.ErrNotFound), "second delete: %v", err)

	items, err = s.List(ctx, catalog.Products)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, remote.NewMemory())
}

func TestMemory_Fail(t *testing.T) {
	m := remote.NewMemory()
	m.Put(catalog.Products, catalog.Seed(catalog.Products))
	m.Fail(errors.New("network down"))

	_, err := m.List(context.Background(), catalog.Products)
	assert.True(t, errors.Is(err, remote.ErrUnavailable), "List: %v", err)
	err = m.Set(context.Background(), catalog.Products, "1", catalog.Patch{Featured: catalog.Ptr(false)}, true)
	assert.True(t, errors.Is(err, remote.ErrUnavailable), "Set: %v", err)
	assert.Equal(t, 1, m.Calls("Set"))

	m.Fail(nil)
	items, err := m.List(context.Background(), catalog.Products)
	require.NoError(t, err)
	assert.Len(t, items, 6)
}

func TestMemory_ListReturnsCopy(t *testing.T) {
	m := remote.NewMemory()
	m.Put(catalog.Products, catalog.Seed(catalog.Products))
	items, _ := m.List(context.Background(), catalog.Products)
	items[0].DisplayName = "mutated"
	again, _ := m.List(context.Background(), catalog.Products)
	assert.NotEqual(t, "mutated", again[0].DisplayName)
}
