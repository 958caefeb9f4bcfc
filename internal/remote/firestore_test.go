package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
)

const fsPrefix = "/v1/projects/test/databases/(default)/documents/"

// fakeFirestore implements the slice of the Firestore REST API the
// backend uses.
type fakeFirestore struct {
	mu    sync.Mutex
	docs  map[string]map[string]json.RawMessage
	order []string
	masks [][]string
}

func newFakeFirestore() *fakeFirestore {
	return &fakeFirestore{docs: map[string]map[string]json.RawMessage{}}
}

type fakeDoc struct {
	Name   string                     `json:"name,omitempty"`
	Fields map[string]json.RawMessage `json:"fields"`
}

func (f *fakeFirestore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rel := strings.TrimPrefix(r.URL.Path, fsPrefix)
	parts := strings.Split(rel, "/")
	q := r.URL.Query()
	mustExist := q.Get("currentDocument.exists") == "true"

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		var out struct {
			Documents []fakeDoc `json:"documents,omitempty"`
		}
		for _, key := range f.order {
			if strings.HasPrefix(key, parts[0]+"/") {
				out.Documents = append(out.Documents, fakeDoc{Name: "projects/test/databases/(default)/documents/" + key, Fields: f.docs[key]})
			}
		}
		_ = json.NewEncoder(w).Encode(out)

	case len(parts) == 1 && r.Method == http.MethodPost:
		key := parts[0] + "/" + q.Get("documentId")
		if _, ok := f.docs[key]; ok {
			http.Error(w, `{"error":{"status":"ALREADY_EXISTS"}}`, http.StatusConflict)
			return
		}
		var d fakeDoc
		_ = json.NewDecoder(r.Body).Decode(&d)
		f.put(key, d.Fields)
		_ = json.NewEncoder(w).Encode(d)

	case len(parts) == 2 && r.Method == http.MethodGet:
		fields, ok := f.docs[rel]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(fakeDoc{Name: "projects/test/databases/(default)/documents/" + rel, Fields: fields})

	case len(parts) == 2 && r.Method == http.MethodPatch:
		existing, ok := f.docs[rel]
		if mustExist && !ok {
			http.NotFound(w, r)
			return
		}
		var d fakeDoc
		_ = json.NewDecoder(r.Body).Decode(&d)
		mask := q["updateMask.fieldPaths"]
		f.masks = append(f.masks, mask)
		if len(mask) == 0 {
			f.put(rel, d.Fields)
		} else {
			merged := map[string]json.RawMessage{}
			for k, v := range existing {
				merged[k] = v
			}
			for _, k := range mask {
				if v, ok := d.Fields[k]; ok {
					merged[k] = v
				} else {
					delete(merged, k)
				}
			}
			f.put(rel, merged)
		}
		_ = json.NewEncoder(w).Encode(d)

	case len(parts) == 2 && r.Method == http.MethodDelete:
		if _, ok := f.docs[rel]; !ok {
			if mustExist {
				http.NotFound(w, r)
				return
			}
		}
		delete(f.docs, rel)
		for i, k := range f.order {
			if k == rel {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
		_, _ = w.Write([]byte("{}"))

	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func (f *fakeFirestore) put(key string, fields map[string]json.RawMessage) {
	if _, ok := f.docs[key]; !ok {
		f.order = append(f.order, key)
	}
	f.docs[key] = fields
}

func newFirestore(t *testing.T, h http.Handler) *remote.Firestore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	fs, err := remote.DialFirestore(context.Background(),
		remote.FirestoreOptions{ProjectID: "test", BaseURL: srv.URL},
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return fs
}

func TestFirestore(t *testing.T) {
	exerciseStore(t, newFirestore(t, newFakeFirestore()))
}

func TestFirestore_MergeUsesUpdateMask(t *testing.T) {
	fake := newFakeFirestore()
	s := newFirestore(t, fake)
	ctx := context.Background()

	_, err := s.Create(ctx, catalog.Categories, catalog.Item{ID: "c1", DisplayName: "Rice", ProductCount: 8})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, catalog.Categories, "c1", catalog.Patch{ImageURL: catalog.Ptr("u")}, true))

	fake.mu.Lock()
	masks := fake.masks
	fake.mu.Unlock()
	require.Len(t, masks, 1)
	assert.Equal(t, []string{"imageUrl"}, masks[0])

	got, err := s.Get(ctx, catalog.Categories, "c1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.ProductCount)
	assert.Equal(t, "u", got.ImageURL)
}

func TestFirestore_DecodesLegacyFieldNames(t *testing.T) {
	s := newFirestore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"documents":[{
			"name":"projects/test/databases/(default)/documents/categories/abc",
			"updateTime":"2025-01-02T03:04:05.123Z",
			"fields":{
				"title":{"stringValue":"Raw Polymers"},
				"image":{"stringValue":"https://res.cloudinary.com/x.jpg"},
				"productCount":{"integerValue":"9"},
				"featured":{"booleanValue":true}
			}}]}`))
	}))

	items, err := s.List(context.Background(), catalog.Categories)
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, "abc", it.ID)
	assert.Equal(t, "Raw Polymers", it.DisplayName)
	assert.Equal(t, "raw-polymers", it.Slug)
	assert.Equal(t, "https://res.cloudinary.com/x.jpg", it.ImageURL)
	assert.Equal(t, 9, it.ProductCount)
	assert.True(t, it.Featured)
	assert.Equal(t, 2025, it.UpdatedAt.Year())
}

func TestFirestore_ListFollowsPages(t *testing.T) {
	s := newFirestore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := func(id string) string {
			return `{"name":"projects/test/databases/(default)/documents/products/` + id + `","fields":{"displayName":{"stringValue":"` + id + `"}}}`
		}
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"documents":[` + doc("a") + `],"nextPageToken":"next"}`))
			return
		}
		_, _ = w.Write([]byte(`{"documents":[` + doc("b") + `]}`))
	}))

	items, err := s.List(context.Background(), catalog.Products)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].ID)
}

func TestFirestore_ServerErrorIsUnavailable(t *testing.T) {
	s := newFirestore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	_, err := s.List(context.Background(), catalog.Products)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
}
