package remote_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/github"
	"github.com/sinhabinayak2207/extrawork/internal/remote"
)

// fakeContents serves the GitHub Contents API for one repository and
// enforces the blob sha precondition on writes.
type fakeContents struct {
	mu        sync.Mutex
	files     map[string][]byte
	puts      int
	staleOnce bool // reject the next write with 409
}

func sha(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:20])
}

func (f *fakeContents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimPrefix(r.URL.Path, "/repos/acme/showcase/contents/")
	switch r.Method {
	case http.MethodGet:
		data, ok := f.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path": path, "sha": sha(data), "encoding": "base64",
			"content": base64.StdEncoding.EncodeToString(data),
		})
	case http.MethodPut:
		var body struct {
			Content string `json:"content"`
			SHA     string `json:"sha"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		current, exists := f.files[path]
		if f.staleOnce || (exists && body.SHA != sha(current)) || (!exists && body.SHA != "") {
			f.staleOnce = false
			w.WriteHeader(http.StatusConflict)
			return
		}
		data, _ := base64.StdEncoding.DecodeString(body.Content)
		f.files[path] = data
		f.puts++
		_ = json.NewEncoder(w).Encode(map[string]any{"content": map[string]any{"sha": sha(data)}})
	}
}

func newGitHubStore(t *testing.T, fake *fakeContents) *remote.GitHub {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return remote.NewGitHub(github.New("tok", srv.URL), remote.GitHubOptions{
		Owner: "acme", Repo: "showcase", Dir: "catalog",
	})
}

func TestGitHub(t *testing.T) {
	exerciseStore(t, newGitHubStore(t, &fakeContents{files: map[string][]byte{}}))
}

func TestGitHub_WritesYAMLFile(t *testing.T) {
	fake := &fakeContents{files: map[string][]byte{}}
	s := newGitHubStore(t, fake)

	_, err := s.Create(context.Background(), catalog.Categories, catalog.Item{ID: "c1", DisplayName: "Rice", Slug: "rice"})
	require.NoError(t, err)

	data := fake.files["catalog/categories.yml"]
	items, err := catalog.Parse(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "rice", items[0].Slug)
	assert.Equal(t, catalog.KindCategory, items[0].Kind)
}

func TestGitHub_RetriesOnStaleSHA(t *testing.T) {
	fake := &fakeContents{files: map[string][]byte{}}
	s := newGitHubStore(t, fake)
	ctx := context.Background()
	_, err := s.Create(ctx, catalog.Products, catalog.Item{ID: "p1", DisplayName: "Basmati"})
	require.NoError(t, err)

	fake.staleOnce = true
	require.NoError(t, s.Set(ctx, catalog.Products, "p1", catalog.Patch{Featured: catalog.Ptr(true)}, true))
	got, err := s.Get(ctx, catalog.Products, "p1")
	require.NoError(t, err)
	assert.True(t, got.Featured)
	assert.Equal(t, 2, fake.puts)
}

func TestGitHub_UnauthorizedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	s := remote.NewGitHub(github.New("bad", srv.URL), remote.GitHubOptions{Owner: "acme", Repo: "showcase"})

	_, err := s.List(context.Background(), catalog.Products)
	assert.True(t, errors.Is(err, remote.ErrUnavailable), "err = %v", err)
	assert.True(t, errors.Is(err, github.ErrUnauthorized) || strings.Contains(err.Error(), "unauthorized"))
}
