package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/github"
)

// GitHubOptions locates the catalog files in a repository.
type GitHubOptions struct {
	Owner  string
	Repo   string
	Branch string // empty = default branch
	Dir    string // directory holding <collection>.yml, e.g. "catalog"
}

// GitHub stores each collection as a YAML file committed through the
// Contents API. Every write is load, modify, commit with the loaded blob
// sha as a precondition, retried once on a lost race.
type GitHub struct {
	gh   *github.Client
	opts GitHubOptions

	mu sync.Mutex // serializes read-modify-write cycles from this process
}

// NewGitHub creates a GitHub-backed store.
func NewGitHub(gh *github.Client, opts GitHubOptions) *GitHub {
	return &GitHub{gh: gh, opts: opts}
}

func (g *GitHub) filePath(c catalog.Collection) string {
	return path.Join(g.opts.Dir, string(c)+".yml")
}

// load retrieves and parses a collection file. A missing file is an empty
// collection with an empty sha.
func (g *GitHub) load(ctx context.Context, c catalog.Collection) ([]catalog.Item, string, error) {
	data, sha, err := g.gh.GetFileContent(ctx, g.opts.Owner, g.opts.Repo, g.filePath(c), g.opts.Branch)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return []catalog.Item{}, "", nil
		}
		return nil, "", unavailable(fmt.Errorf("reading %s: %w", g.filePath(c), err))
	}
	items, err := catalog.Parse(data)
	if err != nil {
		return nil, "", unavailable(err)
	}
	return items, sha, nil
}

// update loads the collection, applies fn, and commits the result.
func (g *GitHub) update(ctx context.Context, c catalog.Collection, msg string, fn func([]catalog.Item) ([]catalog.Item, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		items, sha, err := g.load(ctx, c)
		if err != nil {
			return err
		}
		items, err = fn(items)
		if err != nil {
			return err
		}
		data, err := catalog.Marshal(items)
		if err != nil {
			return err
		}
		_, err = g.gh.PutFileContent(ctx, g.opts.Owner, g.opts.Repo, g.filePath(c), g.opts.Branch, data, sha, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, github.ErrConflict) {
			return unavailable(err)
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

// List implements Store.
func (g *GitHub) List(ctx context.Context, c catalog.Collection) ([]catalog.Item, error) {
	items, _, err := g.load(ctx, c)
	return items, err
}

// Get implements Store.
func (g *GitHub) Get(ctx context.Context, c catalog.Collection, id string) (catalog.Item, error) {
	items, _, err := g.load(ctx, c)
	if err != nil {
		return catalog.Item{}, err
	}
	it := catalog.ByID(items, id)
	if it == nil {
		return catalog.Item{}, ErrNotFound
	}
	return *it, nil
}

// Set implements Store.
func (g *GitHub) Set(ctx context.Context, c catalog.Collection, id string, p catalog.Patch, merge bool) error {
	return g.update(ctx, c, fmt.Sprintf("update: %s/%s", c, id), func(items []catalog.Item) ([]catalog.Item, error) {
		it, err := applySet(catalog.ByID(items, id), c, id, p, merge)
		if err != nil {
			return nil, err
		}
		return catalog.Append(items, it), nil
	})
}

// Create implements Store.
func (g *GitHub) Create(ctx context.Context, c catalog.Collection, it catalog.Item) (string, error) {
	id := it.ID
	if id == "" {
		id = uuid.NewString()
	}
	err := g.update(ctx, c, fmt.Sprintf("add: %s/%s", c, id), func(items []catalog.Item) ([]catalog.Item, error) {
		if catalog.ByID(items, id) != nil {
			return nil, ErrConflict
		}
		return append(items, prepareCreate(c, it, id)), nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Delete implements Store.
func (g *GitHub) Delete(ctx context.Context, c catalog.Collection, id string) error {
	return g.update(ctx, c, fmt.Sprintf("remove: %s/%s", c, id), func(items []catalog.Item) ([]catalog.Item, error) {
		items, removed := catalog.Remove(items, id)
		if removed == nil {
			return nil, ErrNotFound
		}
		return items, nil
	})
}
