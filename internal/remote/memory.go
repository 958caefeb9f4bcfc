package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

// Memory is an in-process Store. It backs local development and tests;
// Fail makes every call return an error to simulate an outage.
type Memory struct {
	mu    sync.Mutex
	docs  map[catalog.Collection][]catalog.Item
	fail  error
	calls map[string]int
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:  map[catalog.Collection][]catalog.Item{},
		calls: map[string]int{},
	}
}

// Put replaces a collection wholesale.
func (m *Memory) Put(c catalog.Collection, items []catalog.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[c] = catalog.Clone(items)
}

// Fail makes subsequent calls return err wrapped as unavailable. A nil err
// restores normal operation.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Calls returns how often the named method ran.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Memory) enter(method string) error {
	m.calls[method]++
	if m.fail != nil {
		return unavailable(m.fail)
	}
	return nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, c catalog.Collection) ([]catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("List"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	return catalog.Clone(m.docs[c]), nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, c catalog.Collection, id string) (catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Get"); err != nil {
		return catalog.Item{}, err
	}
	it := catalog.ByID(m.docs[c], id)
	if it == nil {
		return catalog.Item{}, ErrNotFound
	}
	return *it, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, c catalog.Collection, id string, p catalog.Patch, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Set"); err != nil {
		return err
	}
	it, err := applySet(catalog.ByID(m.docs[c], id), c, id, p, merge)
	if err != nil {
		return err
	}
	m.docs[c] = catalog.Append(m.docs[c], it)
	return nil
}

// Create implements Store.
func (m *Memory) Create(_ context.Context, c catalog.Collection, it catalog.Item) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Create"); err != nil {
		return "", err
	}
	id := it.ID
	if id == "" {
		id = uuid.NewString()
	}
	if catalog.ByID(m.docs[c], id) != nil {
		return "", ErrConflict
	}
	m.docs[c] = append(m.docs[c], prepareCreate(c, it, id))
	return id, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, c catalog.Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Delete"); err != nil {
		return err
	}
	items, removed := catalog.Remove(m.docs[c], id)
	if removed == nil {
		return ErrNotFound
	}
	m.docs[c] = items
	return nil
}
