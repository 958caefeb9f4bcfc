// Package events is the in-process change notification bus for catalog
// caches. Subscribers are called synchronously, in subscription order, on
// the publishing goroutine.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

// Kind is the closed set of event kinds.
type Kind int

const (
	ItemUpdated Kind = iota + 1
	ItemAdded
	ItemRemoved
	RefreshRequested
	Refreshed
)

var kindNames = map[Kind]string{
	ItemUpdated:      "item_updated",
	ItemAdded:        "item_added",
	ItemRemoved:      "item_removed",
	RefreshRequested: "refresh_requested",
	Refreshed:        "refreshed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name for JSON and SSE payloads.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(s), nil
}

// Event describes one change to a catalog collection.
type Event struct {
	Kind       Kind               `json:"kind"`
	Collection catalog.Collection `json:"collection,omitempty"`
	ItemID     string             `json:"itemId,omitempty"`
	ImageURL   string             `json:"imageUrl,omitempty"`
	// Category is the product's category slug on ItemAdded and ItemRemoved.
	Category string    `json:"category,omitempty"`
	At       time.Time `json:"at"`
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      uint64
	kinds   map[Kind]bool
	handler Handler
}

func (s subscription) wants(k Kind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

// Bus is a typed publish/subscribe registry. The zero value is not usable;
// call NewBus.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for the given kinds, or for every kind when none
// are given. The returned function removes the subscription; calling it
// more than once is harmless. Events published before Subscribe are not
// replayed.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) (unsubscribe func()) {
	s := subscription{handler: h}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}

	b.mu.Lock()
	b.nextID++
	s.id = b.nextID
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s.id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every matching subscriber. Handlers run after the
// registry lock is released, so a handler may subscribe, unsubscribe or
// publish without deadlocking.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Kind) {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(e)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
