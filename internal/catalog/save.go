package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Marshal encodes an item list to YAML bytes.
func Marshal(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the item list to a file on disk.
func Save(path string, items []Item) error {
	data, err := Marshal(items)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Append adds an item to the list and returns the updated slice.
// If an item with the same ID already exists it is replaced.
func Append(items []Item, it Item) []Item {
	for i, existing := range items {
		if existing.ID == it.ID {
			items[i] = it
			return items
		}
	}
	return append(items, it)
}

// Remove removes an item by ID. Returns the updated slice and the removed
// item, if any.
func Remove(items []Item, id string) ([]Item, *Item) {
	for i, it := range items {
		if it.ID == id {
			removed := it
			return append(items[:i], items[i+1:]...), &removed
		}
	}
	return items, nil
}

// Clone returns a copy of the list that shares no backing array with items.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
