package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a collection YAML file from disk.
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Item{}, nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into an item list.
func Parse(data []byte) ([]Item, error) {
	if len(data) == 0 {
		return []Item{}, nil
	}
	var items []Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	if items == nil {
		return []Item{}, nil
	}
	return items, nil
}
