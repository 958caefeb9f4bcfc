package catalog

import "strings"

// Filter applies all non-empty criteria and returns matching items.
type Filter struct {
	Category     string // category slug or id, products only
	FeaturedOnly bool
	Search       string // matches display name, slug, or description
}

// Apply returns the subset of items matching all non-empty filter fields.
func (f Filter) Apply(items []Item) []Item {
	out := []Item{}
	for _, it := range items {
		if f.FeaturedOnly && !it.Featured {
			continue
		}
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.Search != "" && !matchesSearch(it, f.Search) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ByID returns the first item with the given ID, or nil.
func ByID(items []Item, id string) *Item {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

// BySlug returns the first item with the given slug, or nil.
// Slugs are expected to be unique; on collision the earliest entry wins.
func BySlug(items []Item, slug string) *Item {
	for i := range items {
		if items[i].Slug == slug {
			return &items[i]
		}
	}
	return nil
}

// CountInCategory counts items whose category field equals slug.
func CountInCategory(items []Item, slug string) int {
	n := 0
	for _, it := range items {
		if it.Category == slug {
			n++
		}
	}
	return n
}

func matchesSearch(it Item, q string) bool {
	q = strings.ToLower(q)
	for _, s := range []string{it.DisplayName, it.Slug, it.Description} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
