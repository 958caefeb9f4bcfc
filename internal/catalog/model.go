package catalog

import (
	"fmt"
	"time"
)

// Kind distinguishes products from categories.
type Kind string

const (
	KindProduct  Kind = "product"
	KindCategory Kind = "category"
)

// Collection names a keyed set of items in the remote store and the mirror.
type Collection string

const (
	Products   Collection = "products"
	Categories Collection = "categories"
)

// Collections lists every known collection in load order.
var Collections = []Collection{Categories, Products}

// ParseCollection accepts the plural collection name or its singular kind.
func ParseCollection(s string) (Collection, error) {
	switch s {
	case "products", "product":
		return Products, nil
	case "categories", "category":
		return Categories, nil
	}
	return "", fmt.Errorf("unknown collection %q (want products or categories)", s)
}

// Kind returns the item kind stored in the collection.
func (c Collection) Kind() Kind {
	if c == Categories {
		return KindCategory
	}
	return KindProduct
}

// Item is one product or category in the showcase catalog.
type Item struct {
	ID           string    `json:"id" yaml:"id"`
	Kind         Kind      `json:"kind" yaml:"kind"`
	DisplayName  string    `json:"displayName" yaml:"display_name"`
	Slug         string    `json:"slug" yaml:"slug"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL     string    `json:"imageUrl" yaml:"image_url"`
	Category     string    `json:"category,omitempty" yaml:"category,omitempty"`
	Featured     bool      `json:"featured" yaml:"featured"`
	ProductCount int       `json:"productCount,omitempty" yaml:"product_count,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updated_at"`
	UpdatedBy    string    `json:"updatedBy,omitempty" yaml:"updated_by,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	DisplayName  *string
	Description  *string
	ImageURL     *string
	Category     *string
	Featured     *bool
	ProductCount *int
	UpdatedAt    *time.Time
	UpdatedBy    *string
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply merges the set fields into it.
func (p Patch) Apply(it *Item) {
	if p.DisplayName != nil {
		it.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.ImageURL != nil {
		it.ImageURL = *p.ImageURL
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Featured != nil {
		it.Featured = *p.Featured
	}
	if p.ProductCount != nil {
		it.ProductCount = *p.ProductCount
	}
	if p.UpdatedAt != nil {
		it.UpdatedAt = *p.UpdatedAt
	}
	if p.UpdatedBy != nil {
		it.UpdatedBy = *p.UpdatedBy
	}
}

// Fields returns the set fields keyed by their wire (JSON) names.
func (p Patch) Fields() map[string]any {
	out := map[string]any{}
	if p.DisplayName != nil {
		out["displayName"] = *p.DisplayName
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.ImageURL != nil {
		out["imageUrl"] = *p.ImageURL
	}
	if p.Category != nil {
		out["category"] = *p.Category
	}
	if p.Featured != nil {
		out["featured"] = *p.Featured
	}
	if p.ProductCount != nil {
		out["productCount"] = *p.ProductCount
	}
	if p.UpdatedAt != nil {
		out["updatedAt"] = *p.UpdatedAt
	}
	if p.UpdatedBy != nil {
		out["updatedBy"] = *p.UpdatedBy
	}
	return out
}

// Stamp returns a copy of p with the audit fields set.
func (p Patch) Stamp(at time.Time, by string) Patch {
	p.UpdatedAt = &at
	p.UpdatedBy = &by
	return p
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }
