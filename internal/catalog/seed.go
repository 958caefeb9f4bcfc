package catalog

import "time"

// SeedAuthor is recorded as UpdatedBy on built-in seed items.
const SeedAuthor = "system@b2b-showcase.com"

var seedTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Seed returns the built-in item list for a collection. It is the last
// fallback when neither the remote store nor the local mirror can serve.
// Each call returns a fresh slice.
func Seed(c Collection) []Item {
	switch c {
	case Products:
		return seedProducts()
	case Categories:
		return seedCategories()
	}
	return []Item{}
}

func seedProducts() []Item {
	p := func(id, name, slug, desc, img, cat string, featured bool) Item {
		return Item{
			ID: id, Kind: KindProduct, DisplayName: name, Slug: slug,
			Description: desc, ImageURL: img, Category: cat, Featured: featured,
			UpdatedAt: seedTime, UpdatedBy: SeedAuthor,
		}
	}
	return []Item{
		p("1", "Premium Basmati Rice", "premium-basmati-rice",
			"Long-grain aromatic rice known for its nutty flavor and floral aroma. Perfect for pilaf, biryani, and other rice dishes.",
			"https://images.pexels.com/photos/4110251/pexels-photo-4110251.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1",
			"rice", true),
		p("2", "Organic Sunflower Seeds", "organic-sunflower-seeds",
			"High-quality organic sunflower seeds rich in nutrients and perfect for oil production or direct consumption.",
			"https://images.pexels.com/photos/326158/pexels-photo-326158.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1",
			"seeds", true),
		p("3", "Refined Soybean Oil", "refined-soybean-oil",
			"Pure refined soybean oil suitable for cooking, food processing, and industrial applications.",
			"https://images.pexels.com/photos/725998/pexels-photo-725998.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1",
			"oil", true),
		p("4", "High-Density Polyethylene", "high-density-polyethylene",
			"Industrial-grade HDPE polymer with excellent impact resistance and tensile strength for manufacturing.",
			"https://images.pexels.com/photos/2233416/pexels-photo-2233416.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1",
			"raw-polymers", false),
		p("5", "Calcium Bromide Solution", "calcium-bromide-solution",
			"High-purity calcium bromide solution used in oil drilling, pharmaceuticals, and other industrial applications.",
			"https://images.pexels.com/photos/6074935/pexels-photo-6074935.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1",
			"bromine-salt", false),
		p("6", "Jasmine Rice", "jasmine-rice",
			"Fragrant, long-grain rice with a subtle floral aroma, ideal for Asian cuisine and everyday meals.",
			"https://images.pexels.com/photos/7421208/pexels-photo-7421208.jpeg?auto=compress&cs=tinysrgb&w=1260&h=750&dpr=1",
			"rice", false),
	}
}

func seedCategories() []Item {
	c := func(id, name, slug, desc, img string, count int, featured bool) Item {
		return Item{
			ID: id, Kind: KindCategory, DisplayName: name, Slug: slug,
			Description: desc, ImageURL: img, ProductCount: count, Featured: featured,
			UpdatedAt: seedTime, UpdatedBy: SeedAuthor,
		}
	}
	return []Item{
		c("1", "Rice", "rice",
			"Premium quality rice varieties sourced from the finest farms worldwide.",
			"https://images.pexels.com/photos/4110251/pexels-photo-4110251.jpeg?auto=compress&cs=tinysrgb&w=600",
			8, true),
		c("2", "Seeds", "seeds",
			"High-yield agricultural seeds for various crops and growing conditions.",
			"https://images.pexels.com/photos/1537169/pexels-photo-1537169.jpeg?auto=compress&cs=tinysrgb&w=600",
			12, true),
		c("3", "Oil", "oil",
			"Refined and crude oils for industrial and commercial applications.",
			"https://images.pexels.com/photos/1458694/pexels-photo-1458694.jpeg?auto=compress&cs=tinysrgb&w=600",
			6, false),
		c("4", "Raw Polymers", "raw-polymers",
			"Industrial-grade polymers for manufacturing and production needs.",
			"https://images.pexels.com/photos/3825527/pexels-photo-3825527.jpeg?auto=compress&cs=tinysrgb&w=600",
			9, false),
		c("5", "Bromine Salt", "bromine-salt",
			"High-purity bromine salt compounds for chemical and industrial use.",
			"https://images.pexels.com/photos/6195085/pexels-photo-6195085.jpeg?auto=compress&cs=tinysrgb&w=600",
			4, false),
	}
}
