// ABOUTME: Built-in product catalog used to seed an empty database
// ABOUTME: Mirrors the demo marketplace listings shipped with the frontends

package store

// DemoProducts returns the built-in catalog. SQLite stores seed these rows
// when the products table is empty; the mock store starts with them so the
// gateway is usable without any setup.
func DemoProducts() []*Product {
	return []*Product{
		{
			ID:          "prod-001",
			Title:       "iPhone 13 Pro 128GB",
			Description: "Lightly used, single owner, box and charger included.",
			Price:       52000,
			Condition:   "like new",
			SellerName:  "Rahul",
			Location:    "Bengaluru",
		},
		{
			ID:          "prod-002",
			Title:       "Royal Enfield Classic 350",
			Description: "2021 model, 9k km, fully serviced, new tyres.",
			Price:       145000,
			Condition:   "good",
			SellerName:  "Amit",
			Location:    "Pune",
		},
		{
			ID:          "prod-003",
			Title:       "IKEA MALM Desk",
			Description: "White, minor scratches on one leg, dismantled for pickup.",
			Price:       6500,
			Condition:   "used",
			SellerName:  "Priya",
			Location:    "Mumbai",
		},
		{
			ID:          "prod-004",
			Title:       "Sony WH-1000XM4 Headphones",
			Description: "Under warranty until next year, comes with case.",
			Price:       18000,
			Condition:   "like new",
			SellerName:  "Dev",
			Location:    "Delhi",
		},
	}
}
