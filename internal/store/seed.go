package store

// seedProducts returns the default catalogue with every timestamp set to now.
func seedProducts(now string) []Product {
	p := func(id, name, sku, category string, quantity int, price float64, description string) Product {
		return Product{
			ID:          id,
			Name:        name,
			SKU:         sku,
			Category:    category,
			Quantity:    quantity,
			Price:       price,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return []Product{
		p("1", "Apple iPhone 15 Pro", "ELEC-001", "Electronics", 12, 999.99, "Latest iPhone with titanium design and A17 Pro chip"),
		p("2", `Samsung 4K Smart TV 55"`, "ELEC-002", "Electronics", 8, 649.99, "55-inch QLED display with smart features"),
		p("3", "Sony WH-1000XM5 Headphones", "ELEC-003", "Electronics", 25, 349.99, "Industry-leading noise canceling wireless headphones"),
		p("4", "Dell XPS 15 Laptop", "ELEC-004", "Electronics", 6, 1499.99, "High-performance laptop with OLED display"),
		p("5", "Nike Air Max 270", "SHOE-001", "Footwear", 40, 129.99, "Comfortable running shoes with Air Max cushioning"),
		p("6", "Adidas Ultraboost 23", "SHOE-002", "Footwear", 35, 189.99, "Premium running shoes with Boost midsole"),
		p("7", "Levi's 501 Original Jeans", "CLTH-001", "Clothing", 60, 69.99, "Classic straight fit jeans in medium wash"),
		p("8", "North Face Puffer Jacket", "CLTH-002", "Clothing", 20, 249.99, "Warm and lightweight winter jacket"),
		p("9", "Instant Pot Duo 7-in-1", "KITC-001", "Kitchen", 15, 89.99, "Multi-use pressure cooker for fast meals"),
		p("10", "Vitamix Professional Blender", "KITC-002", "Kitchen", 10, 449.99, "High-performance blender for smoothies and soups"),
		p("11", "LEGO Star Wars Millennium Falcon", "TOYS-001", "Toys", 5, 849.99, "7,541-piece Ultimate Collector Series set"),
		p("12", "Kindle Paperwhite", "BOOK-001", "Books & Media", 30, 139.99, `Waterproof e-reader with 6.8" display`),
		p("13", "Dyson V15 Detect Vacuum", "HOME-001", "Home & Garden", 9, 749.99, "Cordless vacuum with laser dust detection"),
		p("14", "Weber Spirit II Gas Grill", "HOME-002", "Home & Garden", 7, 499.99, "3-burner propane grill for outdoor cooking"),
		p("15", "Patagonia Better Sweater Fleece", "CLTH-003", "Clothing", 28, 139.99, "Versatile fleece jacket for outdoor activities"),
		p("16", "Canon EOS R50 Camera", "ELEC-005", "Electronics", 11, 679.99, "Mirrorless camera with 24.2MP APS-C sensor"),
		p("17", "Fitbit Charge 6", "ELEC-006", "Electronics", 22, 159.99, "Advanced fitness tracker with GPS and health metrics"),
		p("18", "The Ordinary Skincare Set", "BEAU-001", "Beauty", 50, 49.99, "Complete skincare routine with serums and moisturizers"),
		p("19", "Yeti Rambler 30oz Tumbler", "HOME-003", "Home & Garden", 45, 44.99, "Vacuum insulated stainless steel tumbler"),
		p("20", "Moleskine Classic Notebook", "STAT-001", "Stationery", 80, 24.99, "Hard cover ruled notebook, A5 size"),
	}
}
