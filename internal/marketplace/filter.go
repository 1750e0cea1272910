package marketplace

import "slices"

// Filter narrows search results on the client. Nil price bounds and empty
// selection lists impose no constraint; price bounds are inclusive.
type Filter struct {
	MinPrice      *float64
	MaxPrice      *float64
	Categories    []string
	Suppliers     []string
	Manufacturers []string
	InStockOnly   bool
}

// Matches reports whether a product passes every active constraint.
func (filter Filter) Matches(product Product) bool {
	if filter.MinPrice != nil && product.Price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && product.Price > *filter.MaxPrice {
		return false
	}
	if len(filter.Suppliers) > 0 && (product.Supplier == "" || !slices.Contains(filter.Suppliers, product.Supplier)) {
		return false
	}
	if len(filter.Manufacturers) > 0 && (product.Manufacturer == "" || !slices.Contains(filter.Manufacturers, product.Manufacturer)) {
		return false
	}
	if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, product.Category) {
		return false
	}
	if filter.InStockOnly && !product.InStock {
		return false
	}
	return true
}

// Apply returns the matching products in their original order.
func (filter Filter) Apply(products []Product) []Product {
	filtered := make([]Product, 0, len(products))
	for _, product := range products {
		if filter.Matches(product) {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

// Facets lists the distinct filter values present in a result set, in first-seen order.
type Facets struct {
	Categories    []string `json:"categories"`
	Suppliers     []string `json:"suppliers"`
	Manufacturers []string `json:"manufacturers"`
}

// CollectFacets gathers the values offered as filter options for a result set.
func CollectFacets(products []Product) Facets {
	var facets Facets
	for _, product := range products {
		facets.Categories = appendDistinct(facets.Categories, product.Category)
		facets.Suppliers = appendDistinct(facets.Suppliers, product.Supplier)
		facets.Manufacturers = appendDistinct(facets.Manufacturers, product.Manufacturer)
	}
	return facets
}

func appendDistinct(values []string, value string) []string {
	if value == "" || slices.Contains(values, value) {
		return values
	}
	return append(values, value)
}
