package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tyemirov/marketclient/pkg/apiclient"
)

// Products reads the public catalogue.
type Products struct {
	requester Requester
}

// List returns the full catalogue.
func (service *Products) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := service.requester.Get(ctx, apiclient.PathProducts, &products); err != nil {
		return nil, fmt.Errorf("marketplace.products.list: %w", err)
	}
	return products, nil
}

// Search queries the catalogue by free text and narrows the results with filter.
func (service *Products) Search(ctx context.Context, query string, filter Filter) ([]Product, error) {
	values := url.Values{}
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		values.Set("q", trimmed)
	}
	var products []Product
	if err := service.requester.Get(ctx, apiclient.WithQuery(apiclient.PathProductSearch, values), &products); err != nil {
		return nil, fmt.Errorf("marketplace.products.search: %w", err)
	}
	return filter.Apply(products), nil
}

// Get returns one product.
func (service *Products) Get(ctx context.Context, productID string) (Product, error) {
	var product Product
	if err := service.requester.Get(ctx, apiclient.PathProduct(productID), &product); err != nil {
		return Product{}, fmt.Errorf("marketplace.products.get: %w", err)
	}
	return product, nil
}

// Categories lists the catalogue categories.
func (service *Products) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := service.requester.Get(ctx, apiclient.PathProductCategories, &categories); err != nil {
		return nil, fmt.Errorf("marketplace.products.categories: %w", err)
	}
	return categories, nil
}
