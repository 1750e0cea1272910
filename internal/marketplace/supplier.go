package marketplace

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tyemirov/marketclient/pkg/apiclient"
)

// Supplier manages a supplier's catalogue and stock. The server rejects
// customers on these endpoints with 403.
type Supplier struct {
	requester Requester
	validator *validator.Validate
}

func (service *Supplier) Catalog(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := service.requester.Get(ctx, apiclient.PathSupplierCatalog, &products); err != nil {
		return nil, fmt.Errorf("marketplace.supplier.catalog: %w", err)
	}
	return products, nil
}

func (service *Supplier) AddProduct(ctx context.Context, draft ProductDraft) (Product, error) {
	if err := validatePayload(service.validator, draft); err != nil {
		return Product{}, err
	}
	var product Product
	if err := service.requester.Post(ctx, apiclient.PathSupplierAddProduct, draft, &product); err != nil {
		return Product{}, fmt.Errorf("marketplace.supplier.add_product: %w", err)
	}
	return product, nil
}

func (service *Supplier) UpdateProduct(ctx context.Context, productID string, draft ProductDraft) (Product, error) {
	if err := validatePayload(service.validator, draft); err != nil {
		return Product{}, err
	}
	var product Product
	if err := service.requester.Put(ctx, apiclient.PathSupplierProduct(productID), draft, &product); err != nil {
		return Product{}, fmt.Errorf("marketplace.supplier.update_product: %w", err)
	}
	return product, nil
}

func (service *Supplier) DeleteProduct(ctx context.Context, productID string) error {
	if err := service.requester.Delete(ctx, apiclient.PathSupplierProduct(productID), nil); err != nil {
		return fmt.Errorf("marketplace.supplier.delete_product: %w", err)
	}
	return nil
}

func (service *Supplier) Inventory(ctx context.Context) ([]InventoryItem, error) {
	var items []InventoryItem
	if err := service.requester.Get(ctx, apiclient.PathSupplierInventory, &items); err != nil {
		return nil, fmt.Errorf("marketplace.supplier.inventory: %w", err)
	}
	return items, nil
}

func (service *Supplier) UpdateInventory(ctx context.Context, productID string, update InventoryUpdate) (InventoryItem, error) {
	if err := validatePayload(service.validator, update); err != nil {
		return InventoryItem{}, err
	}
	var item InventoryItem
	if err := service.requester.Patch(ctx, apiclient.PathSupplierInventoryItem(productID), update, &item); err != nil {
		return InventoryItem{}, fmt.Errorf("marketplace.supplier.update_inventory: %w", err)
	}
	return item, nil
}

// Dashboard returns the supplier's summary figures.
func (service *Supplier) Dashboard(ctx context.Context) (SupplierDashboard, error) {
	var dashboard SupplierDashboard
	if err := service.requester.Get(ctx, apiclient.PathSupplierDashboard, &dashboard); err != nil {
		return SupplierDashboard{}, fmt.Errorf("marketplace.supplier.dashboard: %w", err)
	}
	return dashboard, nil
}
