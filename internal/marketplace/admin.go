package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tyemirov/marketclient/pkg/apiclient"
)

var errMissingSupplierID = errors.New("marketplace.admin.missing_supplier_id")

// Admin onboards suppliers and manages the platform's product categories.
// Only admin sessions may call it; other roles get 403.
type Admin struct {
	requester Requester
	validator *validator.Validate
}

// Suppliers lists every supplier account.
func (service *Admin) Suppliers(ctx context.Context) ([]SupplierAccount, error) {
	var suppliers []SupplierAccount
	if err := service.requester.Get(ctx, apiclient.PathAdminSuppliers, &suppliers); err != nil {
		return nil, fmt.Errorf("marketplace.admin.suppliers: %w", err)
	}
	return suppliers, nil
}

// AddSupplier onboards a supplier. The response carries the initial password once.
func (service *Admin) AddSupplier(ctx context.Context, onboarding SupplierOnboarding) (SupplierAccount, error) {
	if err := validatePayload(service.validator, onboarding); err != nil {
		return SupplierAccount{}, err
	}
	var supplier SupplierAccount
	if err := service.requester.Post(ctx, apiclient.PathAdminSuppliers, onboarding, &supplier); err != nil {
		return SupplierAccount{}, fmt.Errorf("marketplace.admin.add_supplier: %w", err)
	}
	return supplier, nil
}

// SetSupplierEnabled enables or disables a supplier. Disabled suppliers cannot sign in.
func (service *Admin) SetSupplierEnabled(ctx context.Context, supplierID string, enabled bool) (SupplierAccount, error) {
	if strings.TrimSpace(supplierID) == "" {
		return SupplierAccount{}, fmt.Errorf("%w: %w", ErrInvalidInput, errMissingSupplierID)
	}
	var supplier SupplierAccount
	if err := service.requester.Patch(ctx, apiclient.PathAdminSupplier(supplierID), SupplierStatus{Enabled: enabled}, &supplier); err != nil {
		return SupplierAccount{}, fmt.Errorf("marketplace.admin.set_supplier_enabled: %w", err)
	}
	return supplier, nil
}

// Categories lists the registered categories, including empty ones.
func (service *Admin) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := service.requester.Get(ctx, apiclient.PathAdminCategories, &categories); err != nil {
		return nil, fmt.Errorf("marketplace.admin.categories: %w", err)
	}
	return categories, nil
}

// AddCategory registers a category. A duplicate name fails with HTTP 409.
func (service *Admin) AddCategory(ctx context.Context, name string) (Category, error) {
	draft := CategoryDraft{Name: strings.TrimSpace(name)}
	if err := validatePayload(service.validator, draft); err != nil {
		return Category{}, err
	}
	var category Category
	if err := service.requester.Post(ctx, apiclient.PathAdminCategories, draft, &category); err != nil {
		return Category{}, fmt.Errorf("marketplace.admin.add_category: %w", err)
	}
	return category, nil
}

func (service *Admin) DeleteCategory(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if err := validatePayload(service.validator, CategoryDraft{Name: trimmed}); err != nil {
		return err
	}
	if err := service.requester.Delete(ctx, apiclient.PathAdminCategory(trimmed), nil); err != nil {
		return fmt.Errorf("marketplace.admin.delete_category: %w", err)
	}
	return nil
}
