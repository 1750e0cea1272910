package apiclient

import "net/url"

// Paths relative to the API base URL.
const (
	PathAuthLogin    = "/auth/login"
	PathAuthLogout   = "/auth/logout"
	PathAuthRegister = "/auth/register"
	PathAuthRefresh  = "/auth/refresh"

	PathUserProfile         = "/user/profile"
	PathUserRecommendations = "/user/recommendations"

	PathProducts          = "/products"
	PathProductSearch     = "/products/search"
	PathProductCategories = "/products/categories"

	PathCart       = "/cart"
	PathCartAdd    = "/cart/add"
	PathCartUpdate = "/cart/update"
	PathCartRemove = "/cart/remove"
	PathCartClear  = "/cart/clear"

	PathOrders = "/orders"

	PathSupplierLogin      = "/supplier/auth/login"
	PathSupplierCatalog    = "/supplier/catalog"
	PathSupplierAddProduct = "/supplier/catalog/add"
	PathSupplierInventory  = "/supplier/inventory"
	PathSupplierDashboard  = "/supplier/dashboard"

	PathAdminSuppliers  = "/admin/suppliers"
	PathAdminCategories = "/admin/categories"
)

// PathProduct addresses a single product.
func PathProduct(productID string) string {
	return PathProducts + "/" + url.PathEscape(productID)
}

// PathOrder addresses a single order.
func PathOrder(orderID string) string {
	return PathOrders + "/" + url.PathEscape(orderID)
}

// PathOrderCancel cancels an order.
func PathOrderCancel(orderID string) string {
	return PathOrder(orderID) + "/cancel"
}

// PathSupplierProduct addresses a catalog entry for update or delete.
func PathSupplierProduct(productID string) string {
	return PathSupplierCatalog + "/" + url.PathEscape(productID)
}

// PathSupplierInventoryItem addresses the stock record of one product.
func PathSupplierInventoryItem(productID string) string {
	return PathSupplierInventory + "/" + url.PathEscape(productID)
}

// PathAdminSupplier addresses one supplier account.
func PathAdminSupplier(supplierID string) string {
	return PathAdminSuppliers + "/" + url.PathEscape(supplierID)
}

// PathAdminCategory addresses one product category by name.
func PathAdminCategory(name string) string {
	return PathAdminCategories + "/" + url.PathEscape(name)
}

// WithQuery appends encoded query parameters to a path.
func WithQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}
