package mockapi

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"github.com/tyemirov/marketclient/pkg/sessionvalidator"
)

const lowStockThreshold = 5

var (
	ErrProductNotFound     = errors.New("catalog.product_not_found")
	ErrOrderNotFound       = errors.New("catalog.order_not_found")
	ErrEmptyCart           = errors.New("catalog.empty_cart")
	ErrInsufficientStock   = errors.New("catalog.insufficient_stock")
	ErrOrderNotCancellable = errors.New("catalog.order_not_cancellable")
	ErrCategoryExists      = errors.New("catalog.category_exists")
	ErrCategoryNotFound    = errors.New("catalog.category_not_found")
	ErrUnknownCategory     = errors.New("catalog.unknown_category")
	ErrInvalidCategory     = errors.New("catalog.invalid_category")
)

type catalogEntry struct {
	product marketplace.Product
	stock   int
	ownerID string
}

// Catalog is the fake marketplace state: products with stock, carts, and orders.
type Catalog struct {
	mutex         sync.RWMutex
	clock         sessionvalidator.Clock
	entries       []*catalogEntry
	categories    []string
	carts         map[string][]marketplace.CartItem
	orders        map[string][]marketplace.Order
	orderSequence int
}

// NewCatalog constructs an empty catalogue.
func NewCatalog(clock sessionvalidator.Clock) *Catalog {
	return &Catalog{
		clock:  clock,
		carts:  make(map[string][]marketplace.CartItem),
		orders: make(map[string][]marketplace.Order),
	}
}

// SeedDemoCatalog loads the demo products and order history for the demo customer.
func SeedDemoCatalog(catalog *Catalog) {
	seed := []struct {
		product marketplace.Product
		stock   int
		ownerID string
	}{
		{product: marketplace.Product{ID: "1", Name: "Premium Wireless Headphones", Description: "High-quality wireless headphones with active noise cancellation", Price: 299.99, Category: "Electronics", Rating: 4.8, Reviews: 342, Supplier: "Supplier Co", Manufacturer: "SoundWave"}, stock: 25, ownerID: "2"},
		{product: marketplace.Product{ID: "2", Name: "Smart Watch Pro", Description: "Advanced fitness tracking with heart rate monitor and GPS", Price: 399.99, Category: "Electronics", Rating: 4.6, Reviews: 289, Supplier: "Supplier Co", Manufacturer: "Tempo"}, stock: 12, ownerID: "2"},
		{product: marketplace.Product{ID: "3", Name: "Leather Messenger Bag", Description: "Handcrafted genuine leather bag with laptop compartment", Price: 189.99, Category: "Accessories", Rating: 4.9, Reviews: 156, Supplier: "Supplier Co", Manufacturer: "Tannery & Sons"}, stock: 4, ownerID: "2"},
		{product: marketplace.Product{ID: "4", Name: "Minimalist Desk Lamp", Description: "Modern LED desk lamp with adjustable brightness", Price: 79.99, Category: "Home & Garden", Rating: 4.5, Reviews: 98, Supplier: "Supplier Co", Manufacturer: "Lumen"}, stock: 0, ownerID: "2"},
		{product: marketplace.Product{ID: "5", Name: "The Great Gatsby Book", Description: "Classic American novel by F. Scott Fitzgerald", Price: 14.99, Category: "Books", Rating: 4.7, Reviews: 523, Supplier: "Readers Depot"}, stock: 100},
		{product: marketplace.Product{ID: "6", Name: "Python Programming Book", Description: "Complete guide to Python programming for beginners", Price: 39.99, Category: "Books", Rating: 4.8, Reviews: 234, Supplier: "Readers Depot"}, stock: 60},
		{product: marketplace.Product{ID: "7", Name: "Running Shoes Pro", Description: "Lightweight running shoes with cushioned sole", Price: 129.99, Category: "Footwear", Rating: 4.6, Reviews: 412, Supplier: "Stride Outfitters", Manufacturer: "Stride"}, stock: 30},
		{product: marketplace.Product{ID: "8", Name: "Casual Leather Shoes", Description: "Comfortable leather shoes for everyday wear", Price: 89.99, Category: "Footwear", Rating: 4.4, Reviews: 187, Supplier: "Stride Outfitters", Manufacturer: "Tannery & Sons"}, stock: 18},
	}

	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	catalog.categories = []string{"Electronics", "Books", "Footwear", "Accessories", "Home & Garden"}
	for _, item := range seed {
		entry := &catalogEntry{product: item.product, stock: item.stock, ownerID: item.ownerID}
		entry.product.Image = "/placeholder.svg"
		entry.product.InStock = entry.stock > 0
		catalog.entries = append(catalog.entries, entry)
	}
	catalog.orders["1"] = []marketplace.Order{
		{ID: "ORD-001", Date: "2024-01-15", Total: 299.99, Status: marketplace.OrderDelivered, Items: []marketplace.OrderItem{
			{ProductID: "1", ProductName: "Premium Wireless Headphones", Quantity: 1, Price: 299.99},
		}},
		{ID: "ORD-002", Date: "2024-01-20", Total: 589.98, Status: marketplace.OrderShipped, Items: []marketplace.OrderItem{
			{ProductID: "2", ProductName: "Smart Watch Pro", Quantity: 1, Price: 399.99},
			{ProductID: "3", ProductName: "Leather Messenger Bag", Quantity: 1, Price: 189.99},
		}},
	}
	catalog.orderSequence = 2
}

// Products lists every product.
func (catalog *Catalog) Products() []marketplace.Product {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	return catalog.collectLocked(func(*catalogEntry) bool { return true })
}

// Product returns one product.
func (catalog *Catalog) Product(productID string) (marketplace.Product, error) {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	entry := catalog.findLocked(productID)
	if entry == nil {
		return marketplace.Product{}, ErrProductNotFound
	}
	return entry.product, nil
}

// Search matches the query against product names and descriptions, case-insensitively.
func (catalog *Catalog) Search(query string) []marketplace.Product {
	needle := strings.ToLower(strings.TrimSpace(query))
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	return catalog.collectLocked(func(entry *catalogEntry) bool {
		return strings.Contains(strings.ToLower(entry.product.Name), needle) ||
			strings.Contains(strings.ToLower(entry.product.Description), needle)
	})
}

// Categories lists the registered categories with their product counts, sorted by name.
func (catalog *Catalog) Categories() []marketplace.Category {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	counts := make(map[string]int)
	for _, entry := range catalog.entries {
		counts[entry.product.Category]++
	}
	categories := make([]marketplace.Category, 0, len(catalog.categories))
	for _, name := range catalog.categories {
		categories = append(categories, marketplace.Category{Name: name, ProductCount: counts[name]})
	}
	sort.Slice(categories, func(left, right int) bool { return categories[left].Name < categories[right].Name })
	return categories
}

// AddCategory registers a category. Names are compared case-insensitively.
func (catalog *Catalog) AddCategory(name string) (marketplace.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return marketplace.Category{}, ErrInvalidCategory
	}
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	if catalog.categoryIndexLocked(trimmed) >= 0 {
		return marketplace.Category{}, ErrCategoryExists
	}
	catalog.categories = append(catalog.categories, trimmed)
	return marketplace.Category{Name: trimmed}, nil
}

// DeleteCategory unregisters a category. Products keep their category label
// but new drafts can no longer use it.
func (catalog *Catalog) DeleteCategory(name string) error {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	index := catalog.categoryIndexLocked(strings.TrimSpace(name))
	if index < 0 {
		return ErrCategoryNotFound
	}
	catalog.categories = append(catalog.categories[:index], catalog.categories[index+1:]...)
	return nil
}

func (catalog *Catalog) categoryIndexLocked(name string) int {
	for index, registered := range catalog.categories {
		if strings.EqualFold(registered, name) {
			return index
		}
	}
	return -1
}

// Recommendations returns the first few products of the catalogue.
func (catalog *Catalog) Recommendations(limit int) []marketplace.Product {
	products := catalog.Products()
	if len(products) > limit {
		products = products[:limit]
	}
	return products
}

// Cart returns the user's cart.
func (catalog *Catalog) Cart(userID string) marketplace.Cart {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	return catalog.cartLocked(userID)
}

// AddToCart adds quantity units, merging with an existing line.
func (catalog *Catalog) AddToCart(userID string, productID string, quantity int) (marketplace.Cart, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	entry := catalog.findLocked(productID)
	if entry == nil {
		return marketplace.Cart{}, ErrProductNotFound
	}
	items := catalog.carts[userID]
	for index := range items {
		if items[index].ProductID == productID {
			items[index].Quantity += quantity
			return catalog.cartLocked(userID), nil
		}
	}
	catalog.carts[userID] = append(items, marketplace.CartItem{
		ProductID: productID,
		Name:      entry.product.Name,
		Price:     entry.product.Price,
		Quantity:  quantity,
		Image:     entry.product.Image,
	})
	return catalog.cartLocked(userID), nil
}

// UpdateCart sets the quantity of an existing line.
func (catalog *Catalog) UpdateCart(userID string, productID string, quantity int) (marketplace.Cart, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	items := catalog.carts[userID]
	for index := range items {
		if items[index].ProductID == productID {
			items[index].Quantity = max(1, quantity)
			return catalog.cartLocked(userID), nil
		}
	}
	return marketplace.Cart{}, ErrProductNotFound
}

// RemoveFromCart drops a line. Removing an absent product leaves the cart unchanged.
func (catalog *Catalog) RemoveFromCart(userID string, productID string) marketplace.Cart {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	items := catalog.carts[userID]
	kept := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	catalog.carts[userID] = kept
	return catalog.cartLocked(userID)
}

// ClearCart empties the user's cart.
func (catalog *Catalog) ClearCart(userID string) marketplace.Cart {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	delete(catalog.carts, userID)
	return catalog.cartLocked(userID)
}

// Orders lists a user's orders, newest first.
func (catalog *Catalog) Orders(userID string) []marketplace.Order {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	orders := catalog.orders[userID]
	listed := make([]marketplace.Order, 0, len(orders))
	for index := len(orders) - 1; index >= 0; index-- {
		listed = append(listed, orders[index])
	}
	return listed
}

// Order returns one of the user's orders.
func (catalog *Catalog) Order(userID string, orderID string) (marketplace.Order, error) {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	for _, order := range catalog.orders[userID] {
		if order.ID == orderID {
			return order, nil
		}
	}
	return marketplace.Order{}, ErrOrderNotFound
}

// Checkout turns the cart into a processing order and reserves stock.
func (catalog *Catalog) Checkout(userID string) (marketplace.Order, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	items := catalog.carts[userID]
	if len(items) == 0 {
		return marketplace.Order{}, ErrEmptyCart
	}
	for _, item := range items {
		entry := catalog.findLocked(item.ProductID)
		if entry == nil {
			return marketplace.Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if entry.stock < item.Quantity {
			return marketplace.Order{}, fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductID)
		}
	}

	catalog.orderSequence++
	order := marketplace.Order{
		ID:     fmt.Sprintf("ORD-%03d", catalog.orderSequence),
		Date:   catalog.clock.Now().Format("2006-01-02"),
		Status: marketplace.OrderProcessing,
	}
	for _, item := range items {
		catalog.adjustStockLocked(item.ProductID, -item.Quantity)
		order.Items = append(order.Items, marketplace.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	order.Total = marketplace.Cart{Items: items}.Total()
	catalog.orders[userID] = append(catalog.orders[userID], order)
	delete(catalog.carts, userID)
	return order, nil
}

// CancelOrder cancels a processing order and returns its stock.
func (catalog *Catalog) CancelOrder(userID string, orderID string) (marketplace.Order, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	orders := catalog.orders[userID]
	for index := range orders {
		if orders[index].ID != orderID {
			continue
		}
		if !orders[index].Cancellable() {
			return marketplace.Order{}, ErrOrderNotCancellable
		}
		orders[index].Status = marketplace.OrderCancelled
		for _, item := range orders[index].Items {
			catalog.adjustStockLocked(item.ProductID, item.Quantity)
		}
		return orders[index], nil
	}
	return marketplace.Order{}, ErrOrderNotFound
}

// SupplierProducts lists the products owned by a supplier; admins see everything.
func (catalog *Catalog) SupplierProducts(owner Owner) []marketplace.Product {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	return catalog.collectLocked(owner.owns)
}

// AddProduct creates a catalogue entry owned by the supplier. The draft's
// category must be registered.
func (catalog *Catalog) AddProduct(owner Owner, draft marketplace.ProductDraft) (marketplace.Product, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	categoryIndex := catalog.categoryIndexLocked(draft.Category)
	if categoryIndex < 0 {
		return marketplace.Product{}, ErrUnknownCategory
	}
	draft.Category = catalog.categories[categoryIndex]
	entry := &catalogEntry{ownerID: owner.AccountID, stock: draft.Stock}
	entry.product = marketplace.Product{ID: uuid.NewString(), Supplier: owner.Name, Image: "/placeholder.svg"}
	applyDraft(entry, draft)
	catalog.entries = append(catalog.entries, entry)
	return entry.product, nil
}

// UpdateProduct replaces the editable fields of an owned product.
func (catalog *Catalog) UpdateProduct(owner Owner, productID string, draft marketplace.ProductDraft) (marketplace.Product, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	entry := catalog.findLocked(productID)
	if entry == nil || !owner.owns(entry) {
		return marketplace.Product{}, ErrProductNotFound
	}
	categoryIndex := catalog.categoryIndexLocked(draft.Category)
	if categoryIndex < 0 {
		return marketplace.Product{}, ErrUnknownCategory
	}
	draft.Category = catalog.categories[categoryIndex]
	entry.stock = draft.Stock
	applyDraft(entry, draft)
	return entry.product, nil
}

// DeleteProduct removes an owned product.
func (catalog *Catalog) DeleteProduct(owner Owner, productID string) error {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	for index, entry := range catalog.entries {
		if entry.product.ID == productID && owner.owns(entry) {
			catalog.entries = append(catalog.entries[:index], catalog.entries[index+1:]...)
			return nil
		}
	}
	return ErrProductNotFound
}

// Inventory lists stock levels of owned products.
func (catalog *Catalog) Inventory(owner Owner) []marketplace.InventoryItem {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	items := make([]marketplace.InventoryItem, 0)
	for _, entry := range catalog.entries {
		if owner.owns(entry) {
			items = append(items, inventoryItem(entry))
		}
	}
	return items
}

// SetStock overwrites the stock level of an owned product.
func (catalog *Catalog) SetStock(owner Owner, productID string, stock int) (marketplace.InventoryItem, error) {
	catalog.mutex.Lock()
	defer catalog.mutex.Unlock()
	entry := catalog.findLocked(productID)
	if entry == nil || !owner.owns(entry) {
		return marketplace.InventoryItem{}, ErrProductNotFound
	}
	entry.stock = stock
	entry.product.InStock = stock > 0
	return inventoryItem(entry), nil
}

// Dashboard summarises owned products and their non-cancelled sales.
func (catalog *Catalog) Dashboard(owner Owner) marketplace.SupplierDashboard {
	catalog.mutex.RLock()
	defer catalog.mutex.RUnlock()
	var dashboard marketplace.SupplierDashboard
	owned := make(map[string]struct{})
	for _, entry := range catalog.entries {
		if !owner.owns(entry) {
			continue
		}
		owned[entry.product.ID] = struct{}{}
		dashboard.TotalProducts++
		if entry.stock < lowStockThreshold {
			dashboard.LowStock++
		}
	}
	for _, orders := range catalog.orders {
		for _, order := range orders {
			if order.Status == marketplace.OrderCancelled {
				continue
			}
			for _, item := range order.Items {
				if _, found := owned[item.ProductID]; found {
					dashboard.TotalSales += item.Quantity
					dashboard.Revenue += item.Price * float64(item.Quantity)
				}
			}
		}
	}
	dashboard.Revenue = math.Round(dashboard.Revenue*100) / 100
	return dashboard
}

// Owner scopes supplier operations. Admins own every product.
type Owner struct {
	AccountID string
	Name      string
	Admin     bool
}

func (owner Owner) owns(entry *catalogEntry) bool {
	return owner.Admin || (owner.AccountID != "" && entry.ownerID == owner.AccountID)
}

func (catalog *Catalog) findLocked(productID string) *catalogEntry {
	for _, entry := range catalog.entries {
		if entry.product.ID == productID {
			return entry
		}
	}
	return nil
}

func (catalog *Catalog) collectLocked(keep func(*catalogEntry) bool) []marketplace.Product {
	products := make([]marketplace.Product, 0, len(catalog.entries))
	for _, entry := range catalog.entries {
		if keep(entry) {
			products = append(products, entry.product)
		}
	}
	return products
}

func (catalog *Catalog) cartLocked(userID string) marketplace.Cart {
	items := append(make([]marketplace.CartItem, 0, len(catalog.carts[userID])), catalog.carts[userID]...)
	return marketplace.Cart{Items: items}
}

func (catalog *Catalog) adjustStockLocked(productID string, delta int) {
	if entry := catalog.findLocked(productID); entry != nil {
		entry.stock += delta
		entry.product.InStock = entry.stock > 0
	}
}

func applyDraft(entry *catalogEntry, draft marketplace.ProductDraft) {
	entry.product.Name = draft.Name
	entry.product.Description = draft.Description
	entry.product.Price = draft.Price
	entry.product.Category = draft.Category
	entry.product.InStock = entry.stock > 0
}

func inventoryItem(entry *catalogEntry) marketplace.InventoryItem {
	return marketplace.InventoryItem{ProductID: entry.product.ID, ProductName: entry.product.Name, Stock: entry.stock}
}
