package marketplace

import "math"

// Product is a catalogue entry as served by the products and supplier endpoints.
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Image        string  `json:"image,omitempty"`
	Category     string  `json:"category"`
	InStock      bool    `json:"inStock"`
	Rating       float64 `json:"rating"`
	Reviews      int     `json:"reviews"`
	Supplier     string  `json:"supplier,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
}

// Category groups products on the search page.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
}

// CartItem is one line of the shopping cart.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

// Cart is the customer's current cart.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Total sums price times quantity over all items, rounded to cents.
func (cart Cart) Total() float64 {
	total := 0.0
	for _, item := range cart.Items {
		total += item.Price * float64(item.Quantity)
	}
	return roundCents(total)
}

// ItemCount is the number of units in the cart.
func (cart Cart) ItemCount() int {
	count := 0
	for _, item := range cart.Items {
		count += item.Quantity
	}
	return count
}

// Order statuses.
const (
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderItem is a purchased product line.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Order is a placed order.
type Order struct {
	ID     string      `json:"id"`
	Date   string      `json:"date"`
	Total  float64     `json:"total"`
	Status string      `json:"status"`
	Items  []OrderItem `json:"items"`
}

// Cancellable reports whether the order has not shipped yet.
func (order Order) Cancellable() bool {
	return order.Status == OrderProcessing
}

// ShippingAddress is collected at checkout.
type ShippingAddress struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZIP       string `json:"zip" validate:"required"`
}

// PaymentCard is the card entered at checkout.
type PaymentCard struct {
	Number string `json:"cardNumber" validate:"required,min=12,max=23"`
	Expiry string `json:"expiry" validate:"required,len=5"`
	CVV    string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

// CheckoutRequest places an order for the current cart contents.
type CheckoutRequest struct {
	Shipping ShippingAddress `json:"shipping"`
	Payment  PaymentCard     `json:"payment"`
}

// UserProfile is the signed-in user's account.
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ProfileUpdate changes the account name, email, and optionally the password.
type ProfileUpdate struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"currentPassword,omitempty" validate:"required_with=NewPassword"`
	NewPassword     string `json:"newPassword,omitempty" validate:"omitempty,min=8"`
}

// ProductDraft is what a supplier submits to create or update a catalogue entry.
type ProductDraft struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"gt=0"`
	Category    string  `json:"category" validate:"required"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

// InventoryItem is a supplier's stock record for one product.
type InventoryItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Stock       int    `json:"stock"`
}

// InventoryUpdate sets the stock level of a product.
type InventoryUpdate struct {
	Stock int `json:"stock" validate:"gte=0"`
}

// SupplierDashboard summarises supplier performance.
type SupplierDashboard struct {
	TotalProducts int     `json:"totalProducts"`
	TotalSales    int     `json:"totalSales"`
	Revenue       float64 `json:"revenue"`
	LowStock      int     `json:"lowStock"`
}

// SupplierAccount is a supplier as seen by platform administrators.
type SupplierAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Enabled bool   `json:"enabled"`
	// InitialPassword is only returned when the supplier is onboarded.
	InitialPassword string `json:"initialPassword,omitempty"`
}

// SupplierOnboarding is the admin form for adding a supplier.
type SupplierOnboarding struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	ContactPerson string `json:"contactPerson" validate:"required"`
	Phone         string `json:"phone" validate:"required,e164"`
}

// SupplierStatus enables or disables a supplier account.
type SupplierStatus struct {
	Enabled bool `json:"enabled"`
}

// CategoryDraft names a new product category.
type CategoryDraft struct {
	Name string `json:"name" validate:"required,max=64"`
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
