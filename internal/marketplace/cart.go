package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/marketclient/pkg/apiclient"
)

var (
	errInvalidQuantity  = errors.New("marketplace.cart.invalid_quantity")
	errMissingProductID = errors.New("marketplace.cart.missing_product_id")
)

// CartLine identifies a product and quantity in a cart mutation.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity,omitempty"`
}

// CartService manages the signed-in customer's cart. Every mutation returns the updated cart.
type CartService struct {
	requester Requester
}

// Get returns the current cart.
func (service *CartService) Get(ctx context.Context) (Cart, error) {
	var cart Cart
	if err := service.requester.Get(ctx, apiclient.PathCart, &cart); err != nil {
		return Cart{}, fmt.Errorf("marketplace.cart.get: %w", err)
	}
	return cart, nil
}

// Add puts quantity units of a product in the cart.
func (service *CartService) Add(ctx context.Context, productID string, quantity int) (Cart, error) {
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: %w", ErrInvalidInput, errMissingProductID)
	}
	if quantity < 1 {
		return Cart{}, fmt.Errorf("%w: %w", ErrInvalidInput, errInvalidQuantity)
	}
	return service.mutate(ctx, "add", service.requester.Post, apiclient.PathCartAdd, CartLine{ProductID: productID, Quantity: quantity})
}

// Update sets the quantity of a cart line. Quantities below one are raised to one.
func (service *CartService) Update(ctx context.Context, productID string, quantity int) (Cart, error) {
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: %w", ErrInvalidInput, errMissingProductID)
	}
	quantity = max(1, quantity)
	return service.mutate(ctx, "update", service.requester.Put, apiclient.PathCartUpdate, CartLine{ProductID: productID, Quantity: quantity})
}

// Remove deletes a product from the cart.
func (service *CartService) Remove(ctx context.Context, productID string) (Cart, error) {
	if productID == "" {
		return Cart{}, fmt.Errorf("%w: %w", ErrInvalidInput, errMissingProductID)
	}
	return service.mutate(ctx, "remove", service.requester.Post, apiclient.PathCartRemove, CartLine{ProductID: productID})
}

// Clear empties the cart.
func (service *CartService) Clear(ctx context.Context) (Cart, error) {
	return service.mutate(ctx, "clear", service.requester.Post, apiclient.PathCartClear, nil)
}

type sendFunc func(ctx context.Context, rawURL string, body any, target any) error

func (service *CartService) mutate(ctx context.Context, operation string, send sendFunc, path string, body any) (Cart, error) {
	var cart Cart
	if err := send(ctx, path, body, &cart); err != nil {
		return Cart{}, fmt.Errorf("marketplace.cart.%s: %w", operation, err)
	}
	return cart, nil
}
