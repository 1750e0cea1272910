package marketplace

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tyemirov/marketclient/pkg/apiclient"
)

// Orders covers checkout and order history.
type Orders struct {
	requester Requester
	validator *validator.Validate
}

// List returns the customer's orders, newest first as served.
func (service *Orders) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := service.requester.Get(ctx, apiclient.PathOrders, &orders); err != nil {
		return nil, fmt.Errorf("marketplace.orders.list: %w", err)
	}
	return orders, nil
}

// Get returns one order.
func (service *Orders) Get(ctx context.Context, orderID string) (Order, error) {
	var order Order
	if err := service.requester.Get(ctx, apiclient.PathOrder(orderID), &order); err != nil {
		return Order{}, fmt.Errorf("marketplace.orders.get: %w", err)
	}
	return order, nil
}

// Create checks out the current cart.
func (service *Orders) Create(ctx context.Context, checkout CheckoutRequest) (Order, error) {
	if err := validatePayload(service.validator, checkout); err != nil {
		return Order{}, err
	}
	var order Order
	if err := service.requester.Post(ctx, apiclient.PathOrders, checkout, &order); err != nil {
		return Order{}, fmt.Errorf("marketplace.orders.create: %w", err)
	}
	return order, nil
}

// Cancel cancels an order that has not shipped.
func (service *Orders) Cancel(ctx context.Context, orderID string) (Order, error) {
	var order Order
	if err := service.requester.Post(ctx, apiclient.PathOrderCancel(orderID), nil, &order); err != nil {
		return Order{}, fmt.Errorf("marketplace.orders.cancel: %w", err)
	}
	return order, nil
}
