package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidInput is returned before any network call when a request payload fails validation.
	ErrInvalidInput = errors.New("marketplace.invalid_input")
	errNilRequester = errors.New("marketplace.nil_requester")
)

// Requester is the subset of the authenticated API client the services depend on.
type Requester interface {
	Get(ctx context.Context, rawURL string, target any) error
	Post(ctx context.Context, rawURL string, body any, target any) error
	Put(ctx context.Context, rawURL string, body any, target any) error
	Patch(ctx context.Context, rawURL string, body any, target any) error
	Delete(ctx context.Context, rawURL string, target any) error
}

// Services bundles every marketplace resource service around one requester.
type Services struct {
	Products *Products
	Cart     *CartService
	Orders   *Orders
	Users    *Users
	Supplier *Supplier
	Admin    *Admin
}

// NewServices wires all resource services to the same requester.
func NewServices(requester Requester) (*Services, error) {
	if requester == nil {
		return nil, errNilRequester
	}
	payloadValidator := validator.New()
	return &Services{
		Products: &Products{requester: requester},
		Cart:     &CartService{requester: requester},
		Orders:   &Orders{requester: requester, validator: payloadValidator},
		Users:    &Users{requester: requester, validator: payloadValidator},
		Supplier: &Supplier{requester: requester, validator: payloadValidator},
		Admin:    &Admin{requester: requester, validator: payloadValidator},
	}, nil
}

// ValidatePayload runs the struct validation applied to outbound payloads.
func ValidatePayload(payload any) error {
	return validatePayload(validator.New(), payload)
}

func validatePayload(payloadValidator *validator.Validate, payload any) error {
	if err := payloadValidator.Struct(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
