package marketplace

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tyemirov/marketclient/pkg/apiclient"
)

// Users reads and edits the signed-in account.
type Users struct {
	requester Requester
	validator *validator.Validate
}

func (service *Users) Profile(ctx context.Context) (UserProfile, error) {
	var profile UserProfile
	if err := service.requester.Get(ctx, apiclient.PathUserProfile, &profile); err != nil {
		return UserProfile{}, fmt.Errorf("marketplace.users.profile: %w", err)
	}
	return profile, nil
}

func (service *Users) UpdateProfile(ctx context.Context, update ProfileUpdate) (UserProfile, error) {
	if err := validatePayload(service.validator, update); err != nil {
		return UserProfile{}, err
	}
	var profile UserProfile
	if err := service.requester.Put(ctx, apiclient.PathUserProfile, update, &profile); err != nil {
		return UserProfile{}, fmt.Errorf("marketplace.users.update_profile: %w", err)
	}
	return profile, nil
}

// Recommendations returns the products suggested on the home view.
func (service *Users) Recommendations(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := service.requester.Get(ctx, apiclient.PathUserRecommendations, &products); err != nil {
		return nil, fmt.Errorf("marketplace.users.recommendations: %w", err)
	}
	return products, nil
}
