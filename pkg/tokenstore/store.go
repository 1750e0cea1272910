package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Persistence keys shared by every backend.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
	RoleKey         = "userType"
)

// Roles understood by the marketplace front ends.
const (
	RoleCustomer = "customer"
	RoleSupplier = "supplier"
	RoleAdmin    = "admin"
)

var (
	// ErrPartialPair indicates a token pair with only one of its tokens set.
	ErrPartialPair = errors.New("tokenstore.partial_pair")
	// ErrNilBackend indicates New was called without a KeyValueStore.
	ErrNilBackend = errors.New("tokenstore.nil_backend")
)

// TokenPair holds the access and refresh token issued together by the auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present.
func (pair TokenPair) Complete() bool {
	return strings.TrimSpace(pair.AccessToken) != "" && strings.TrimSpace(pair.RefreshToken) != ""
}

// KeyValueStore is the durable medium behind a Store.
// Remove must not fail when the key is already absent.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Store persists the client's token pair and role tag.
type Store struct {
	backend KeyValueStore
}

// New wraps a KeyValueStore.
func New(backend KeyValueStore) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	return &Store{backend: backend}, nil
}

// StoreTokens persists both tokens, overwriting any existing pair.
// When either write fails, both keys are removed so no partial or mixed pair remains.
func (store *Store) StoreTokens(ctx context.Context, pair TokenPair) error {
	if !pair.Complete() {
		return fmt.Errorf("tokenstore.store_tokens: %w", ErrPartialPair)
	}
	if err := store.backend.Set(ctx, AccessTokenKey, pair.AccessToken); err != nil {
		return errors.Join(fmt.Errorf("tokenstore.store_tokens.access: %w", err), store.removeKeys(ctx, AccessTokenKey, RefreshTokenKey))
	}
	if err := store.backend.Set(ctx, RefreshTokenKey, pair.RefreshToken); err != nil {
		return errors.Join(fmt.Errorf("tokenstore.store_tokens.refresh: %w", err), store.removeKeys(ctx, AccessTokenKey, RefreshTokenKey))
	}
	return nil
}

// AccessToken returns the stored access token.
func (store *Store) AccessToken(ctx context.Context) (string, bool, error) {
	return store.lookup(ctx, AccessTokenKey)
}

// RefreshToken returns the stored refresh token.
func (store *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	return store.lookup(ctx, RefreshTokenKey)
}

// SetRole records the role of the authenticated principal.
func (store *Store) SetRole(ctx context.Context, role string) error {
	if err := store.backend.Set(ctx, RoleKey, role); err != nil {
		return fmt.Errorf("tokenstore.set_role: %w", err)
	}
	return nil
}

// Role returns the stored role tag.
func (store *Store) Role(ctx context.Context) (string, bool, error) {
	return store.lookup(ctx, RoleKey)
}

// ClearTokens removes both tokens and the role tag. Clearing an empty store is not an error.
// Every key is attempted even when an earlier removal fails.
func (store *Store) ClearTokens(ctx context.Context) error {
	return store.removeKeys(ctx, AccessTokenKey, RefreshTokenKey, RoleKey)
}

// Close releases the backend's connections when it holds any.
func (store *Store) Close() error {
	if closer, ok := store.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (store *Store) removeKeys(ctx context.Context, keys ...string) error {
	var removeErrs []error
	for _, key := range keys {
		if err := store.backend.Remove(ctx, key); err != nil {
			removeErrs = append(removeErrs, fmt.Errorf("tokenstore.clear.%s: %w", key, err))
		}
	}
	return errors.Join(removeErrs...)
}

// IsAuthenticated reports whether an access token is present. Expiry is not checked.
func (store *Store) IsAuthenticated(ctx context.Context) bool {
	_, found, err := store.AccessToken(ctx)
	return err == nil && found
}

func (store *Store) lookup(ctx context.Context, key string) (string, bool, error) {
	value, found, err := store.backend.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("tokenstore.get.%s: %w", key, err)
	}
	if !found || value == "" {
		return "", false, nil
	}
	return value, true, nil
}
