package mockapi

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestRefreshTokenStores(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		build func(t *testing.T, clock *ManualClock) RefreshTokenStore
	}{
		{
			name: "memory",
			build: func(t *testing.T, clock *ManualClock) RefreshTokenStore {
				return NewMemoryRefreshTokenStore(clock)
			},
		},
		{
			name: "sqlite",
			build: func(t *testing.T, clock *ManualClock) RefreshTokenStore {
				store, err := NewDatabaseRefreshTokenStore(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "refresh.db"), clock)
				if err != nil {
					t.Fatalf("sqlite store: %v", err)
				}
				if store.Driver() != "sqlite" {
					t.Fatalf("expected sqlite driver, got %s", store.Driver())
				}
				t.Cleanup(func() {
					if closeErr := store.Close(); closeErr != nil {
						t.Errorf("close sqlite store: %v", closeErr)
					}
				})
				return store
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			clock := NewManualClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
			store := testCase.build(t, clock)
			expiresUnix := clock.Now().Add(time.Hour).Unix()

			tokenID, opaque, err := store.Issue(ctx, "user-1", expiresUnix, "")
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			if tokenID == "" || opaque == "" {
				t.Fatalf("expected identifiers, got %q %q", tokenID, opaque)
			}

			userID, validatedID, validatedExpiry, err := store.Validate(ctx, opaque)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if userID != "user-1" || validatedID != tokenID || validatedExpiry != expiresUnix {
				t.Fatalf("unexpected validation result %s %s %d", userID, validatedID, validatedExpiry)
			}

			if _, _, _, err = store.Validate(ctx, "unknown"); !errors.Is(err, ErrRefreshTokenNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
			if _, _, _, err = store.Validate(ctx, " "); !errors.Is(err, ErrRefreshTokenEmptyOpaque) {
				t.Fatalf("expected empty opaque error, got %v", err)
			}

			if err = store.Revoke(ctx, tokenID); err != nil {
				t.Fatalf("revoke: %v", err)
			}
			if err = store.Revoke(ctx, tokenID); err != nil {
				t.Fatalf("second revoke should be a no-op, got %v", err)
			}
			if _, _, _, err = store.Validate(ctx, opaque); !errors.Is(err, ErrRefreshTokenRevoked) {
				t.Fatalf("expected revoked, got %v", err)
			}
			if err = store.Revoke(ctx, "missing"); !errors.Is(err, ErrRefreshTokenNotFound) {
				t.Fatalf("expected not found on unknown revoke, got %v", err)
			}

			_, rotated, err := store.Issue(ctx, "user-1", expiresUnix, tokenID)
			if err != nil {
				t.Fatalf("issue rotated: %v", err)
			}
			clock.Advance(time.Hour)
			if _, _, _, err = store.Validate(ctx, rotated); !errors.Is(err, ErrRefreshTokenExpired) {
				t.Fatalf("expected expired at the expiry instant, got %v", err)
			}
		})
	}
}
