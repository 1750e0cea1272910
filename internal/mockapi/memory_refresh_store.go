package mockapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tyemirov/marketclient/pkg/sessionvalidator"
)

// MemoryRefreshTokenStore is an in-memory store for tests and local runs.
type MemoryRefreshTokenStore struct {
	mutex      sync.Mutex
	clock      sessionvalidator.Clock
	byID       map[string]*memoryRecord
	byHash     map[string]string
	sequenceID uint64
}

type memoryRecord struct {
	TokenID         string
	UserID          string
	Hash            string
	ExpiresUnix     int64
	RevokedAtUnix   int64
	PreviousTokenID string
	IssuedAtUnix    int64
}

// NewMemoryRefreshTokenStore creates a new in-memory token store. A nil clock uses wall time.
func NewMemoryRefreshTokenStore(clock sessionvalidator.Clock) *MemoryRefreshTokenStore {
	if clock == nil {
		clock = sessionvalidator.ClockFunc(func() time.Time { return time.Now().UTC() })
	}
	return &MemoryRefreshTokenStore{
		clock:  clock,
		byID:   make(map[string]*memoryRecord),
		byHash: make(map[string]string),
	}
}

// Issue creates a new token, optionally linked to the token it replaces.
func (store *MemoryRefreshTokenStore) Issue(ctx context.Context, userID string, expiresUnix int64, previousTokenID string) (string, string, error) {
	opaque, hashValue, err := generateRefreshOpaque()
	if err != nil {
		return "", "", err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	now := store.clock.Now()
	store.sequenceID++
	tokenID := newRefreshTokenID(now, store.sequenceID)
	store.byID[tokenID] = &memoryRecord{
		TokenID:         tokenID,
		UserID:          userID,
		Hash:            hashValue,
		ExpiresUnix:     expiresUnix,
		PreviousTokenID: previousTokenID,
		IssuedAtUnix:    now.Unix(),
	}
	store.byHash[hashValue] = tokenID
	return tokenID, opaque, nil
}

// Validate checks the opaque token and returns user, token id, and expiry.
func (store *MemoryRefreshTokenStore) Validate(ctx context.Context, tokenOpaque string) (string, string, int64, error) {
	if strings.TrimSpace(tokenOpaque) == "" {
		return "", "", 0, ErrRefreshTokenEmptyOpaque
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	tokenID, ok := store.byHash[hashOpaque(tokenOpaque)]
	if !ok {
		return "", "", 0, ErrRefreshTokenNotFound
	}
	record := store.byID[tokenID]
	if record == nil {
		return "", "", 0, ErrRefreshTokenNotFound
	}
	if record.RevokedAtUnix != 0 {
		return "", "", 0, ErrRefreshTokenRevoked
	}
	if !store.clock.Now().Before(time.Unix(record.ExpiresUnix, 0)) {
		return "", "", 0, ErrRefreshTokenExpired
	}
	return record.UserID, record.TokenID, record.ExpiresUnix, nil
}

// Revoke marks a token as revoked. Revoking twice is not an error.
func (store *MemoryRefreshTokenStore) Revoke(ctx context.Context, tokenID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record := store.byID[tokenID]
	if record == nil {
		return ErrRefreshTokenNotFound
	}
	if record.RevokedAtUnix == 0 {
		record.RevokedAtUnix = store.clock.Now().Unix()
	}
	return nil
}
