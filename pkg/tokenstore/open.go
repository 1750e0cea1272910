package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme indicates a locator whose scheme matches no backend.
var ErrUnsupportedScheme = errors.New("tokenstore.unsupported_scheme")

// Open builds a Store from a locator:
//
//	memory://                    in-process only
//	file:///home/me/tokens.json  JSON file (a bare path works too)
//	sqlite://tokens.db           GORM sqlite
//	postgres://user@host/db      GORM postgres
//	redis://localhost:6379/0     Redis hash
func Open(ctx context.Context, locator string) (*Store, error) {
	backend, err := OpenBackend(ctx, locator)
	if err != nil {
		return nil, err
	}
	return New(backend)
}

// OpenBackend resolves the KeyValueStore for a locator without wrapping it.
func OpenBackend(ctx context.Context, locator string) (KeyValueStore, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" || trimmed == "memory://" || trimmed == "memory" {
		return NewMemoryKeyValueStore(), nil
	}
	if !strings.Contains(trimmed, "://") {
		return NewFileKeyValueStore(trimmed)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("tokenstore.open.parse: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "memory":
		return NewMemoryKeyValueStore(), nil
	case "file":
		path := parsed.Path
		if parsed.Host != "" {
			path = parsed.Host + path
		}
		return NewFileKeyValueStore(path)
	case "sqlite", "sqlite3", "postgres", "postgresql":
		return NewDatabaseKeyValueStore(ctx, trimmed)
	case "redis", "rediss":
		client, connectErr := ConnectRedis(ctx, trimmed)
		if connectErr != nil {
			return nil, connectErr
		}
		return NewRedisKeyValueStore(client, ""), nil
	default:
		return nil, fmt.Errorf("tokenstore.open.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedScheme)
	}
}
