package mockapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tyemirov/marketclient/pkg/sessionvalidator"
)

// DefaultIssuer is the JWT issuer used when Config.Issuer is empty.
const DefaultIssuer = "marketclient-mock"

var (
	errMissingSigningKey = errors.New("mockapi.config.missing_signing_key")
	errInvalidAccessTTL  = errors.New("mockapi.config.invalid_access_ttl")
	errInvalidRefreshTTL = errors.New("mockapi.config.invalid_refresh_ttl")
	errMissingDependency = errors.New("mockapi.config.missing_dependency")
)

// ServerConfig configures token issuance for the fake marketplace.
type ServerConfig struct {
	SigningKey      []byte
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AllowedOrigins  []string
	Clock           sessionvalidator.Clock
}

func (configuration ServerConfig) normalized() (ServerConfig, error) {
	if len(configuration.SigningKey) == 0 {
		return ServerConfig{}, fmt.Errorf("mockapi.config: %w", errMissingSigningKey)
	}
	if configuration.AccessTokenTTL <= 0 {
		return ServerConfig{}, fmt.Errorf("mockapi.config: %w", errInvalidAccessTTL)
	}
	if configuration.RefreshTokenTTL <= 0 {
		return ServerConfig{}, fmt.Errorf("mockapi.config: %w", errInvalidRefreshTTL)
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		configuration.Issuer = DefaultIssuer
	}
	if configuration.Clock == nil {
		configuration.Clock = sessionvalidator.ClockFunc(func() time.Time { return time.Now().UTC() })
	}
	return configuration, nil
}

// ManualClock is a settable clock for tests and demos that need to expire tokens.
type ManualClock struct {
	mutex   sync.Mutex
	current time.Time
}

// NewManualClock starts a clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{current: start.UTC()}
}

// Now returns the current manual time.
func (clock *ManualClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

// Advance moves the clock forward.
func (clock *ManualClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(duration)
}
