package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	configCodeInvalidClientConfig = "config.invalid_client_config"
	configCodeInvalidMockConfig   = "config.invalid_mock_server_config"
	configCodeMissingSigningKey   = "config.missing_jwt_signing_key"
	configCodeTokenStorePath      = "config.token_store_path"
)

// ClientConfig drives every command that talks to the marketplace API.
type ClientConfig struct {
	BaseURL    string `validate:"required,url"`
	TokenStore string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`
}

// MockServerConfig drives serve-mock.
type MockServerConfig struct {
	ListenAddr         string        `validate:"required"`
	SigningKey         string        `validate:"required"`
	AccessTokenTTL     time.Duration `validate:"gt=0"`
	RefreshTokenTTL    time.Duration `validate:"gt=0"`
	DatabaseURL        string
	DemoPassword       string `validate:"required,min=8"`
	CORSAllowedOrigins []string
	LogLevel           string `validate:"oneof=debug info warn error"`
}

var configValidator = validator.New()

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadClientConfig reads the client settings from flags and APP_* variables.
// An empty token_store resolves to a JSON file under the user config directory.
func LoadClientConfig() (ClientConfig, error) {
	tokenStore := strings.TrimSpace(viper.GetString("token_store"))
	if tokenStore == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, configError(configCodeTokenStorePath, err.Error())
		}
		tokenStore = filepath.Join(configDir, "marketctl", "tokens.json")
	}
	configuration := ClientConfig{
		BaseURL:    strings.TrimSpace(viper.GetString("base_url")),
		TokenStore: tokenStore,
		LogLevel:   strings.ToLower(strings.TrimSpace(viper.GetString("log_level"))),
	}
	if err := configValidator.Struct(configuration); err != nil {
		return ClientConfig{}, configError(configCodeInvalidClientConfig, err.Error())
	}
	return configuration, nil
}

// LoadMockServerConfig reads the serve-mock settings.
func LoadMockServerConfig() (MockServerConfig, error) {
	signingKey := viper.GetString("jwt_signing_key")
	if signingKey == "" {
		return MockServerConfig{}, configError(configCodeMissingSigningKey, "jwt_signing_key must be provided")
	}
	configuration := MockServerConfig{
		ListenAddr:         viper.GetString("listen_addr"),
		SigningKey:         signingKey,
		AccessTokenTTL:     viper.GetDuration("access_ttl"),
		RefreshTokenTTL:    viper.GetDuration("refresh_ttl"),
		DatabaseURL:        strings.TrimSpace(viper.GetString("database_url")),
		DemoPassword:       viper.GetString("demo_password"),
		CORSAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
		LogLevel:           strings.ToLower(strings.TrimSpace(viper.GetString("log_level"))),
	}
	if err := configValidator.Struct(configuration); err != nil {
		return MockServerConfig{}, configError(configCodeInvalidMockConfig, err.Error())
	}
	return configuration, nil
}
