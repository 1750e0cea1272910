package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/marketclient/internal/mockapi"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

const configCodeUninitializedMockConfig = "config.uninitialized_mock_server_config"

type contextKey string

const mockServerConfigContextKey contextKey = "mockServerConfig"

func newServeMockCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "serve-mock",
		Short:   "Run a local marketplace API with demo accounts and rotating refresh tokens",
		Args:    cobra.NoArgs,
		PreRunE: prepareMockServerConfig,
		RunE:    runMockServer,
	}

	command.Flags().String("listen_addr", ":3000", "HTTP listen address")
	command.Flags().String("jwt_signing_key", "", "HS256 signing secret for access tokens")
	command.Flags().Duration("access_ttl", 15*time.Minute, "Access token TTL")
	command.Flags().Duration("refresh_ttl", 7*24*time.Hour, "Refresh token TTL")
	command.Flags().String("database_url", "", "Database URL for refresh tokens (postgres:// or sqlite://; leave empty for in-memory store)")
	command.Flags().String("demo_password", "password123", "Password of the seeded customer, supplier, and admin accounts")
	command.Flags().StringSlice("cors_allowed_origins", []string{}, "Origins allowed to call the API from a browser")

	_ = viper.BindPFlag("listen_addr", command.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("jwt_signing_key", command.Flags().Lookup("jwt_signing_key"))
	_ = viper.BindPFlag("access_ttl", command.Flags().Lookup("access_ttl"))
	_ = viper.BindPFlag("refresh_ttl", command.Flags().Lookup("refresh_ttl"))
	_ = viper.BindPFlag("database_url", command.Flags().Lookup("database_url"))
	_ = viper.BindPFlag("demo_password", command.Flags().Lookup("demo_password"))
	_ = viper.BindPFlag("cors_allowed_origins", command.Flags().Lookup("cors_allowed_origins"))

	return command
}

func prepareMockServerConfig(command *cobra.Command, arguments []string) error {
	configuration, err := LoadMockServerConfig()
	if err != nil {
		return err
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, mockServerConfigContextKey, configuration))
	return nil
}

func runMockServer(command *cobra.Command, arguments []string) error {
	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(mockServerConfigContextKey)
	}
	configuration, ok := contextValue.(MockServerConfig)
	if !ok {
		return configError(configCodeUninitializedMockConfig, "mock server configuration not prepared; PreRunE must execute before RunE")
	}

	logger, err := buildLogger(configuration.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	serverConfig := mockapi.ServerConfig{
		SigningKey:      []byte(configuration.SigningKey),
		AccessTokenTTL:  configuration.AccessTokenTTL,
		RefreshTokenTTL: configuration.RefreshTokenTTL,
		AllowedOrigins:  configuration.CORSAllowedOrigins,
	}
	dependencies, err := mockapi.NewDemoDependencies(serverConfig, configuration.DemoPassword, 0, logger)
	if err != nil {
		return err
	}
	if configuration.DatabaseURL != "" {
		persistentStore, storeErr := mockapi.NewDatabaseRefreshTokenStore(commandContext, configuration.DatabaseURL, nil)
		if storeErr != nil {
			return storeErr
		}
		defer func() {
			if closeErr := persistentStore.Close(); closeErr != nil {
				logger.Warn("refresh token store close failed", zap.Error(closeErr))
			}
		}()
		dependencies.RefreshTokens = persistentStore
		logger.Info("using persistent refresh token store", zap.String("driver", persistentStore.Driver()))
	} else {
		logger.Info("using in-memory refresh token store")
	}

	server, err := mockapi.NewServer(serverConfig, dependencies)
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)
	router, err := mockapi.NewRouter(server)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              configuration.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopSignals)
		select {
		case <-stopSignals:
		case <-shutdownCtx.Done():
			return
		}
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if shutdownErr := httpServer.Shutdown(graceCtx); shutdownErr != nil {
			logger.Error("server shutdown error", zap.Error(shutdownErr))
		}
	}()

	logger.Info("listening", zap.String("addr", configuration.ListenAddr))
	if err := serveHTTP(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}
