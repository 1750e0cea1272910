package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tyemirov/marketclient/internal/marketplace"
	"github.com/tyemirov/marketclient/pkg/apiclient"
	"github.com/tyemirov/marketclient/pkg/tokenstore"
	"go.uber.org/zap"
)

// session is what a client command needs: configuration, a logger, and the authenticated client.
type session struct {
	configuration ClientConfig
	logger        *zap.Logger
	tokens        *tokenstore.Store
	client        *apiclient.Client
	services      *marketplace.Services
}

func openSession(command *cobra.Command) (*session, error) {
	configuration, err := LoadClientConfig()
	if err != nil {
		return nil, err
	}
	logger, err := buildLogger(configuration.LogLevel)
	if err != nil {
		return nil, err
	}
	tokens, err := tokenstore.Open(command.Context(), configuration.TokenStore)
	if err != nil {
		return nil, err
	}
	client, err := apiclient.New(apiclient.Config{
		BaseURL:   configuration.BaseURL,
		Logger:    logger,
		Navigator: loginHint(command.ErrOrStderr()),
	}, tokens)
	if err != nil {
		return nil, err
	}
	services, err := marketplace.NewServices(client)
	if err != nil {
		return nil, err
	}
	return &session{
		configuration: configuration,
		logger:        logger,
		tokens:        tokens,
		client:        client,
		services:      services,
	}, nil
}

func (current *session) close() {
	if err := current.tokens.Close(); err != nil {
		current.logger.Warn("token store close failed",
			zap.String("code", "marketctl.token_store.close"),
			zap.Error(err))
	}
	_ = current.logger.Sync()
}

// loginHint is the CLI's "navigate to login" side effect.
func loginHint(writer io.Writer) apiclient.Navigator {
	return apiclient.NavigatorFunc(func(context.Context) {
		fmt.Fprintln(writer, "session ended; run `marketctl login` to sign in again")
	})
}

// landingView is the page a role lands on after login.
func landingView(role string) string {
	switch role {
	case tokenstore.RoleSupplier:
		return "/supplier/dashboard"
	case tokenstore.RoleAdmin:
		return "/admin/dashboard"
	default:
		return "/home"
	}
}
