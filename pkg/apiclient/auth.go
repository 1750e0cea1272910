package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tyemirov/marketclient/pkg/tokenstore"
	"go.uber.org/zap"
)

var errMissingCredentials = errors.New("apiclient.login.missing_credentials")

// Navigator performs the "go to the login view" side effect of a logout.
type Navigator interface {
	NavigateToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

// NavigateToLogin calls the function.
func (navigate NavigatorFunc) NavigateToLogin(ctx context.Context) {
	navigate(ctx)
}

// Credentials identify a customer, supplier, or admin at login.
type Credentials struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// Registration creates a new customer account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by the login, register, and refresh endpoints.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	Role         string `json:"role,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for a token pair and records the role tag.
// Suppliers authenticate against the supplier login endpoint; everyone else uses the shared one.
func (client *Client) Login(ctx context.Context, credentials Credentials, role string) (TokenResponse, error) {
	if strings.TrimSpace(credentials.UserID) == "" || credentials.Password == "" {
		return TokenResponse{}, errMissingCredentials
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = tokenstore.RoleCustomer
	}
	endpoint := PathAuthLogin
	if role == tokenstore.RoleSupplier {
		endpoint = PathSupplierLogin
	}

	var response TokenResponse
	if err := client.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: credentials, NoRetry: true}, &response); err != nil {
		return TokenResponse{}, fmt.Errorf("apiclient.login: %w", err)
	}
	if response.Role != "" {
		role = response.Role
	}
	if err := client.establishSession(ctx, response, role); err != nil {
		return TokenResponse{}, err
	}
	client.logger.Info("logged in", zap.String("role", role))
	return response, nil
}

// Register creates an account. When the server answers with a token pair the new session is stored.
func (client *Client) Register(ctx context.Context, registration Registration) (TokenResponse, error) {
	var response TokenResponse
	if err := client.Request(ctx, PathAuthRegister, RequestOptions{Method: http.MethodPost, Body: registration, NoRetry: true}, &response); err != nil {
		return TokenResponse{}, fmt.Errorf("apiclient.register: %w", err)
	}
	if response.AccessToken == "" && response.RefreshToken == "" {
		return response, nil
	}
	role := response.Role
	if role == "" {
		role = tokenstore.RoleCustomer
	}
	if err := client.establishSession(ctx, response, role); err != nil {
		return TokenResponse{}, err
	}
	return response, nil
}

// Logout notifies the server, then clears local tokens and navigates to login.
// The server notification is best effort; local cleanup always runs.
func (client *Client) Logout(ctx context.Context) error {
	client.metrics.Increment(MetricLogout)
	accessToken := client.currentAccessToken(ctx)
	descriptor := requestDescriptor{
		method:  http.MethodPost,
		url:     client.resolveURL(PathAuthLogout),
		headers: http.Header{"Content-Type": []string{"application/json"}},
	}
	if refreshToken, found, lookupErr := client.tokens.RefreshToken(ctx); lookupErr == nil && found {
		descriptor.body, _ = json.Marshal(refreshRequest{RefreshToken: refreshToken})
	}

	response, err := client.send(ctx, descriptor, accessToken)
	if err != nil {
		client.logger.Warn("logout notification failed",
			zap.String("code", "apiclient.logout.notify"),
			zap.Error(err))
	} else {
		if response.StatusCode >= 300 {
			client.logger.Warn("logout notification rejected",
				zap.String("code", "apiclient.logout.rejected"),
				zap.Int("status", response.StatusCode))
		}
		discardBody(response)
	}

	clearErr := client.tokens.ClearTokens(ctx)
	client.navigator.NavigateToLogin(ctx)
	if clearErr != nil {
		return fmt.Errorf("apiclient.logout: %w", clearErr)
	}
	return nil
}

func (client *Client) establishSession(ctx context.Context, response TokenResponse, role string) error {
	pair := tokenstore.TokenPair{AccessToken: response.AccessToken, RefreshToken: response.RefreshToken}
	if err := client.tokens.StoreTokens(ctx, pair); err != nil {
		return fmt.Errorf("apiclient.session: %w", err)
	}
	if err := client.tokens.SetRole(ctx, role); err != nil {
		return fmt.Errorf("apiclient.session: %w", err)
	}
	return nil
}

// refreshAccessToken is the coordinator's RefreshFunc. Any failure logs the user out.
func (client *Client) refreshAccessToken(ctx context.Context) (string, error) {
	accessToken, err := client.exchangeRefreshToken(ctx)
	if err == nil {
		return accessToken, nil
	}
	client.logger.Warn("token refresh failed",
		zap.String("code", "apiclient.refresh.failed"),
		zap.Error(err))
	if logoutErr := client.Logout(ctx); logoutErr != nil {
		client.logger.Error("logout after failed refresh",
			zap.String("code", "apiclient.refresh.logout"),
			zap.Error(logoutErr))
	}
	return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
}

func (client *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken, found, err := client.tokens.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errMissingRefreshToken
	}
	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}
	descriptor := requestDescriptor{
		method:  http.MethodPost,
		url:     client.resolveURL(PathAuthRefresh),
		headers: http.Header{"Content-Type": []string{"application/json"}},
		body:    payload,
	}
	response, err := client.send(ctx, descriptor, "")
	if err != nil {
		return "", err
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
		return "", &HTTPStatusError{StatusCode: response.StatusCode, Method: descriptor.method, URL: descriptor.url, Body: body}
	}

	var tokens TokenResponse
	decoder := json.NewDecoder(io.LimitReader(response.Body, 1<<20))
	if err = decoder.Decode(&tokens); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return "", errEmptyAccessToken
	}
	if strings.TrimSpace(tokens.RefreshToken) == "" {
		tokens.RefreshToken = refreshToken
	}
	if err = client.tokens.StoreTokens(ctx, tokenstore.TokenPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}); err != nil {
		return "", err
	}
	client.logger.Debug("access token refreshed", zap.String("token_type", tokens.TokenType))
	return tokens.AccessToken, nil
}
