package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tyemirov/marketclient/pkg/tokenstore"
	"go.uber.org/zap"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:3000/api"

var (
	errNilTokenStore  = errors.New("apiclient.new.nil_token_store")
	errInvalidBaseURL = errors.New("apiclient.new.invalid_base_url")
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    MetricsRecorder
	Navigator  Navigator
}

// RequestOptions describes one call. The zero value is a GET that may be retried after a refresh.
type RequestOptions struct {
	Method  string
	Headers http.Header
	// Body is JSON-encoded unless it is already []byte or json.RawMessage.
	Body any
	// NoRetry disables the refresh-and-retry path for a 401.
	NoRetry bool
}

// Client is the single entry point for outbound marketplace calls.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      *tokenstore.Store
	coordinator *RefreshCoordinator
	logger      *zap.Logger
	metrics     MetricsRecorder
	navigator   Navigator
}

type requestDescriptor struct {
	method  string
	url     string
	headers http.Header
	body    []byte
}

// New constructs a Client bound to a token store.
func New(configuration Config, tokens *tokenstore.Store) (*Client, error) {
	if tokens == nil {
		return nil, errNilTokenStore
	}
	baseURL := strings.TrimSpace(configuration.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, parseErr := url.Parse(baseURL)
	if parseErr != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBaseURL, baseURL)
	}
	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := configuration.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	navigator := configuration.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func(context.Context) {})
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
		metrics:    metrics,
		navigator:  navigator,
	}
	client.coordinator = NewRefreshCoordinator(client.refreshAccessToken, client.currentAccessToken, metrics)
	return client, nil
}

// Tokens exposes the token store backing the client.
func (client *Client) Tokens() *tokenstore.Store {
	return client.tokens
}

// Coordinator exposes the refresh coordinator shared by all calls on this client.
func (client *Client) Coordinator() *RefreshCoordinator {
	return client.coordinator
}

// BaseURL returns the normalized base URL.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// Request performs an authorized call and decodes a JSON response into target.
// target may be nil when the caller does not need the body.
func (client *Client) Request(ctx context.Context, rawURL string, options RequestOptions, target any) error {
	descriptor, err := client.newDescriptor(rawURL, options)
	if err != nil {
		return err
	}
	accessToken := client.currentAccessToken(ctx)

	response, err := client.send(ctx, descriptor, accessToken)
	if err != nil {
		return err
	}
	if response.StatusCode == http.StatusUnauthorized && !options.NoRetry {
		discardBody(response)
		client.metrics.Increment(MetricRequestUnauthorized)

		freshToken, refreshErr := client.coordinator.Refresh(ctx, accessToken)
		if refreshErr != nil {
			return refreshErr
		}
		client.metrics.Increment(MetricRequestRetried)
		response, err = client.send(ctx, descriptor, freshToken)
		if err != nil {
			return err
		}
	}
	return client.decodeResponse(descriptor, response, target)
}

// Get issues a GET request.
func (client *Client) Get(ctx context.Context, rawURL string, target any) error {
	return client.Request(ctx, rawURL, RequestOptions{Method: http.MethodGet}, target)
}

// Post issues a POST request with a JSON body.
func (client *Client) Post(ctx context.Context, rawURL string, body any, target any) error {
	return client.Request(ctx, rawURL, RequestOptions{Method: http.MethodPost, Body: body}, target)
}

// Put issues a PUT request with a JSON body.
func (client *Client) Put(ctx context.Context, rawURL string, body any, target any) error {
	return client.Request(ctx, rawURL, RequestOptions{Method: http.MethodPut, Body: body}, target)
}

// Patch issues a PATCH request with a JSON body.
func (client *Client) Patch(ctx context.Context, rawURL string, body any, target any) error {
	return client.Request(ctx, rawURL, RequestOptions{Method: http.MethodPatch, Body: body}, target)
}

// Delete issues a DELETE request.
func (client *Client) Delete(ctx context.Context, rawURL string, target any) error {
	return client.Request(ctx, rawURL, RequestOptions{Method: http.MethodDelete}, target)
}

func (client *Client) newDescriptor(rawURL string, options RequestOptions) (requestDescriptor, error) {
	method := strings.ToUpper(strings.TrimSpace(options.Method))
	if method == "" {
		method = http.MethodGet
	}
	body, err := encodeBody(options.Body)
	if err != nil {
		return requestDescriptor{}, err
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	return requestDescriptor{
		method:  method,
		url:     client.resolveURL(rawURL),
		headers: mergeHeaders(headers, options.Headers),
		body:    body,
	}, nil
}

func (client *Client) resolveURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return client.baseURL + "/" + strings.TrimLeft(trimmed, "/")
}

func (client *Client) send(ctx context.Context, descriptor requestDescriptor, accessToken string) (*http.Response, error) {
	var bodyReader io.Reader
	if descriptor.body != nil {
		bodyReader = bytes.NewReader(descriptor.body)
	}
	request, err := http.NewRequestWithContext(ctx, descriptor.method, descriptor.url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}
	// caller headers override the defaults, including Authorization
	for key, values := range descriptor.headers {
		request.Header[key] = append([]string(nil), values...)
	}

	startTime := time.Now()
	response, err := client.httpClient.Do(request)
	client.metrics.Increment(MetricRequestSent)
	if err != nil {
		client.logger.Warn("request failed",
			zap.String("code", "apiclient.transport"),
			zap.String("method", descriptor.method),
			zap.String("url", descriptor.url),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, descriptor.method, descriptor.url, err)
	}
	client.logger.Debug("request",
		zap.String("method", descriptor.method),
		zap.String("url", descriptor.url),
		zap.Int("status", response.StatusCode),
		zap.Duration("elapsed", time.Since(startTime)))
	return response, nil
}

func (client *Client) decodeResponse(descriptor requestDescriptor, response *http.Response, target any) error {
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
		return &HTTPStatusError{
			StatusCode: response.StatusCode,
			Method:     descriptor.method,
			URL:        descriptor.url,
			Body:       body,
		}
	}
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	if target == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err = json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, descriptor.method, descriptor.url, err)
	}
	return nil
}

func (client *Client) currentAccessToken(ctx context.Context) string {
	accessToken, _, err := client.tokens.AccessToken(ctx)
	if err != nil {
		client.logger.Warn("token store read failed",
			zap.String("code", "apiclient.token_store.read"),
			zap.Error(err))
		return ""
	}
	return accessToken
}

func encodeBody(body any) ([]byte, error) {
	switch typed := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return typed, nil
	case json.RawMessage:
		return typed, nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body: %w", ErrInvalidRequest, err)
		}
		return encoded, nil
	}
}

func mergeHeaders(defaults http.Header, overrides http.Header) http.Header {
	merged := defaults.Clone()
	for key, values := range overrides {
		canonical := http.CanonicalHeaderKey(key)
		merged[canonical] = append([]string(nil), values...)
	}
	return merged
}

func discardBody(response *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxErrorBodyBytes))
	_ = response.Body.Close()
}
