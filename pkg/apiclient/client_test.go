package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/marketclient/pkg/tokenstore"
	"go.uber.org/zap/zaptest"
)

type clientHarness struct {
	client      *Client
	tokens      *tokenstore.Store
	metrics     *CounterMetrics
	navigations atomic.Int32
}

func newHarness(t *testing.T, baseURL string, pair *tokenstore.TokenPair) *clientHarness {
	t.Helper()
	tokens, err := tokenstore.New(tokenstore.NewMemoryKeyValueStore())
	if err != nil {
		t.Fatalf("token store: %v", err)
	}
	if pair != nil {
		if err := tokens.StoreTokens(context.Background(), *pair); err != nil {
			t.Fatalf("seed tokens: %v", err)
		}
		if err := tokens.SetRole(context.Background(), tokenstore.RoleCustomer); err != nil {
			t.Fatalf("seed role: %v", err)
		}
	}
	harness := &clientHarness{tokens: tokens, metrics: NewCounterMetrics()}
	client, err := New(Config{
		BaseURL: baseURL,
		Logger:  zaptest.NewLogger(t),
		Metrics: harness.metrics,
		Navigator: NavigatorFunc(func(context.Context) {
			harness.navigations.Add(1)
		}),
	}, tokens)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	harness.client = client
	return harness
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func bearer(contextGin *gin.Context) string {
	return strings.TrimPrefix(contextGin.GetHeader("Authorization"), "Bearer ")
}

func TestNewValidatesConfiguration(t *testing.T) {
	t.Parallel()
	tokens, _ := tokenstore.New(tokenstore.NewMemoryKeyValueStore())

	if _, err := New(Config{}, nil); !errors.Is(err, errNilTokenStore) {
		t.Fatalf("expected nil token store error, got %v", err)
	}
	if _, err := New(Config{BaseURL: "not a url"}, tokens); !errors.Is(err, errInvalidBaseURL) {
		t.Fatalf("expected invalid base url error, got %v", err)
	}
	client, err := New(Config{}, tokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL() != DefaultBaseURL {
		t.Fatalf("expected default base url, got %s", client.BaseURL())
	}
}

func TestRequestMergesHeadersAndDecodes(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var captured http.Header
	router.GET("/api/products/:id", func(contextGin *gin.Context) {
		captured = contextGin.Request.Header.Clone()
		contextGin.JSON(http.StatusOK, gin.H{"id": contextGin.Param("id"), "name": "Smart Watch Pro"})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL+"/api/", &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})

	var product struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := harness.client.Request(context.Background(), PathProduct("2"), RequestOptions{
		Headers: http.Header{"x-client": []string{"marketctl"}, "Content-Type": []string{"application/vnd.market+json"}},
	}, &product)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if product.ID != "2" || product.Name != "Smart Watch Pro" {
		t.Fatalf("unexpected product: %+v", product)
	}
	if captured.Get("Authorization") != "Bearer A1" {
		t.Fatalf("expected bearer header, got %q", captured.Get("Authorization"))
	}
	if captured.Get("Content-Type") != "application/vnd.market+json" {
		t.Fatalf("caller content type must win, got %q", captured.Get("Content-Type"))
	}
	if captured.Get("X-Client") != "marketctl" {
		t.Fatalf("expected caller header, got %q", captured.Get("X-Client"))
	}
}

func TestRequestWithoutTokenOmitsAuthorization(t *testing.T) {
	t.Parallel()
	router := newRouter()
	router.GET("/products", func(contextGin *gin.Context) {
		if contextGin.GetHeader("Authorization") != "" {
			contextGin.Status(http.StatusBadRequest)
			return
		}
		if contextGin.GetHeader("Content-Type") != "application/json" {
			contextGin.Status(http.StatusUnsupportedMediaType)
			return
		}
		contextGin.JSON(http.StatusOK, []gin.H{{"id": "1"}})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, nil)
	var products []map[string]any
	if err := harness.client.Get(context.Background(), PathProducts, &products); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected one product, got %d", len(products))
	}
}

func TestExpiredAccessTokenIsRefreshedAndRetried(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var refreshBodies []string
	var cartBearers []string
	var mutex sync.Mutex
	router.GET("/cart", func(contextGin *gin.Context) {
		mutex.Lock()
		cartBearers = append(cartBearers, bearer(contextGin))
		mutex.Unlock()
		if bearer(contextGin) != "A2" {
			contextGin.Status(http.StatusUnauthorized)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"items": []any{}})
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		body, _ := io.ReadAll(contextGin.Request.Body)
		mutex.Lock()
		refreshBodies = append(refreshBodies, string(body))
		mutex.Unlock()
		contextGin.JSON(http.StatusOK, gin.H{"accessToken": "A2", "refreshToken": "R2", "tokenType": "Bearer"})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	ctx := context.Background()

	var cart map[string]json.RawMessage
	if err := harness.client.Get(ctx, PathCart, &cart); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if string(cart["items"]) != "[]" {
		t.Fatalf("expected empty items, got %s", cart["items"])
	}
	if len(refreshBodies) != 1 || refreshBodies[0] != `{"refreshToken":"R1"}` {
		t.Fatalf("unexpected refresh calls: %v", refreshBodies)
	}
	if strings.Join(cartBearers, ",") != "A1,A2" {
		t.Fatalf("expected original then retried bearer, got %v", cartBearers)
	}
	accessToken, _, _ := harness.tokens.AccessToken(ctx)
	refreshToken, _, _ := harness.tokens.RefreshToken(ctx)
	if accessToken != "A2" || refreshToken != "R2" {
		t.Fatalf("expected stored A2/R2, got %s/%s", accessToken, refreshToken)
	}
	if harness.navigations.Load() != 0 {
		t.Fatalf("successful refresh must not navigate to login")
	}
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var logoutCalls atomic.Int32
	var logoutBearer atomic.Value
	router.GET("/cart", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusUnauthorized)
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusForbidden, gin.H{"error": "invalid_refresh_token"})
	})
	router.POST("/auth/logout", func(contextGin *gin.Context) {
		logoutCalls.Add(1)
		logoutBearer.Store(bearer(contextGin))
		contextGin.Status(http.StatusInternalServerError)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "bad"})
	ctx := context.Background()

	err := harness.client.Get(ctx, PathCart, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if StatusCode(err) != http.StatusForbidden {
		t.Fatalf("expected the refresh status to be preserved, got %d", StatusCode(err))
	}
	if harness.tokens.IsAuthenticated(ctx) {
		t.Fatalf("expected tokens cleared after failed refresh")
	}
	if _, found, _ := harness.tokens.Role(ctx); found {
		t.Fatalf("expected role cleared after failed refresh")
	}
	if logoutCalls.Load() != 1 {
		t.Fatalf("expected one logout notification, got %d", logoutCalls.Load())
	}
	if logoutBearer.Load() != "A1" {
		t.Fatalf("expected logout to carry the last access token, got %v", logoutBearer.Load())
	}
	if harness.navigations.Load() != 1 {
		t.Fatalf("expected navigation to login, got %d", harness.navigations.Load())
	}
}

func TestLateUnauthorizedAfterFailedRefreshLogsOutOnce(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var refreshCalls atomic.Int32
	var logoutCalls atomic.Int32
	slowArrived := make(chan struct{})
	loggedOut := make(chan struct{})
	var closeLoggedOut sync.Once

	router.GET("/orders", func(contextGin *gin.Context) {
		close(slowArrived)
		select {
		case <-loggedOut:
		case <-time.After(5 * time.Second):
		}
		contextGin.Status(http.StatusUnauthorized)
	})
	router.GET("/cart", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusUnauthorized)
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		refreshCalls.Add(1)
		contextGin.JSON(http.StatusForbidden, gin.H{"error": "invalid_refresh_token"})
	})
	router.POST("/auth/logout", func(contextGin *gin.Context) {
		logoutCalls.Add(1)
		closeLoggedOut.Do(func() { close(loggedOut) })
		contextGin.Status(http.StatusNoContent)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	ctx := context.Background()

	slowResult := make(chan error, 1)
	go func() {
		slowResult <- harness.client.Get(ctx, PathOrders, nil)
	}()
	select {
	case <-slowArrived:
	case <-time.After(5 * time.Second):
		t.Fatalf("slow request never reached the server")
	}

	if err := harness.client.Get(ctx, PathCart, nil); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected fast caller to see ErrSessionExpired, got %v", err)
	}
	if err := <-slowResult; !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected late caller to see ErrSessionExpired, got %v", err)
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("expected one refresh call, got %d", refreshCalls.Load())
	}
	if logoutCalls.Load() != 1 {
		t.Fatalf("expected one logout notification, got %d", logoutCalls.Load())
	}
	if harness.navigations.Load() != 1 {
		t.Fatalf("expected one navigation to login, got %d", harness.navigations.Load())
	}
}

func TestMissingRefreshTokenExpiresSessionWithoutRefreshCall(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var refreshCalls atomic.Int32
	router.GET("/orders", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusUnauthorized)
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		refreshCalls.Add(1)
		contextGin.Status(http.StatusOK)
	})
	router.POST("/auth/logout", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, nil)
	err := harness.client.Get(context.Background(), PathOrders, nil)
	if !errors.Is(err, ErrSessionExpired) || !errors.Is(err, errMissingRefreshToken) {
		t.Fatalf("expected session expired caused by missing refresh token, got %v", err)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("expected no refresh call without a refresh token")
	}
}

func TestConcurrentUnauthorizedCallsShareOneRefresh(t *testing.T) {
	t.Parallel()
	const callers = 8

	router := newRouter()
	var refreshCalls atomic.Int32
	var unauthorized atomic.Int32
	var retriedWithA2 atomic.Int32
	allRejected := make(chan struct{})
	var closeOnce sync.Once

	router.GET("/orders", func(contextGin *gin.Context) {
		if bearer(contextGin) == "A2" {
			retriedWithA2.Add(1)
			contextGin.JSON(http.StatusOK, []gin.H{})
			return
		}
		if unauthorized.Add(1) == callers {
			closeOnce.Do(func() { close(allRejected) })
		}
		contextGin.Status(http.StatusUnauthorized)
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		refreshCalls.Add(1)
		select {
		case <-allRejected:
		case <-time.After(5 * time.Second):
		}
		contextGin.JSON(http.StatusOK, gin.H{"accessToken": "A2", "refreshToken": "R2", "tokenType": "Bearer"})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})

	errs := make([]error, callers)
	var group sync.WaitGroup
	for index := 0; index < callers; index++ {
		group.Add(1)
		go func(slot int) {
			defer group.Done()
			var orders []map[string]any
			errs[slot] = harness.client.Get(context.Background(), PathOrders, &orders)
		}(index)
	}
	group.Wait()

	for index, err := range errs {
		if err != nil {
			t.Fatalf("caller %d failed: %v", index, err)
		}
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", refreshCalls.Load())
	}
	if retriedWithA2.Load() != callers {
		t.Fatalf("expected every caller to retry with A2, got %d", retriedWithA2.Load())
	}
	if retried := harness.metrics.Count(MetricRequestRetried); retried != callers {
		t.Fatalf("expected %d retries, got %d", callers, retried)
	}
}

func TestSecondUnauthorizedAfterRetryFails(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var refreshCalls atomic.Int32
	router.GET("/supplier/dashboard", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusUnauthorized)
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		refreshCalls.Add(1)
		contextGin.JSON(http.StatusOK, gin.H{"accessToken": "A2", "refreshToken": "R2"})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	err := harness.client.Get(context.Background(), PathSupplierDashboard, nil)

	if !IsUnauthorized(err) {
		t.Fatalf("expected HTTP 401 error, got %v", err)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Fatalf("a rejected retry is a status error, not a session expiry")
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("expected a single refresh, got %d", refreshCalls.Load())
	}
	if !harness.tokens.IsAuthenticated(context.Background()) {
		t.Fatalf("a rejected retry must not clear tokens")
	}
}

func TestNoRetrySurfacesUnauthorized(t *testing.T) {
	t.Parallel()
	router := newRouter()
	var refreshCalls atomic.Int32
	router.GET("/cart", func(contextGin *gin.Context) {
		contextGin.String(http.StatusUnauthorized, "expired")
	})
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		refreshCalls.Add(1)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	err := harness.client.Request(context.Background(), PathCart, RequestOptions{NoRetry: true}, nil)

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || string(statusErr.Body) != "expired" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("expected no refresh when retry is disabled")
	}
}

func TestRequestErrorKinds(t *testing.T) {
	t.Parallel()
	router := newRouter()
	router.GET("/missing", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
	router.GET("/garbled", func(contextGin *gin.Context) {
		contextGin.Data(http.StatusOK, "application/json", []byte("{items:"))
	})
	router.GET("/empty", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})
	server := httptest.NewServer(router)

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	ctx := context.Background()
	var target map[string]any

	if err := harness.client.Get(ctx, "/missing", &target); StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if err := harness.client.Get(ctx, "/garbled", &target); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if err := harness.client.Get(ctx, "/empty", &target); err != nil {
		t.Fatalf("expected empty success body to be accepted, got %v", err)
	}

	server.Close()
	if err := harness.client.Get(ctx, "/missing", &target); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport after server shutdown, got %v", err)
	}
	if harness.navigations.Load() != 0 {
		t.Fatalf("non-401 failures must not log out")
	}
}

func TestWrappersSetMethodAndReplayBody(t *testing.T) {
	t.Parallel()
	router := newRouter()
	type call struct {
		method string
		body   string
		token  string
	}
	var calls []call
	var mutex sync.Mutex
	record := func(contextGin *gin.Context) {
		body, _ := io.ReadAll(contextGin.Request.Body)
		mutex.Lock()
		calls = append(calls, call{method: contextGin.Request.Method, body: string(body), token: bearer(contextGin)})
		mutex.Unlock()
		if bearer(contextGin) == "A1" && contextGin.Request.Method == http.MethodPost {
			contextGin.Status(http.StatusUnauthorized)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"ok": true})
	}
	router.POST("/cart/add", record)
	router.PUT("/supplier/catalog/:id", record)
	router.PATCH("/supplier/inventory/:id", record)
	router.DELETE("/supplier/catalog/:id", record)
	router.POST("/auth/refresh", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"accessToken": "A2", "tokenType": "Bearer"})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	harness := newHarness(t, server.URL, &tokenstore.TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	ctx := context.Background()

	if err := harness.client.Post(ctx, PathCartAdd, map[string]any{"productId": "1", "quantity": 2}, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := harness.client.Put(ctx, PathSupplierProduct("7"), json.RawMessage(`{"price":10}`), nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := harness.client.Patch(ctx, PathSupplierInventoryItem("7"), []byte(`{"stock":3}`), nil); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if err := harness.client.Delete(ctx, PathSupplierProduct("7"), nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	expected := []call{
		{method: http.MethodPost, body: `{"productId":"1","quantity":2}`, token: "A1"},
		{method: http.MethodPost, body: `{"productId":"1","quantity":2}`, token: "A2"},
		{method: http.MethodPut, body: `{"price":10}`, token: "A2"},
		{method: http.MethodPatch, body: `{"stock":3}`, token: "A2"},
		{method: http.MethodDelete, body: "", token: "A2"},
	}
	if len(calls) != len(expected) {
		t.Fatalf("expected %d calls, got %+v", len(expected), calls)
	}
	for index := range expected {
		if calls[index] != expected[index] {
			t.Fatalf("call %d: expected %+v, got %+v", index, expected[index], calls[index])
		}
	}
	refreshToken, _, _ := harness.tokens.RefreshToken(ctx)
	if refreshToken != "R1" {
		t.Fatalf("expected refresh token kept when the server omits it, got %q", refreshToken)
	}
}
