package sessionvalidator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type fixedClock struct {
	current time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.current
}

func mintToken(t *testing.T, signingKey []byte, issuer string, role string, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "user-123",
		UserEmail: "user@example.com",
		UserName:  "Demo User",
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	})
	result, err := token.SignedString(signingKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return result
}

func newTestValidator(t *testing.T, now time.Time) *Validator {
	t.Helper()
	validator, err := New(Config{
		SigningKey: []byte("secret-key"),
		Issuer:     "issuer",
		Clock:      fixedClock{current: now},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return validator
}

func TestNewValidatorRequiresSigningKeyAndIssuer(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Issuer: "issuer"})
	if err == nil || !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected missing signing key error, got %v", err)
	}
	_, err = New(Config{SigningKey: []byte("secret")})
	if err == nil || !errors.Is(err, ErrMissingIssuer) {
		t.Fatalf("expected missing issuer error, got %v", err)
	}
}

func TestNewValidatorDefaultsClock(t *testing.T) {
	t.Parallel()

	validator, err := New(Config{SigningKey: []byte("secret"), Issuer: "issuer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if validator.clock == nil {
		t.Fatalf("expected default clock to be set")
	}
}

func TestValidateTokenSuccess(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	validator := newTestValidator(t, now)
	tokenValue := mintToken(t, []byte("secret-key"), "issuer", "supplier", now, time.Minute)

	claims, validateErr := validator.ValidateToken(tokenValue)
	if validateErr != nil {
		t.Fatalf("unexpected validation error: %v", validateErr)
	}
	if claims.GetUserID() != "user-123" || claims.GetUserEmail() != "user@example.com" {
		t.Fatalf("unexpected claims: %#v", claims)
	}
	if claims.GetRole() != "supplier" || !claims.HasRole("admin", "supplier") || claims.HasRole("customer") {
		t.Fatalf("unexpected role handling for %q", claims.GetRole())
	}
	if !claims.GetExpiresAt().Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected expiry: %v", claims.GetExpiresAt())
	}
}

func TestValidateTokenRejectsInvalidCases(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	tests := []struct {
		name      string
		tokenFunc func() string
		expectErr error
	}{
		{
			name:      "empty token",
			tokenFunc: func() string { return "" },
			expectErr: ErrMissingToken,
		},
		{
			name: "bad signature",
			tokenFunc: func() string {
				return mintToken(t, []byte("other-key"), "issuer", "customer", now, time.Minute)
			},
			expectErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			tokenFunc: func() string {
				return mintToken(t, []byte("secret-key"), "other-issuer", "customer", now, time.Minute)
			},
			expectErr: ErrInvalidIssuer,
		},
		{
			name: "expired",
			tokenFunc: func() string {
				return mintToken(t, []byte("secret-key"), "issuer", "customer", now.Add(-2*time.Minute), time.Minute)
			},
			expectErr: ErrTokenExpired,
		},
		{
			name: "not yet valid",
			tokenFunc: func() string {
				return mintToken(t, []byte("secret-key"), "issuer", "customer", now.Add(time.Hour), time.Minute)
			},
			expectErr: ErrInvalidToken,
		},
	}

	validator := newTestValidator(t, now)
	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			_, validateErr := validator.ValidateToken(testCase.tokenFunc())
			if validateErr == nil || !errors.Is(validateErr, testCase.expectErr) {
				t.Fatalf("expected %v, got %v", testCase.expectErr, validateErr)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header   string
		expected string
		found    bool
	}{
		{header: "Bearer abc", expected: "abc", found: true},
		{header: "bearer   abc ", expected: "abc", found: true},
		{header: "Basic abc", found: false},
		{header: "Bearer ", found: false},
		{header: "abc", found: false},
		{header: "", found: false},
	}
	for _, testCase := range tests {
		token, found := BearerToken(testCase.header)
		if token != testCase.expected || found != testCase.found {
			t.Fatalf("header %q: expected (%q,%v), got (%q,%v)", testCase.header, testCase.expected, testCase.found, token, found)
		}
	}
}

func TestValidateRequest(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	tokenValue := mintToken(t, []byte("secret-key"), "issuer", "customer", now, time.Minute)
	validator := newTestValidator(t, now)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+tokenValue)
	claims, validateErr := validator.ValidateRequest(request)
	if validateErr != nil {
		t.Fatalf("unexpected validation error: %v", validateErr)
	}
	if claims.GetUserID() != "user-123" {
		t.Fatalf("unexpected user: %v", claims.GetUserID())
	}

	badRequest := httptest.NewRequest(http.MethodGet, "/protected", nil)
	badRequest.AddCookie(&http.Cookie{Name: "app_session", Value: tokenValue})
	_, missingErr := validator.ValidateRequest(badRequest)
	if missingErr == nil || !errors.Is(missingErr, ErrMissingBearer) {
		t.Fatalf("expected missing bearer error, got %v", missingErr)
	}
}

func TestGinMiddlewareAndRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Unix(1700000000, 0).UTC()
	validator := newTestValidator(t, now)

	router := gin.New()
	router.Use(validator.GinMiddleware("claims"))
	router.GET("/protected", func(contextGin *gin.Context) {
		claims, ok := ClaimsFromContext(contextGin, "claims")
		if !ok {
			t.Fatalf("claims missing")
		}
		contextGin.String(http.StatusOK, claims.GetRole())
	})
	router.GET("/supplier", RequireRoles("claims", "supplier", "admin"), func(contextGin *gin.Context) {
		contextGin.Status(http.StatusOK)
	})

	serve := func(path string, authorization string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, path, nil)
		if authorization != "" {
			request.Header.Set("Authorization", authorization)
		}
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		return response
	}

	customerToken := mintToken(t, []byte("secret-key"), "issuer", "customer", now, time.Minute)
	supplierToken := mintToken(t, []byte("secret-key"), "issuer", "supplier", now, time.Minute)
	expiredToken := mintToken(t, []byte("secret-key"), "issuer", "supplier", now.Add(-time.Hour), time.Minute)

	if response := serve("/protected", "Bearer "+customerToken); response.Code != http.StatusOK || response.Body.String() != "customer" {
		t.Fatalf("expected 200 customer, got %d %s", response.Code, response.Body.String())
	}
	if response := serve("/protected", ""); response.Code != http.StatusUnauthorized || !strings.Contains(response.Body.String(), "missing_token") {
		t.Fatalf("expected 401 missing_token, got %d %s", response.Code, response.Body.String())
	}
	if response := serve("/protected", "Bearer "+expiredToken); response.Code != http.StatusUnauthorized || !strings.Contains(response.Body.String(), "token_expired") {
		t.Fatalf("expected 401 token_expired, got %d %s", response.Code, response.Body.String())
	}
	if response := serve("/supplier", "Bearer "+customerToken); response.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on supplier route, got %d", response.Code)
	}
	if response := serve("/supplier", "Bearer "+supplierToken); response.Code != http.StatusOK {
		t.Fatalf("expected 200 for supplier, got %d", response.Code)
	}
}
