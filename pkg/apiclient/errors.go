package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is returned when a 401 could not be recovered through a token refresh.
	// The client has already logged out by the time a caller sees it.
	ErrSessionExpired = errors.New("apiclient.session_expired")
	// ErrMalformedResponse wraps JSON decoding failures of a successful response body.
	ErrMalformedResponse = errors.New("apiclient.malformed_response")
	// ErrTransport wraps network failures reported by the HTTP client.
	ErrTransport = errors.New("apiclient.transport")
	// ErrInvalidRequest indicates a request that could not be built.
	ErrInvalidRequest = errors.New("apiclient.invalid_request")

	errMissingRefreshToken = errors.New("apiclient.refresh.missing_refresh_token")
	errEmptyAccessToken    = errors.New("apiclient.refresh.empty_access_token")
)

const maxErrorBodyBytes = 4096

// HTTPStatusError reports a non-success response.
type HTTPStatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

func (statusErr *HTTPStatusError) Error() string {
	return fmt.Sprintf("apiclient.http_status: %s %s returned %d %s", statusErr.Method, statusErr.URL, statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
}

// StatusCode extracts the HTTP status carried by err, or 0 when err is not an HTTPStatusError.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 surfaced after the retry budget was spent.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
