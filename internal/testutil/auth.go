package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret is shared between test auth helpers and test server wiring.
const TestJWTSecret = "test-secret-key-for-testing-only"

// AuthHelper provides JWT token generation for tests
type AuthHelper struct {
	JWTSecret []byte
}

// NewAuthHelper creates a new auth helper
func NewAuthHelper() *AuthHelper {
	return &AuthHelper{
		JWTSecret: []byte(TestJWTSecret),
	}
}

// GenerateToken generates a JWT token for a principal address
func (h *AuthHelper) GenerateToken(address string) (string, error) {
	claims := jwt.MapClaims{
		"address": address,
		"sub":     address,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

// AddAuthHeader adds an authorization header to the request
func (h *AuthHelper) AddAuthHeader(t *testing.T, req *http.Request, address string) {
	t.Helper()

	token, err := h.GenerateToken(address)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
}

// CreateAuthenticatedRequest creates a request with auth header
func (h *AuthHelper) CreateAuthenticatedRequest(t *testing.T, method, url string, body io.Reader, address string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	h.AddAuthHeader(t, req, address)
	return req
}

// TestResponse holds response data for assertions
type TestResponse struct {
	*httptest.ResponseRecorder
}

// NewTestResponse creates a new test response recorder
func NewTestResponse() *TestResponse {
	return &TestResponse{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

// AssertStatus asserts the HTTP status code
func (r *TestResponse) AssertStatus(t *testing.T, expected int) {
	t.Helper()

	if r.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, r.Code, r.Body.String())
	}
}
