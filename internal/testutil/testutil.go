// Package testutil holds fixtures and HTTP helpers shared by handler and
// integration tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"readshelf/internal/book"
	"readshelf/internal/platform/crypto"
	"readshelf/internal/user"
)

// TestUser is a fixture reader.
var TestUser = user.User{
	ID:          "6f1d2c4e-0000-4000-8000-000000000001",
	Email:       "reader@example.com",
	DisplayName: "Test Reader",
	Role:        crypto.RoleUser,
	CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
}

// TestBook is a fixture book owned by TestUser.
var TestBook = book.Book{
	ID:              "6f1d2c4e-0000-4000-8000-0000000000b1",
	Title:           "The Left Hand of Darkness",
	Author:          "Ursula K. Le Guin",
	Status:          book.StatusReading,
	OwnerID:         TestUser.ID,
	Tags:            []string{"scifi", "classic"},
	PopularityScore: 12,
	SourceProvider:  book.SourceLocal,
	CreatedAt:       time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	UpdatedAt:       time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
}

// GenerateTestToken signs a one-hour access token.
func GenerateTestToken(secret, userID, role string) string {
	token, _ := crypto.GenerateToken(secret, userID, role, time.Hour)
	return token
}

// GenerateExpiredToken signs a token that expired an hour ago.
func GenerateExpiredToken(secret, userID, role string) string {
	c := crypto.Claims{
		Sub:  userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token, _ := t.SignedString([]byte(secret))
	return token
}

// NewRequest builds a request with body JSON-encoded when non-nil.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, _ := json.Marshal(body)
	r := httptest.NewRequest(method, path, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// NewRequestWithAuth is NewRequest plus a bearer token.
func NewRequestWithAuth(method, path string, body any, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// RecordHTTPResponse decodes a recorded JSON response into a generic map.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	raw, _ := io.ReadAll(result.Body)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return RecordResponse{Code: result.StatusCode, Header: result.Header, Body: body}
}
