package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"readshelf/internal/auth"
	"readshelf/internal/book"
	"readshelf/internal/catalog"
	"readshelf/internal/external"
	"readshelf/internal/platform/crypto"
	"readshelf/internal/profile"
	"readshelf/internal/recommend"
	"readshelf/internal/testutil"
	"readshelf/internal/user"
)

const testSecret = "routing-test-secret"

func newTestServer(t *testing.T, ready func(context.Context) error) (http.Handler, *book.MockRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)

	users := user.NewService(user.NewMockRepository(ctrl))
	books := book.NewMockRepository(ctrl)
	cat := catalog.NewMockRepository(ctrl)
	searcher := external.NewSearcher(time.Second)

	h := &handlers{
		auth:      auth.NewHTTPHandler(auth.NewService(testSecret, time.Hour, users)),
		user:      user.NewHTTPHandler(users),
		profile:   profile.NewHTTPHandler(profile.NewService(users, cat)),
		book:      book.NewHTTPHandler(book.NewService(books)),
		external:  external.NewHTTPHandler(searcher),
		recommend: recommend.NewHTTPHandler(recommend.NewService(recommend.DefaultConfig(), cat, searcher)),
		jwtSecret: testSecret,
		ready:     ready,
	}
	return withMiddleware(h.routes(), middlewareConfig{maxBodyBytes: 1 << 20}), books
}

func TestRoutes(t *testing.T) {
	srv, books := newTestServer(t, nil)

	token := testutil.GenerateTestToken(testSecret, "u-1", crypto.RoleUser)
	expired := testutil.GenerateExpiredToken(testSecret, "u-1", crypto.RoleUser)

	books.EXPECT().GetByID(gomock.Any(), "b-1").Return(book.Book{ID: "b-1", OwnerID: "u-1", Title: "Dune", Tags: []string{}}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"ready", http.MethodGet, "/readyz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"books need auth", http.MethodGet, "/v1/books", "", http.StatusUnauthorized},
		{"me needs auth", http.MethodGet, "/v1/me", "", http.StatusUnauthorized},
		{"profile needs auth", http.MethodGet, "/v1/me/profile", "", http.StatusUnauthorized},
		{"expired token rejected", http.MethodGet, "/v1/books", expired, http.StatusUnauthorized},
		{"get own book", http.MethodGet, "/v1/books/b-1", token, http.StatusOK},
		{"recommendations open to guests", http.MethodGet, "/v1/recommendations", "", http.StatusOK},
		{"bad token degrades to guest", http.MethodGet, "/v1/recommendations", "garbage", http.StatusOK},
		{"external search validates", http.MethodGet, "/v1/external/search", "", http.StatusBadRequest},
		{"method not allowed", http.MethodPut, "/v1/books", token, http.StatusMethodNotAllowed},
		{"unversioned path", http.MethodGet, "/books", token, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testutil.NewRequestWithAuth(tt.method, tt.path, nil, tt.token)
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		})
	}
}

func TestReadyz_DatabaseDown(t *testing.T) {
	srv, _ := newTestServer(t, func(context.Context) error { return errors.New("down") })

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@db:5432/x", redactDSN("postgres://user:pw@db:5432/x"))
	assert.Equal(t, "not-a-dsn", redactDSN("not-a-dsn"))
}

func TestUnauthorizedEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/v1/me", nil))

	res := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, false, res.Body["success"])
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
}
