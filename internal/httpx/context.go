package httpx

import (
	"context"
	"net/http"

	"readshelf/internal/logging"
)

type contextKey string

const roleKey contextKey = "role"

// UserIDFrom retrieves the caller id from the request context; empty for guests.
func UserIDFrom(r *http.Request) string {
	return logging.UserIDFromContext(r.Context())
}

// RoleFrom retrieves the user role from the request context.
func RoleFrom(r *http.Request) string {
	if v, ok := r.Context().Value(roleKey).(string); ok {
		return v
	}
	return ""
}

func RequestIDFrom(r *http.Request) string {
	return logging.RequestIDFromContext(r.Context())
}

// ContextWithUser returns a new context with the user ID and role.
// The id is stored under the logging key so request logs carry it.
func ContextWithUser(ctx context.Context, userID, role string) context.Context {
	ctx = logging.ContextWithUserID(ctx, userID)
	return context.WithValue(ctx, roleKey, role)
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return logging.ContextWithRequestID(ctx, requestID)
}
