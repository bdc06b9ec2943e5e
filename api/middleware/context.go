package middleware

import (
	"context"

	"github.com/google/uuid"
)

// identityKey scopes the authenticated identity values set by Authenticate.
type identityKey int

const (
	userIDKey identityKey = iota
	roleKey
	accessIDKey
)

func stringValue(ctx context.Context, key identityKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withString(ctx context.Context, key identityKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, userIDKey) }

// UserUUIDFromContext parses the authenticated user id. ok is false when the
// request is anonymous or the value is malformed.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RoleFromContext returns the caller's role ("admin" or "cashier").
func RoleFromContext(ctx context.Context) string { return stringValue(ctx, roleKey) }

// AccessIDFromContext returns the jti of the session that authenticated the request.
func AccessIDFromContext(ctx context.Context) string { return stringValue(ctx, accessIDKey) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, userIDKey, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withString(ctx, roleKey, role)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withString(ctx, accessIDKey, accessID)
}
