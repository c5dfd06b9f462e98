package session

import (
	"context"
	"net/http"
)

// Session keys for the authenticated user.
const (
	KeyUserID   = "user_id"
	KeyUsername = "user_username"
	KeyUserRole = "user_role"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	GetInt64(ctx context.Context, key string) int64
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}
