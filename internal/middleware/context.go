package middleware

import "context"

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// AnonymousSubject is the casbin subject used for requests without a
// session.
const AnonymousSubject = "anonymous"

// UserInfo represents the essential user information stored in the session and request context.
type UserInfo struct {
	ID       int64
	Username string
	Role     string
}

// IsAnonymous reports whether the request carried no authenticated user.
func (u *UserInfo) IsAnonymous() bool {
	return u == nil || u.Username == ""
}

// Subject returns the authorization subject for the user: its role, or the
// anonymous sentinel.
func (u *UserInfo) Subject() string {
	if u.IsAnonymous() {
		return AnonymousSubject
	}
	return u.Role
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
