package middleware

import (
	"net/http"

	"go-course-wiki/internal/session"

	"github.com/casbin/casbin/v2"
)

// Authorizer creates a new middleware for authorization. It resolves the
// user from the session, places it on the request context, and enforces the
// Casbin policy with the user's role as subject. Requests without a session
// are rejected with 401, authenticated requests lacking the role with 403.
func Authorizer(e casbin.IEnforcer, sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo := &UserInfo{
				ID:       sm.GetInt64(r.Context(), session.KeyUserID),
				Username: sm.GetString(r.Context(), session.KeyUsername),
				Role:     sm.GetString(r.Context(), session.KeyUserRole),
			}
			ctx := SetUserInfo(r.Context(), userInfo)
			r = r.WithContext(ctx)

			allowed, err := e.Enforce(userInfo.Subject(), r.URL.Path, r.Method)
			if err != nil {
				writeJSONMessage(w, http.StatusInternalServerError, "Authorization error.")
				return
			}
			if !allowed {
				if userInfo.IsAnonymous() {
					writeJSONMessage(w, http.StatusUnauthorized, "Unauthorized. Please log in.")
					return
				}
				writeJSONMessage(w, http.StatusForbidden, "Forbidden. Admin access required.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
