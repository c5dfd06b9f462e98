package handler

import (
	"encoding/json"
	"net/http"

	"go-course-wiki/internal/middleware"
	"go-course-wiki/internal/service"
	"go-course-wiki/internal/session"
)

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	users   service.UserServicer
	session session.Manager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserServicer, sm session.Manager) *AuthHandler {
	return &AuthHandler{users: users, session: sm}
}

// sessionUser is the session-derived identity shape returned to clients.
type sessionUser struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// handleLogin verifies credentials and establishes a session. The session
// token is regenerated on success to defeat session fixation.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}
	if req.Username == "" || req.Password == "" {
		return &middleware.AppError{Message: "Username and password are required.", Code: http.StatusBadRequest}
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		return fromServiceError(err, "Server error during login.")
	}

	if err := h.session.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Login error.", Code: http.StatusInternalServerError}
	}
	h.session.Put(r.Context(), session.KeyUserID, user.ID)
	h.session.Put(r.Context(), session.KeyUsername, user.Username)
	h.session.Put(r.Context(), session.KeyUserRole, user.Role)

	return respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful.",
		"user":    sessionUser{Username: user.Username, Role: user.Role},
	})
}

// handleLogout destroys the current session.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.session.Destroy(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Logout failed.", Code: http.StatusInternalServerError}
	}
	return respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful."})
}

// handleStatus reports whether the request carries an authenticated
// session. It is open to anonymous callers.
func (h *AuthHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	username := h.session.GetString(r.Context(), session.KeyUsername)
	w.Header().Set("Content-Type", "application/json")
	if username == "" {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"isAuthenticated": false,
			"user":            nil,
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"isAuthenticated": true,
		"user": sessionUser{
			Username: username,
			Role:     h.session.GetString(r.Context(), session.KeyUserRole),
		},
	})
}
