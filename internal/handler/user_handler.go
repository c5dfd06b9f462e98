package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go-course-wiki/internal/logger"
	"go-course-wiki/internal/middleware"
	"go-course-wiki/internal/service"

	"github.com/go-chi/chi/v5"
)

// UserHandler holds the dependencies for the user management handlers.
type UserHandler struct {
	users service.UserServicer
	log   logger.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users service.UserServicer, log logger.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// listHandler returns every account. Password hashes never serialize.
func (h *UserHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	users, err := h.users.List(r.Context())
	if err != nil {
		return fromServiceError(err, "Error fetching users.")
	}
	return respondJSON(w, http.StatusOK, users)
}

// createHandler adds a new account.
func (h *UserHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}

	user, err := h.users.Create(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Enabled:  req.Enabled,
	})
	if err != nil {
		return fromServiceError(err, "Error creating user.")
	}
	return respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully.",
		"user":    user,
	})
}

// updateHandler changes role and/or enabled status of an account.
func (h *UserHandler) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := userIDParam(r)
	if appErr != nil {
		return appErr
	}
	var req struct {
		Role    *string `json:"role"`
		Enabled *bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}

	acting := middleware.GetUserInfo(r.Context())
	user, err := h.users.Update(r.Context(), acting.ID, id, req.Role, req.Enabled)
	if err != nil {
		return fromServiceError(err, "Error updating user.")
	}
	return respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User updated.",
		"user":    user,
	})
}

// resetPasswordHandler replaces an account's password.
func (h *UserHandler) resetPasswordHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := userIDParam(r)
	if appErr != nil {
		return appErr
	}
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}

	if err := h.users.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		return fromServiceError(err, "Error resetting password.")
	}
	return respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset."})
}

// deleteHandler removes an account.
func (h *UserHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := userIDParam(r)
	if appErr != nil {
		return appErr
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		return fromServiceError(err, "Error deleting user.")
	}
	return respondJSON(w, http.StatusOK, map[string]string{"message": "User deleted."})
}

func userIDParam(r *http.Request) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		return 0, &middleware.AppError{Error: err, Message: "Invalid user ID.", Code: http.StatusBadRequest}
	}
	return id, nil
}
