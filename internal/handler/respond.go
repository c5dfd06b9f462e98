package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-course-wiki/internal/middleware"
	"go-course-wiki/internal/service"
)

// respondJSON writes payload as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) *middleware.AppError {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to encode response.", Code: http.StatusInternalServerError}
	}
	return nil
}

// fromServiceError maps a service error onto an AppError carrying the HTTP
// status for its kind. Errors that did not originate in the service layer
// (storage failures, and so on) become opaque 500s with the fallback
// message.
func fromServiceError(err error, fallback string) *middleware.AppError {
	var se *service.Error
	if errors.As(err, &se) {
		return &middleware.AppError{Error: err, Message: se.Message, Code: statusForKind(se.Kind)}
	}
	return &middleware.AppError{Error: err, Message: fallback, Code: http.StatusInternalServerError}
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
