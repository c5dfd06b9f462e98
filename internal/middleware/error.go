package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go-course-wiki/internal/logger"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Error is a middleware that converts handler errors into JSON error
// responses of the form {"message": ...}.
func Error(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					writeJSONMessage(w, http.StatusInternalServerError, "Internal server error.")
				}
			}()

			err := next(w, r)
			if err != nil {
				if err.Code >= http.StatusInternalServerError {
					log.Error(err.Error, err.Message)
				}
				writeJSONMessage(w, err.Code, err.Message)
			}
		})
	}
}

func writeJSONMessage(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
