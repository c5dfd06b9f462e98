package handler

import (
	"net/http"

	appmw "go-course-wiki/internal/middleware"
	"go-course-wiki/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures a new chi router exposing the JSON API.
func NewRouter(
	pageHandler *PageHandler,
	authHandler *AuthHandler,
	userHandler *UserHandler,
	authzMiddleware func(http.Handler) http.Handler,
	errorMiddleware func(appmw.AppHandler) http.Handler,
	sm session.Manager,
) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(sm.LoadAndSave)

	r.Route("/api", func(api chi.Router) {
		// Open routes: establishing a session and asking whether one exists.
		api.Method(http.MethodPost, "/auth/login", errorMiddleware(authHandler.handleLogin))
		api.Get("/auth/status", authHandler.handleStatus)

		// Everything else sits behind the session/role gate.
		api.Group(func(protected chi.Router) {
			protected.Use(authzMiddleware)

			protected.Method(http.MethodPost, "/auth/logout", errorMiddleware(authHandler.handleLogout))

			protected.Method(http.MethodGet, "/pages", errorMiddleware(pageHandler.listHandler))
			protected.Method(http.MethodGet, "/page/*", errorMiddleware(pageHandler.readHandler))
			protected.Method(http.MethodPost, "/save", errorMiddleware(pageHandler.saveHandler))
			protected.Method(http.MethodPost, "/directory", errorMiddleware(pageHandler.createDirectoryHandler))
			protected.Method(http.MethodDelete, "/item/*", errorMiddleware(pageHandler.deleteHandler))
			protected.Method(http.MethodPut, "/rename", errorMiddleware(pageHandler.renameHandler))

			protected.Route("/users", func(users chi.Router) {
				users.Method(http.MethodGet, "/", errorMiddleware(userHandler.listHandler))
				users.Method(http.MethodPost, "/", errorMiddleware(userHandler.createHandler))
				users.Method(http.MethodPut, "/{userID}", errorMiddleware(userHandler.updateHandler))
				users.Method(http.MethodPut, "/{userID}/reset-password", errorMiddleware(userHandler.resetPasswordHandler))
				users.Method(http.MethodDelete, "/{userID}", errorMiddleware(userHandler.deleteHandler))
			})
		})
	})

	return r
}
