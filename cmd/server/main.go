package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-course-wiki/internal/auth"
	"go-course-wiki/internal/cache"
	"go-course-wiki/internal/config"
	"go-course-wiki/internal/data"
	"go-course-wiki/internal/handler"
	"go-course-wiki/internal/logger"
	"go-course-wiki/internal/middleware"
	"go-course-wiki/internal/service"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB.DSN, "migrations"); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	sessionManager.Store = mysqlstore.New(db.DB)
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authorization Setup ---
	log.Info("Initializing authorization...")
	enforcer, err := auth.NewEnforcer("mysql", cfg.DB.DSN, "auth_model.conf")
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	log.Info("Authorization initialized and policies seeded.")

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	treeCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer treeCache.Close()
	log.Info("Cache initialized.")

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	itemRepository := data.NewSQLItemRepository(db)
	userRepository := data.NewSQLUserRepository(db)
	wikiService := service.NewWikiService(itemRepository, treeCache)
	userService := service.NewUserService(userRepository)

	seedData(wikiService, userService, log)

	pageHandler := handler.NewPageHandler(wikiService, log)
	authHandler := handler.NewAuthHandler(userService, sessionManager)
	userHandler := handler.NewUserHandler(userService, log)

	authzMiddleware := middleware.Authorizer(enforcer, sessionManager)
	errorMiddleware := middleware.Error(log)

	// --- Router Setup ---
	// The router is the central hub that directs incoming requests to the correct handlers.
	router := handler.NewRouter(pageHandler, authHandler, userHandler, authzMiddleware, errorMiddleware, sessionManager)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}

// seedData ensures the wiki starts usable: a welcome page so the tree is
// never empty, and a default admin account so someone can log in.
func seedData(wiki *service.WikiService, users *service.UserService, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := wiki.EnsureWelcomePage(ctx)
	if err != nil {
		log.Fatal(err, "Failed to seed welcome page")
	}
	if created {
		log.Info(fmt.Sprintf("Created default %s.", service.WelcomePagePath))
	}

	created, err = users.EnsureDefaultAdmin(ctx)
	if err != nil {
		log.Fatal(err, "Failed to seed default admin")
	}
	if created {
		log.Warn("Default admin user (admin/admin) created. Change this password immediately.")
	}
}
