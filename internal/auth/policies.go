package auth

import (
	"fmt"

	"go-course-wiki/internal/logger"

	"github.com/casbin/casbin/v2"
)

// SeedDefaultPolicies ensures that the application has a baseline set of
// authorization rules. It checks if each default policy exists before adding
// it, making the operation idempotent and safe to run on every application
// start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	// Students get read-only access to the tree and their own session;
	// admins additionally manage content and accounts. The 'admin' role
	// inherits everything granted to 'student'.
	policies := [][]string{
		{"student", "/api/pages", "GET"},
		{"student", "/api/page/*", "GET"},
		{"student", "/api/auth/logout", "POST"},

		{"admin", "/api/save", "POST"},
		{"admin", "/api/directory", "POST"},
		{"admin", "/api/item/*", "DELETE"},
		{"admin", "/api/rename", "PUT"},
		{"admin", "/api/users", "GET"},
		{"admin", "/api/users", "POST"},
		{"admin", "/api/users/*", "PUT"},
		{"admin", "/api/users/*", "DELETE"},
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// Granting the 'admin' role all permissions of the 'student' role.
	if has, _ := e.HasRoleForUser("admin", "student"); !has {
		if _, err := e.AddRoleForUser("admin", "student"); err != nil {
			log.Error(err, "Failed to add role 'admin' -> 'student'")
		}
	}
	log.Info("Policy seeding complete.")
}
