package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-course-wiki/internal/data"

	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the interface for database operations on users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*data.User, error)
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	GetAll(ctx context.Context) ([]*data.User, error)
	Insert(ctx context.Context, user *data.User) error
	Update(ctx context.Context, user *data.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	CountEnabledAdmins(ctx context.Context) (int, error)
}

// UserServicer defines the interface for the account directory.
type UserServicer interface {
	Authenticate(ctx context.Context, username, password string) (*data.User, error)
	List(ctx context.Context) ([]*data.User, error)
	Create(ctx context.Context, in CreateUserInput) (*data.User, error)
	Update(ctx context.Context, actingUserID, id int64, role *string, enabled *bool) (*data.User, error)
	ResetPassword(ctx context.Context, id int64, newPassword string) error
	Delete(ctx context.Context, id int64) error
}

// CreateUserInput carries the fields of a user creation. A nil Enabled
// defaults to true.
type CreateUserInput struct {
	Username string
	Password string
	Role     string
	Enabled  *bool
}

const (
	bcryptCost        = 10
	minPasswordLength = 6

	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin"
)

// UserService manages the flat account collection and enforces the
// last-admin protection.
type UserService struct {
	users UserRepository
}

// NewUserService creates a new UserService with the given repository.
func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// Authenticate verifies a username/password pair against the stored hash.
// The failure message deliberately does not reveal which factor failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*data.User, error) {
	if username == "" || password == "" {
		return nil, Validationf("username and password are required")
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Enabled {
		return nil, Unauthorizedf("invalid username or password, or account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, Unauthorizedf("invalid username or password, or account disabled")
	}
	return user, nil
}

// List retrieves all user accounts.
func (s *UserService) List(ctx context.Context) ([]*data.User, error) {
	return s.users.GetAll(ctx)
}

// Create adds a new account with a salted password hash.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*data.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, Validationf("username and password are required")
	}
	if !isValidRole(in.Role) {
		return nil, Validationf("role must be '%s' or '%s'", data.RoleAdmin, data.RoleStudent)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	now := time.Now().UTC()
	user := &data.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         in.Role,
		Enabled:      enabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, data.ErrDuplicateUsername) {
			return nil, Conflictf("username already exists")
		}
		return nil, err
	}
	return user, nil
}

// Update changes role and/or enabled status. Demoting or disabling an admin
// (or the acting user's own account) is refused when it would leave the
// system without an enabled admin.
func (s *UserService) Update(ctx context.Context, actingUserID, id int64, role *string, enabled *bool) (*data.User, error) {
	if role == nil && enabled == nil {
		return nil, Validationf("no valid fields to update")
	}
	if role != nil && !isValidRole(*role) {
		return nil, Validationf("role must be '%s' or '%s'", data.RoleAdmin, data.RoleStudent)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NotFoundf("user not found")
	}

	demoting := role != nil && *role == data.RoleStudent
	disabling := enabled != nil && !*enabled
	if (user.Role == data.RoleAdmin || user.ID == actingUserID) && (demoting || disabling) {
		count, err := s.users.CountEnabledAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if count <= 1 {
			return nil, Forbiddenf("cannot disable or demote the last enabled admin")
		}
	}

	if role != nil {
		user.Role = *role
	}
	if enabled != nil {
		user.Enabled = *enabled
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword replaces the stored hash for the user.
func (s *UserService) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return Validationf("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return NotFoundf("user not found")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}

// Delete removes an account. Deleting the last enabled admin is refused.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return NotFoundf("user not found")
	}
	if user.Role == data.RoleAdmin && user.Enabled {
		count, err := s.users.CountEnabledAdmins(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return Forbiddenf("cannot delete the last enabled admin")
		}
	}
	return s.users.Delete(ctx, id)
}

// EnsureDefaultAdmin seeds the default admin account when the username is
// absent. Safe to run on every start; returns true when the account was
// created so the caller can log a credential warning.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	existing, err := s.users.GetByUsername(ctx, defaultAdminUsername)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	_, err = s.Create(ctx, CreateUserInput{
		Username: defaultAdminUsername,
		Password: defaultAdminPassword,
		Role:     data.RoleAdmin,
	})
	if err != nil {
		if KindOf(err) == KindConflict {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isValidRole(role string) bool {
	return role == data.RoleAdmin || role == data.RoleStudent
}
