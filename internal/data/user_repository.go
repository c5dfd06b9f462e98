package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, password_hash, role, enabled, created_at, updated_at`

// SQLUserRepository handles database operations for user accounts.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new SQLUserRepository.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// GetByID retrieves a user by id, or (nil, nil) when missing.
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username, or (nil, nil) when missing.
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

// GetAll retrieves all users.
func (r *SQLUserRepository) GetAll(ctx context.Context) ([]*User, error) {
	var users []*User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// Insert adds a new user and fills in the generated id. Returns
// ErrDuplicateUsername if the username is taken.
func (r *SQLUserRepository) Insert(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, password_hash, role, enabled, created_at, updated_at)
		VALUES (:username, :password_hash, :role, :enabled, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user %q: %w", user.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted user id: %w", err)
	}
	user.ID = id
	return nil
}

// Update persists role and enabled changes for an existing user.
func (r *SQLUserRepository) Update(ctx context.Context, user *User) error {
	query := `UPDATE users SET role = :role, enabled = :enabled, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no user found to update with id %d", user.ID)
	}
	return nil
}

// UpdatePassword stores a new password hash for the user.
func (r *SQLUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no user found to update with id %d", id)
	}
	return nil
}

// Delete removes a user by id.
func (r *SQLUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no user found to delete with id %d", id)
	}
	return nil
}

// CountEnabledAdmins returns the number of enabled admin accounts. The
// account directory relies on this to keep at least one enabled admin.
func (r *SQLUserRepository) CountEnabledAdmins(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE role = ? AND enabled = ?`
	if err := r.db.GetContext(ctx, &count, query, RoleAdmin, true); err != nil {
		return 0, fmt.Errorf("failed to count enabled admins: %w", err)
	}
	return count, nil
}
