package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const itemColumns = `path, name, title, description, type, content, parent_path, created_at, updated_at`

// SQLItemRepository is the durable store for wiki items, keyed by the
// unique path column with a secondary index on parent_path.
type SQLItemRepository struct {
	db *sqlx.DB
}

// NewSQLItemRepository creates a new SQLItemRepository.
func NewSQLItemRepository(db *sqlx.DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

// GetByPath retrieves a single item by its path. A missing item is not an
// error; it is reported as (nil, nil).
func (r *SQLItemRepository) GetByPath(ctx context.Context, path string) (*Item, error) {
	var item Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE path = ?`
	if err := r.db.GetContext(ctx, &item, query, path); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item by path: %w", err)
	}
	return &item, nil
}

// GetAll retrieves every item in the tree.
func (r *SQLItemRepository) GetAll(ctx context.Context) ([]*Item, error) {
	var items []*Item
	query := `SELECT ` + itemColumns + ` FROM items`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to get all items: %w", err)
	}
	return items, nil
}

// FindChildren retrieves the direct children of parentPath, unordered.
func (r *SQLItemRepository) FindChildren(ctx context.Context, parentPath string) ([]*Item, error) {
	var items []*Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE parent_path = ?`
	if err := r.db.SelectContext(ctx, &items, query, parentPath); err != nil {
		return nil, fmt.Errorf("failed to find children of %q: %w", parentPath, err)
	}
	return items, nil
}

// FindDescendants retrieves the item at path together with every item
// strictly below it. Matching is done on a "/"-delimited prefix rather than
// LIKE, since "_" is both a LIKE wildcard and a legal path character.
func (r *SQLItemRepository) FindDescendants(ctx context.Context, path string) ([]*Item, error) {
	prefix := path + "/"
	var items []*Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE path = ? OR SUBSTR(path, 1, ?) = ?`
	if err := r.db.SelectContext(ctx, &items, query, path, len(prefix), prefix); err != nil {
		return nil, fmt.Errorf("failed to find descendants of %q: %w", path, err)
	}
	return items, nil
}

// Insert adds a new item. It returns ErrDuplicatePath if the path is
// already taken.
func (r *SQLItemRepository) Insert(ctx context.Context, item *Item) error {
	query := `INSERT INTO items (` + itemColumns + `)
		VALUES (:path, :name, :title, :description, :type, :content, :parent_path, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicatePath
		}
		return fmt.Errorf("failed to insert item %q: %w", item.Path, err)
	}
	return nil
}

// Upsert writes the item keyed on its path: an existing row is overwritten
// in place (created_at preserved), otherwise the item is inserted. A lost
// insert race surfaces as ErrDuplicatePath for the caller to translate.
func (r *SQLItemRepository) Upsert(ctx context.Context, item *Item) error {
	update := `UPDATE items
		SET name = :name, title = :title, description = :description, type = :type,
		    content = :content, parent_path = :parent_path, updated_at = :updated_at
		WHERE path = :path`
	res, err := r.db.NamedExecContext(ctx, update, item)
	if err != nil {
		return fmt.Errorf("failed to upsert item %q: %w", item.Path, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}
	return r.Insert(ctx, item)
}

// Rename moves and updates the item currently stored at oldPath, writing
// every mutable column of item (including its new path). Returns
// ErrDuplicatePath if the destination is taken.
func (r *SQLItemRepository) Rename(ctx context.Context, oldPath string, item *Item) error {
	query := `UPDATE items
		SET path = ?, name = ?, parent_path = ?, title = ?, description = ?, updated_at = ?
		WHERE path = ?`
	res, err := r.db.ExecContext(ctx, query,
		item.Path, item.Name, item.ParentPath, item.Title, item.Description, item.UpdatedAt, oldPath)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicatePath
		}
		return fmt.Errorf("failed to rename item %q: %w", oldPath, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no item found to rename at %q", oldPath)
	}
	return nil
}

// UpdateMetadata rewrites title and description of the item at path without
// touching its location or content.
func (r *SQLItemRepository) UpdateMetadata(ctx context.Context, path, title, description string, updatedAt time.Time) error {
	query := `UPDATE items SET title = ?, description = ?, updated_at = ? WHERE path = ?`
	res, err := r.db.ExecContext(ctx, query, title, description, updatedAt, path)
	if err != nil {
		return fmt.Errorf("failed to update metadata of %q: %w", path, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no item found to update at %q", path)
	}
	return nil
}

// BulkRewrite relocates a batch of items in a single transaction, so a
// concurrent reader never observes a half-moved subtree.
func (r *SQLItemRepository) BulkRewrite(ctx context.Context, rewrites []PathRewrite) error {
	if len(rewrites) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rewrite transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := `UPDATE items SET path = ?, parent_path = ?, updated_at = ? WHERE path = ?`
	for _, rw := range rewrites {
		if _, err := tx.ExecContext(ctx, query, rw.NewPath, rw.NewParentPath, now, rw.OldPath); err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicatePath
			}
			return fmt.Errorf("failed to rewrite %q to %q: %w", rw.OldPath, rw.NewPath, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rewrite transaction: %w", err)
	}
	return nil
}

// Delete removes a single item by path.
func (r *SQLItemRepository) Delete(ctx context.Context, path string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete item %q: %w", path, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no item found to delete at %q", path)
	}
	return nil
}

// DeleteMany removes a batch of items by path in one statement.
func (r *SQLItemRepository) DeleteMany(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM items WHERE path IN (?)`, paths)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete %d items: %w", len(paths), err)
	}
	return nil
}

// CountFiles returns the number of file items in the whole tree.
func (r *SQLItemRepository) CountFiles(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM items WHERE type = ?`
	if err := r.db.GetContext(ctx, &count, query, TypeFile); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}
