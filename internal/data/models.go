package data

import "time"

// ItemType distinguishes leaf pages from containers.
type ItemType string

const (
	// TypeFile is a leaf content page carrying markdown.
	TypeFile ItemType = "file"
	// TypeDirectory is a container for other items.
	TypeDirectory ItemType = "directory"
)

// Item is a single node of the wiki tree, identified by its unique path.
// The tree itself is implicit: every item points at its containing
// directory through ParentPath ("." for root items), and the hierarchy is
// reassembled on demand.
type Item struct {
	Path        string    `db:"path" json:"path"`
	Name        string    `db:"name" json:"name"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Type        ItemType  `db:"type" json:"type"`
	Content     string    `db:"content" json:"content,omitempty"`
	ParentPath  string    `db:"parent_path" json:"parentPath"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	// Children is populated by the tree assembler only; it is never
	// persisted.
	Children []*Item `db:"-" json:"children,omitempty"`
}

// User roles.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User is an account record. The password hash is never serialized to API
// clients.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Enabled      bool      `db:"enabled" json:"enabled"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// PathRewrite is one entry of a cascade move: the item at OldPath is
// relocated to NewPath under NewParentPath. Used when a directory rename
// must rewrite every descendant's path prefix.
type PathRewrite struct {
	OldPath       string
	NewPath       string
	NewParentPath string
}
