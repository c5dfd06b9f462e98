package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-course-wiki/internal/cache"
	"go-course-wiki/internal/data"
	"go-course-wiki/internal/wikipath"

	"github.com/microcosm-cc/bluemonday"
)

// ItemRepository defines the interface for database operations on wiki items.
type ItemRepository interface {
	GetByPath(ctx context.Context, path string) (*data.Item, error)
	GetAll(ctx context.Context) ([]*data.Item, error)
	FindChildren(ctx context.Context, parentPath string) ([]*data.Item, error)
	FindDescendants(ctx context.Context, path string) ([]*data.Item, error)
	Insert(ctx context.Context, item *data.Item) error
	Upsert(ctx context.Context, item *data.Item) error
	Rename(ctx context.Context, oldPath string, item *data.Item) error
	UpdateMetadata(ctx context.Context, path, title, description string, updatedAt time.Time) error
	BulkRewrite(ctx context.Context, rewrites []data.PathRewrite) error
	Delete(ctx context.Context, path string) error
	DeleteMany(ctx context.Context, paths []string) error
	CountFiles(ctx context.Context) (int, error)
}

// WikiServicer defines the interface for interacting with the wiki tree.
type WikiServicer interface {
	ListTree(ctx context.Context) ([]*data.Item, error)
	GetPage(ctx context.Context, path string) (*data.Item, error)
	SavePage(ctx context.Context, in SavePageInput) (*data.Item, error)
	CreateDirectory(ctx context.Context, in CreateDirectoryInput) (*data.Item, error)
	DeleteItem(ctx context.Context, path string) (*data.Item, int, error)
	Rename(ctx context.Context, in RenameInput) (*RenameResult, error)
}

// SavePageInput carries the fields of a page save. Pointer fields
// distinguish absent JSON keys from empty strings.
type SavePageInput struct {
	PathToUpdate string
	ParentPath   *string
	Title        string
	Description  string
	Content      *string
}

// CreateDirectoryInput carries the fields of a directory creation.
type CreateDirectoryInput struct {
	ParentPath  *string
	Title       string
	Description string
}

// RenameInput carries the fields of a rename/move. A nil NewDescription
// keeps the existing description.
type RenameInput struct {
	OldPath        string
	NewParentPath  string
	NewTitle       string
	NewDescription *string
}

// RenameResult reports the outcome of a rename/move.
type RenameResult struct {
	OldPath string
	NewPath string
	Title   string
}

// WelcomePagePath is the path of the seeded root page.
const WelcomePagePath = "welcome.md"

const treeCacheKey = "wiki:tree"

// treeCacheTTL is short: the cache only has to absorb read bursts between
// mutations, which invalidate it explicitly.
const treeCacheTTL = 5 * time.Minute

// WikiService implements the tree mutation engine over a flat, path-keyed
// item store.
type WikiService struct {
	items     ItemRepository
	cache     *cache.Cache
	content   *bluemonday.Policy
	plaintext *bluemonday.Policy
}

// NewWikiService creates a new WikiService with the given repository and
// tree-snapshot cache.
func NewWikiService(items ItemRepository, c *cache.Cache) *WikiService {
	// UGCPolicy keeps basic formatting in embedded HTML while stripping
	// anything dangerous; titles and descriptions allow no markup at all.
	return &WikiService{
		items:     items,
		cache:     c,
		content:   bluemonday.UGCPolicy(),
		plaintext: bluemonday.StrictPolicy(),
	}
}

// GetPage retrieves a single file item by path.
func (s *WikiService) GetPage(ctx context.Context, path string) (*data.Item, error) {
	if path == "" {
		return nil, Validationf("filepath is required")
	}
	item, err := s.items.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Type != data.TypeFile {
		return nil, NotFoundf("page '%s' not found", path)
	}
	return item, nil
}

// SavePage creates or updates a file item. When PathToUpdate is given the
// page is written in place; otherwise the path is derived from the title
// under ParentPath. Writes are keyed on path with upsert semantics.
func (s *WikiService) SavePage(ctx context.Context, in SavePageInput) (*data.Item, error) {
	if in.Content == nil {
		return nil, Validationf("content is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Validationf("title is required")
	}
	if in.PathToUpdate == "" && in.ParentPath == nil {
		return nil, Validationf("parentPath is required")
	}

	var path, parentPath string
	if in.PathToUpdate != "" {
		path = in.PathToUpdate
		parentPath = wikipath.ParentOf(path)
	} else {
		parentPath = normalizeParent(*in.ParentPath)
		path = wikipath.Join(parentPath, wikipath.DeriveName(title, false))
	}
	if err := s.validatePath(path); err != nil {
		return nil, err
	}
	if err := s.requireDirectory(ctx, parentPath); err != nil {
		return nil, err
	}

	existing, err := s.items.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Type != data.TypeFile {
		return nil, Conflictf("item '%s' already exists", path)
	}

	now := time.Now().UTC()
	item := &data.Item{
		Path:        path,
		Name:        wikipath.Base(path),
		Title:       title,
		Description: s.plaintext.Sanitize(strings.TrimSpace(in.Description)),
		Type:        data.TypeFile,
		Content:     s.content.Sanitize(*in.Content),
		ParentPath:  parentPath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.items.Upsert(ctx, item); err != nil {
		if errors.Is(err, data.ErrDuplicatePath) {
			return nil, Conflictf("item '%s' already exists", path)
		}
		return nil, err
	}
	s.invalidateTree()
	return item, nil
}

// CreateDirectory creates a container item. Unlike SavePage this is a
// strict create: an occupied path is a conflict.
func (s *WikiService) CreateDirectory(ctx context.Context, in CreateDirectoryInput) (*data.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Validationf("title is required")
	}
	if in.ParentPath == nil {
		return nil, Validationf("parentPath is required")
	}
	parentPath := normalizeParent(*in.ParentPath)
	path := wikipath.Join(parentPath, wikipath.DeriveName(title, true))
	if err := s.validatePath(path); err != nil {
		return nil, err
	}
	if err := s.requireDirectory(ctx, parentPath); err != nil {
		return nil, err
	}

	existing, err := s.items.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Conflictf("item '%s' already exists", path)
	}

	now := time.Now().UTC()
	item := &data.Item{
		Path:        path,
		Name:        wikipath.Base(path),
		Title:       title,
		Description: s.plaintext.Sanitize(strings.TrimSpace(in.Description)),
		Type:        data.TypeDirectory,
		ParentPath:  parentPath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.items.Insert(ctx, item); err != nil {
		if errors.Is(err, data.ErrDuplicatePath) {
			return nil, Conflictf("item '%s' already exists", path)
		}
		return nil, err
	}
	s.invalidateTree()
	return item, nil
}

// DeleteItem removes the item at path. Directories cascade to every
// descendant in one batch; the count of removed descendants is returned.
// The root sentinel and the last remaining file are protected.
func (s *WikiService) DeleteItem(ctx context.Context, path string) (*data.Item, int, error) {
	if path == "" {
		return nil, 0, Validationf("filepath is required")
	}
	if wikipath.IsRoot(path) {
		return nil, 0, Forbiddenf("cannot delete the root")
	}
	item, err := s.items.GetByPath(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	if item == nil {
		return nil, 0, NotFoundf("item '%s' not found", path)
	}

	if item.Type == data.TypeFile {
		count, err := s.items.CountFiles(ctx)
		if err != nil {
			return nil, 0, err
		}
		if count <= 1 {
			return nil, 0, Forbiddenf("cannot delete the last page '%s'", path)
		}
		if err := s.items.Delete(ctx, path); err != nil {
			return nil, 0, err
		}
		s.invalidateTree()
		return item, 0, nil
	}

	descendants, err := s.items.FindDescendants(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	paths := make([]string, 0, len(descendants))
	for _, d := range descendants {
		paths = append(paths, d.Path)
	}
	if err := s.items.DeleteMany(ctx, paths); err != nil {
		return nil, 0, err
	}
	s.invalidateTree()
	return item, len(descendants) - 1, nil
}

// Rename moves and/or retitles the item at OldPath. The new name is derived
// from the new title using the existing item's type; type never changes on
// rename. Directory moves rewrite the path prefix of every descendant in
// one transactional batch before the directory item itself is updated.
func (s *WikiService) Rename(ctx context.Context, in RenameInput) (*RenameResult, error) {
	oldPath := strings.TrimSpace(in.OldPath)
	newParent := strings.TrimSpace(in.NewParentPath)
	title := strings.TrimSpace(in.NewTitle)
	if oldPath == "" || newParent == "" || title == "" {
		return nil, Validationf("oldPath, newParentPath, and newTitle are required")
	}
	if wikipath.IsRoot(oldPath) {
		return nil, Forbiddenf("cannot modify the root")
	}

	item, err := s.items.GetByPath(ctx, oldPath)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, NotFoundf("item '%s' not found", oldPath)
	}

	newParent = normalizeParent(newParent)
	// The client already blocks dropping a directory into its own subtree,
	// but that check is not a security boundary.
	if item.Type == data.TypeDirectory &&
		(newParent == oldPath || wikipath.IsWithin(newParent, oldPath)) {
		return nil, Conflictf("cannot move '%s' into itself or its own descendant", oldPath)
	}

	name := wikipath.DeriveName(title, item.Type == data.TypeDirectory)
	newPath := wikipath.Join(newParent, name)
	if err := s.validatePath(newPath); err != nil {
		return nil, err
	}
	if err := s.requireDirectory(ctx, newParent); err != nil {
		return nil, err
	}

	description := item.Description
	if in.NewDescription != nil {
		description = s.plaintext.Sanitize(strings.TrimSpace(*in.NewDescription))
	}
	now := time.Now().UTC()

	if newPath == oldPath {
		// Pure metadata update; no path rewrite.
		if err := s.items.UpdateMetadata(ctx, oldPath, title, description, now); err != nil {
			return nil, err
		}
		s.invalidateTree()
		return &RenameResult{OldPath: oldPath, NewPath: oldPath, Title: title}, nil
	}

	occupant, err := s.items.GetByPath(ctx, newPath)
	if err != nil {
		return nil, err
	}
	if occupant != nil {
		return nil, Conflictf("item '%s' already exists", newPath)
	}

	if item.Type == data.TypeDirectory {
		descendants, err := s.items.FindDescendants(ctx, oldPath)
		if err != nil {
			return nil, err
		}
		rewrites := make([]data.PathRewrite, 0, len(descendants))
		for _, d := range descendants {
			if d.Path == oldPath {
				continue
			}
			// FindDescendants guarantees oldPath is a "/"-delimited prefix
			// here, so only the leading prefix is substituted.
			rewritten := newPath + "/" + strings.TrimPrefix(d.Path, oldPath+"/")
			rewrites = append(rewrites, data.PathRewrite{
				OldPath:       d.Path,
				NewPath:       rewritten,
				NewParentPath: wikipath.ParentOf(rewritten),
			})
		}
		if err := s.items.BulkRewrite(ctx, rewrites); err != nil {
			if errors.Is(err, data.ErrDuplicatePath) {
				return nil, Conflictf("item '%s' already exists", newPath)
			}
			return nil, err
		}
	}

	moved := *item
	moved.Path = newPath
	moved.Name = name
	moved.ParentPath = newParent
	moved.Title = title
	moved.Description = description
	moved.UpdatedAt = now
	if err := s.items.Rename(ctx, oldPath, &moved); err != nil {
		if errors.Is(err, data.ErrDuplicatePath) {
			return nil, Conflictf("item '%s' already exists", newPath)
		}
		return nil, err
	}
	s.invalidateTree()
	return &RenameResult{OldPath: oldPath, NewPath: newPath, Title: title}, nil
}

// EnsureWelcomePage seeds the default root page if no item occupies its
// path. Safe to run on every start.
func (s *WikiService) EnsureWelcomePage(ctx context.Context) (bool, error) {
	existing, err := s.items.GetByPath(ctx, WelcomePagePath)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	now := time.Now().UTC()
	item := &data.Item{
		Path:        WelcomePagePath,
		Name:        WelcomePagePath,
		Title:       "Welcome to Your Wiki!",
		Description: "The first page of your new wiki. Click to edit!",
		Content: "# Welcome to Your Wiki!\n\nThis is the first page. You can edit its content, title, or " +
			"description if you are an admin.\n\n## Features\n\n*   Create, edit, and delete pages and folders (Admin).\n" +
			"*   Read-only access for Students.\n*   Organize items hierarchically.\n*   User authentication and roles.\n\n" +
			"Use the controls in the sidebar to manage your wiki structure.",
		Type:       data.TypeFile,
		ParentPath: wikipath.Root,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.items.Insert(ctx, item); err != nil {
		if errors.Is(err, data.ErrDuplicatePath) {
			// Another instance seeded it first.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// validatePath checks every "/"-separated component of path against the
// path policy.
func (s *WikiService) validatePath(path string) error {
	for _, seg := range wikipath.Segments(path) {
		if !wikipath.IsValidSegment(seg) {
			return Validationf("invalid path segment '%s'", seg)
		}
	}
	return nil
}

// requireDirectory verifies that parentPath names an existing directory
// (the root always qualifies), keeping the parent-must-exist invariant.
func (s *WikiService) requireDirectory(ctx context.Context, parentPath string) error {
	if wikipath.IsRoot(parentPath) {
		return nil
	}
	parent, err := s.items.GetByPath(ctx, parentPath)
	if err != nil {
		return err
	}
	if parent == nil || parent.Type != data.TypeDirectory {
		return Validationf("'%s' is not a directory", parentPath)
	}
	return nil
}

func (s *WikiService) invalidateTree() {
	// Best effort; a stale snapshot expires on its own TTL.
	_ = s.cache.Delete(treeCacheKey)
}

func normalizeParent(p string) string {
	p = strings.TrimSpace(p)
	if wikipath.IsRoot(p) {
		return wikipath.Root
	}
	return strings.TrimSuffix(p, "/")
}
