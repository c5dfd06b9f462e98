//go:build unit

package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-course-wiki/internal/cache"
	"go-course-wiki/internal/config"
	"go-course-wiki/internal/data"
)

// fakeItemRepository is an in-memory ItemRepository keyed by path, with the
// same duplicate-key semantics as the SQL implementation.
type fakeItemRepository struct {
	items map[string]*data.Item
}

func newFakeItemRepository() *fakeItemRepository {
	return &fakeItemRepository{items: make(map[string]*data.Item)}
}

func (f *fakeItemRepository) seed(items ...*data.Item) {
	for _, item := range items {
		copied := *item
		f.items[copied.Path] = &copied
	}
}

func (f *fakeItemRepository) GetByPath(_ context.Context, path string) (*data.Item, error) {
	item, ok := f.items[path]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItemRepository) GetAll(_ context.Context) ([]*data.Item, error) {
	all := make([]*data.Item, 0, len(f.items))
	for _, item := range f.items {
		copied := *item
		all = append(all, &copied)
	}
	return all, nil
}

func (f *fakeItemRepository) FindChildren(_ context.Context, parentPath string) ([]*data.Item, error) {
	var children []*data.Item
	for _, item := range f.items {
		if item.ParentPath == parentPath {
			copied := *item
			children = append(children, &copied)
		}
	}
	return children, nil
}

func (f *fakeItemRepository) FindDescendants(_ context.Context, path string) ([]*data.Item, error) {
	var descendants []*data.Item
	for _, item := range f.items {
		if item.Path == path || strings.HasPrefix(item.Path, path+"/") {
			copied := *item
			descendants = append(descendants, &copied)
		}
	}
	return descendants, nil
}

func (f *fakeItemRepository) Insert(_ context.Context, item *data.Item) error {
	if _, exists := f.items[item.Path]; exists {
		return data.ErrDuplicatePath
	}
	copied := *item
	f.items[copied.Path] = &copied
	return nil
}

func (f *fakeItemRepository) Upsert(_ context.Context, item *data.Item) error {
	copied := *item
	if existing, ok := f.items[item.Path]; ok {
		copied.CreatedAt = existing.CreatedAt
	}
	f.items[copied.Path] = &copied
	return nil
}

func (f *fakeItemRepository) Rename(_ context.Context, oldPath string, item *data.Item) error {
	if _, ok := f.items[oldPath]; !ok {
		return fmt.Errorf("no item found to rename at %q", oldPath)
	}
	if _, occupied := f.items[item.Path]; occupied && item.Path != oldPath {
		return data.ErrDuplicatePath
	}
	delete(f.items, oldPath)
	copied := *item
	f.items[copied.Path] = &copied
	return nil
}

func (f *fakeItemRepository) UpdateMetadata(_ context.Context, path, title, description string, updatedAt time.Time) error {
	item, ok := f.items[path]
	if !ok {
		return fmt.Errorf("no item found to update at %q", path)
	}
	item.Title = title
	item.Description = description
	item.UpdatedAt = updatedAt
	return nil
}

func (f *fakeItemRepository) BulkRewrite(_ context.Context, rewrites []data.PathRewrite) error {
	moved := make([]*data.Item, 0, len(rewrites))
	for _, rw := range rewrites {
		item, ok := f.items[rw.OldPath]
		if !ok {
			return fmt.Errorf("no item found to rewrite at %q", rw.OldPath)
		}
		copied := *item
		copied.Path = rw.NewPath
		copied.ParentPath = rw.NewParentPath
		moved = append(moved, &copied)
		delete(f.items, rw.OldPath)
	}
	for _, item := range moved {
		if _, occupied := f.items[item.Path]; occupied {
			return data.ErrDuplicatePath
		}
		f.items[item.Path] = item
	}
	return nil
}

func (f *fakeItemRepository) Delete(_ context.Context, path string) error {
	if _, ok := f.items[path]; !ok {
		return fmt.Errorf("no item found to delete at %q", path)
	}
	delete(f.items, path)
	return nil
}

func (f *fakeItemRepository) DeleteMany(_ context.Context, paths []string) error {
	for _, p := range paths {
		delete(f.items, p)
	}
	return nil
}

func (f *fakeItemRepository) CountFiles(_ context.Context) (int, error) {
	count := 0
	for _, item := range f.items {
		if item.Type == data.TypeFile {
			count++
		}
	}
	return count, nil
}

func newTestWikiService(t *testing.T) (*WikiService, *fakeItemRepository) {
	t.Helper()
	c, err := cache.New(config.CacheConfig{FilePath: filepath.Join(t.TempDir(), "cache.db")})
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	repo := newFakeItemRepository()
	return NewWikiService(repo, c), repo
}

func fixtureItem(path string, itemType data.ItemType) *data.Item {
	now := time.Now().UTC()
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	parent := "."
	if i := strings.LastIndex(path, "/"); i >= 0 {
		parent = path[:i]
	}
	return &data.Item{
		Path:       path,
		Name:       name,
		Title:      name,
		Type:       itemType,
		ParentPath: parent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func strptr(s string) *string { return &s }

func TestWikiService_GetPage(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(fixtureItem("welcome.md", data.TypeFile), fixtureItem("docs", data.TypeDirectory))

	page, err := svc.GetPage(ctx, "welcome.md")
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if page.Path != "welcome.md" {
		t.Errorf("unexpected page: %+v", page)
	}

	if _, err := svc.GetPage(ctx, "missing.md"); KindOf(err) != KindNotFound {
		t.Errorf("expected NotFound for missing page, got %v", err)
	}
	// A directory is not a page.
	if _, err := svc.GetPage(ctx, "docs"); KindOf(err) != KindNotFound {
		t.Errorf("expected NotFound for directory path, got %v", err)
	}
	if _, err := svc.GetPage(ctx, ""); KindOf(err) != KindValidation {
		t.Errorf("expected Validation for empty path, got %v", err)
	}
}

func TestWikiService_SavePage_Validation(t *testing.T) {
	svc, _ := newTestWikiService(t)
	ctx := context.Background()

	testCases := []struct {
		name string
		in   SavePageInput
	}{
		{"missing content", SavePageInput{Title: "T", ParentPath: strptr(".")}},
		{"blank title", SavePageInput{Title: "  ", ParentPath: strptr("."), Content: strptr("x")}},
		{"missing parent for new page", SavePageInput{Title: "T", Content: strptr("x")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SavePage(ctx, tc.in); KindOf(err) != KindValidation {
				t.Errorf("expected Validation, got %v", err)
			}
		})
	}
}

func TestWikiService_SavePage_CreateAndUpdate(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()

	created, err := svc.SavePage(ctx, SavePageInput{
		Title:      "My Page",
		ParentPath: strptr("."),
		Content:    strptr("# Hello"),
	})
	if err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	if created.Path != "my_page.md" || created.ParentPath != "." || created.Type != data.TypeFile {
		t.Errorf("unexpected created item: %+v", created)
	}

	updated, err := svc.SavePage(ctx, SavePageInput{
		PathToUpdate: "my_page.md",
		Title:        "My Page, Revised",
		Content:      strptr("# Hello again"),
	})
	if err != nil {
		t.Fatalf("update SavePage failed: %v", err)
	}
	if updated.Path != "my_page.md" {
		t.Errorf("update should keep the path, got %q", updated.Path)
	}
	stored := repo.items["my_page.md"]
	if stored.Title != "My Page, Revised" || stored.Content != "# Hello again" {
		t.Errorf("update not persisted: %+v", stored)
	}
	if len(repo.items) != 1 {
		t.Errorf("expected a single item, got %d", len(repo.items))
	}
}

func TestWikiService_SavePage_SanitizesContent(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()

	_, err := svc.SavePage(ctx, SavePageInput{
		Title:       "Notes<script>alert(1)</script>",
		Description: "<b>desc</b>",
		ParentPath:  strptr("."),
		Content:     strptr(`hello <script>alert(1)</script><b>bold</b>`),
	})
	if err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	var stored *data.Item
	for _, item := range repo.items {
		stored = item
	}
	if strings.Contains(stored.Content, "<script>") {
		t.Errorf("script tag survived sanitization: %q", stored.Content)
	}
	if !strings.Contains(stored.Content, "<b>bold</b>") {
		t.Errorf("benign formatting should survive sanitization: %q", stored.Content)
	}
	if strings.Contains(stored.Description, "<b>") {
		t.Errorf("description should be stripped to plain text: %q", stored.Description)
	}
}

func TestWikiService_SavePage_ParentChecks(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(fixtureItem("page.md", data.TypeFile))

	in := SavePageInput{Title: "T", Content: strptr("x"), ParentPath: strptr("missing")}
	if _, err := svc.SavePage(ctx, in); KindOf(err) != KindValidation {
		t.Errorf("expected Validation for missing parent, got %v", err)
	}

	in.ParentPath = strptr("page.md")
	if _, err := svc.SavePage(ctx, in); KindOf(err) != KindValidation {
		t.Errorf("expected Validation for file parent, got %v", err)
	}
}

func TestWikiService_SavePage_DirectoryOccupiesPath(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	occupant := fixtureItem("my_page.md", data.TypeDirectory)
	repo.seed(occupant)

	in := SavePageInput{Title: "My Page", ParentPath: strptr("."), Content: strptr("x")}
	if _, err := svc.SavePage(ctx, in); KindOf(err) != KindConflict {
		t.Errorf("expected Conflict when a directory occupies the path, got %v", err)
	}
}

func TestWikiService_CreateDirectory(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()

	dir, err := svc.CreateDirectory(ctx, CreateDirectoryInput{Title: "Biology", ParentPath: strptr(".")})
	if err != nil {
		t.Fatalf("CreateDirectory failed: %v", err)
	}
	if dir.Path != "biology" || dir.Type != data.TypeDirectory {
		t.Errorf("unexpected directory: %+v", dir)
	}
	if _, ok := repo.items["biology"]; !ok {
		t.Error("directory not persisted")
	}

	// Strict create: the occupied path is a conflict, not an overwrite.
	if _, err := svc.CreateDirectory(ctx, CreateDirectoryInput{Title: "Biology", ParentPath: strptr(".")}); KindOf(err) != KindConflict {
		t.Errorf("expected Conflict for duplicate directory, got %v", err)
	}

	if _, err := svc.CreateDirectory(ctx, CreateDirectoryInput{Title: " ", ParentPath: strptr(".")}); KindOf(err) != KindValidation {
		t.Errorf("expected Validation for blank title, got %v", err)
	}
}

func TestWikiService_DeleteItem_Protections(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(fixtureItem("welcome.md", data.TypeFile))

	if _, _, err := svc.DeleteItem(ctx, "."); KindOf(err) != KindForbidden {
		t.Errorf("expected Forbidden for root delete, got %v", err)
	}
	if _, _, err := svc.DeleteItem(ctx, "missing.md"); KindOf(err) != KindNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	// The only remaining page cannot be removed.
	if _, _, err := svc.DeleteItem(ctx, "welcome.md"); KindOf(err) != KindForbidden {
		t.Errorf("expected Forbidden for last page delete, got %v", err)
	}
}

func TestWikiService_DeleteItem_File(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(fixtureItem("welcome.md", data.TypeFile), fixtureItem("notes.md", data.TypeFile))

	deleted, removed, err := svc.DeleteItem(ctx, "notes.md")
	if err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if deleted.Path != "notes.md" || removed != 0 {
		t.Errorf("unexpected result: item=%+v removed=%d", deleted, removed)
	}
	if _, ok := repo.items["notes.md"]; ok {
		t.Error("file still present after delete")
	}
}

func TestWikiService_DeleteItem_DirectoryCascade(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(
		fixtureItem("welcome.md", data.TypeFile),
		fixtureItem("a", data.TypeDirectory),
		fixtureItem("a/b.md", data.TypeFile),
		fixtureItem("a/c", data.TypeDirectory),
		fixtureItem("a/c/d.md", data.TypeFile),
		fixtureItem("ab", data.TypeDirectory),
		fixtureItem("ab/e.md", data.TypeFile),
	)

	deleted, removed, err := svc.DeleteItem(ctx, "a")
	if err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if deleted.Type != data.TypeDirectory || removed != 3 {
		t.Errorf("expected 3 removed descendants, got item=%+v removed=%d", deleted, removed)
	}
	for _, p := range []string{"a", "a/b.md", "a/c", "a/c/d.md"} {
		if _, ok := repo.items[p]; ok {
			t.Errorf("%q still present after cascade delete", p)
		}
	}
	// The prefix sibling must survive.
	for _, p := range []string{"welcome.md", "ab", "ab/e.md"} {
		if _, ok := repo.items[p]; !ok {
			t.Errorf("%q should have survived the cascade", p)
		}
	}
}

func TestWikiService_Rename_File(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(fixtureItem("notes.md", data.TypeFile), fixtureItem("docs", data.TypeDirectory))

	res, err := svc.Rename(ctx, RenameInput{
		OldPath:       "notes.md",
		NewParentPath: "docs",
		NewTitle:      "Summary",
	})
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if res.NewPath != "docs/summary.md" || res.OldPath != "notes.md" {
		t.Errorf("unexpected result: %+v", res)
	}
	moved, ok := repo.items["docs/summary.md"]
	if !ok {
		t.Fatal("renamed item missing from store")
	}
	if moved.ParentPath != "docs" || moved.Title != "Summary" || moved.Type != data.TypeFile {
		t.Errorf("unexpected moved item: %+v", moved)
	}
	if _, ok := repo.items["notes.md"]; ok {
		t.Error("old path still present after rename")
	}
}

func TestWikiService_Rename_DirectoryCascade(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(
		fixtureItem("a", data.TypeDirectory),
		fixtureItem("a/b.md", data.TypeFile),
		fixtureItem("a/c", data.TypeDirectory),
		fixtureItem("a/c/d.md", data.TypeFile),
		fixtureItem("ab", data.TypeDirectory),
		fixtureItem("ab/e.md", data.TypeFile),
	)

	res, err := svc.Rename(ctx, RenameInput{
		OldPath:       "a",
		NewParentPath: ".",
		NewTitle:      "X",
	})
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if res.NewPath != "x" {
		t.Errorf("expected new path x, got %q", res.NewPath)
	}

	want := map[string]string{
		"x":        ".",
		"x/b.md":   "x",
		"x/c":      "x",
		"x/c/d.md": "x/c",
	}
	for path, parent := range want {
		item, ok := repo.items[path]
		if !ok {
			t.Errorf("expected %q after cascade rename", path)
			continue
		}
		if item.ParentPath != parent {
			t.Errorf("%q: expected parent %q, got %q", path, parent, item.ParentPath)
		}
	}
	for _, p := range []string{"a", "a/b.md", "a/c", "a/c/d.md"} {
		if _, ok := repo.items[p]; ok {
			t.Errorf("old path %q still present after cascade rename", p)
		}
	}
	// The prefix sibling is not part of the subtree.
	if _, ok := repo.items["ab/e.md"]; !ok {
		t.Error("ab/e.md should have been left alone")
	}
}

func TestWikiService_Rename_SelfContainment(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(fixtureItem("a", data.TypeDirectory), fixtureItem("a/b", data.TypeDirectory))

	if _, err := svc.Rename(ctx, RenameInput{OldPath: "a", NewParentPath: "a/b", NewTitle: "A"}); KindOf(err) != KindConflict {
		t.Errorf("expected Conflict moving a directory into its descendant, got %v", err)
	}
	if _, err := svc.Rename(ctx, RenameInput{OldPath: "a", NewParentPath: "a", NewTitle: "A"}); KindOf(err) != KindConflict {
		t.Errorf("expected Conflict moving a directory into itself, got %v", err)
	}
}

func TestWikiService_Rename_MetadataOnly(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	dir := fixtureItem("a", data.TypeDirectory)
	dir.Description = "old description"
	repo.seed(dir)

	// Same derived name and parent: only title changes, description is kept.
	res, err := svc.Rename(ctx, RenameInput{OldPath: "a", NewParentPath: ".", NewTitle: "A"})
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if res.NewPath != "a" {
		t.Errorf("expected path to be unchanged, got %q", res.NewPath)
	}
	stored := repo.items["a"]
	if stored.Title != "A" {
		t.Errorf("title not updated: %+v", stored)
	}
	if stored.Description != "old description" {
		t.Errorf("nil description should keep the existing one, got %q", stored.Description)
	}

	res, err = svc.Rename(ctx, RenameInput{
		OldPath: "a", NewParentPath: ".", NewTitle: "A", NewDescription: strptr("new description"),
	})
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if repo.items["a"].Description != "new description" {
		t.Errorf("description not updated: %+v", repo.items["a"])
	}
}

func TestWikiService_Rename_Conflicts(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	repo.seed(
		fixtureItem("a.md", data.TypeFile),
		fixtureItem("b.md", data.TypeFile),
		fixtureItem("welcome.md", data.TypeFile),
	)

	if _, err := svc.Rename(ctx, RenameInput{OldPath: "a.md", NewParentPath: ".", NewTitle: "B"}); KindOf(err) != KindConflict {
		t.Errorf("expected Conflict for occupied destination, got %v", err)
	}
	if _, err := svc.Rename(ctx, RenameInput{OldPath: "a.md", NewParentPath: "welcome.md", NewTitle: "A"}); KindOf(err) != KindValidation {
		t.Errorf("expected Validation for file destination parent, got %v", err)
	}
	if _, err := svc.Rename(ctx, RenameInput{OldPath: ".", NewParentPath: ".", NewTitle: "Root"}); KindOf(err) != KindForbidden {
		t.Errorf("expected Forbidden for root rename, got %v", err)
	}
	if _, err := svc.Rename(ctx, RenameInput{OldPath: "", NewParentPath: ".", NewTitle: "X"}); KindOf(err) != KindValidation {
		t.Errorf("expected Validation for missing fields, got %v", err)
	}
}

func TestWikiService_EnsureWelcomePage(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()

	created, err := svc.EnsureWelcomePage(ctx)
	if err != nil {
		t.Fatalf("EnsureWelcomePage failed: %v", err)
	}
	if !created {
		t.Error("expected first call to create the page")
	}
	if _, ok := repo.items[WelcomePagePath]; !ok {
		t.Error("welcome page not persisted")
	}

	created, err = svc.EnsureWelcomePage(ctx)
	if err != nil {
		t.Fatalf("second EnsureWelcomePage failed: %v", err)
	}
	if created {
		t.Error("second call should be a no-op")
	}
}

func TestWikiService_ListTree_Order(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()

	apple := fixtureItem("apple.md", data.TypeFile)
	apple.Title = "Apple"
	zoo := fixtureItem("zoo", data.TypeDirectory)
	zoo.Title = "Zoo"
	alpha := fixtureItem("zoo/alpha.md", data.TypeFile)
	alpha.Title = "Alpha"
	zeta := fixtureItem("zoo/zeta", data.TypeDirectory)
	zeta.Title = "Zeta"
	repo.seed(apple, zoo, alpha, zeta)

	forest, err := svc.ListTree(ctx)
	if err != nil {
		t.Fatalf("ListTree failed: %v", err)
	}
	if len(forest) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(forest))
	}
	// Directories sort before files regardless of title.
	if forest[0].Path != "zoo" || forest[1].Path != "apple.md" {
		t.Errorf("unexpected root order: %q, %q", forest[0].Path, forest[1].Path)
	}
	children := forest[0].Children
	if len(children) != 2 {
		t.Fatalf("expected 2 children of zoo, got %d", len(children))
	}
	if children[0].Path != "zoo/zeta" || children[1].Path != "zoo/alpha.md" {
		t.Errorf("unexpected child order: %q, %q", children[0].Path, children[1].Path)
	}
}

func TestWikiService_ListTree_InvalidatedOnMutation(t *testing.T) {
	svc, _ := newTestWikiService(t)
	ctx := context.Background()

	if _, err := svc.EnsureWelcomePage(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	forest, err := svc.ListTree(ctx)
	if err != nil {
		t.Fatalf("ListTree failed: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("expected 1 root item, got %d", len(forest))
	}

	if _, err := svc.SavePage(ctx, SavePageInput{
		Title: "Second", ParentPath: strptr("."), Content: strptr("x"),
	}); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}
	forest, err = svc.ListTree(ctx)
	if err != nil {
		t.Fatalf("ListTree after mutation failed: %v", err)
	}
	if len(forest) != 2 {
		t.Errorf("expected the snapshot to be rebuilt after a save, got %d roots", len(forest))
	}
}

func TestWikiService_ListTree_DropsOrphans(t *testing.T) {
	svc, repo := newTestWikiService(t)
	ctx := context.Background()
	orphan := fixtureItem("ghost/page.md", data.TypeFile)
	repo.seed(fixtureItem("welcome.md", data.TypeFile), orphan)

	forest, err := svc.ListTree(ctx)
	if err != nil {
		t.Fatalf("ListTree failed: %v", err)
	}
	if len(forest) != 1 || forest[0].Path != "welcome.md" {
		t.Errorf("orphan should not surface at the root: %+v", forest)
	}
}
