package service

import (
	"context"
	"encoding/json"
	"sort"

	"go-course-wiki/internal/data"
	"go-course-wiki/internal/wikipath"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListTree assembles the whole wiki into a forest of items, each carrying
// its sorted children. The result is a read-only snapshot served from the
// cache between mutations.
func (s *WikiService) ListTree(ctx context.Context) ([]*data.Item, error) {
	if cached, err := s.cache.Get(treeCacheKey); err == nil && cached != nil {
		var forest []*data.Item
		if err := json.Unmarshal(cached, &forest); err == nil {
			return forest, nil
		}
		// An undecodable entry is dropped and rebuilt.
		_ = s.cache.Delete(treeCacheKey)
	}

	items, err := s.items.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	forest := buildForest(items)

	if encoded, err := json.Marshal(forest); err == nil {
		_ = s.cache.Set(treeCacheKey, encoded, treeCacheTTL)
	}
	return forest, nil
}

// buildForest turns the flat item collection into a hierarchy by bucketing
// on parentPath. Items whose parent is missing are dropped rather than
// surfaced at the root.
func buildForest(items []*data.Item) []*data.Item {
	byPath := make(map[string]*data.Item, len(items))
	for _, item := range items {
		item.Children = []*data.Item{}
		byPath[item.Path] = item
	}

	forest := []*data.Item{}
	for _, item := range items {
		if wikipath.IsRoot(item.ParentPath) {
			forest = append(forest, item)
			continue
		}
		if parent, ok := byPath[item.ParentPath]; ok {
			parent.Children = append(parent.Children, item)
		}
	}

	// Collators are not safe for concurrent use, so each assembly gets its
	// own.
	sortForest(forest, collate.New(language.Und))
	return forest
}

// sortForest orders siblings directories-first, then alphabetically by
// title (falling back to name), recursing into children.
func sortForest(nodes []*data.Item, c *collate.Collator) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Type != b.Type {
			return a.Type == data.TypeDirectory
		}
		return c.CompareString(displayTitle(a), displayTitle(b)) < 0
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortForest(n.Children, c)
		}
	}
}

func displayTitle(item *data.Item) string {
	if item.Title != "" {
		return item.Title
	}
	return item.Name
}
