package deltatree

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// FindPath returns the ids from a root item down to id, or nil if id is not in tree.
func FindPath(tree []TreeItem, id string) []string {
	for _, item := range tree {
		if item.ID == id {
			return []string{id}
		}
		if sub := FindPath(item.Children, id); len(sub) > 0 {
			return append([]string{item.ID}, sub...)
		}
	}
	return nil
}

// ResolveNode walks path one segment at a time. It returns nil as soon as a
// segment is missing, and for an empty path.
func ResolveNode(tree []TreeItem, path []string) *TreeItem {
	if len(path) == 0 {
		return nil
	}
	items := tree
	var node *TreeItem
	for _, id := range path {
		node = nil
		for i := range items {
			if items[i].ID == id {
				node = &items[i]
				break
			}
		}
		if node == nil {
			return nil
		}
		items = node.Children
	}
	return node
}

// Flatten returns every id in tree in pre-order.
func Flatten(tree []TreeItem) []string {
	var ids []string
	for _, item := range tree {
		ids = append(ids, item.ID)
		ids = append(ids, Flatten(item.Children)...)
	}
	return ids
}

// CloneTree returns a structural deep copy of tree.
func CloneTree(tree []TreeItem) []TreeItem {
	if tree == nil {
		return nil
	}
	out := make([]TreeItem, len(tree))
	for i, item := range tree {
		out[i] = TreeItem{ID: item.ID, Children: CloneTree(item.Children)}
	}
	return out
}

// insertNode appends item under the node at parentPath, or at the top level
// when parentPath is empty.
func insertNode(tree []TreeItem, parentPath []string, item TreeItem) ([]TreeItem, error) {
	if len(parentPath) == 0 {
		return append(tree, item), nil
	}
	parent := ResolveNode(tree, parentPath)
	if parent == nil {
		return tree, fmt.Errorf("%w: tree path %v", ErrNotFound, parentPath)
	}
	parent.Children = append(parent.Children, item)
	return tree, nil
}

// removeNode detaches the node at path and returns it with its subtree.
func removeNode(items []TreeItem, path []string) ([]TreeItem, *TreeItem) {
	if len(path) == 0 {
		return items, nil
	}
	for i := range items {
		if items[i].ID != path[0] {
			continue
		}
		if len(path) == 1 {
			removed := items[i]
			return append(items[:i:i], items[i+1:]...), &removed
		}
		var removed *TreeItem
		items[i].Children, removed = removeNode(items[i].Children, path[1:])
		return items, removed
	}
	return items, nil
}

// pruneTree drops every node whose id is in skip, together with its subtree.
func pruneTree(items []TreeItem, skip map[string]bool) []TreeItem {
	var out []TreeItem
	for _, item := range items {
		if skip[item.ID] {
			continue
		}
		out = append(out, TreeItem{ID: item.ID, Children: pruneTree(item.Children, skip)})
	}
	return out
}

// SeedDeltaFile copies the base snapshot's tree into an unseeded delta.
// It does nothing once the delta has a tree of its own.
func SeedDeltaFile(delta *DeltaFile, base *SaveFile) {
	if len(delta.DocumentTree) > 0 {
		return
	}
	delta.DocumentTree = CloneTree(base.DocumentTree)
}

// CalculateTree appends every live document that the tree does not reach as
// a new top-level item. Deleted documents stay out of the tree.
func CalculateTree(delta *DeltaFile) {
	reachable := make(map[string]bool)
	for _, id := range Flatten(delta.DocumentTree) {
		reachable[id] = true
	}

	var orphans []*DocumentDelta
	for id, doc := range delta.Documents {
		if reachable[id] || doc.Type == DeltaDelete {
			continue
		}
		orphans = append(orphans, doc)
	}
	slices.SortFunc(orphans, func(a, b *DocumentDelta) int {
		if c := cmp.Compare(ordinalOf(a.Ordinal), ordinalOf(b.Ordinal)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, doc := range orphans {
		delta.DocumentTree = append(delta.DocumentTree, TreeItem{ID: doc.ID})
	}
}

// rebuildTree lays out a new tree following order. Nodes named in order take
// the listed position. Children the order never mentions stay under their
// previous parent, after the listed ones. Ids in skip are left out entirely.
func rebuildTree(existing []TreeItem, order []OrderItem, skip map[string]bool) []TreeItem {
	src := CloneTree(existing)

	placed := make(map[string]bool)
	var mark func(items []OrderItem)
	mark = func(items []OrderItem) {
		for _, item := range items {
			placed[item.ID] = true
			mark(item.Children)
		}
	}
	mark(order)
	for id := range skip {
		placed[id] = true
	}

	var build func(items []OrderItem) []TreeItem
	build = func(items []OrderItem) []TreeItem {
		var out []TreeItem
		for _, item := range items {
			if skip[item.ID] {
				continue
			}
			node := TreeItem{ID: item.ID, Children: build(item.Children)}
			if old := ResolveNode(src, FindPath(src, item.ID)); old != nil {
				node.Children = append(node.Children, pruneTree(old.Children, placed)...)
			}
			out = append(out, node)
		}
		return out
	}

	result := build(order)
	return append(result, pruneTree(src, placed)...)
}

func ordinalOf(p *int) int {
	if p == nil {
		return math.MaxInt
	}
	return *p
}
