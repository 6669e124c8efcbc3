// Package vault implements the hierarchical workspace tree: the node
// forest, the two storage backends that satisfy one operation contract,
// and the manager that coordinates vaults.
package vault

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/focosx/focos/internal/apperr"
)

// NodeType discriminates workspace tree entries.
type NodeType string

const (
	NodeFile   NodeType = "FILE"
	NodeFolder NodeType = "FOLDER"
	NodeCanvas NodeType = "CANVAS"
)

// CanvasExt is the extension identifying canvas documents.
const CanvasExt = ".canvas"

// DefaultFileExt is appended to FILE nodes created without an extension.
const DefaultFileExt = ".md"

// Node is one entry in a vault's forest. Only FOLDER nodes carry a
// Children list; CANVAS and FILE nodes are leaves. Content is an opaque
// payload (a canvas document for CANVAS nodes, arbitrary bytes for FILE
// nodes) that the tree layer never inspects.
type Node struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     NodeType        `json:"type"`
	ParentID *string         `json:"parentId"`
	Children []Node          `json:"children,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// IsValidNodeType reports whether t is one of the known node types.
func IsValidNodeType(t NodeType) bool {
	switch t {
	case NodeFile, NodeFolder, NodeCanvas:
		return true
	}
	return false
}

// EnsureExtension appends the type-appropriate extension to a node name
// when missing: ".canvas" for CANVAS nodes, ".md" for FILE nodes that have
// no extension at all. FOLDER names pass through untouched.
func EnsureExtension(name string, t NodeType) string {
	switch t {
	case NodeCanvas:
		if !strings.HasSuffix(strings.ToLower(name), CanvasExt) {
			return name + CanvasExt
		}
	case NodeFile:
		if filepath.Ext(name) == "" {
			return name + DefaultFileExt
		}
	}
	return name
}

// FindNode searches the forest depth-first and returns a pointer to the
// first node with the given id. The pointer is only valid until the forest
// is next modified.
func FindNode(forest []Node, id string) (*Node, bool) {
	for i := range forest {
		if forest[i].ID == id {
			return &forest[i], true
		}
		if n, ok := FindNode(forest[i].Children, id); ok {
			return n, true
		}
	}
	return nil, false
}

// Walk visits every node in the forest depth-first.
func Walk(forest []Node, fn func(n *Node)) {
	for i := range forest {
		fn(&forest[i])
		Walk(forest[i].Children, fn)
	}
}

// Flatten returns every node in the forest as a flat list with Children
// stripped, preserving depth-first order.
func Flatten(forest []Node) []Node {
	var out []Node
	Walk(forest, func(n *Node) {
		flat := *n
		flat.Children = nil
		out = append(out, flat)
	})
	return out
}

// CloneForest deep-copies a forest so mutations can be computed on a copy
// and swapped in only after they are persisted.
func CloneForest(forest []Node) []Node {
	if forest == nil {
		return nil
	}
	out := make([]Node, len(forest))
	for i, n := range forest {
		out[i] = n
		out[i].Children = CloneForest(n.Children)
		if n.Content != nil {
			out[i].Content = append(json.RawMessage(nil), n.Content...)
		}
	}
	return out
}

// InsertNode places n into the forest. A nil ParentID appends a new root;
// otherwise the parent must exist and be a FOLDER.
func InsertNode(forest []Node, n Node) ([]Node, error) {
	if n.ParentID == nil {
		return append(forest, n), nil
	}
	parent, ok := FindNode(forest, *n.ParentID)
	if !ok {
		return nil, fmt.Errorf("vault: parent %q: %w", *n.ParentID, apperr.ErrNotFound)
	}
	if parent.Type != NodeFolder {
		return nil, fmt.Errorf("vault: parent %q is not a folder: %w", *n.ParentID, apperr.ErrConflict)
	}
	parent.Children = append(parent.Children, n)
	return forest, nil
}

// RemoveNode deletes the node with the given id, cascading to all of its
// descendants. The second return value reports whether anything was
// removed.
func RemoveNode(forest []Node, id string) ([]Node, bool) {
	for i := range forest {
		if forest[i].ID == id {
			return append(forest[:i], forest[i+1:]...), true
		}
		if children, ok := RemoveNode(forest[i].Children, id); ok {
			forest[i].Children = children
			return forest, true
		}
	}
	return forest, false
}

// SubtreeIDs returns the ids of n and all of its descendants.
func SubtreeIDs(n *Node) []string {
	ids := []string{n.ID}
	for i := range n.Children {
		ids = append(ids, SubtreeIDs(&n.Children[i])...)
	}
	return ids
}

// ValidateForest checks the structural invariants: ids unique across the
// forest, children only under FOLDER nodes, and parent back-references
// naming existing FOLDERs.
func ValidateForest(forest []Node) error {
	seen := make(map[string]NodeType)
	var problem error
	Walk(forest, func(n *Node) {
		if problem != nil {
			return
		}
		if _, dup := seen[n.ID]; dup {
			problem = fmt.Errorf("vault: duplicate node id %q: %w", n.ID, apperr.ErrConflict)
			return
		}
		seen[n.ID] = n.Type
		if n.Type != NodeFolder && len(n.Children) > 0 {
			problem = fmt.Errorf("vault: leaf node %q has children", n.ID)
		}
	})
	if problem != nil {
		return problem
	}
	Walk(forest, func(n *Node) {
		if problem != nil || n.ParentID == nil {
			return
		}
		t, ok := seen[*n.ParentID]
		if !ok {
			problem = fmt.Errorf("vault: node %q references missing parent %q", n.ID, *n.ParentID)
			return
		}
		if t != NodeFolder {
			problem = fmt.Errorf("vault: node %q parent %q is not a folder", n.ID, *n.ParentID)
		}
	})
	return problem
}
