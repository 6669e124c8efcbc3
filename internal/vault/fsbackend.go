package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/storage"
)

// FSBackend mirrors a real directory tree: directories are FOLDER nodes,
// files are FILE or CANVAS nodes. Node identity is derived from the
// on-disk path (vaultID:relpath), so ids are backend-assigned and known
// only after the external call confirms. Every mutation is an external
// filesystem call followed by a full reload of the mirror; the reload is
// skipped when the call fails so the mirror never shows a half-applied
// tree.
type FSBackend struct {
	vaultID string
	root    string

	mu     sync.RWMutex
	forest []Node
}

// NewFSBackend creates a real-filesystem backend rooted at the vault's
// absolute path.
func NewFSBackend(vaultID, root string) *FSBackend {
	return &FSBackend{vaultID: vaultID, root: filepath.Clean(root)}
}

func (b *FSBackend) Kind() string { return "fs" }

// LoadTree walks the directory tree and installs the result as the mirror.
func (b *FSBackend) LoadTree(_ context.Context) ([]Node, error) {
	forest, err := b.scanDir(b.root, nil)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.forest = forest
	b.mu.Unlock()
	return CloneForest(forest), nil
}

// Tree returns a snapshot of the mirror.
func (b *FSBackend) Tree() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return CloneForest(b.forest)
}

// CreateNode translates to mkdir or an exclusive file create, then reloads
// the mirror. The returned node carries the backend-assigned id.
func (b *FSBackend) CreateNode(ctx context.Context, name string, nodeType NodeType, parentID *string) (Node, error) {
	name = EnsureExtension(name, nodeType)
	parentRel := ""
	if parentID != nil {
		parent, err := b.nodeRel(*parentID)
		if err != nil {
			return Node{}, err
		}
		b.mu.RLock()
		p, ok := FindNode(b.forest, *parentID)
		b.mu.RUnlock()
		if !ok || p.Type != NodeFolder {
			return Node{}, fmt.Errorf("vault: parent %q: %w", *parentID, apperr.ErrNotFound)
		}
		parentRel = parent
	}

	rel := joinRel(parentRel, name)
	abs, err := storage.SafeJoin(b.root, filepath.FromSlash(rel))
	if err != nil {
		return Node{}, apperr.Backend("create", rel, err)
	}
	if err := storage.CreateEntry(abs, nodeType == NodeFolder); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Node{}, fmt.Errorf("vault: %q: %w", rel, apperr.ErrConflict)
		}
		return Node{}, apperr.Backend("create", rel, err)
	}

	if _, err := b.LoadTree(ctx); err != nil {
		return Node{}, err
	}
	id := b.nodeID(rel)
	b.mu.RLock()
	n, ok := FindNode(b.forest, id)
	b.mu.RUnlock()
	if !ok {
		return Node{}, apperr.Backend("create", rel, fmt.Errorf("created entry missing after reload"))
	}
	created := *n
	created.Children = nil
	return created, nil
}

// DeleteNode delegates to a recursive external removal, then reloads.
func (b *FSBackend) DeleteNode(ctx context.Context, id string) error {
	rel, err := b.nodeRel(id)
	if err != nil {
		return err
	}
	b.mu.RLock()
	_, ok := FindNode(b.forest, id)
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("vault: node %q: %w", id, apperr.ErrNotFound)
	}
	abs, err := storage.SafeJoin(b.root, filepath.FromSlash(rel))
	if err != nil {
		return apperr.Backend("delete", rel, err)
	}
	if err := storage.RemoveEntry(abs, true); err != nil {
		return apperr.Backend("delete", rel, err)
	}
	_, err = b.LoadTree(ctx)
	return err
}

// RenameNode renames the entry in place and reloads; the node's id changes
// with its path.
func (b *FSBackend) RenameNode(ctx context.Context, id, newName string) (Node, error) {
	rel, err := b.nodeRel(id)
	if err != nil {
		return Node{}, err
	}
	b.mu.RLock()
	n, ok := FindNode(b.forest, id)
	b.mu.RUnlock()
	if !ok {
		return Node{}, fmt.Errorf("vault: node %q: %w", id, apperr.ErrNotFound)
	}
	newName = EnsureExtension(newName, n.Type)

	oldAbs, err := storage.SafeJoin(b.root, filepath.FromSlash(rel))
	if err != nil {
		return Node{}, apperr.Backend("rename", rel, err)
	}
	newRel := joinRel(dirRel(rel), newName)
	newAbs, err := storage.SafeJoin(b.root, filepath.FromSlash(newRel))
	if err != nil {
		return Node{}, apperr.Backend("rename", newRel, err)
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return Node{}, apperr.Backend("rename", rel, err)
	}

	if _, err := b.LoadTree(ctx); err != nil {
		return Node{}, err
	}
	newID := b.nodeID(newRel)
	b.mu.RLock()
	renamed, ok := FindNode(b.forest, newID)
	b.mu.RUnlock()
	if !ok {
		return Node{}, apperr.Backend("rename", newRel, fmt.Errorf("renamed entry missing after reload"))
	}
	out := *renamed
	out.Children = nil
	return out, nil
}

// ReadDocument returns the file's own bytes.
func (b *FSBackend) ReadDocument(_ context.Context, nodeID string) ([]byte, error) {
	rel, err := b.nodeRel(nodeID)
	if err != nil {
		return nil, err
	}
	b.mu.RLock()
	_, ok := FindNode(b.forest, nodeID)
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vault: node %q: %w", nodeID, apperr.ErrNotFound)
	}
	abs, err := storage.SafeJoin(b.root, filepath.FromSlash(rel))
	if err != nil {
		return nil, apperr.Backend("read", rel, err)
	}
	data, err := storage.ReadFileOrEmpty(abs)
	if err != nil {
		return nil, apperr.Backend("read", rel, err)
	}
	return data, nil
}

// WriteDocument writes the file atomically.
func (b *FSBackend) WriteDocument(_ context.Context, nodeID string, data []byte) error {
	rel, err := b.nodeRel(nodeID)
	if err != nil {
		return err
	}
	b.mu.RLock()
	_, ok := FindNode(b.forest, nodeID)
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("vault: node %q: %w", nodeID, apperr.ErrNotFound)
	}
	abs, err := storage.SafeJoin(b.root, filepath.FromSlash(rel))
	if err != nil {
		return apperr.Backend("write", rel, err)
	}
	if err := storage.WriteFileAtomic(abs, data); err != nil {
		return apperr.Backend("write", rel, err)
	}
	return nil
}

// nodeID builds the backend-assigned id for a slash-separated relative
// path.
func (b *FSBackend) nodeID(rel string) string {
	return b.vaultID + ":" + rel
}

// nodeRel extracts the relative path from a backend-assigned id.
func (b *FSBackend) nodeRel(id string) (string, error) {
	prefix := b.vaultID + ":"
	if !strings.HasPrefix(id, prefix) {
		return "", fmt.Errorf("vault: node %q: %w", id, apperr.ErrNotFound)
	}
	return strings.TrimPrefix(id, prefix), nil
}

// scanDir walks one directory level. Hidden entries are skipped; folders
// sort before files, alphabetically within each group.
func (b *FSBackend) scanDir(dir string, parentID *string) ([]Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.Backend("scan", dir, err)
	}

	nodes := make([]Node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		abs := filepath.Join(dir, name)
		rel, err := filepath.Rel(b.root, abs)
		if err != nil {
			return nil, apperr.Backend("scan", abs, err)
		}
		id := b.nodeID(filepath.ToSlash(rel))

		n := Node{ID: id, Name: name, ParentID: parentID}
		switch {
		case entry.IsDir():
			n.Type = NodeFolder
			children, err := b.scanDir(abs, &n.ID)
			if err != nil {
				return nil, err
			}
			n.Children = children
		case strings.HasSuffix(strings.ToLower(name), CanvasExt):
			n.Type = NodeCanvas
		default:
			n.Type = NodeFile
		}
		nodes = append(nodes, n)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		iDir := nodes[i].Type == NodeFolder
		jDir := nodes[j].Type == NodeFolder
		if iDir != jDir {
			return iDir
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}

// joinRel joins slash-separated relative path segments for node ids.
func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// dirRel returns the parent of a slash-separated relative path.
func dirRel(rel string) string {
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return ""
}
