package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/storage"
)

// VirtualBackend stores a vault's entire forest as one persisted JSON blob
// rewritten wholesale on every mutation. Node ids are locally minted
// random tokens; document payloads live in per-node content files under
// the app data directory.
type VirtualBackend struct {
	vaultID     string
	treePath    string
	contentsDir string
	logger      *slog.Logger

	mu     sync.RWMutex
	forest []Node
}

// NewVirtualBackend creates a virtual backend rooted in the app data
// directory.
func NewVirtualBackend(dataDir, vaultID string, logger *slog.Logger) *VirtualBackend {
	return &VirtualBackend{
		vaultID:     vaultID,
		treePath:    filepath.Join(dataDir, "trees", vaultID+".json"),
		contentsDir: filepath.Join(dataDir, "contents"),
		logger:      logger,
	}
}

func (b *VirtualBackend) Kind() string { return "virtual" }

// LoadTree reads the persisted blob. A missing blob yields an empty
// forest; a malformed one is absorbed as a ParseError fallback (empty
// forest, logged at warn) so a corrupt blob never blocks the workspace.
func (b *VirtualBackend) LoadTree(_ context.Context) ([]Node, error) {
	data, err := storage.ReadFileOrEmpty(b.treePath)
	if err != nil {
		return nil, apperr.Backend("load", b.treePath, err)
	}
	forest := []Node{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &forest); err != nil {
			b.warn("malformed tree blob, using empty forest", apperr.Parse("tree blob", err))
			forest = []Node{}
		} else if err := ValidateForest(forest); err != nil {
			b.warn("invalid tree blob, using empty forest", apperr.Parse("tree blob", err))
			forest = []Node{}
		}
	}
	b.mu.Lock()
	b.forest = forest
	b.mu.Unlock()
	return CloneForest(forest), nil
}

// Tree returns a snapshot of the mirror.
func (b *VirtualBackend) Tree() []Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return CloneForest(b.forest)
}

// CreateNode mints a fresh random id, inserts the node into a copy of the
// forest, and persists the whole blob before the mirror is swapped.
func (b *VirtualBackend) CreateNode(_ context.Context, name string, nodeType NodeType, parentID *string) (Node, error) {
	n := Node{
		ID:       uuid.NewString(),
		Name:     EnsureExtension(name, nodeType),
		Type:     nodeType,
		ParentID: parentID,
	}
	if nodeType == NodeFolder {
		n.Children = []Node{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := InsertNode(CloneForest(b.forest), n)
	if err != nil {
		return Node{}, err
	}
	if err := b.persist(next); err != nil {
		return Node{}, err
	}
	b.forest = next
	return n, nil
}

// DeleteNode removes the node (cascading) from a copy, persists, then
// swaps the mirror. Content files of removed nodes are cleaned up
// best-effort after the blob is durable.
func (b *VirtualBackend) DeleteNode(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := CloneForest(b.forest)
	target, ok := FindNode(clone, id)
	if !ok {
		return fmt.Errorf("vault: node %q: %w", id, apperr.ErrNotFound)
	}
	removedIDs := SubtreeIDs(target)
	next, _ := RemoveNode(clone, id)
	if err := b.persist(next); err != nil {
		return err
	}
	b.forest = next
	for _, rid := range removedIDs {
		_ = os.Remove(b.contentPath(rid))
	}
	return nil
}

// RenameNode renames in place, keeping the type-appropriate extension.
func (b *VirtualBackend) RenameNode(_ context.Context, id, newName string) (Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := CloneForest(b.forest)
	target, ok := FindNode(clone, id)
	if !ok {
		return Node{}, fmt.Errorf("vault: node %q: %w", id, apperr.ErrNotFound)
	}
	target.Name = EnsureExtension(newName, target.Type)
	if err := b.persist(clone); err != nil {
		return Node{}, err
	}
	b.forest = clone
	renamed := *target
	renamed.Children = nil
	return renamed, nil
}

// ReadDocument returns the node's persisted payload; nodes never written
// yet read as empty.
func (b *VirtualBackend) ReadDocument(_ context.Context, nodeID string) ([]byte, error) {
	b.mu.RLock()
	_, ok := FindNode(b.forest, nodeID)
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vault: node %q: %w", nodeID, apperr.ErrNotFound)
	}
	data, err := storage.ReadFileOrEmpty(b.contentPath(nodeID))
	if err != nil {
		return nil, apperr.Backend("read", b.contentPath(nodeID), err)
	}
	return data, nil
}

// WriteDocument persists the node's payload atomically.
func (b *VirtualBackend) WriteDocument(_ context.Context, nodeID string, data []byte) error {
	b.mu.RLock()
	_, ok := FindNode(b.forest, nodeID)
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("vault: node %q: %w", nodeID, apperr.ErrNotFound)
	}
	if err := storage.WriteFileAtomic(b.contentPath(nodeID), data); err != nil {
		return apperr.Backend("write", b.contentPath(nodeID), err)
	}
	return nil
}

func (b *VirtualBackend) contentPath(nodeID string) string {
	return filepath.Join(b.contentsDir, nodeID+".json")
}

func (b *VirtualBackend) persist(forest []Node) error {
	data, err := json.MarshalIndent(forest, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal tree: %w", err)
	}
	if err := storage.WriteFileAtomic(b.treePath, data); err != nil {
		return apperr.Backend("persist", b.treePath, err)
	}
	return nil
}

func (b *VirtualBackend) warn(msg string, err error) {
	if b.logger != nil {
		b.logger.Warn("vault: "+msg,
			slog.String("vault_id", b.vaultID),
			slog.String("error", err.Error()))
	}
}
