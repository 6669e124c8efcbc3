package vault

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Backend is the storage strategy behind one vault. Both implementations
// satisfy the same operation contract; the choice is made once at
// vault-open time and is immutable for the vault's lifetime.
//
// Every mutation either fully applies or leaves the in-memory mirror
// exactly as it was: backends compute on a copy (virtual) or skip the
// post-mutation reload on failure (real filesystem).
type Backend interface {
	// Kind identifies the strategy, "virtual" or "fs".
	Kind() string
	// LoadTree (re)loads the forest from the backing store and installs it
	// as the in-memory mirror.
	LoadTree(ctx context.Context) ([]Node, error)
	// Tree returns a snapshot of the current mirror.
	Tree() []Node
	// CreateNode creates a node under parentID (nil for a root), minting
	// the node id per the backend's id scheme.
	CreateNode(ctx context.Context, name string, nodeType NodeType, parentID *string) (Node, error)
	// DeleteNode removes a node; FOLDER deletion cascades to descendants.
	DeleteNode(ctx context.Context, id string) error
	// RenameNode renames a node in place (same parent).
	RenameNode(ctx context.Context, id, newName string) (Node, error)
	// ReadDocument returns the persisted payload of a leaf node.
	ReadDocument(ctx context.Context, nodeID string) ([]byte, error)
	// WriteDocument persists a leaf node's payload.
	WriteDocument(ctx context.Context, nodeID string, data []byte) error
}

// SelectBackend picks the storage strategy from the vault's declared path:
// an absolute filesystem path selects the real backend, anything else the
// virtual one.
func SelectBackend(dataDir string, v Vault, logger *slog.Logger) Backend {
	if filepath.IsAbs(v.Path) {
		return NewFSBackend(v.ID, v.Path)
	}
	return NewVirtualBackend(dataDir, v.ID, logger)
}
