package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/storage"
)

// Vault is one registered workspace, rooted at either a virtual blob or a
// real directory.
type Vault struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
}

// TreeIndex receives forest updates so lookups stay fast across vaults.
// Index failures never fail a tree operation; the index is derived data.
type TreeIndex interface {
	ReplaceVault(vaultID string, nodes []Node) error
	DeleteVault(vaultID string) error
	Touch(vaultID, nodeID string) error
}

// Manager owns the vault registry and routes tree operations to each
// vault's backend. Backend I/O suspends only the calling operation; the
// per-vault loading flag lets callers avoid issuing overlapping loads.
// There is no lock on a vault's tree: overlapping mutations against the
// same real-backend vault resolve last-write-wins on the mirror.
type Manager struct {
	dataDir string
	logger  *slog.Logger
	idx     TreeIndex // may be nil

	mu       sync.RWMutex
	vaults   []Vault
	backends map[string]Backend
	loading  map[string]bool
}

// NewManager loads the vault registry from the data directory and builds a
// backend for every registered vault.
func NewManager(dataDir string, idx TreeIndex, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		dataDir:  dataDir,
		logger:   logger,
		idx:      idx,
		backends: make(map[string]Backend),
		loading:  make(map[string]bool),
	}

	regPath := m.registryPath()
	data, err := storage.ReadFileOrEmpty(regPath)
	if err != nil {
		return nil, apperr.Backend("load", regPath, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &m.vaults); err != nil {
			logger.Warn("vault: malformed registry, starting empty",
				slog.String("error", apperr.Parse("vault registry", err).Error()))
			m.vaults = nil
		}
	}
	for _, v := range m.vaults {
		m.backends[v.ID] = SelectBackend(dataDir, v, logger)
	}
	return m, nil
}

// Vaults returns the registered vaults.
func (m *Manager) Vaults() []Vault {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Vault, len(m.vaults))
	copy(out, m.vaults)
	return out
}

// VaultByID returns one registered vault.
func (m *Manager) VaultByID(id string) (Vault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.vaults {
		if v.ID == id {
			return v, nil
		}
	}
	return Vault{}, fmt.Errorf("vault: %q: %w", id, apperr.ErrNotFound)
}

// CreateVault registers a new vault. An absolute path selects the real
// filesystem backend (the directory must exist); anything else selects the
// virtual backend. The choice is immutable for the vault's lifetime.
func (m *Manager) CreateVault(name, path string) (Vault, error) {
	if filepath.IsAbs(path) {
		info, err := os.Stat(path)
		if err != nil {
			return Vault{}, apperr.Backend("stat", path, err)
		}
		if !info.IsDir() {
			return Vault{}, apperr.Backend("stat", path, fmt.Errorf("not a directory"))
		}
	}
	v := Vault{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		CreatedAt: time.Now().UnixMilli(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	next := append(append([]Vault(nil), m.vaults...), v)
	if err := m.persistRegistry(next); err != nil {
		return Vault{}, err
	}
	m.vaults = next
	m.backends[v.ID] = SelectBackend(m.dataDir, v, m.logger)
	return v, nil
}

// DeleteVault unregisters a vault and removes its app-managed files. A
// real vault's user files are never touched.
func (m *Manager) DeleteVault(id string) error {
	m.mu.Lock()
	idx := -1
	for i, v := range m.vaults {
		if v.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("vault: %q: %w", id, apperr.ErrNotFound)
	}
	next := append(append([]Vault(nil), m.vaults[:idx]...), m.vaults[idx+1:]...)
	if err := m.persistRegistry(next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.vaults = next
	delete(m.backends, id)
	delete(m.loading, id)
	m.mu.Unlock()

	m.removeVaultFiles(id)
	if m.idx != nil {
		if err := m.idx.DeleteVault(id); err != nil {
			m.logger.Warn("vault: index cleanup failed",
				slog.String("vault_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// removeVaultFiles deletes the app-managed files of a deleted vault: the
// persisted tree, every virtual document payload the tree references, and
// the per-vault plugin state. Best effort, the registry entry is already
// gone.
func (m *Manager) removeVaultFiles(id string) {
	treePath := filepath.Join(m.dataDir, "trees", id+".json")
	if data, err := storage.ReadFileOrEmpty(treePath); err == nil && len(data) > 0 {
		var forest []Node
		if err := json.Unmarshal(data, &forest); err == nil {
			for _, n := range Flatten(forest) {
				_ = os.Remove(filepath.Join(m.dataDir, "contents", n.ID+".json"))
			}
		}
	}
	_ = os.Remove(treePath)
	_ = os.Remove(filepath.Join(m.dataDir, "workspace_plugins", id+".json"))
}

// OpenVault loads the vault's tree. A load already in progress for the
// same vault is rejected with ErrConflict so callers can await completion
// instead of racing.
func (m *Manager) OpenVault(ctx context.Context, id string) ([]Node, error) {
	return m.load(ctx, id, true)
}

// ReloadVault refreshes the mirror from the backing store, e.g. after an
// external filesystem change. A reload that overlaps an in-flight load is
// skipped.
func (m *Manager) ReloadVault(ctx context.Context, id string) error {
	_, err := m.load(ctx, id, false)
	return err
}

func (m *Manager) load(ctx context.Context, id string, strict bool) ([]Node, error) {
	m.mu.Lock()
	b, ok := m.backends[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("vault: %q: %w", id, apperr.ErrNotFound)
	}
	if m.loading[id] {
		m.mu.Unlock()
		if !strict {
			return nil, nil
		}
		return nil, fmt.Errorf("vault: %q load in progress: %w", id, apperr.ErrConflict)
	}
	m.loading[id] = true
	m.mu.Unlock()

	tree, err := b.LoadTree(ctx)

	m.mu.Lock()
	m.loading[id] = false
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	m.syncIndex(id, tree)
	return tree, nil
}

// Loading reports whether a load is in flight for the vault.
func (m *Manager) Loading(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading[id]
}

// Tree returns the current in-memory mirror for the vault.
func (m *Manager) Tree(id string) ([]Node, error) {
	b, err := m.backend(id)
	if err != nil {
		return nil, err
	}
	return b.Tree(), nil
}

// GetNode searches the vault's forest depth-first for the node id.
func (m *Manager) GetNode(vaultID, nodeID string) (Node, error) {
	b, err := m.backend(vaultID)
	if err != nil {
		return Node{}, err
	}
	n, ok := FindNode(b.Tree(), nodeID)
	if !ok {
		return Node{}, fmt.Errorf("vault: node %q: %w", nodeID, apperr.ErrNotFound)
	}
	return *n, nil
}

// CreateNode creates a node in the vault and syncs the index.
func (m *Manager) CreateNode(ctx context.Context, vaultID, name string, nodeType NodeType, parentID *string) (Node, error) {
	if !IsValidNodeType(nodeType) {
		return Node{}, fmt.Errorf("vault: invalid node type %q", nodeType)
	}
	b, err := m.backend(vaultID)
	if err != nil {
		return Node{}, err
	}
	n, err := b.CreateNode(ctx, name, nodeType, parentID)
	if err != nil {
		return Node{}, err
	}
	m.syncIndex(vaultID, b.Tree())
	return n, nil
}

// DeleteNode removes a node, cascading to descendants, and syncs the
// index.
func (m *Manager) DeleteNode(ctx context.Context, vaultID, nodeID string) error {
	b, err := m.backend(vaultID)
	if err != nil {
		return err
	}
	if err := b.DeleteNode(ctx, nodeID); err != nil {
		return err
	}
	m.syncIndex(vaultID, b.Tree())
	return nil
}

// RenameNode renames a node in place and syncs the index.
func (m *Manager) RenameNode(ctx context.Context, vaultID, nodeID, newName string) (Node, error) {
	b, err := m.backend(vaultID)
	if err != nil {
		return Node{}, err
	}
	n, err := b.RenameNode(ctx, nodeID, newName)
	if err != nil {
		return Node{}, err
	}
	m.syncIndex(vaultID, b.Tree())
	return n, nil
}

// ReadDocument returns a leaf node's persisted payload.
func (m *Manager) ReadDocument(ctx context.Context, vaultID, nodeID string) ([]byte, error) {
	b, err := m.backend(vaultID)
	if err != nil {
		return nil, err
	}
	return b.ReadDocument(ctx, nodeID)
}

// WriteDocument persists a leaf node's payload and touches the index.
func (m *Manager) WriteDocument(ctx context.Context, vaultID, nodeID string, data []byte) error {
	b, err := m.backend(vaultID)
	if err != nil {
		return err
	}
	if err := b.WriteDocument(ctx, nodeID, data); err != nil {
		return err
	}
	if m.idx != nil {
		if err := m.idx.Touch(vaultID, nodeID); err != nil {
			m.logger.Warn("vault: index touch failed",
				slog.String("node_id", nodeID), slog.String("error", err.Error()))
		}
	}
	return nil
}

// RealVaults returns the vaults backed by a real directory, for watcher
// setup.
func (m *Manager) RealVaults() []Vault {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Vault
	for _, v := range m.vaults {
		if b, ok := m.backends[v.ID]; ok && b.Kind() == "fs" {
			out = append(out, v)
		}
	}
	return out
}

func (m *Manager) backend(id string) (Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.backends[id]
	if !ok {
		return nil, fmt.Errorf("vault: %q: %w", id, apperr.ErrNotFound)
	}
	return b, nil
}

func (m *Manager) registryPath() string {
	return filepath.Join(m.dataDir, "vaults.json")
}

// persistRegistry is called with m.mu held.
func (m *Manager) persistRegistry(vaults []Vault) error {
	data, err := json.MarshalIndent(vaults, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal registry: %w", err)
	}
	if err := storage.WriteFileAtomic(m.registryPath(), data); err != nil {
		return apperr.Backend("persist", m.registryPath(), err)
	}
	return nil
}

func (m *Manager) syncIndex(vaultID string, tree []Node) {
	if m.idx == nil {
		return
	}
	if err := m.idx.ReplaceVault(vaultID, Flatten(tree)); err != nil {
		m.logger.Warn("vault: index sync failed",
			slog.String("vault_id", vaultID), slog.String("error", err.Error()))
	}
}
