package vault

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/storage"
)

// RemotePlugin is a plugin bundle installed from a remote manifest.
type RemotePlugin struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	ManifestURL string `json:"manifestUrl"`
}

// PluginStore persists plugin state in the data directory: the globally
// enabled plugin ids (global_plugins.json), the per-vault enabled ids
// (workspace_plugins/<vaultID>.json), and the installed remote plugin
// bundles (remote_plugins.json).
type PluginStore struct {
	dataDir string
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewPluginStore creates a plugin store under dataDir.
func NewPluginStore(dataDir string, logger *slog.Logger) *PluginStore {
	return &PluginStore{dataDir: dataDir, logger: logger}
}

func (s *PluginStore) globalPath() string {
	return filepath.Join(s.dataDir, "global_plugins.json")
}

func (s *PluginStore) workspacePath(vaultID string) string {
	return filepath.Join(s.dataDir, "workspace_plugins", vaultID+".json")
}

func (s *PluginStore) remotePath() string {
	return filepath.Join(s.dataDir, "remote_plugins.json")
}

// GlobalPluginIDs returns the globally enabled plugin ids.
func (s *PluginStore) GlobalPluginIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIDs(s.globalPath())
}

// SaveGlobalPluginIDs replaces the globally enabled plugin ids.
func (s *PluginStore) SaveGlobalPluginIDs(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(s.globalPath(), ids)
}

// WorkspacePluginIDs returns the plugin ids enabled for one vault.
func (s *PluginStore) WorkspacePluginIDs(vaultID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIDs(s.workspacePath(vaultID))
}

// SaveWorkspacePluginIDs replaces the plugin ids enabled for one vault.
func (s *PluginStore) SaveWorkspacePluginIDs(vaultID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveJSON(s.workspacePath(vaultID), ids)
}

// InstalledRemotePlugins returns every installed remote plugin bundle.
func (s *PluginStore) InstalledRemotePlugins() ([]RemotePlugin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRemote()
}

// SaveRemotePlugin installs or updates a remote plugin bundle. An existing
// entry with the same id is replaced in place, otherwise the plugin is
// appended.
func (s *PluginStore) SaveRemotePlugin(p RemotePlugin) error {
	if p.ID == "" {
		return fmt.Errorf("vault: remote plugin missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	plugins, err := s.loadRemote()
	if err != nil {
		return err
	}
	replaced := false
	for i := range plugins {
		if plugins[i].ID == p.ID {
			plugins[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		plugins = append(plugins, p)
	}
	return s.saveJSON(s.remotePath(), plugins)
}

// RemoveRemotePlugin uninstalls the remote plugin with the given id.
// Removing an id that is not installed is not an error.
func (s *PluginStore) RemoveRemotePlugin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plugins, err := s.loadRemote()
	if err != nil {
		return err
	}
	kept := plugins[:0]
	for _, p := range plugins {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return s.saveJSON(s.remotePath(), kept)
}

// RemoveWorkspace deletes the per-vault plugin file, if any. Called when
// the vault itself is deleted.
func (s *PluginStore) RemoveWorkspace(vaultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.RemoveEntry(s.workspacePath(vaultID), false); err != nil {
		return apperr.Backend("remove", s.workspacePath(vaultID), err)
	}
	return nil
}

func (s *PluginStore) loadIDs(path string) ([]string, error) {
	data, err := storage.ReadFileOrEmpty(path)
	if err != nil {
		return nil, apperr.Backend("load", path, err)
	}
	ids := []string{}
	if len(data) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		// Corrupt plugin state degrades to empty rather than blocking.
		if s.logger != nil {
			s.logger.Warn("vault: malformed plugin ids, starting empty",
				slog.String("path", path),
				slog.String("error", apperr.Parse("plugin ids", err).Error()))
		}
		return []string{}, nil
	}
	return ids, nil
}

func (s *PluginStore) loadRemote() ([]RemotePlugin, error) {
	data, err := storage.ReadFileOrEmpty(s.remotePath())
	if err != nil {
		return nil, apperr.Backend("load", s.remotePath(), err)
	}
	plugins := []RemotePlugin{}
	if len(data) == 0 {
		return plugins, nil
	}
	if err := json.Unmarshal(data, &plugins); err != nil {
		if s.logger != nil {
			s.logger.Warn("vault: malformed remote plugin list, starting empty",
				slog.String("error", apperr.Parse("remote plugins", err).Error()))
		}
		return []RemotePlugin{}, nil
	}
	return plugins, nil
}

func (s *PluginStore) saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal plugin state: %w", err)
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return apperr.Backend("persist", path, err)
	}
	return nil
}
