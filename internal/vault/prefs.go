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

// Preferences is the app-wide key/value store persisted as one JSON file
// in the data directory.
type Preferences struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewPreferences creates a preference store under dataDir.
func NewPreferences(dataDir string, logger *slog.Logger) *Preferences {
	return &Preferences{path: filepath.Join(dataDir, "preferences.json"), logger: logger}
}

// Get returns the stored value for key, or "" when unset.
func (p *Preferences) Get(key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.load()
	if err != nil {
		return "", err
	}
	return m[key], nil
}

// Set stores value under key, rewriting the whole file.
func (p *Preferences) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.load()
	if err != nil {
		return err
	}
	m[key] = value
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal preferences: %w", err)
	}
	if err := storage.WriteFileAtomic(p.path, data); err != nil {
		return apperr.Backend("persist", p.path, err)
	}
	return nil
}

func (p *Preferences) load() (map[string]string, error) {
	data, err := storage.ReadFileOrEmpty(p.path)
	if err != nil {
		return nil, apperr.Backend("load", p.path, err)
	}
	m := make(map[string]string)
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		// Corrupt preferences degrade to empty rather than blocking.
		if p.logger != nil {
			p.logger.Warn("vault: malformed preferences, starting empty",
				slog.String("error", apperr.Parse("preferences", err).Error()))
		}
		return make(map[string]string), nil
	}
	return m, nil
}
