// Package watcher detects external changes to real-backend vault
// directories and schedules mirror reloads.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/focosx/focos/internal/vault"
)

// ReloadFunc is called after the debounce window closes; it reloads the
// vault's mirror and notifies observers.
type ReloadFunc func(ctx context.Context, vaultID string)

const debounce = 250 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and coalesces file
// change events into debounced reload requests until ctx is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list. Hidden entries are ignored, matching the backend's scan rules.
func Watch(ctx context.Context, v vault.Vault, logger *slog.Logger, reload ReloadFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, v.Path); err != nil {
		return err
	}

	logger.Info("watcher: started",
		slog.String("vault_id", v.ID),
		slog.String("root", v.Path))

	// reloadTimer debounces bursts of events into a single reload.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped", slog.String("vault_id", v.ID))
			return nil

		case <-reloadCh:
			reload(ctx, v.ID)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if hidden(v.Path, ev.Name) {
				continue
			}

			// New directories join the watch list so nested changes keep
			// arriving.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				scheduleReload()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error",
				slog.String("vault_id", v.ID),
				slog.String("error", err.Error()))
		}
	}
}

// addDirsRecursive adds root and every non-hidden subdirectory to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// hidden reports whether any path component under root starts with a dot.
func hidden(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
