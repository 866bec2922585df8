// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads framework files when they change on disk.
//
// # Description
//
// Watches the framework data directory and re-runs Load on any *.json
// file that is created or written. Events are debounced per file so a
// download that arrives in several writes triggers one reload. A reload
// that fails validation leaves the previously installed version in place.
//
// # Thread Safety
//
// Safe for concurrent use. Reloads happen on a single goroutine.
type Watcher struct {
	store    *Store
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the given framework directory.
//
// # Inputs
//
//   - store: Destination for reloaded frameworks.
//   - dir: Directory containing framework *.json files.
//   - debounce: Quiet period before a changed file is reloaded.
//     Zero means 500ms.
func NewWatcher(store *Store, dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		store:    store,
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		watcher:  fsw,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Stop shuts down the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// run consumes fsnotify events, debouncing per file.
func (w *Watcher) run() {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("framework watcher error", "error", err)

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < w.debounce {
					continue
				}
				delete(pending, path)
				w.reload(path)
			}
		}
	}
}

// reload loads one framework file and installs it on success.
func (w *Watcher) reload(path string) {
	fw, err := LoadFile(path)
	if err != nil {
		// Keep the prior version installed; a broken file must not
		// take down a working framework.
		w.logger.Error("framework reload rejected",
			"file", filepath.Base(path),
			"error", err)
		return
	}
	w.store.Install(fw)
}
