// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrFrameworkNotFound indicates the requested framework is not loaded.
var ErrFrameworkNotFound = errors.New("framework not found")

// ErrControlNotFound indicates the control id is unknown to the framework.
var ErrControlNotFound = errors.New("control not found")

// Store holds the loaded frameworks.
//
// # Description
//
// Frameworks are read-only after load. Install swaps the whole *Framework
// reference under the lock, so a reader holding a framework pointer keeps
// a consistent (possibly outdated) view and never sees a partial load.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	frameworks map[string]*Framework
	logger     *slog.Logger
}

// NewStore creates an empty catalog store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		frameworks: make(map[string]*Framework),
		logger:     logger,
	}
}

// Install atomically installs (or replaces) a loaded framework.
//
// Replacing a framework's data installs a new immutable version; the prior
// version is never mutated in place.
func (s *Store) Install(fw *Framework) {
	s.mu.Lock()
	prior := s.frameworks[fw.ID]
	s.frameworks[fw.ID] = fw
	s.mu.Unlock()

	if prior != nil {
		s.logger.Info("framework replaced",
			"framework", fw.ID,
			"version", fw.Version,
			"controls", fw.ControlCount(),
			"prior_controls", prior.ControlCount())
	} else {
		s.logger.Info("framework installed",
			"framework", fw.ID,
			"version", fw.Version,
			"controls", fw.ControlCount())
	}
}

// LoadDir loads every *.json framework file in dir.
//
// A file that fails validation is logged and skipped; it does not prevent
// other frameworks from loading. Returns an error only when the directory
// itself cannot be read.
func (s *Store) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read framework directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fw, err := LoadFile(path)
		if err != nil {
			s.logger.Error("framework load failed", "file", entry.Name(), "error", err)
			continue
		}
		s.Install(fw)
	}
	return nil
}

// Framework returns the loaded framework by identifier.
func (s *Store) Framework(id string) (*Framework, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fw, ok := s.frameworks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFrameworkNotFound, id)
	}
	return fw, nil
}

// GetControl looks up one control in one framework.
func (s *Store) GetControl(frameworkID, controlID string) (Control, error) {
	fw, err := s.Framework(frameworkID)
	if err != nil {
		return Control{}, err
	}
	ctrl, ok := fw.Control(controlID)
	if !ok {
		return Control{}, fmt.Errorf("%w: %s in %s", ErrControlNotFound, controlID, frameworkID)
	}
	return ctrl, nil
}

// ListControls returns a framework's controls in declaration order,
// optionally narrowed by function/category.
func (s *Store) ListControls(frameworkID string, filter Filter) ([]Control, error) {
	fw, err := s.Framework(frameworkID)
	if err != nil {
		return nil, err
	}
	return fw.FilterControls(filter), nil
}

// ListFrameworks returns metadata for every loaded framework, sorted by id.
func (s *Store) ListFrameworks() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.frameworks))
	for _, fw := range s.frameworks {
		infos = append(infos, fw.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Has reports whether a framework is loaded.
func (s *Store) Has(frameworkID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.frameworks[frameworkID]
	return ok
}
