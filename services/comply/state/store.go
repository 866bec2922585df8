// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotDocumented indicates evidence was linked before any status was
// recorded for the control. Recoverable: record a status first.
var ErrNotDocumented = errors.New("control not documented")

// PersistenceError reports a failed durable write. The in-memory mutation
// was rolled back; memory and disk remain consistent and the caller may
// retry.
type PersistenceError struct {
	Op        string
	Project   string
	Framework string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for %s/%s: %v", e.Op, e.Project, e.Framework, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// keyPrefix namespaces state documents inside the shared BadgerDB.
const keyPrefix = "state/"

// stateDocument is the persisted layout: one document per
// (project, framework), mapping control id to ControlRecord.
//
// The document round-trips losslessly through JSON; reloading and
// re-serializing yields equivalent bytes modulo key ordering.
type stateDocument struct {
	Version   string                   `json:"version"`
	Project   string                   `json:"project"`
	Framework string                   `json:"framework"`
	Controls  map[string]ControlRecord `json:"controls"`
	UpdatedAt time.Time                `json:"updated_at"`
}

const documentVersion = "1.0"

// RecordRequest carries the fields record_status overwrites.
type RecordRequest struct {
	Status                Status
	ImplementationSummary string
	Owner                 string
	Notes                 string
}

// Store is the mutable compliance state store for all projects in the
// process.
//
// # Description
//
// The only mutable shared resource in the engine. Mutations are
// serialized by a store-wide exclusive lock (contention is low: writes are
// operator-driven) and are applied to memory only after the backing
// database acknowledges a durable write. Readers see pre- or post-update
// state atomically, never a torn record: all returned records are deep
// copies.
//
// # Thread Safety
//
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	db       *badger.DB
	projects map[string]map[string]map[string]ControlRecord
	clock    func() time.Time
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Used by tests for deterministic
// timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a state store backed by the given database.
//
// Call Load to hydrate previously persisted state before serving reads.
func NewStore(db *badger.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		projects: make(map[string]map[string]map[string]ControlRecord),
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the in-memory state from every persisted document.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc stateDocument
				if err := json.Unmarshal(val, &doc); err != nil {
					return fmt.Errorf("decode state document %s: %w", it.Item().Key(), err)
				}
				s.setDocumentLocked(doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// setDocumentLocked installs a loaded document. Caller holds the write lock.
func (s *Store) setDocumentLocked(doc stateDocument) {
	fws, ok := s.projects[doc.Project]
	if !ok {
		fws = make(map[string]map[string]ControlRecord)
		s.projects[doc.Project] = fws
	}
	records := make(map[string]ControlRecord, len(doc.Controls))
	for id, rec := range doc.Controls {
		records[id] = rec
	}
	fws[doc.Framework] = records
}

// RecordStatus records a directly attested status for a control.
//
// # Description
//
//	Overwrites status, summary, owner, and notes on the existing record,
//	creating one if absent (the first call never errors on a missing
//	record). When a prior record existed its (status, timestamp) snapshot
//	is appended to the history, so the audit trail grows by exactly one
//	entry per recording, even for a no-op re-recording. Evidence is
//	preserved. The mutation is durably flushed before it becomes visible;
//	a flush failure rolls back and returns *PersistenceError.
//
// # Outputs
//
//	ControlRecord - The post-update record (deep copy).
//	error - *PersistenceError, or a validation error for an invalid status.
func (s *Store) RecordStatus(project, frameworkID, controlID string, req RecordRequest) (ControlRecord, error) {
	if !req.Status.Valid() {
		return ControlRecord{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", req.Status)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	cur, existed := s.recordLocked(project, frameworkID, controlID)

	updated := cur.clone()
	if existed {
		updated.History = append(updated.History, StatusChange{
			Status:    cur.Status,
			Timestamp: cur.LastUpdated,
		})
	}
	updated.Status = req.Status
	updated.ImplementationSummary = req.ImplementationSummary
	updated.Owner = req.Owner
	updated.Notes = req.Notes
	updated.LastUpdated = now

	if err := s.persistLocked("record_status", project, frameworkID, controlID, updated); err != nil {
		return ControlRecord{}, err
	}

	s.commitLocked(project, frameworkID, controlID, updated)
	s.logger.Info("status recorded",
		"project", project,
		"framework", frameworkID,
		"control", controlID,
		"status", req.Status)
	return updated.clone(), nil
}

// AddEvidence appends evidence to an existing record.
//
// # Description
//
//	Fails with ErrNotDocumented when no record exists yet: evidence
//	cannot be linked before at least one status is recorded. On success
//	the evidence list grows by one entry (append-only) and LastUpdated
//	advances.
func (s *Store) AddEvidence(project, frameworkID, controlID string, ev Evidence) (ControlRecord, error) {
	if err := ev.Validate(); err != nil {
		return ControlRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, existed := s.recordLocked(project, frameworkID, controlID)
	if !existed {
		return ControlRecord{}, fmt.Errorf("%w: %s in %s (record a status first)", ErrNotDocumented, controlID, frameworkID)
	}

	now := s.clock()
	if ev.AddedAt.IsZero() {
		ev.AddedAt = now
	}

	updated := cur.clone()
	updated.Evidence = append(updated.Evidence, ev)
	updated.LastUpdated = now

	if err := s.persistLocked("add_evidence", project, frameworkID, controlID, updated); err != nil {
		return ControlRecord{}, err
	}

	s.commitLocked(project, frameworkID, controlID, updated)
	s.logger.Info("evidence linked",
		"project", project,
		"framework", frameworkID,
		"control", controlID,
		"type", ev.Type)
	return updated.clone(), nil
}

// GetRecord returns the record for a control, or the default empty record
// (not_addressed, no evidence) when none exists.
func (s *Store) GetRecord(project, frameworkID, controlID string) ControlRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, existed := s.recordLocked(project, frameworkID, controlID)
	if !existed {
		return rec
	}
	return rec.clone()
}

// Documented reports whether an explicit record exists for the control.
func (s *Store) Documented(project, frameworkID, controlID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, existed := s.recordLocked(project, frameworkID, controlID)
	return existed
}

// AttestedStatus returns the directly attested status for a control,
// defaulting to not_addressed. Implements the derivation engine's status
// source.
func (s *Store) AttestedStatus(project, frameworkID, controlID string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, _ := s.recordLocked(project, frameworkID, controlID)
	return rec.Status
}

// Records returns deep copies of every explicit record for a
// (project, framework), keyed by control id.
func (s *Store) Records(project, frameworkID string) map[string]ControlRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ControlRecord)
	if fws, ok := s.projects[project]; ok {
		for id, rec := range fws[frameworkID] {
			out[id] = rec.clone()
		}
	}
	return out
}

// Projects returns the project names with any recorded state, sorted.
func (s *Store) Projects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.projects))
	for name := range s.projects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// recordLocked fetches the current record without copying. The boolean
// reports whether an explicit record exists. Caller holds at least the
// read lock.
func (s *Store) recordLocked(project, frameworkID, controlID string) (ControlRecord, bool) {
	if fws, ok := s.projects[project]; ok {
		if records, ok := fws[frameworkID]; ok {
			if rec, ok := records[controlID]; ok {
				return rec, true
			}
		}
	}
	return emptyRecord(frameworkID, controlID), false
}

// commitLocked applies a successfully persisted record to memory.
func (s *Store) commitLocked(project, frameworkID, controlID string, rec ControlRecord) {
	fws, ok := s.projects[project]
	if !ok {
		fws = make(map[string]map[string]ControlRecord)
		s.projects[project] = fws
	}
	records, ok := fws[frameworkID]
	if !ok {
		records = make(map[string]ControlRecord)
		fws[frameworkID] = records
	}
	records[controlID] = rec
}

// persistLocked durably writes the (project, framework) document with the
// pending record applied. Memory is untouched on failure, which is the
// rollback: the mutation simply never becomes visible.
func (s *Store) persistLocked(op, project, frameworkID, controlID string, pending ControlRecord) error {
	doc := stateDocument{
		Version:   documentVersion,
		Project:   project,
		Framework: frameworkID,
		Controls:  make(map[string]ControlRecord),
		UpdatedAt: s.clock(),
	}
	if fws, ok := s.projects[project]; ok {
		for id, rec := range fws[frameworkID] {
			doc.Controls[id] = rec
		}
	}
	doc.Controls[controlID] = pending

	data, err := json.Marshal(doc)
	if err != nil {
		return &PersistenceError{Op: op, Project: project, Framework: frameworkID, Err: err}
	}

	key := documentKey(project, frameworkID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		s.logger.Error("durable write failed, mutation rolled back",
			"op", op,
			"project", project,
			"framework", frameworkID,
			"control", controlID,
			"error", err)
		return &PersistenceError{Op: op, Project: project, Framework: frameworkID, Err: err}
	}
	return nil
}

func documentKey(project, frameworkID string) []byte {
	return []byte(keyPrefix + project + "/" + frameworkID)
}
