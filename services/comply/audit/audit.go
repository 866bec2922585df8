// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit maintains an append-only trail of compliance engine
// activity: status attestations, evidence links, catalog and mapping
// loads, gap analyses, and exports. Events live in a bounded in-memory
// log with optional JSON file persistence.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit events.
type EventType string

const (
	EventStatusRecorded    EventType = "STATUS_RECORDED"
	EventEvidenceLinked    EventType = "EVIDENCE_LINKED"
	EventFrameworkLoaded   EventType = "FRAMEWORK_LOADED"
	EventFrameworkReloaded EventType = "FRAMEWORK_RELOADED"
	EventMappingLoaded     EventType = "MAPPING_LOADED"
	EventGapAnalysis       EventType = "GAP_ANALYSIS"
	EventExport            EventType = "EXPORT"
)

// Event is one auditable action against the compliance engine.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// EventType is the type of event.
	EventType EventType `json:"event_type"`

	// Project is the project the action touched.
	Project string `json:"project,omitempty"`

	// Framework is the framework the action touched.
	Framework string `json:"framework,omitempty"`

	// ControlID is the control involved, if any.
	ControlID string `json:"control_id,omitempty"`

	// Actor is who performed the action.
	Actor string `json:"actor,omitempty"`

	// Outcome is the result of the action.
	Outcome string `json:"outcome"`

	// Details contains additional event details.
	Details map[string]interface{} `json:"details,omitempty"`
}

// QueryCriteria filters audit log queries. Zero values match everything.
type QueryCriteria struct {
	StartTime time.Time
	EndTime   time.Time
	EventType EventType
	Project   string
	Framework string
	Limit     int
}

// TrailOptions configures an audit trail.
type TrailOptions struct {
	// MaxEvents is the maximum number of events kept in memory.
	// Default: 10000
	MaxEvents int

	// DataDir is the optional directory for JSON persistence.
	// If empty, events are memory-only.
	DataDir string

	// Logger receives structured log output. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultTrailOptions returns sensible defaults.
func DefaultTrailOptions() TrailOptions {
	return TrailOptions{
		MaxEvents: 10000,
	}
}

// Trail is a bounded, append-only audit log.
//
// # Description
//
// Keeps the most recent events in memory and optionally persists the
// whole window to a JSON file on Persist or Close. Queries scan the
// window; they are advisory and never block writers for long.
//
// # Thread Safety
//
// Safe for concurrent use.
type Trail struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
	dataDir   string
	logger    *slog.Logger
	clock     func() time.Time
}

// NewTrail creates an audit trail, loading any persisted events from
// opts.DataDir. A load failure is non-fatal; the trail starts fresh.
func NewTrail(opts TrailOptions) (*Trail, error) {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultTrailOptions().MaxEvents
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	t := &Trail{
		events:    make([]Event, 0, opts.MaxEvents),
		maxEvents: opts.MaxEvents,
		dataDir:   opts.DataDir,
		logger:    opts.Logger,
		clock:     time.Now,
	}

	if t.dataDir != "" {
		if err := t.loadPersisted(); err != nil {
			t.logger.Warn("audit log load failed, starting fresh", "error", err)
		}
	}

	return t, nil
}

func (t *Trail) logPath() string {
	return filepath.Join(t.dataDir, "audit_log.json")
}

func (t *Trail) loadPersisted() error {
	data, err := os.ReadFile(t.logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &t.events)
}

// Record appends an event, filling in ID and timestamp when absent.
func (t *Trail) Record(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.clock()
	}
	if event.Outcome == "" {
		event.Outcome = "success"
	}

	t.events = append(t.events, event)

	// Trim to the retention window, newest kept.
	if len(t.events) > t.maxEvents {
		t.events = t.events[len(t.events)-t.maxEvents:]
	}
}

// Query retrieves events matching the criteria, newest first.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - criteria: Query filters; zero values match everything.
//
// # Outputs
//
//   - []Event: Matching events, newest first.
//   - error: Non-nil on cancellation or a nil context.
func (t *Trail) Query(ctx context.Context, criteria QueryCriteria) ([]Event, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []Event
	for _, e := range t.events {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !criteria.StartTime.IsZero() && e.Timestamp.Before(criteria.StartTime) {
			continue
		}
		if !criteria.EndTime.IsZero() && e.Timestamp.After(criteria.EndTime) {
			continue
		}
		if criteria.EventType != "" && e.EventType != criteria.EventType {
			continue
		}
		if criteria.Project != "" && e.Project != criteria.Project {
			continue
		}
		if criteria.Framework != "" && e.Framework != criteria.Framework {
			continue
		}

		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if criteria.Limit > 0 && len(result) > criteria.Limit {
		result = result[:criteria.Limit]
	}

	return result, nil
}

// EventCount returns the number of events in the retention window.
func (t *Trail) EventCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

// Persist writes the retention window to the JSON log file.
func (t *Trail) Persist() error {
	if t.dataDir == "" {
		return nil
	}

	t.mu.RLock()
	data, err := json.MarshalIndent(t.events, "", "  ")
	t.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}

	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	if err := os.WriteFile(t.logPath(), data, 0o644); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Close persists the trail if a data directory is configured.
func (t *Trail) Close() error {
	return t.Persist()
}
