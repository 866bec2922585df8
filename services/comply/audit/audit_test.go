// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryTrail(t *testing.T, maxEvents int) *Trail {
	t.Helper()
	trail, err := NewTrail(TrailOptions{MaxEvents: maxEvents})
	require.NoError(t, err)
	return trail
}

func TestRecord_FillsDefaults(t *testing.T) {
	trail := memoryTrail(t, 100)

	trail.Record(Event{
		EventType: EventStatusRecorded,
		Project:   "acme",
		Framework: "nist_csf",
		ControlID: "PR.AC-1",
		Actor:     "cli:jdoe",
	})

	events, err := trail.Query(context.Background(), QueryCriteria{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "success", e.Outcome)
	assert.Equal(t, "cli:jdoe", e.Actor)
}

func TestRecord_PreservesExplicitFields(t *testing.T) {
	trail := memoryTrail(t, 100)
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	trail.Record(Event{
		ID:        "evt-1",
		Timestamp: ts,
		EventType: EventExport,
		Outcome:   "failure",
	})

	events, err := trail.Query(context.Background(), QueryCriteria{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, ts, events[0].Timestamp)
	assert.Equal(t, "failure", events[0].Outcome)
}

func TestRecord_TrimsToWindow(t *testing.T) {
	trail := memoryTrail(t, 3)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		trail.Record(Event{
			ID:        string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			EventType: EventGapAnalysis,
		})
	}

	assert.Equal(t, 3, trail.EventCount())

	events, err := trail.Query(context.Background(), QueryCriteria{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	// Newest first, oldest two dropped.
	assert.Equal(t, "e", events[0].ID)
	assert.Equal(t, "d", events[1].ID)
	assert.Equal(t, "c", events[2].ID)
}

func TestQuery_Filters(t *testing.T) {
	trail := memoryTrail(t, 100)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	trail.Record(Event{Timestamp: base, EventType: EventStatusRecorded, Project: "acme", Framework: "nist_csf"})
	trail.Record(Event{Timestamp: base.Add(time.Minute), EventType: EventEvidenceLinked, Project: "acme", Framework: "nist_csf"})
	trail.Record(Event{Timestamp: base.Add(2 * time.Minute), EventType: EventStatusRecorded, Project: "zeta", Framework: "soc2"})
	trail.Record(Event{Timestamp: base.Add(3 * time.Minute), EventType: EventGapAnalysis, Project: "acme", Framework: "soc2"})

	ctx := context.Background()

	byType, err := trail.Query(ctx, QueryCriteria{EventType: EventStatusRecorded})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byProject, err := trail.Query(ctx, QueryCriteria{Project: "zeta"})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "soc2", byProject[0].Framework)

	byFramework, err := trail.Query(ctx, QueryCriteria{Framework: "soc2"})
	require.NoError(t, err)
	assert.Len(t, byFramework, 2)

	window, err := trail.Query(ctx, QueryCriteria{
		StartTime: base.Add(30 * time.Second),
		EndTime:   base.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	limited, err := trail.Query(ctx, QueryCriteria{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, EventGapAnalysis, limited[0].EventType, "limit keeps the newest events")
}

func TestQuery_RequiresContext(t *testing.T) {
	trail := memoryTrail(t, 100)

	//nolint:staticcheck // exercising the nil guard
	_, err := trail.Query(nil, QueryCriteria{})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trail.Record(Event{EventType: EventExport})
	_, err = trail.Query(ctx, QueryCriteria{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrail_PersistRoundTrip(t *testing.T) {
	dir := t.TempDir()

	trail, err := NewTrail(TrailOptions{MaxEvents: 100, DataDir: dir})
	require.NoError(t, err)
	trail.Record(Event{EventType: EventStatusRecorded, Project: "acme", Framework: "nist_csf", ControlID: "PR.AC-1"})
	trail.Record(Event{EventType: EventExport, Project: "acme", Details: map[string]interface{}{"format": "markdown"}})
	require.NoError(t, trail.Close())

	_, err = os.Stat(filepath.Join(dir, "audit_log.json"))
	require.NoError(t, err)

	reloaded, err := NewTrail(TrailOptions{MaxEvents: 100, DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.EventCount())

	events, err := reloaded.Query(context.Background(), QueryCriteria{EventType: EventExport})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "markdown", events[0].Details["format"])
}

func TestTrail_CorruptLogStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audit_log.json"), []byte("{not json"), 0o644))

	trail, err := NewTrail(TrailOptions{MaxEvents: 100, DataDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0, trail.EventCount())
}

func TestTrail_MemoryOnlyCloseIsNoop(t *testing.T) {
	trail := memoryTrail(t, 100)
	trail.Record(Event{EventType: EventMappingLoaded})
	require.NoError(t, trail.Close())
}
