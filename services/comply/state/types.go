// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package state is the compliance state store: the per-project record of
// each control's directly attested status, evidence, and status history.
//
// Status here is always attested, set only by an explicit recording action.
// Derived (advisory) status lives in the derive package and is never
// written back into this store.
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the closed set of directly attested control statuses.
type Status string

const (
	// StatusImplemented means the control is fully in place.
	StatusImplemented Status = "implemented"

	// StatusPartial means the control is partially in place.
	StatusPartial Status = "partial"

	// StatusPlanned means implementation is planned but not started.
	StatusPlanned Status = "planned"

	// StatusNotApplicable means the control does not apply to the project.
	StatusNotApplicable Status = "not_applicable"

	// StatusNotAddressed is the default for controls with no record.
	StatusNotAddressed Status = "not_addressed"
)

// AllStatuses lists every status in rank order, strongest first.
var AllStatuses = []Status{
	StatusImplemented,
	StatusPartial,
	StatusPlanned,
	StatusNotApplicable,
	StatusNotAddressed,
}

// Valid reports whether s is one of the closed status values.
func (s Status) Valid() bool {
	switch s {
	case StatusImplemented, StatusPartial, StatusPlanned, StatusNotApplicable, StatusNotAddressed:
		return true
	}
	return false
}

// Rank orders statuses for combine logic:
// implemented > partial > planned > not_applicable > not_addressed.
func (s Status) Rank() int {
	switch s {
	case StatusImplemented:
		return 4
	case StatusPartial:
		return 3
	case StatusPlanned:
		return 2
	case StatusNotApplicable:
		return 1
	default:
		return 0
	}
}

// MinStatus returns the lower-ranked of a and b.
func MinStatus(a, b Status) Status {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// MaxStatus returns the higher-ranked of a and b.
func MaxStatus(a, b Status) Status {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// UnmarshalJSON enforces the closed status set.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := Status(raw)
	if !parsed.Valid() {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = parsed
	return nil
}

// UnmarshalYAML enforces the closed status set in policy files.
func (s *Status) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed := Status(raw)
	if !parsed.Valid() {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = parsed
	return nil
}

// EvidenceType is the closed set of evidence kinds.
type EvidenceType string

const (
	EvidenceConfig     EvidenceType = "config"
	EvidenceCode       EvidenceType = "code"
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceDocument   EvidenceType = "document"
	EvidenceURL        EvidenceType = "url"
	EvidenceOther      EvidenceType = "other"
)

// Valid reports whether t is one of the closed evidence types.
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceConfig, EvidenceCode, EvidenceScreenshot, EvidenceDocument, EvidenceURL, EvidenceOther:
		return true
	}
	return false
}

// UnmarshalJSON enforces the closed evidence type set.
func (t *EvidenceType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := EvidenceType(raw)
	if !parsed.Valid() {
		return fmt.Errorf("unknown evidence type %q", raw)
	}
	*t = parsed
	return nil
}

// LineRange locates evidence within a file. Both bounds are 1-based and
// inclusive.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Evidence is one item linked to a control record. Evidence lists are
// append-only: items are never deleted, only superseded by later entries.
type Evidence struct {
	// Type is the evidence kind.
	Type EvidenceType `json:"type"`

	// Path is a file path or URL.
	Path string `json:"path"`

	// LineRange optionally narrows file evidence to a line span.
	LineRange *LineRange `json:"line_range,omitempty"`

	// Description explains what the evidence shows. Required.
	Description string `json:"description"`

	// AddedAt is when the evidence was linked.
	AddedAt time.Time `json:"added_at"`
}

// ValidationError marks input that failed evidence or record validation,
// distinguishing caller mistakes from storage failures.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the evidence invariants.
func (e Evidence) Validate() error {
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown evidence type %q", e.Type)}
	}
	if e.Path == "" {
		return &ValidationError{Field: "path", Reason: "evidence path is required"}
	}
	if e.Description == "" {
		return &ValidationError{Field: "description", Reason: "evidence description is required"}
	}
	if e.LineRange != nil {
		if e.LineRange.Start < 1 || e.LineRange.End < 1 {
			return &ValidationError{Field: "line_range", Reason: "bounds must be >= 1"}
		}
		if e.LineRange.Start > e.LineRange.End {
			return &ValidationError{Field: "line_range", Reason: fmt.Sprintf("start %d exceeds end %d", e.LineRange.Start, e.LineRange.End)}
		}
	}
	return nil
}

// StatusChange is one prior (status, timestamp) snapshot in a record's
// append-only history.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ControlRecord is the directly attested state of one control within one
// project and framework.
//
// A control with no explicit record defaults to not_addressed with empty
// evidence; the store never requires pre-population of every control.
type ControlRecord struct {
	// ControlID is the control identifier within FrameworkID.
	ControlID string `json:"control_id"`

	// FrameworkID is the framework the control belongs to.
	FrameworkID string `json:"framework_id"`

	// Status is the directly attested status. Never inferred.
	Status Status `json:"status"`

	// ImplementationSummary is optional free text.
	ImplementationSummary string `json:"implementation_summary,omitempty"`

	// Owner is the optional responsible party.
	Owner string `json:"owner,omitempty"`

	// Notes is optional free text.
	Notes string `json:"notes,omitempty"`

	// Evidence is the append-only evidence list.
	Evidence []Evidence `json:"evidence,omitempty"`

	// History is the append-only audit trail of prior statuses.
	History []StatusChange `json:"history,omitempty"`

	// LastUpdated is when the record last changed.
	LastUpdated time.Time `json:"last_updated"`
}

// emptyRecord returns the default record for an undocumented control.
func emptyRecord(frameworkID, controlID string) ControlRecord {
	return ControlRecord{
		ControlID:   controlID,
		FrameworkID: frameworkID,
		Status:      StatusNotAddressed,
	}
}

// clone deep-copies the record so store internals never alias caller data.
func (r ControlRecord) clone() ControlRecord {
	out := r
	if r.Evidence != nil {
		out.Evidence = make([]Evidence, len(r.Evidence))
		copy(out.Evidence, r.Evidence)
		for i, ev := range out.Evidence {
			if ev.LineRange != nil {
				lr := *ev.LineRange
				out.Evidence[i].LineRange = &lr
			}
		}
	}
	if r.History != nil {
		out.History = make([]StatusChange, len(r.History))
		copy(out.History, r.History)
	}
	return out
}
