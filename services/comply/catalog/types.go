// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog holds immutable, versioned representations of compliance
// framework hierarchies (function → category → control).
//
// A Framework is built once by the loader, fully validated, and never
// mutated afterwards. Re-importing a framework produces a new Framework
// value that the Store installs atomically, so in-flight queries never
// observe a half-loaded catalog.
package catalog

import "fmt"

// Framework is one compliance framework's full control hierarchy.
//
// # Immutability
//
// All fields are populated by the loader and must not be modified after
// Load returns. The Store hands out the same *Framework to all readers.
type Framework struct {
	// ID is the framework identifier (e.g., "nist-csf-2.0").
	ID string `json:"id"`

	// Name is the human-readable name.
	Name string `json:"name"`

	// Version is the framework version string.
	Version string `json:"version"`

	// Description is an optional short description.
	Description string `json:"description,omitempty"`

	// SourceURL points at the authoritative publication.
	SourceURL string `json:"source_url,omitempty"`

	// Functions are the top-level groupings in declaration order.
	Functions []Function `json:"functions"`

	// controls is the flattened control list in declaration order.
	controls []Control

	// byID indexes controls by identifier.
	byID map[string]int
}

// Function is a top-level grouping in a framework (e.g., PR - PROTECT).
// For flat frameworks like 800-53 the control family doubles as both
// function and category.
type Function struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Categories  []Category `json:"categories"`
}

// Category is a grouping within a function (e.g., PR.AA - Identity
// Management, Authentication, and Access Control).
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	FunctionID  string    `json:"function_id"`
	Controls    []Control `json:"controls"`
}

// Control is the atomic compliance requirement within a framework.
//
// Controls never change identity: a re-import of updated source data is
// diffed by identifier, not by position in the document.
type Control struct {
	// ID is the control identifier, unique within the framework
	// (e.g., "PR.AA-01").
	ID string `json:"id"`

	// Name is the control title.
	Name string `json:"name"`

	// Description states what the control requires.
	Description string `json:"description"`

	// FunctionID is the parent function identifier.
	FunctionID string `json:"function_id"`

	// CategoryID is the parent category identifier.
	CategoryID string `json:"category_id"`

	// Keywords support effort heuristics and search collaborators.
	Keywords []string `json:"keywords,omitempty"`

	// ImplementationExamples are illustrative implementation notes.
	ImplementationExamples []string `json:"implementation_examples,omitempty"`

	// InformativeReferences cite related material in other publications.
	InformativeReferences []string `json:"informative_references,omitempty"`
}

// Info is lightweight framework metadata for listings.
type Info struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	Description  string `json:"description,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	ControlCount int    `json:"control_count"`
}

// Info returns the framework's listing metadata.
func (f *Framework) Info() Info {
	return Info{
		ID:           f.ID,
		Name:         f.Name,
		Version:      f.Version,
		Description:  f.Description,
		SourceURL:    f.SourceURL,
		ControlCount: len(f.controls),
	}
}

// Control looks up a control by identifier.
//
// # Outputs
//
//   - Control: The control, valid only when found.
//   - bool: False if the identifier is unknown.
func (f *Framework) Control(id string) (Control, bool) {
	i, ok := f.byID[id]
	if !ok {
		return Control{}, false
	}
	return f.controls[i], true
}

// Controls returns all controls in catalog declaration order.
//
// The returned slice is a copy; callers may not mutate framework state
// through it.
func (f *Framework) Controls() []Control {
	out := make([]Control, len(f.controls))
	copy(out, f.controls)
	return out
}

// ControlCount returns the number of controls in the framework.
func (f *Framework) ControlCount() int {
	return len(f.controls)
}

// Filter narrows a control listing by function and/or category.
// Empty fields match everything.
type Filter struct {
	FunctionID string
	CategoryID string
}

// FilterControls returns controls matching the filter, in declaration order.
func (f *Framework) FilterControls(filter Filter) []Control {
	out := make([]Control, 0, len(f.controls))
	for _, c := range f.controls {
		if filter.FunctionID != "" && c.FunctionID != filter.FunctionID {
			continue
		}
		if filter.CategoryID != "" && c.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Error reports malformed or incomplete framework source data.
//
// A load that produces an Error installs nothing: the framework is simply
// unavailable, other frameworks are unaffected.
type Error struct {
	// Framework is the framework identifier, when known.
	Framework string

	// Reason describes the validation failure.
	Reason string
}

func (e *Error) Error() string {
	if e.Framework == "" {
		return fmt.Sprintf("catalog: %s", e.Reason)
	}
	return fmt.Sprintf("catalog %s: %s", e.Framework, e.Reason)
}
