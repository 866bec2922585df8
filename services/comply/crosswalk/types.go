// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package crosswalk holds the typed mapping graph between controls of
// different compliance frameworks.
//
// Edges are directional: an edge declared source→target says nothing about
// the reverse direction. Broader and narrower are inverses of each other;
// equivalent and related are expected to be symmetric in practice but are
// stored directionally, so callers needing both directions must query both
// or duplicate the edge in the mapping data.
package crosswalk

import (
	"encoding/json"
	"fmt"
)

// Relationship is the closed set of mapping relationship types.
//
// Derivation logic switches exhaustively over these values; adding a new
// relationship forces every combine site to be revisited.
type Relationship string

const (
	// RelEquivalent means source and target require the same thing.
	RelEquivalent Relationship = "equivalent"

	// RelBroader means the source covers more than the target.
	RelBroader Relationship = "broader"

	// RelNarrower means the source covers only part of the target.
	RelNarrower Relationship = "narrower"

	// RelRelated means the controls are thematically connected without
	// a coverage claim.
	RelRelated Relationship = "related"
)

// Valid reports whether r is one of the closed relationship values.
func (r Relationship) Valid() bool {
	switch r {
	case RelEquivalent, RelBroader, RelNarrower, RelRelated:
		return true
	}
	return false
}

// relationshipAliases maps legacy spellings from older mapping files onto
// the closed set. NIST crosswalk exports use subset/superset.
var relationshipAliases = map[string]Relationship{
	"subset":   RelNarrower,
	"superset": RelBroader,
}

// ParseRelationship normalizes a relationship string, accepting legacy
// aliases. Empty input defaults to related, matching how informal
// crosswalks are published.
func ParseRelationship(s string) (Relationship, error) {
	if s == "" {
		return RelRelated, nil
	}
	if r := Relationship(s); r.Valid() {
		return r, nil
	}
	if r, ok := relationshipAliases[s]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown relationship %q", s)
}

// UnmarshalJSON enforces the closed relationship set (aliases included).
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRelationship(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Edge is one typed, directional mapping between two controls in two
// different frameworks.
type Edge struct {
	// SourceFramework is the framework the source control belongs to.
	SourceFramework string `json:"source_framework"`

	// SourceControl is the source control identifier.
	SourceControl string `json:"source_control_id"`

	// TargetFramework is the framework the target control belongs to.
	TargetFramework string `json:"target_framework"`

	// TargetControl is the target control identifier.
	TargetControl string `json:"target_control_id"`

	// Relationship is the typed semantics of this edge.
	Relationship Relationship `json:"relationship"`

	// Confidence is an optional publisher-supplied weight in (0,1].
	// Zero means unspecified.
	Confidence float64 `json:"confidence,omitempty"`
}

// Error reports invalid mapping data: a dangling endpoint or a
// self-mapping. The load of that mapping pair fails; other pairs are
// unaffected.
type Error struct {
	SourceFramework string
	TargetFramework string
	Reason          string
}

func (e *Error) Error() string {
	return fmt.Sprintf("crosswalk %s→%s: %s", e.SourceFramework, e.TargetFramework, e.Reason)
}
