// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package derive computes advisory coverage for a target control from a
// source framework's directly attested state.
//
// Derivation is a pure function of (mapping graph, state snapshot): it is
// one hop only, never recurses into another control's derived status, and
// never writes back into the state store. Results are recomputed on demand
// and labeled advisory; they are never ground truth.
package derive

import (
	"fmt"

	"github.com/AleutianAI/AleutianComply/services/comply/crosswalk"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
	"gopkg.in/yaml.v3"
)

// Confidence qualifies how trustworthy a derived status is.
type Confidence string

const (
	// ConfidenceExact comes from equivalent mappings.
	ConfidenceExact Confidence = "exact"

	// ConfidencePartial comes from broader/narrower mappings, where
	// coverage is presumed or incomplete.
	ConfidencePartial Confidence = "partial"

	// ConfidenceWeak comes from related mappings only.
	ConfidenceWeak Confidence = "weak"

	// ConfidenceNone means no incoming mappings exist.
	ConfidenceNone Confidence = "none"
)

// Valid reports whether c is one of the closed confidence values.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceExact, ConfidencePartial, ConfidenceWeak, ConfidenceNone:
		return true
	}
	return false
}

// UnmarshalYAML enforces the closed confidence set in policy files.
func (c *Confidence) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed := Confidence(s)
	if !parsed.Valid() {
		return fmt.Errorf("invalid confidence %q", s)
	}
	*c = parsed
	return nil
}

// rank orders confidences for combining; higher wins ties at equal status.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceExact:
		return 3
	case ConfidencePartial:
		return 2
	case ConfidenceWeak:
		return 1
	default:
		return 0
	}
}

// Contribution records how one edge contributed to a derived status, for
// auditability. Every contributing edge appears in Coverage.Sources.
type Contribution struct {
	// SourceControl is the mapped source control id.
	SourceControl string `json:"source_control_id"`

	// Relationship is the edge's typed semantics.
	Relationship crosswalk.Relationship `json:"relationship"`

	// SourceStatus is the source control's directly attested status.
	SourceStatus state.Status `json:"source_status"`

	// Derived is the status this edge contributed on its own.
	Derived state.Status `json:"derived"`
}

// Coverage is a derived, advisory status for one target control.
//
// Never persisted and never authoritative: the Advisory flag is always
// true to keep the derived/direct distinction visible on the wire.
type Coverage struct {
	TargetFramework string `json:"target_framework"`
	TargetControl   string `json:"target_control_id"`
	SourceFramework string `json:"source_framework"`

	// Status is the combined derived status.
	Status state.Status `json:"derived_status"`

	// Confidence qualifies the combined status.
	Confidence Confidence `json:"confidence"`

	// Sources lists every contributing edge.
	Sources []Contribution `json:"derived_sources"`

	// Advisory is always true.
	Advisory bool `json:"advisory"`
}

// Rule caps what an edge of one relationship type may contribute.
type Rule struct {
	// Cap is the highest status the edge can contribute; the source's
	// attested status is clamped to it.
	Cap state.Status `yaml:"cap"`

	// Confidence is assigned to contributions from this relationship.
	Confidence Confidence `yaml:"confidence"`
}

// Policy is the combine-rule configuration.
//
// The precise weighting when multiple conflicting edges combine is policy,
// not law; these knobs default to the documented behavior but can be
// loaded from configuration.
type Policy struct {
	// Equivalent: source status carries over as-is, exact confidence.
	// The strongest signal a target control is covered.
	Equivalent Rule `yaml:"equivalent"`

	// Broader: a broader implemented source is presumed to subsume the
	// narrower target, flagged partial confidence since unverified.
	Broader Rule `yaml:"broader"`

	// Narrower: a narrower source covers only part of the target, so a
	// single implemented source yields partial at best. Joint coverage
	// by several narrower edges cannot be determined deterministically,
	// so it is treated as partial too.
	Narrower Rule `yaml:"narrower"`

	// Related: a supporting signal only; caps the contribution at
	// partial regardless of source status, weak confidence.
	Related Rule `yaml:"related"`
}

// DefaultPolicy returns the documented combine rules.
func DefaultPolicy() Policy {
	return Policy{
		Equivalent: Rule{Cap: state.StatusImplemented, Confidence: ConfidenceExact},
		Broader:    Rule{Cap: state.StatusImplemented, Confidence: ConfidencePartial},
		Narrower:   Rule{Cap: state.StatusPartial, Confidence: ConfidencePartial},
		Related:    Rule{Cap: state.StatusPartial, Confidence: ConfidenceWeak},
	}
}

// rule selects the rule for a relationship. The switch is exhaustive over
// the closed relationship set; an edge with an unknown relationship cannot
// be loaded, so the false branch is unreachable in practice but keeps the
// combine logic honest if the set ever grows.
func (p Policy) rule(rel crosswalk.Relationship) (Rule, bool) {
	switch rel {
	case crosswalk.RelEquivalent:
		return p.Equivalent, true
	case crosswalk.RelBroader:
		return p.Broader, true
	case crosswalk.RelNarrower:
		return p.Narrower, true
	case crosswalk.RelRelated:
		return p.Related, true
	default:
		return Rule{}, false
	}
}

// StatusSource supplies directly attested statuses. The state store
// implements it; gap analysis substitutes a best-case source for
// hypothetical projections.
type StatusSource interface {
	// AttestedStatus returns the directly attested status for a control,
	// defaulting to not_addressed when no record exists.
	AttestedStatus(project, frameworkID, controlID string) state.Status
}

// Engine derives advisory coverage from the mapping graph and a status
// source.
//
// # Thread Safety
//
// Safe for concurrent use; the engine itself is stateless between calls.
type Engine struct {
	graph  *crosswalk.Graph
	policy Policy
}

// NewEngine creates a derivation engine over the given mapping graph.
func NewEngine(graph *crosswalk.Graph, policy Policy) *Engine {
	return &Engine{graph: graph, policy: policy}
}

// Derive computes the advisory coverage of one target control from one
// source framework's attested state.
//
// # Description
//
//	Fetches the incoming edges for the target control, clamps each source
//	control's attested status by the relationship rule, and combines:
//	the derived status is the maximum status rank reached by any edge;
//	the confidence is the strongest confidence among edges that reached
//	that status. No incoming edges is a normal outcome: the result
//	degrades to not_addressed with no confidence rather than failing.
//
// # Inputs
//
//	src - Attested status source (the state store, or a best-case stand-in).
//	project - Project whose state is consulted.
//	targetFramework, targetControl - The control being projected onto.
//	sourceFramework - The framework whose attestations drive the projection.
func (e *Engine) Derive(src StatusSource, project, targetFramework, targetControl, sourceFramework string) Coverage {
	cov := Coverage{
		TargetFramework: targetFramework,
		TargetControl:   targetControl,
		SourceFramework: sourceFramework,
		Status:          state.StatusNotAddressed,
		Confidence:      ConfidenceNone,
		Advisory:        true,
	}

	edges := e.graph.Incoming(targetFramework, targetControl, sourceFramework)
	if len(edges) == 0 {
		return cov
	}

	for _, edge := range edges {
		rule, ok := e.policy.rule(edge.Relationship)
		if !ok {
			continue
		}

		attested := src.AttestedStatus(project, edge.SourceFramework, edge.SourceControl)
		contributed := state.MinStatus(attested, rule.Cap)

		cov.Sources = append(cov.Sources, Contribution{
			SourceControl: edge.SourceControl,
			Relationship:  edge.Relationship,
			SourceStatus:  attested,
			Derived:       contributed,
		})

		switch {
		case contributed.Rank() > cov.Status.Rank():
			cov.Status = contributed
			cov.Confidence = rule.Confidence
		case contributed.Rank() == cov.Status.Rank() && rule.Confidence.rank() > cov.Confidence.rank():
			cov.Confidence = rule.Confidence
		}
	}

	return cov
}
