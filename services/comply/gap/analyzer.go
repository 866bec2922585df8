// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gap projects a project's compliance posture in one framework
// onto the full control set of another, bucketing every target control as
// covered, partially covered, or a gap, with an effort estimate per gap.
package gap

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
	"github.com/AleutianAI/AleutianComply/services/comply/crosswalk"
	"github.com/AleutianAI/AleutianComply/services/comply/derive"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

// ControlProjection is one target control's derived standing in a report.
type ControlProjection struct {
	ControlID  string `json:"control_id"`
	Name       string `json:"name"`
	FunctionID string `json:"function_id"`
	CategoryID string `json:"category_id"`

	// Coverage is the full advisory derivation, kept for auditability.
	Coverage derive.Coverage `json:"coverage"`

	// Effort is the closure estimate; set only for gaps.
	Effort EffortLevel `json:"effort,omitempty"`

	// Reason summarizes why the control landed in its bucket.
	Reason string `json:"reason,omitempty"`
}

// Summary aggregates a gap report.
type Summary struct {
	TotalTargetControls int `json:"total_target_controls"`
	AlreadyCovered      int `json:"already_covered"`
	PartiallyCovered    int `json:"partially_covered"`
	Gaps                int `json:"gaps"`
	NotApplicable       int `json:"not_applicable"`

	// MappingCoverage is the percentage of target controls with at
	// least one incoming edge from the current framework.
	MappingCoverage float64 `json:"mapping_coverage"`

	// WeightedCoverage scores implemented targets at 1 and partial at
	// 0.5 over the applicable target count.
	WeightedCoverage float64 `json:"weighted_coverage"`

	// ComplianceLevel is the current framework's own completion
	// percentage: an independent figure, not derived.
	ComplianceLevel int `json:"your_compliance_level"`
}

// Report is the full gap analysis output. Advisory, never persisted.
type Report struct {
	Project          string      `json:"project"`
	CurrentFramework string      `json:"current_framework"`
	TargetFramework  string      `json:"target_framework"`
	UsedDocumented   bool        `json:"use_documented_state"`
	GeneratedAt      time.Time   `json:"generated_at"`

	AlreadyCovered   []ControlProjection `json:"already_covered"`
	PartiallyCovered []ControlProjection `json:"partially_covered"`
	Gaps             []ControlProjection `json:"gaps"`
	NotApplicable    []ControlProjection `json:"not_applicable"`

	Summary  Summary `json:"summary"`
	Advisory bool    `json:"advisory"`
}

// fullCompliance is the best-case status source: every source control is
// hypothetically implemented.
type fullCompliance struct{}

func (fullCompliance) AttestedStatus(string, string, string) state.Status {
	return state.StatusImplemented
}

// Analyzer runs whole-framework gap projections.
//
// # Thread Safety
//
// Safe for concurrent use.
type Analyzer struct {
	catalogs *catalog.Store
	graph    *crosswalk.Graph
	store    *state.Store
	engine   *derive.Engine
	policy   EffortPolicy
	logger   *slog.Logger
	clock    func() time.Time
}

// NewAnalyzer wires a gap analyzer over the engine's read surfaces.
func NewAnalyzer(catalogs *catalog.Store, graph *crosswalk.Graph, store *state.Store, engine *derive.Engine, policy EffortPolicy, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		catalogs: catalogs,
		graph:    graph,
		store:    store,
		engine:   engine,
		policy:   policy,
		logger:   logger,
		clock:    time.Now,
	}
}

// Analyze projects the current framework's state onto every control of
// the target framework.
//
// # Description
//
//	Derives an advisory status per target control and buckets the results:
//	implemented → already covered, partial → partially covered,
//	not_applicable → excluded from the gap denominator, everything else
//	→ gap. When useDocumented is false every source control is treated
//	as hypothetically implemented (best-case projection). Each gap gets
//	an effort estimate from the configured policy.
//
// # Outputs
//
//	*Report - The advisory gap report.
//	error - Non-nil when either framework is not loaded.
func (a *Analyzer) Analyze(project, currentFramework, targetFramework string, useDocumented bool) (*Report, error) {
	if currentFramework == targetFramework {
		return nil, fmt.Errorf("current and target framework are both %q", currentFramework)
	}
	currentFW, err := a.catalogs.Framework(currentFramework)
	if err != nil {
		return nil, err
	}
	targetFW, err := a.catalogs.Framework(targetFramework)
	if err != nil {
		return nil, err
	}

	var src derive.StatusSource = a.store
	if !useDocumented {
		src = fullCompliance{}
	}

	report := &Report{
		Project:          project,
		CurrentFramework: currentFramework,
		TargetFramework:  targetFramework,
		UsedDocumented:   useDocumented,
		GeneratedAt:      a.clock(),
		Advisory:         true,
	}

	targets := targetFW.Controls()
	report.Summary.TotalTargetControls = len(targets)

	mapped := 0
	projections := make([]ControlProjection, 0, len(targets))
	for _, ctrl := range targets {
		cov := a.engine.Derive(src, project, targetFramework, ctrl.ID, currentFramework)
		if len(cov.Sources) > 0 {
			mapped++
		}
		projections = append(projections, ControlProjection{
			ControlID:  ctrl.ID,
			Name:       ctrl.Name,
			FunctionID: ctrl.FunctionID,
			CategoryID: ctrl.CategoryID,
			Coverage:   cov,
		})
	}

	// Category coverage ratios feed the effort heuristic, so bucket in
	// two passes: first the derived statuses, then the gap efforts.
	categoryTotals := make(map[string]int)
	categoryCovered := make(map[string]int)
	categoryTouched := make(map[string]bool)
	for _, p := range projections {
		categoryTotals[p.CategoryID]++
		switch p.Coverage.Status {
		case state.StatusImplemented:
			categoryCovered[p.CategoryID]++
			categoryTouched[p.CategoryID] = true
		case state.StatusPartial:
			categoryTouched[p.CategoryID] = true
		}
	}

	implementedKeywords := a.implementedKeywords(project, currentFW, useDocumented)

	for _, p := range projections {
		switch p.Coverage.Status {
		case state.StatusImplemented:
			p.Reason = coverageReason(p.Coverage)
			report.AlreadyCovered = append(report.AlreadyCovered, p)
		case state.StatusPartial:
			p.Reason = coverageReason(p.Coverage)
			report.PartiallyCovered = append(report.PartiallyCovered, p)
		case state.StatusNotApplicable:
			p.Reason = "mapped source controls attested not applicable"
			report.NotApplicable = append(report.NotApplicable, p)
		default:
			ctrl, _ := targetFW.Control(p.ControlID)
			p.Effort = a.estimateEffort(ctrl, p, categoryTotals, categoryCovered, categoryTouched, implementedKeywords)
			p.Reason = gapReason(p.Coverage)
			report.Gaps = append(report.Gaps, p)
		}
	}

	report.Summary.AlreadyCovered = len(report.AlreadyCovered)
	report.Summary.PartiallyCovered = len(report.PartiallyCovered)
	report.Summary.Gaps = len(report.Gaps)
	report.Summary.NotApplicable = len(report.NotApplicable)
	if len(targets) > 0 {
		report.Summary.MappingCoverage = round1(100 * float64(mapped) / float64(len(targets)))
	}
	applicable := len(targets) - report.Summary.NotApplicable
	if applicable > 0 {
		weighted := float64(report.Summary.AlreadyCovered) + 0.5*float64(report.Summary.PartiallyCovered)
		report.Summary.WeightedCoverage = round1(100 * weighted / float64(applicable))
	}
	report.Summary.ComplianceLevel = a.store.Summarize(project, currentFW, catalog.Filter{}).CompletionPercentage
	if !useDocumented {
		report.Summary.ComplianceLevel = 100
	}

	a.logger.Info("gap analysis complete",
		"project", project,
		"current", currentFramework,
		"target", targetFramework,
		"covered", report.Summary.AlreadyCovered,
		"partial", report.Summary.PartiallyCovered,
		"gaps", report.Summary.Gaps)
	return report, nil
}

// estimateEffort applies the configured heuristic to one gap control.
func (a *Analyzer) estimateEffort(ctrl catalog.Control, p ControlProjection, totals, covered map[string]int, touched map[string]bool, implementedKeywords map[string]bool) EffortLevel {
	total := totals[p.CategoryID]
	if total > 0 {
		ratio := float64(covered[p.CategoryID]) / float64(total)
		if ratio >= a.policy.CategoryCoveredThreshold {
			return a.policy.CoveredCategoryEffort
		}
	}

	if !touched[p.CategoryID] {
		// All-new category: nothing in it has any derived coverage.
		if a.policy.KeywordOverlapSoftens && overlapsKeywords(ctrl.Keywords, implementedKeywords) {
			return a.policy.DefaultEffort
		}
		return a.policy.NewCategoryEffort
	}

	return a.policy.DefaultEffort
}

// implementedKeywords collects the keyword set of every currently
// implemented source control, for overlap checks.
func (a *Analyzer) implementedKeywords(project string, currentFW *catalog.Framework, useDocumented bool) map[string]bool {
	keywords := make(map[string]bool)
	records := a.store.Records(project, currentFW.ID)
	for _, ctrl := range currentFW.Controls() {
		if useDocumented {
			rec, ok := records[ctrl.ID]
			if !ok || rec.Status != state.StatusImplemented {
				continue
			}
		}
		for _, kw := range ctrl.Keywords {
			keywords[kw] = true
		}
	}
	return keywords
}

func overlapsKeywords(keywords []string, implemented map[string]bool) bool {
	for _, kw := range keywords {
		if implemented[kw] {
			return true
		}
	}
	return false
}

// coverageReason summarizes the contributing relationships for a bucket.
func coverageReason(cov derive.Coverage) string {
	byRel := make(map[crosswalk.Relationship]int)
	for _, src := range cov.Sources {
		byRel[src.Relationship]++
	}
	switch {
	case byRel[crosswalk.RelEquivalent] > 0:
		return "equivalent mapping attested in source framework"
	case byRel[crosswalk.RelBroader] > 0:
		return "broader source control presumed to subsume target"
	case byRel[crosswalk.RelNarrower] > 0:
		return "narrower source controls cover part of the target"
	default:
		return "related mappings provide supporting signal only"
	}
}

// gapReason explains why a control is a gap.
func gapReason(cov derive.Coverage) string {
	if len(cov.Sources) == 0 {
		return "no mapping from current framework"
	}
	return fmt.Sprintf("mapped source controls not implemented (%d mapping(s))", len(cov.Sources))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
