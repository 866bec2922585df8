// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import (
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

// RecordStatusRequest is the request body for
// POST /v1/comply/projects/:project/frameworks/:framework/controls/:control/status.
type RecordStatusRequest struct {
	// Status is the attested compliance status. Required.
	Status state.Status `json:"status" binding:"required"`

	// ImplementationSummary describes how the control is met.
	ImplementationSummary string `json:"implementation_summary"`

	// Owner is the team or person accountable for the control.
	Owner string `json:"owner"`

	// Notes holds free-form annotations.
	Notes string `json:"notes"`

	// Actor is recorded in the audit trail. Default: "api".
	Actor string `json:"actor"`
}

// AddEvidenceRequest is the request body for
// POST /v1/comply/projects/:project/frameworks/:framework/controls/:control/evidence.
type AddEvidenceRequest struct {
	// Type is the evidence type. Required.
	Type state.EvidenceType `json:"type" binding:"required"`

	// Path locates the evidence artifact. Required.
	Path string `json:"path" binding:"required"`

	// LineRange narrows file evidence to a line span.
	LineRange *state.LineRange `json:"line_range,omitempty"`

	// Description explains what the evidence demonstrates. Required.
	Description string `json:"description" binding:"required"`

	// Actor is recorded in the audit trail. Default: "api".
	Actor string `json:"actor"`
}

// ControlsQuery is the query params for
// GET /v1/comply/frameworks/:framework/controls.
type ControlsQuery struct {
	// FunctionID filters controls to one function.
	FunctionID string `form:"function_id"`

	// CategoryID filters controls to one category.
	CategoryID string `form:"category_id"`
}

// MappingsQuery is the query params for
// GET /v1/comply/frameworks/:framework/controls/:control/mappings.
type MappingsQuery struct {
	// TargetFramework limits results to one target framework.
	TargetFramework string `form:"target_framework" binding:"omitempty,framework_id"`
}

// GapQuery is the query params for GET /v1/comply/projects/:project/gap.
type GapQuery struct {
	// CurrentFramework is the framework the project attests against. Required.
	CurrentFramework string `form:"current_framework" binding:"required,framework_id"`

	// TargetFramework is the framework to project onto. Required.
	TargetFramework string `form:"target_framework" binding:"required,framework_id"`

	// UseDocumentedState selects documented (true) or best-case (false)
	// projection. Default: true.
	UseDocumentedState *bool `form:"use_documented_state"`
}

// DeriveQuery is the query params for
// GET /v1/comply/projects/:project/frameworks/:framework/controls/:control/derived.
type DeriveQuery struct {
	// SourceFramework limits derivation to edges from one framework.
	SourceFramework string `form:"source_framework" binding:"omitempty,framework_id"`
}

// ExportQuery is the query params for
// GET /v1/comply/projects/:project/frameworks/:framework/export.
type ExportQuery struct {
	// Format is "markdown" or "json". Default: "markdown".
	Format string `form:"format"`

	// IncludeEvidence includes evidence listings. Default: true.
	IncludeEvidence *bool `form:"include_evidence"`

	// IncludeGaps appends an undocumented-controls section. Default: true.
	IncludeGaps *bool `form:"include_gaps"`
}

// AuditQuery is the query params for GET /v1/comply/audit.
type AuditQuery struct {
	// EventType filters to one event type.
	EventType string `form:"event_type"`

	// Project filters to one project.
	Project string `form:"project"`

	// Framework filters to one framework.
	Framework string `form:"framework"`

	// Limit caps the number of events returned. Default: 100.
	Limit int `form:"limit"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the response for GET /v1/comply/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/comply/ready.
type ReadyResponse struct {
	// Ready is true when at least one framework catalog is loaded.
	Ready bool `json:"ready"`

	// Frameworks is the number of loaded framework catalogs.
	Frameworks int `json:"frameworks"`

	// MappingPairs is the number of loaded crosswalk pairs.
	MappingPairs int `json:"mapping_pairs"`

	// Projects is the number of projects with documented state.
	Projects int `json:"projects"`
}

// ExportResponse is the response for the export endpoint when the
// client asked for JSON envelope delivery.
type ExportResponse struct {
	Project   string `json:"project"`
	Framework string `json:"framework"`
	Format    string `json:"format"`
	Content   string `json:"content"`
}
