// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianComply/pkg/validation"
	"github.com/AleutianAI/AleutianComply/services/comply/audit"
	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

// Handlers contains the HTTP handlers for the compliance service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// writeCatalogError maps catalog lookup failures to HTTP responses.
func writeCatalogError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, catalog.ErrFrameworkNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "FRAMEWORK_NOT_FOUND",
		})
	case errors.Is(err, catalog.ErrControlNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "CONTROL_NOT_FOUND",
		})
	default:
		logger.Error("Catalog lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "CATALOG_ERROR",
		})
	}
}

// projectParam validates the :project path parameter before it reaches
// the store, where it becomes part of a storage key. Writes a 400 response
// and returns false on invalid input.
func projectParam(c *gin.Context) (string, bool) {
	project := c.Param("project")
	if err := validation.ValidateProjectName(project); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_PROJECT",
		})
		return "", false
	}
	return project, true
}

// HandleListFrameworks handles GET /v1/comply/frameworks.
//
// Response:
//
//	200 OK: []catalog.Info
func (h *Handlers) HandleListFrameworks(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ListFrameworks())
}

// HandleGetFramework handles GET /v1/comply/frameworks/:framework.
//
// Response:
//
//	200 OK: catalog.Info
//	404 Not Found: Unknown framework
func (h *Handlers) HandleGetFramework(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetFramework")

	fw, err := h.svc.GetFramework(c.Param("framework"))
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, fw.Info())
}

// HandleListControls handles GET /v1/comply/frameworks/:framework/controls.
//
// Description:
//
//	Lists a framework's controls, optionally filtered by function or
//	category via query parameters.
//
// Response:
//
//	200 OK: []catalog.Control
//	404 Not Found: Unknown framework
func (h *Handlers) HandleListControls(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListControls")

	var q ControlsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}

	controls, err := h.svc.ListControls(c.Param("framework"), catalog.Filter{
		FunctionID: q.FunctionID,
		CategoryID: q.CategoryID,
	})
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, controls)
}

// HandleGetControl handles GET /v1/comply/frameworks/:framework/controls/:control.
func (h *Handlers) HandleGetControl(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetControl")

	ctrl, err := h.svc.GetControl(c.Param("framework"), c.Param("control"))
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, ctrl)
}

// HandleListMappings handles
// GET /v1/comply/frameworks/:framework/controls/:control/mappings.
//
// Response:
//
//	200 OK: []crosswalk.Edge
//	404 Not Found: Unknown framework or control
func (h *Handlers) HandleListMappings(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListMappings")

	var q MappingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}

	edges, err := h.svc.Mappings(c.Param("framework"), c.Param("control"), q.TargetFramework)
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, edges)
}

// HandleRecordStatus handles
// POST /v1/comply/projects/:project/frameworks/:framework/controls/:control/status.
//
// Description:
//
//	Attests a control's compliance status for a project. Repeated
//	attestations append the prior status to history.
//
// Request Body:
//
//	RecordStatusRequest
//
// Response:
//
//	200 OK: state.ControlRecord
//	400 Bad Request: Validation error
//	404 Not Found: Unknown framework or control
//	500 Internal Server Error: Persistence failure (state unchanged)
func (h *Handlers) HandleRecordStatus(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRecordStatus")

	var req RecordStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	project, ok := projectParam(c)
	if !ok {
		return
	}
	framework, control := c.Param("framework"), c.Param("control")
	logger.Info("Recording status",
		"project", project, "framework", framework, "control", control, "status", req.Status)

	rec, err := h.svc.RecordStatus(project, framework, control, req)
	if err != nil {
		var perr *state.PersistenceError
		if errors.As(err, &perr) {
			logger.Error("Status persistence failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  "PERSISTENCE_ERROR",
			})
			return
		}
		var verr *state.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_STATUS",
			})
			return
		}
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleAddEvidence handles
// POST /v1/comply/projects/:project/frameworks/:framework/controls/:control/evidence.
//
// Response:
//
//	200 OK: state.ControlRecord
//	400 Bad Request: Validation error
//	404 Not Found: Unknown control
//	409 Conflict: Control has no documented status yet
func (h *Handlers) HandleAddEvidence(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAddEvidence")

	var req AddEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	project, ok := projectParam(c)
	if !ok {
		return
	}

	rec, err := h.svc.AddEvidence(project, c.Param("framework"), c.Param("control"), req)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrNotDocumented):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: "Record a status before attaching evidence",
				Code:  "NOT_DOCUMENTED",
			})
		default:
			var perr *state.PersistenceError
			if errors.As(err, &perr) {
				logger.Error("Evidence persistence failed", "error", err)
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error: err.Error(),
					Code:  "PERSISTENCE_ERROR",
				})
				return
			}
			var verr *state.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, ErrorResponse{
					Error: err.Error(),
					Code:  "INVALID_EVIDENCE",
				})
				return
			}
			writeCatalogError(c, logger, err)
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleGetRecord handles
// GET /v1/comply/projects/:project/frameworks/:framework/controls/:control.
//
// Description:
//
//	Returns the documented record for a control. Undocumented controls
//	return an empty not_addressed record, never 404, as long as the
//	control exists in the catalog.
func (h *Handlers) HandleGetRecord(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetRecord")

	project, ok := projectParam(c)
	if !ok {
		return
	}

	rec, err := h.svc.GetRecord(project, c.Param("framework"), c.Param("control"))
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleSummary handles
// GET /v1/comply/projects/:project/frameworks/:framework/summary.
func (h *Handlers) HandleSummary(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSummary")

	var q ControlsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}

	project, ok := projectParam(c)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(project, c.Param("framework"), catalog.Filter{
		FunctionID: q.FunctionID,
		CategoryID: q.CategoryID,
	})
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// HandleExport handles
// GET /v1/comply/projects/:project/frameworks/:framework/export.
//
// Description:
//
//	Renders the project's compliance posture. Markdown is returned as
//	text/markdown; JSON is wrapped in an ExportResponse envelope.
//
// Response:
//
//	200 OK: markdown body or ExportResponse
//	400 Bad Request: Unsupported format
//	404 Not Found: Unknown framework
func (h *Handlers) HandleExport(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleExport")

	var q ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}

	format := state.ExportMarkdown
	switch q.Format {
	case "", "markdown":
	case "json":
		format = state.ExportJSON
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "format must be markdown or json",
			Code:  "INVALID_FORMAT",
		})
		return
	}

	opts := state.ExportOptions{IncludeEvidence: true, IncludeGaps: true}
	if q.IncludeEvidence != nil {
		opts.IncludeEvidence = *q.IncludeEvidence
	}
	if q.IncludeGaps != nil {
		opts.IncludeGaps = *q.IncludeGaps
	}

	project, ok := projectParam(c)
	if !ok {
		return
	}
	framework := c.Param("framework")
	out, err := h.svc.Export(project, framework, format, opts)
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}

	if format == state.ExportMarkdown {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(out))
		return
	}
	c.JSON(http.StatusOK, ExportResponse{
		Project:   project,
		Framework: framework,
		Format:    string(format),
		Content:   out,
	})
}

// HandleDerive handles
// GET /v1/comply/projects/:project/frameworks/:framework/controls/:control/derived.
//
// Description:
//
//	Projects an advisory status for one target control from attested
//	statuses of mapped controls in other frameworks. The response is
//	always marked advisory; nothing is persisted.
func (h *Handlers) HandleDerive(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDerive")

	var q DeriveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}

	project, ok := projectParam(c)
	if !ok {
		return
	}

	cov, err := h.svc.Derive(project, c.Param("framework"), c.Param("control"), q.SourceFramework)
	if err != nil {
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, cov)
}

// HandleGap handles GET /v1/comply/projects/:project/gap.
//
// Description:
//
//	Runs a whole-framework gap analysis, projecting the project's
//	posture in the current framework onto every control of the target.
//
// Response:
//
//	200 OK: gap.Report
//	400 Bad Request: Missing parameters or identical frameworks
//	404 Not Found: Unknown framework
func (h *Handlers) HandleGap(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGap")

	var q GapQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		logger.Warn("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "current_framework and target_framework are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	project, ok := projectParam(c)
	if !ok {
		return
	}

	useDocumented := true
	if q.UseDocumentedState != nil {
		useDocumented = *q.UseDocumentedState
	}

	logger.Info("Running gap analysis",
		"project", project,
		"current", q.CurrentFramework,
		"target", q.TargetFramework,
		"use_documented", useDocumented)

	report, err := h.svc.Gap(project, q.CurrentFramework, q.TargetFramework, useDocumented)
	if err != nil {
		if errors.Is(err, ErrSameFramework) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "SAME_FRAMEWORK",
			})
			return
		}
		writeCatalogError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleAudit handles GET /v1/comply/audit.
func (h *Handlers) HandleAudit(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAudit")

	var q AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters", Code: "INVALID_REQUEST"})
		return
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}

	events, err := h.svc.AuditEvents(c.Request.Context(), audit.QueryCriteria{
		EventType: audit.EventType(q.EventType),
		Project:   q.Project,
		Framework: q.Framework,
		Limit:     q.Limit,
	})
	if err != nil {
		logger.Error("Audit query failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "AUDIT_QUERY_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, events)
}

// HandleHealth handles GET /v1/comply/health.
//
// Description:
//
//	Returns the health status of the service. Always returns 200 if running.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/comply/ready.
//
// Description:
//
//	Returns readiness including loaded framework and mapping counts.
//	Returns 503 until at least one framework catalog is loaded.
func (h *Handlers) HandleReady(c *gin.Context) {
	resp := h.svc.Ready()
	if !resp.Ready {
		c.Header("Retry-After", "10")
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
