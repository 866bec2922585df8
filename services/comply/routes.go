// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all compliance routes with the router.
//
// Description:
//
//	Registers all /v1/comply/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Catalog Endpoints:
//
//	GET /v1/comply/frameworks - List loaded frameworks
//	GET /v1/comply/frameworks/:framework - Framework metadata
//	GET /v1/comply/frameworks/:framework/controls - List controls (filterable)
//	GET /v1/comply/frameworks/:framework/controls/:control - Control detail
//	GET /v1/comply/frameworks/:framework/controls/:control/mappings - Crosswalk edges
//
// State Endpoints:
//
//	POST /v1/comply/projects/:project/frameworks/:framework/controls/:control/status - Attest a status
//	POST /v1/comply/projects/:project/frameworks/:framework/controls/:control/evidence - Link evidence
//	GET  /v1/comply/projects/:project/frameworks/:framework/controls/:control - Control record
//	GET  /v1/comply/projects/:project/frameworks/:framework/controls/:control/derived - Advisory derivation
//	GET  /v1/comply/projects/:project/frameworks/:framework/summary - Posture summary
//	GET  /v1/comply/projects/:project/frameworks/:framework/export - Markdown/JSON export
//
// Analysis Endpoints:
//
//	GET /v1/comply/projects/:project/gap - Cross-framework gap analysis
//
// Audit Endpoints:
//
//	GET /v1/comply/audit - Query the audit trail
//
// Health Endpoints:
//
//	GET /v1/comply/health - Health check
//	GET /v1/comply/ready - Readiness check
//
// Example:
//
//	service, _ := comply.NewService(comply.DefaultServiceConfig(dataDir))
//	handlers := comply.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	comply.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	comply := rg.Group("/comply")
	{
		// Catalog
		frameworks := comply.Group("/frameworks")
		{
			frameworks.GET("", handlers.HandleListFrameworks)
			frameworks.GET("/:framework", handlers.HandleGetFramework)
			frameworks.GET("/:framework/controls", handlers.HandleListControls)
			frameworks.GET("/:framework/controls/:control", handlers.HandleGetControl)
			frameworks.GET("/:framework/controls/:control/mappings", handlers.HandleListMappings)
		}

		// Project state
		projects := comply.Group("/projects/:project")
		{
			projects.POST("/frameworks/:framework/controls/:control/status", handlers.HandleRecordStatus)
			projects.POST("/frameworks/:framework/controls/:control/evidence", handlers.HandleAddEvidence)
			projects.GET("/frameworks/:framework/controls/:control", handlers.HandleGetRecord)
			projects.GET("/frameworks/:framework/controls/:control/derived", handlers.HandleDerive)
			projects.GET("/frameworks/:framework/summary", handlers.HandleSummary)
			projects.GET("/frameworks/:framework/export", handlers.HandleExport)

			// Analysis
			projects.GET("/gap", handlers.HandleGap)
		}

		// Audit trail
		comply.GET("/audit", handlers.HandleAudit)

		// Health checks
		comply.GET("/health", handlers.HandleHealth)
		comply.GET("/ready", handlers.HandleReady)
	}
}
