// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package comply exposes the compliance engine as a single service
// facade: framework catalogs, the crosswalk mapping graph, the durable
// compliance state store, coverage derivation, and gap analysis.
package comply

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianComply/services/comply/audit"
	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
	"github.com/AleutianAI/AleutianComply/services/comply/crosswalk"
	"github.com/AleutianAI/AleutianComply/services/comply/derive"
	"github.com/AleutianAI/AleutianComply/services/comply/gap"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
	"github.com/AleutianAI/AleutianComply/services/comply/storage/badger"
)

// ServiceVersion is the compliance service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the compliance service.
type ServiceConfig struct {
	// DataDir is the root directory for durable state (badger DB and
	// the audit log). Required unless InMemory is set.
	DataDir string

	// FrameworksDir holds framework catalog JSON files, loaded at
	// startup and optionally watched for changes.
	FrameworksDir string

	// MappingsDir holds crosswalk mapping JSON files.
	MappingsDir string

	// PolicyPath is an optional YAML file overriding the derivation
	// and effort policies.
	PolicyPath string

	// WatchFrameworks enables hot-reload of the frameworks directory.
	WatchFrameworks bool

	// WatchDebounce is the reload debounce interval. Default: 2s.
	WatchDebounce time.Duration

	// InMemory runs badger without disk persistence. Tests only.
	InMemory bool

	// AuditMaxEvents caps the in-memory audit window.
	AuditMaxEvents int

	// Logger receives structured log output. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultServiceConfig returns a config rooted at dataDir with
// conventional subdirectories.
func DefaultServiceConfig(dataDir string) ServiceConfig {
	return ServiceConfig{
		DataDir:         dataDir,
		FrameworksDir:   filepath.Join(dataDir, "frameworks"),
		MappingsDir:     filepath.Join(dataDir, "mappings"),
		WatchFrameworks: true,
		WatchDebounce:   2 * time.Second,
		AuditMaxEvents:  10000,
	}
}

// Service is the compliance engine facade.
//
// # Description
//
// Owns the component lifecycles: opens the badger store, hydrates
// documented state, loads catalogs and mappings, and wires derivation
// and gap analysis over them. All methods are safe for concurrent use.
type Service struct {
	cfg      ServiceConfig
	logger   *slog.Logger
	db       *badgerdb.DB
	catalogs *catalog.Store
	graph    *crosswalk.Graph
	store    *state.Store
	engine   *derive.Engine
	analyzer *gap.Analyzer
	trail    *audit.Trail
	watcher  *catalog.Watcher
	closed   bool
}

// NewService builds and starts a compliance service.
//
// # Inputs
//
//   - cfg: Service configuration. DataDir is required unless InMemory.
//
// # Outputs
//
//   - *Service: Ready-to-use service.
//   - error: Non-nil when storage cannot be opened or startup loading
//     of catalogs or mappings fails outright.
func NewService(cfg ServiceConfig) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 2 * time.Second
	}

	var dbCfg badger.Config
	if cfg.InMemory {
		dbCfg = badger.InMemoryConfig()
	} else {
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data directory is required")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dbCfg = badger.DefaultConfig(filepath.Join(cfg.DataDir, "state"))
	}
	dbCfg.Logger = logger

	db, err := badger.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	stateStore := state.NewStore(db, state.WithLogger(logger))
	if err := stateStore.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("hydrate state store: %w", err)
	}

	effortPolicy := gap.DefaultEffortPolicy()
	derivePolicy := derive.DefaultPolicy()
	if cfg.PolicyPath != "" {
		effortPolicy, derivePolicy, err = gap.LoadPolicyFile(cfg.PolicyPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load policy: %w", err)
		}
	}

	auditDir := ""
	if cfg.DataDir != "" {
		auditDir = filepath.Join(cfg.DataDir, "audit")
	}
	trail, err := audit.NewTrail(audit.TrailOptions{
		MaxEvents: cfg.AuditMaxEvents,
		DataDir:   auditDir,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open audit trail: %w", err)
	}

	catalogs := catalog.NewStore(logger)
	graph := crosswalk.NewGraph(logger)
	engine := derive.NewEngine(graph, derivePolicy)

	svc := &Service{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		catalogs: catalogs,
		graph:    graph,
		store:    stateStore,
		engine:   engine,
		analyzer: gap.NewAnalyzer(catalogs, graph, stateStore, engine, effortPolicy, logger),
		trail:    trail,
	}

	if cfg.FrameworksDir != "" {
		if err := catalogs.LoadDir(cfg.FrameworksDir); err != nil {
			svc.Close()
			return nil, fmt.Errorf("load frameworks: %w", err)
		}
		for _, info := range catalogs.ListFrameworks() {
			trail.Record(audit.Event{
				EventType: audit.EventFrameworkLoaded,
				Framework: info.ID,
				Actor:     "system",
				Details:   map[string]interface{}{"control_count": info.ControlCount},
			})
		}
	}
	if cfg.MappingsDir != "" {
		if err := graph.LoadDir(catalogs, cfg.MappingsDir); err != nil {
			svc.Close()
			return nil, fmt.Errorf("load mappings: %w", err)
		}
		trail.Record(audit.Event{
			EventType: audit.EventMappingLoaded,
			Actor:     "system",
			Details: map[string]interface{}{
				"pairs": graph.PairCount(),
				"edges": graph.EdgeCount(),
			},
		})
	}

	if cfg.WatchFrameworks && cfg.FrameworksDir != "" {
		watcher, err := catalog.NewWatcher(catalogs, cfg.FrameworksDir, cfg.WatchDebounce, logger)
		if err != nil {
			logger.Warn("framework watcher unavailable, hot-reload disabled", "error", err)
		} else {
			svc.watcher = watcher
		}
	}

	logger.Info("compliance service started",
		"frameworks", len(catalogs.ListFrameworks()),
		"mapping_pairs", graph.PairCount(),
		"projects", len(stateStore.Projects()))
	return svc, nil
}

// ListFrameworks returns metadata for every loaded framework.
func (s *Service) ListFrameworks() []catalog.Info {
	return s.catalogs.ListFrameworks()
}

// GetFramework returns one loaded framework catalog.
func (s *Service) GetFramework(id string) (*catalog.Framework, error) {
	return s.catalogs.Framework(id)
}

// ListControls returns a framework's controls, optionally filtered.
func (s *Service) ListControls(frameworkID string, filter catalog.Filter) ([]catalog.Control, error) {
	return s.catalogs.ListControls(frameworkID, filter)
}

// GetControl returns one control from a framework catalog.
func (s *Service) GetControl(frameworkID, controlID string) (catalog.Control, error) {
	return s.catalogs.GetControl(frameworkID, controlID)
}

// Mappings returns outgoing crosswalk edges for a control. The control
// must exist in its framework catalog.
func (s *Service) Mappings(frameworkID, controlID, targetFramework string) ([]crosswalk.Edge, error) {
	if _, err := s.catalogs.GetControl(frameworkID, controlID); err != nil {
		return nil, err
	}
	return s.graph.Mappings(frameworkID, controlID, targetFramework), nil
}

// RecordStatus attests a control's compliance status for a project.
//
// # Description
//
//	Validates the control against its framework catalog, then records
//	the attestation durably. Prior status is appended to the control's
//	history. The audit trail gets a STATUS_RECORDED event.
func (s *Service) RecordStatus(project, frameworkID, controlID string, req RecordStatusRequest) (state.ControlRecord, error) {
	if _, err := s.catalogs.GetControl(frameworkID, controlID); err != nil {
		statusRecordsTotal.WithLabelValues("not_found").Inc()
		return state.ControlRecord{}, err
	}

	rec, err := s.store.RecordStatus(project, frameworkID, controlID, state.RecordRequest{
		Status:                req.Status,
		ImplementationSummary: req.ImplementationSummary,
		Owner:                 req.Owner,
		Notes:                 req.Notes,
	})
	if err != nil {
		statusRecordsTotal.WithLabelValues("persistence_error").Inc()
		return state.ControlRecord{}, err
	}

	statusRecordsTotal.WithLabelValues("success").Inc()
	s.trail.Record(audit.Event{
		EventType: audit.EventStatusRecorded,
		Project:   project,
		Framework: frameworkID,
		ControlID: controlID,
		Actor:     actorOrDefault(req.Actor),
		Details:   map[string]interface{}{"status": string(req.Status)},
	})
	return rec, nil
}

// AddEvidence links an evidence artifact to a documented control.
func (s *Service) AddEvidence(project, frameworkID, controlID string, req AddEvidenceRequest) (state.ControlRecord, error) {
	if _, err := s.catalogs.GetControl(frameworkID, controlID); err != nil {
		evidenceLinksTotal.WithLabelValues("not_found").Inc()
		return state.ControlRecord{}, err
	}

	rec, err := s.store.AddEvidence(project, frameworkID, controlID, state.Evidence{
		Type:        req.Type,
		Path:        req.Path,
		LineRange:   req.LineRange,
		Description: req.Description,
	})
	if err != nil {
		evidenceLinksTotal.WithLabelValues("error").Inc()
		return state.ControlRecord{}, err
	}

	evidenceLinksTotal.WithLabelValues("success").Inc()
	s.trail.Record(audit.Event{
		EventType: audit.EventEvidenceLinked,
		Project:   project,
		Framework: frameworkID,
		ControlID: controlID,
		Actor:     actorOrDefault(req.Actor),
		Details:   map[string]interface{}{"type": string(req.Type), "path": req.Path},
	})
	return rec, nil
}

// GetRecord returns a project's record for a control, defaulting to an
// empty not_addressed record when nothing is documented.
func (s *Service) GetRecord(project, frameworkID, controlID string) (state.ControlRecord, error) {
	if _, err := s.catalogs.GetControl(frameworkID, controlID); err != nil {
		return state.ControlRecord{}, err
	}
	return s.store.GetRecord(project, frameworkID, controlID), nil
}

// Summary aggregates a project's documented state against the full
// framework catalog.
func (s *Service) Summary(project, frameworkID string, filter catalog.Filter) (state.Summary, error) {
	fw, err := s.catalogs.Framework(frameworkID)
	if err != nil {
		return state.Summary{}, err
	}
	return s.store.Summarize(project, fw, filter), nil
}

// Export renders a project's compliance posture as markdown or JSON.
func (s *Service) Export(project, frameworkID string, format state.ExportFormat, opts state.ExportOptions) (string, error) {
	fw, err := s.catalogs.Framework(frameworkID)
	if err != nil {
		return "", err
	}
	out, err := s.store.Export(project, fw, format, opts)
	if err != nil {
		return "", err
	}
	exportsTotal.WithLabelValues(string(format)).Inc()
	s.trail.Record(audit.Event{
		EventType: audit.EventExport,
		Project:   project,
		Framework: frameworkID,
		Actor:     "api",
		Details:   map[string]interface{}{"format": string(format)},
	})
	return out, nil
}

// Derive projects an advisory status for one target control from the
// project's attested state in other frameworks.
func (s *Service) Derive(project, targetFramework, targetControl, sourceFramework string) (derive.Coverage, error) {
	if _, err := s.catalogs.GetControl(targetFramework, targetControl); err != nil {
		return derive.Coverage{}, err
	}
	derivationsTotal.Inc()
	return s.engine.Derive(s.store, project, targetFramework, targetControl, sourceFramework), nil
}

// Gap runs a whole-framework gap analysis.
func (s *Service) Gap(project, currentFramework, targetFramework string, useDocumented bool) (*gap.Report, error) {
	if currentFramework == targetFramework {
		return nil, ErrSameFramework
	}
	start := time.Now()
	report, err := s.analyzer.Analyze(project, currentFramework, targetFramework, useDocumented)
	if err != nil {
		return nil, err
	}
	gapAnalysesTotal.Inc()
	gapAnalysisDuration.Observe(time.Since(start).Seconds())
	s.trail.Record(audit.Event{
		EventType: audit.EventGapAnalysis,
		Project:   project,
		Framework: targetFramework,
		Actor:     "api",
		Details: map[string]interface{}{
			"current_framework": currentFramework,
			"gaps":              report.Summary.Gaps,
			"covered":           report.Summary.AlreadyCovered,
		},
	})
	return report, nil
}

// AuditEvents queries the audit trail.
func (s *Service) AuditEvents(ctx context.Context, criteria audit.QueryCriteria) ([]audit.Event, error) {
	return s.trail.Query(ctx, criteria)
}

// Ready reports component readiness for the readiness probe.
func (s *Service) Ready() ReadyResponse {
	frameworks := len(s.catalogs.ListFrameworks())
	return ReadyResponse{
		Ready:        frameworks > 0,
		Frameworks:   frameworks,
		MappingPairs: s.graph.PairCount(),
		Projects:     len(s.store.Projects()),
	}
}

// Close stops the watcher, persists the audit trail, and closes the
// state database. Safe to call more than once.
func (s *Service) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.watcher != nil {
		s.watcher.Stop()
	}
	if err := s.trail.Close(); err != nil {
		s.logger.Warn("audit trail persist failed", "error", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close state store: %w", err)
	}
	s.logger.Info("compliance service stopped")
	return nil
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return "api"
	}
	return actor
}
