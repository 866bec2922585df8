// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/AleutianComply/services/comply/audit"
	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
	"github.com/AleutianAI/AleutianComply/services/comply/derive"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

// durableConfig builds a disk-backed config rooted at a temp dir, with
// the fixture catalogs and mappings installed.
func durableConfig(t *testing.T) ServiceConfig {
	t.Helper()

	dataDir := t.TempDir()
	cfg := DefaultServiceConfig(dataDir)
	cfg.WatchFrameworks = false

	if err := os.MkdirAll(cfg.FrameworksDir, 0o755); err != nil {
		t.Fatalf("create frameworks dir: %v", err)
	}
	if err := os.MkdirAll(cfg.MappingsDir, 0o755); err != nil {
		t.Fatalf("create mappings dir: %v", err)
	}
	writeFixture(t, cfg.FrameworksDir, "nist_csf.json", testFrameworkCSF)
	writeFixture(t, cfg.FrameworksDir, "soc2.json", testFrameworkSOC2)
	writeFixture(t, cfg.MappingsDir, "csf_to_soc2.json", testMappingDoc)
	return cfg
}

func TestService_SurvivesRestart(t *testing.T) {
	cfg := durableConfig(t)

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	_, err = svc.RecordStatus("acme", "nist_csf", "PR.AC-1", RecordStatusRequest{
		Status: state.StatusImplemented,
		Actor:  "cli:jdoe",
	})
	if err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}
	_, err = svc.AddEvidence("acme", "nist_csf", "PR.AC-1", AddEvidenceRequest{
		Type:        state.EvidenceCode,
		Path:        "auth/mfa.go",
		Description: "TOTP verification",
	})
	if err != nil {
		t.Fatalf("AddEvidence failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	restarted, err := NewService(cfg)
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer restarted.Close()

	rec, err := restarted.GetRecord("acme", "nist_csf", "PR.AC-1")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec.Status != state.StatusImplemented {
		t.Errorf("expected implemented after restart, got %q", rec.Status)
	}
	if len(rec.Evidence) != 1 {
		t.Errorf("expected 1 evidence item after restart, got %d", len(rec.Evidence))
	}

	// The audit trail is persisted on Close and reloaded on start.
	events, err := restarted.AuditEvents(context.Background(), audit.QueryCriteria{
		EventType: audit.EventStatusRecorded,
	})
	if err != nil {
		t.Fatalf("AuditEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 status event after restart, got %d", len(events))
	}
	if events[0].Actor != "cli:jdoe" {
		t.Errorf("expected actor cli:jdoe, got %q", events[0].Actor)
	}
}

func TestService_CloseIdempotent(t *testing.T) {
	svc, err := NewService(ServiceConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestService_RecordStatus_UnknownControl(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordStatus("acme", "nist_csf", "PR.AC-99", RecordStatusRequest{
		Status: state.StatusImplemented,
	})
	if !errors.Is(err, catalog.ErrControlNotFound) {
		t.Errorf("expected ErrControlNotFound, got %v", err)
	}
}

func TestService_Gap_SameFramework(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Gap("acme", "nist_csf", "nist_csf", true)
	if !errors.Is(err, ErrSameFramework) {
		t.Errorf("expected ErrSameFramework, got %v", err)
	}
}

func TestService_PolicyOverride(t *testing.T) {
	cfg := durableConfig(t)
	cfg.PolicyPath = filepath.Join(t.TempDir(), "policy.yaml")

	policy := "derivation:\n  related:\n    cap: implemented\n    confidence: exact\n"
	if err := os.WriteFile(cfg.PolicyPath, []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	_, err = svc.RecordStatus("acme", "nist_csf", "PR.AC-3", RecordStatusRequest{
		Status: state.StatusImplemented,
	})
	if err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}

	// With the override, the related edge PR.AC-3 → CC6.6 carries
	// implemented through instead of clamping at partial.
	cov, err := svc.Derive("acme", "soc2", "CC6.6", "nist_csf")
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if cov.Status != state.StatusImplemented {
		t.Errorf("expected implemented under override policy, got %q", cov.Status)
	}
	if cov.Confidence != derive.ConfidenceExact {
		t.Errorf("expected exact confidence under override policy, got %q", cov.Confidence)
	}
}

func TestService_PolicyOverride_Invalid(t *testing.T) {
	cfg := durableConfig(t)
	cfg.PolicyPath = filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(cfg.PolicyPath, []byte("effort:\n  category_covered_threshold: 7\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	if _, err := NewService(cfg); err == nil {
		t.Fatal("expected startup failure on invalid policy")
	}
}
