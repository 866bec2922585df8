// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/pkg/validation"
	"github.com/AleutianAI/AleutianComply/services/comply"
	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

var (
	flagProject   string
	flagFramework string
	flagControl   string

	recordStatus  string
	recordSummary string
	recordOwner   string
	recordNotes   string

	evidenceType  string
	evidencePath  string
	evidenceDesc  string
	evidenceStart int
	evidenceEnd   int

	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Attest a control's compliance status",
		Long: `Records the documented status of a control for a project. Repeated
recordings preserve the prior status in the control's history.`,
		Run: runRecord,
	}

	evidenceCmd = &cobra.Command{
		Use:   "evidence",
		Short: "Link an evidence artifact to a documented control",
		Run:   runEvidence,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show a control's documented record",
		Run:   runStatus,
	}

	summaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Summarize a project's posture in one framework",
		Run:   runSummary,
	}
)

func init() {
	for _, c := range []*cobra.Command{recordCmd, evidenceCmd, statusCmd} {
		c.Flags().StringVar(&flagProject, "project", "", "Project identifier (required)")
		c.Flags().StringVar(&flagFramework, "framework", "", "Framework identifier (required)")
		c.Flags().StringVar(&flagControl, "control", "", "Control identifier (required)")
		c.MarkFlagRequired("project")
		c.MarkFlagRequired("framework")
		c.MarkFlagRequired("control")
	}
	summaryCmd.Flags().StringVar(&flagProject, "project", "", "Project identifier (required)")
	summaryCmd.Flags().StringVar(&flagFramework, "framework", "", "Framework identifier (required)")
	summaryCmd.MarkFlagRequired("project")
	summaryCmd.MarkFlagRequired("framework")

	recordCmd.Flags().StringVar(&recordStatus, "status", "", "Status: implemented, partial, planned, not_applicable, not_addressed (required)")
	recordCmd.Flags().StringVar(&recordSummary, "summary", "", "How the control is implemented")
	recordCmd.Flags().StringVar(&recordOwner, "owner", "", "Accountable team or person")
	recordCmd.Flags().StringVar(&recordNotes, "notes", "", "Free-form notes")
	recordCmd.MarkFlagRequired("status")

	evidenceCmd.Flags().StringVar(&evidenceType, "type", "document", "Evidence type: config, code, screenshot, document, url, other")
	evidenceCmd.Flags().StringVar(&evidencePath, "path", "", "Evidence file path or URL (required)")
	evidenceCmd.Flags().StringVar(&evidenceDesc, "description", "", "What the evidence demonstrates (required)")
	evidenceCmd.Flags().IntVar(&evidenceStart, "line-start", 0, "First line of a file span")
	evidenceCmd.Flags().IntVar(&evidenceEnd, "line-end", 0, "Last line of a file span")
	evidenceCmd.MarkFlagRequired("path")
	evidenceCmd.MarkFlagRequired("description")
}

// requireProjectFlags validates the shared identifier flags before any
// service work happens.
func requireProjectFlags() {
	if err := validation.ValidateProjectName(flagProject); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := validation.ValidateFrameworkID(flagFramework); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliActor resolves the audit actor from the invoking OS user.
func cliActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}

func runRecord(cmd *cobra.Command, args []string) {
	requireProjectFlags()

	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	rec, err := svc.RecordStatus(flagProject, flagFramework, flagControl, comply.RecordStatusRequest{
		Status:                state.Status(recordStatus),
		ImplementationSummary: recordSummary,
		Owner:                 recordOwner,
		Notes:                 recordNotes,
		Actor:                 cliActor(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recorded %s = %s (history entries: %d)\n", rec.ControlID, rec.Status, len(rec.History))
}

func runEvidence(cmd *cobra.Command, args []string) {
	requireProjectFlags()

	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	var lineRange *state.LineRange
	if evidenceStart > 0 || evidenceEnd > 0 {
		lineRange = &state.LineRange{Start: evidenceStart, End: evidenceEnd}
	}

	rec, err := svc.AddEvidence(flagProject, flagFramework, flagControl, comply.AddEvidenceRequest{
		Type:        state.EvidenceType(evidenceType),
		Path:        evidencePath,
		LineRange:   lineRange,
		Description: evidenceDesc,
		Actor:       cliActor(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Linked evidence to %s (total items: %d)\n", rec.ControlID, len(rec.Evidence))
}

func runStatus(cmd *cobra.Command, args []string) {
	requireProjectFlags()

	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	rec, err := svc.GetRecord(flagProject, flagFramework, flagControl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(out))
}

func runSummary(cmd *cobra.Command, args []string) {
	requireProjectFlags()

	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	sum, err := svc.Summary(flagProject, flagFramework, catalog.Filter{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s / %s: %d%% complete\n", flagProject, flagFramework, sum.CompletionPercentage)
	fmt.Printf("  implemented:    %d\n", sum.Implemented)
	fmt.Printf("  partial:        %d\n", sum.Partial)
	fmt.Printf("  planned:        %d\n", sum.Planned)
	fmt.Printf("  not applicable: %d\n", sum.NotApplicable)
	fmt.Printf("  not addressed:  %d\n", sum.NotAddressed)
	fmt.Printf("  total controls: %d\n", sum.Total)
}
