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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/pkg/validation"
	"github.com/AleutianAI/AleutianComply/services/comply/gap"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

var (
	gapProject  string
	gapCurrent  string
	gapTarget   string
	gapBestCase bool
	gapJSON     bool

	exportFormat     string
	exportNoEvidence bool
	exportNoGaps     bool

	gapCmd = &cobra.Command{
		Use:   "gap",
		Short: "Analyze coverage gaps between two frameworks",
		Long: `Projects a project's documented posture in the current framework onto
every control of the target framework, bucketing controls as covered,
partially covered, or gaps with effort estimates. With --best-case the
analysis assumes full compliance with the current framework, showing the
ceiling the crosswalk mappings can justify. Results are advisory.`,
		Run: runGap,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export a project's compliance posture",
		Run:   runExport,
	}
)

func init() {
	gapCmd.Flags().StringVar(&gapProject, "project", "", "Project identifier (required)")
	gapCmd.Flags().StringVar(&gapCurrent, "current", "", "Framework the project attests against (required)")
	gapCmd.Flags().StringVar(&gapTarget, "target", "", "Framework to project onto (required)")
	gapCmd.Flags().BoolVar(&gapBestCase, "best-case", false, "Assume full compliance with the current framework")
	gapCmd.Flags().BoolVar(&gapJSON, "json", false, "Print the full report as JSON")
	gapCmd.MarkFlagRequired("project")
	gapCmd.MarkFlagRequired("current")
	gapCmd.MarkFlagRequired("target")

	exportCmd.Flags().StringVar(&flagProject, "project", "", "Project identifier (required)")
	exportCmd.Flags().StringVar(&flagFramework, "framework", "", "Framework identifier (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "Output format: markdown or json")
	exportCmd.Flags().BoolVar(&exportNoEvidence, "no-evidence", false, "Omit evidence listings")
	exportCmd.Flags().BoolVar(&exportNoGaps, "no-gaps", false, "Omit the undocumented-controls section")
	exportCmd.MarkFlagRequired("project")
	exportCmd.MarkFlagRequired("framework")
}

func runGap(cmd *cobra.Command, args []string) {
	if err := validation.ValidateProjectName(gapProject); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	report, err := svc.Gap(gapProject, gapCurrent, gapTarget, !gapBestCase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if gapJSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}
	printGapReport(report)
}

func printGapReport(report *gap.Report) {
	mode := "documented state"
	if !report.UsedDocumented {
		mode = "best case"
	}
	fmt.Printf("Gap analysis: %s -> %s (project %s, %s)\n\n",
		report.CurrentFramework, report.TargetFramework, report.Project, mode)

	s := report.Summary
	fmt.Printf("  Target controls:   %d\n", s.TotalTargetControls)
	fmt.Printf("  Already covered:   %d\n", s.AlreadyCovered)
	fmt.Printf("  Partially covered: %d\n", s.PartiallyCovered)
	fmt.Printf("  Gaps:              %d\n", s.Gaps)
	fmt.Printf("  Not applicable:    %d\n", s.NotApplicable)
	fmt.Printf("  Mapping coverage:  %.1f%%\n", s.MappingCoverage)
	fmt.Printf("  Weighted coverage: %.1f%%\n", s.WeightedCoverage)
	fmt.Printf("  Compliance level:  %d%% (in %s)\n\n", s.ComplianceLevel, report.CurrentFramework)

	if len(report.Gaps) > 0 {
		fmt.Println("Gaps (advisory, verify before relying on any projection):")
		for _, g := range report.Gaps {
			fmt.Printf("  [%s] %-12s %s — %s\n", g.Effort, g.ControlID, g.Name, g.Reason)
		}
	}
}

func runExport(cmd *cobra.Command, args []string) {
	requireProjectFlags()

	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	format := state.ExportMarkdown
	switch exportFormat {
	case "markdown":
	case "json":
		format = state.ExportJSON
	default:
		fmt.Fprintln(os.Stderr, "Error: format must be markdown or json")
		os.Exit(1)
	}

	out, err := svc.Export(flagProject, flagFramework, format, state.ExportOptions{
		IncludeEvidence: !exportNoEvidence,
		IncludeGaps:     !exportNoGaps,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(out)
}
