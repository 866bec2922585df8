// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
)

// ExportFormat selects the export rendering.
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
)

// ExportOptions tunes what an export includes.
type ExportOptions struct {
	// IncludeEvidence includes evidence details per control.
	IncludeEvidence bool

	// IncludeGaps appends the list of catalog controls with no record.
	IncludeGaps bool
}

// exportDocument is the JSON export payload.
type exportDocument struct {
	ExportDate time.Time              `json:"export_date"`
	Framework  string                 `json:"framework_id"`
	Project    string                 `json:"project"`
	Summary    Summary                `json:"summary"`
	Controls   []ControlRecord        `json:"controls"`
	Gaps       []exportGap            `json:"gaps,omitempty"`
}

type exportGap struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Function string `json:"function"`
	Category string `json:"category"`
}

// Export renders a project's documented state for one framework.
//
// # Description
//
//	Renders either Markdown (human review) or JSON (machine processing).
//	Controls are grouped by status in rank order. The gap section lists
//	catalog controls with no explicit record; it is derived from the
//	catalog, so undocumented controls surface even though the store never
//	pre-populates them.
func (s *Store) Export(project string, fw *catalog.Framework, format ExportFormat, opts ExportOptions) (string, error) {
	switch format {
	case ExportMarkdown:
		return s.exportMarkdown(project, fw, opts), nil
	case ExportJSON:
		return s.exportJSON(project, fw, opts)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

func (s *Store) exportJSON(project string, fw *catalog.Framework, opts ExportOptions) (string, error) {
	records := s.Records(project, fw.ID)

	doc := exportDocument{
		ExportDate: s.clock(),
		Framework:  fw.ID,
		Project:    project,
		Summary:    s.Summarize(project, fw, catalog.Filter{}),
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rec := records[id]
		if !opts.IncludeEvidence {
			rec.Evidence = nil
		}
		doc.Controls = append(doc.Controls, rec)
	}

	if opts.IncludeGaps {
		doc.Gaps = undocumented(fw, records)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) exportMarkdown(project string, fw *catalog.Framework, opts ExportOptions) string {
	records := s.Records(project, fw.ID)
	summary := s.Summarize(project, fw, catalog.Filter{})

	var b strings.Builder
	fmt.Fprintf(&b, "# Compliance Documentation: %s\n\n", fw.ID)
	fmt.Fprintf(&b, "*Project: %s — generated %s*\n\n", project, s.clock().UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Controls**: %d\n", summary.Total)
	fmt.Fprintf(&b, "- **Implemented**: %d\n", summary.Implemented)
	fmt.Fprintf(&b, "- **Partial**: %d\n", summary.Partial)
	fmt.Fprintf(&b, "- **Planned**: %d\n", summary.Planned)
	fmt.Fprintf(&b, "- **Not Applicable**: %d\n", summary.NotApplicable)
	fmt.Fprintf(&b, "- **Not Addressed**: %d\n", summary.NotAddressed)
	fmt.Fprintf(&b, "- **Completion**: %d%%\n\n", summary.CompletionPercentage)

	b.WriteString("## Documented Controls\n\n")
	for _, status := range AllStatuses {
		ids := recordedIDsWithStatus(records, status)
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", titleForStatus(status))
		for _, id := range ids {
			rec := records[id]
			fmt.Fprintf(&b, "#### %s\n\n", rec.ControlID)
			if rec.ImplementationSummary != "" {
				fmt.Fprintf(&b, "%s\n\n", rec.ImplementationSummary)
			}
			if rec.Owner != "" {
				fmt.Fprintf(&b, "**Owner**: %s\n\n", rec.Owner)
			}
			if rec.Notes != "" {
				fmt.Fprintf(&b, "*Notes: %s*\n\n", rec.Notes)
			}
			if opts.IncludeEvidence && len(rec.Evidence) > 0 {
				b.WriteString("**Evidence**:\n\n")
				for _, ev := range rec.Evidence {
					lineInfo := ""
					if ev.LineRange != nil {
						lineInfo = fmt.Sprintf(" (lines %d-%d)", ev.LineRange.Start, ev.LineRange.End)
					}
					fmt.Fprintf(&b, "- [%s] `%s`%s: %s\n", ev.Type, ev.Path, lineInfo, ev.Description)
				}
				b.WriteString("\n")
			}
		}
	}

	if opts.IncludeGaps {
		gaps := undocumented(fw, records)
		if len(gaps) > 0 {
			b.WriteString("## Gaps (Not Addressed)\n\n")
			for _, gap := range gaps {
				fmt.Fprintf(&b, "- **%s**: %s\n", gap.ID, gap.Name)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// undocumented lists catalog controls with no explicit record, in catalog
// declaration order.
func undocumented(fw *catalog.Framework, records map[string]ControlRecord) []exportGap {
	var gaps []exportGap
	for _, ctrl := range fw.Controls() {
		if _, ok := records[ctrl.ID]; ok {
			continue
		}
		gaps = append(gaps, exportGap{
			ID:       ctrl.ID,
			Name:     ctrl.Name,
			Function: ctrl.FunctionID,
			Category: ctrl.CategoryID,
		})
	}
	return gaps
}

// recordedIDsWithStatus returns the sorted ids of records at a status.
func recordedIDsWithStatus(records map[string]ControlRecord, status Status) []string {
	var ids []string
	for id, rec := range records {
		if rec.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// titleForStatus renders a status as a section heading.
func titleForStatus(s Status) string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
