// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exportStore builds a store with a mixed-status project against the
// summary fixture catalog.
func exportStore(t *testing.T) *Store {
	t.Helper()
	s := testStore(t)

	_, err := s.RecordStatus("acme", "nist_csf", "PR.AC-1", RecordRequest{
		Status:                StatusImplemented,
		ImplementationSummary: "SSO with MFA enforced",
		Owner:                 "security",
		Notes:                 "rolled out org-wide",
	})
	require.NoError(t, err)
	_, err = s.AddEvidence("acme", "nist_csf", "PR.AC-1", Evidence{
		Type:        EvidenceConfig,
		Path:        "terraform/iam.tf",
		LineRange:   &LineRange{Start: 10, End: 30},
		Description: "IAM policy requiring MFA",
	})
	require.NoError(t, err)

	_, err = s.RecordStatus("acme", "nist_csf", "PR.AC-3", RecordRequest{Status: StatusPartial})
	require.NoError(t, err)
	_, err = s.RecordStatus("acme", "nist_csf", "DE.CM-1", RecordRequest{Status: StatusNotApplicable})
	require.NoError(t, err)
	return s
}

func TestExport_Markdown(t *testing.T) {
	s := exportStore(t)
	fw := summaryFramework(t)

	out, err := s.Export("acme", fw, ExportMarkdown, ExportOptions{IncludeEvidence: true, IncludeGaps: true})
	require.NoError(t, err)

	assert.Contains(t, out, "# Compliance Documentation: nist_csf")
	assert.Contains(t, out, "*Project: acme")
	assert.Contains(t, out, "- **Total Controls**: 6")
	assert.Contains(t, out, "- **Implemented**: 1")
	assert.Contains(t, out, "- **Not Addressed**: 3")

	// Status sections appear in rank order.
	impl := strings.Index(out, "### Implemented")
	partial := strings.Index(out, "### Partial")
	na := strings.Index(out, "### Not Applicable")
	require.True(t, impl >= 0 && partial >= 0 && na >= 0)
	assert.Less(t, impl, partial)
	assert.Less(t, partial, na)

	assert.Contains(t, out, "#### PR.AC-1")
	assert.Contains(t, out, "SSO with MFA enforced")
	assert.Contains(t, out, "**Owner**: security")
	assert.Contains(t, out, "*Notes: rolled out org-wide*")
	assert.Contains(t, out, "- [config] `terraform/iam.tf` (lines 10-30): IAM policy requiring MFA")

	assert.Contains(t, out, "## Gaps (Not Addressed)")
	assert.Contains(t, out, "- **PR.AC-4**: Access permissions are managed")
	assert.Contains(t, out, "- **DE.CM-4**: Malicious code is detected")
	assert.NotContains(t, out, "- **PR.AC-1**: ", "documented controls are not gaps")
}

func TestExport_MarkdownWithoutOptions(t *testing.T) {
	s := exportStore(t)
	fw := summaryFramework(t)

	out, err := s.Export("acme", fw, ExportMarkdown, ExportOptions{})
	require.NoError(t, err)

	assert.NotContains(t, out, "**Evidence**:")
	assert.NotContains(t, out, "## Gaps")
}

func TestExport_JSON(t *testing.T) {
	s := exportStore(t)
	fw := summaryFramework(t)

	out, err := s.Export("acme", fw, ExportJSON, ExportOptions{IncludeEvidence: true, IncludeGaps: true})
	require.NoError(t, err)

	var doc struct {
		Framework string          `json:"framework_id"`
		Project   string          `json:"project"`
		Summary   Summary         `json:"summary"`
		Controls  []ControlRecord `json:"controls"`
		Gaps      []struct {
			ID string `json:"id"`
		} `json:"gaps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "nist_csf", doc.Framework)
	assert.Equal(t, "acme", doc.Project)
	assert.Equal(t, 6, doc.Summary.Total)

	require.Len(t, doc.Controls, 3)
	// Controls are sorted by id.
	assert.Equal(t, "DE.CM-1", doc.Controls[0].ControlID)
	assert.Equal(t, "PR.AC-1", doc.Controls[1].ControlID)
	assert.Equal(t, "PR.AC-3", doc.Controls[2].ControlID)
	require.Len(t, doc.Controls[1].Evidence, 1)

	require.Len(t, doc.Gaps, 3)
	gapIDs := []string{doc.Gaps[0].ID, doc.Gaps[1].ID, doc.Gaps[2].ID}
	assert.Equal(t, []string{"PR.AC-4", "PR.AC-7", "DE.CM-4"}, gapIDs, "gaps follow catalog declaration order")
}

func TestExport_JSONExcludesEvidenceWhenDisabled(t *testing.T) {
	s := exportStore(t)
	fw := summaryFramework(t)

	out, err := s.Export("acme", fw, ExportJSON, ExportOptions{})
	require.NoError(t, err)

	assert.NotContains(t, out, "terraform/iam.tf")
	assert.NotContains(t, out, `"gaps"`)
}

func TestExport_UnknownFormat(t *testing.T) {
	s := testStore(t)
	fw := summaryFramework(t)

	_, err := s.Export("acme", fw, ExportFormat("pdf"), ExportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown export format "pdf"`)
}
