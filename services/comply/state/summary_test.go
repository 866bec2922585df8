// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
)

// summaryCatalogDoc has six controls across two functions so the summary
// denominator differs from the recorded-control count.
const summaryCatalogDoc = `{
	"id": "nist_csf",
	"name": "NIST Cybersecurity Framework",
	"version": "2.0",
	"functions": [
		{
			"id": "PR",
			"name": "Protect",
			"categories": [
				{
					"id": "PR.AC",
					"name": "Access Control",
					"subcategories": [
						{"id": "PR.AC-1", "name": "Identities and credentials are managed"},
						{"id": "PR.AC-3", "name": "Remote access is managed"},
						{"id": "PR.AC-4", "name": "Access permissions are managed"},
						{"id": "PR.AC-7", "name": "Users and devices are authenticated"}
					]
				}
			]
		},
		{
			"id": "DE",
			"name": "Detect",
			"categories": [
				{
					"id": "DE.CM",
					"name": "Continuous Monitoring",
					"subcategories": [
						{"id": "DE.CM-1", "name": "Networks are monitored"},
						{"id": "DE.CM-4", "name": "Malicious code is detected"}
					]
				}
			]
		}
	]
}`

func summaryFramework(t *testing.T) *catalog.Framework {
	t.Helper()
	fw, err := catalog.Load([]byte(summaryCatalogDoc))
	require.NoError(t, err)
	return fw
}

func TestSummarize_CountsFullCatalogScope(t *testing.T) {
	s := testStore(t)
	fw := summaryFramework(t)

	record := func(control string, status Status) {
		t.Helper()
		_, err := s.RecordStatus("acme", fw.ID, control, RecordRequest{Status: status})
		require.NoError(t, err)
	}
	record("PR.AC-1", StatusImplemented)
	record("PR.AC-3", StatusPartial)
	record("PR.AC-4", StatusPlanned)
	record("DE.CM-1", StatusNotApplicable)

	sum := s.Summarize("acme", fw, catalog.Filter{})

	assert.Equal(t, 6, sum.Total, "denominator is the full catalog, not the recorded set")
	assert.Equal(t, 1, sum.Implemented)
	assert.Equal(t, 1, sum.Partial)
	assert.Equal(t, 1, sum.Planned)
	assert.Equal(t, 1, sum.NotApplicable)
	assert.Equal(t, 2, sum.NotAddressed, "undocumented controls count as not_addressed")
	// round(100 * 1/6) = 17
	assert.Equal(t, 17, sum.CompletionPercentage)
}

func TestSummarize_EmptyProject(t *testing.T) {
	s := testStore(t)
	fw := summaryFramework(t)

	sum := s.Summarize("ghost", fw, catalog.Filter{})

	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, 6, sum.NotAddressed)
	assert.Equal(t, 0, sum.CompletionPercentage)
}

func TestSummarize_FilterNarrowsDenominator(t *testing.T) {
	s := testStore(t)
	fw := summaryFramework(t)

	_, err := s.RecordStatus("acme", fw.ID, "PR.AC-1", RecordRequest{Status: StatusImplemented})
	require.NoError(t, err)
	_, err = s.RecordStatus("acme", fw.ID, "DE.CM-1", RecordRequest{Status: StatusImplemented})
	require.NoError(t, err)

	sum := s.Summarize("acme", fw, catalog.Filter{FunctionID: "PR"})

	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 1, sum.Implemented, "records outside the filter scope are excluded")
	assert.Equal(t, 25, sum.CompletionPercentage)
}

func TestSummarize_Rounding(t *testing.T) {
	s := testStore(t)
	fw := summaryFramework(t)

	for _, c := range []string{"PR.AC-1", "PR.AC-3", "PR.AC-4"} {
		_, err := s.RecordStatus("acme", fw.ID, c, RecordRequest{Status: StatusImplemented})
		require.NoError(t, err)
	}

	sum := s.Summarize("acme", fw, catalog.Filter{})
	// round(100 * 3/6) = 50
	assert.Equal(t, 50, sum.CompletionPercentage)

	_, err := s.RecordStatus("acme", fw.ID, "DE.CM-1", RecordRequest{Status: StatusImplemented})
	require.NoError(t, err)
	sum = s.Summarize("acme", fw, catalog.Filter{})
	// round(100 * 4/6) = round(66.67) = 67
	assert.Equal(t, 67, sum.CompletionPercentage)
}
