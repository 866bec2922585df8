// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
	"github.com/AleutianAI/AleutianComply/services/comply/crosswalk"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

const csfDoc = `{
	"id": "nist_csf", "name": "NIST CSF", "version": "2.0",
	"functions": [{"id": "PR", "categories": [{"id": "PR.AC",
		"subcategories": [{"id": "PR.AC-1"}, {"id": "PR.AC-3"}, {"id": "PR.AC-4"}]}]}]
}`

const soc2Doc = `{
	"id": "soc2", "name": "SOC 2", "version": "2017",
	"functions": [{"id": "CC", "categories": [{"id": "CC6",
		"subcategories": [{"id": "CC6.1"}, {"id": "CC6.2"}, {"id": "CC6.6"}, {"id": "CC6.7"}]}]}]
}`

// testMapping exercises every relationship type. CC6.7 deliberately has no
// incoming edges.
const testMapping = `{
	"source_framework": "nist_csf",
	"target_framework": "soc2",
	"mappings": [
		{"source_control_id": "PR.AC-1", "target_control_id": "CC6.1", "relationship": "equivalent", "confidence": 0.95},
		{"source_control_id": "PR.AC-1", "target_control_id": "CC6.2", "relationship": "narrower"},
		{"source_control_id": "PR.AC-3", "target_control_id": "CC6.2", "relationship": "related"},
		{"source_control_id": "PR.AC-4", "target_control_id": "CC6.6", "relationship": "broader"}
	]
}`

// fakeSource maps control id to attested status, defaulting to
// not_addressed like the state store does.
type fakeSource map[string]state.Status

func (f fakeSource) AttestedStatus(project, frameworkID, controlID string) state.Status {
	if s, ok := f[controlID]; ok {
		return s
	}
	return state.StatusNotAddressed
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cats := catalog.NewStore(nil)
	for _, doc := range []string{csfDoc, soc2Doc} {
		fw, err := catalog.Load([]byte(doc))
		require.NoError(t, err)
		cats.Install(fw)
	}
	graph := crosswalk.NewGraph(nil)
	require.NoError(t, graph.LoadPair(cats, []byte(testMapping)))
	return NewEngine(graph, DefaultPolicy())
}

func TestDerive_EquivalentCarriesStatus(t *testing.T) {
	e := testEngine(t)

	for _, status := range []state.Status{state.StatusImplemented, state.StatusPartial, state.StatusPlanned} {
		cov := e.Derive(fakeSource{"PR.AC-1": status}, "acme", "soc2", "CC6.1", "nist_csf")
		assert.Equal(t, status, cov.Status, "equivalent passes %s through unchanged", status)
		assert.Equal(t, ConfidenceExact, cov.Confidence)
		assert.True(t, cov.Advisory)
	}
}

func TestDerive_BroaderPresumesCoverage(t *testing.T) {
	e := testEngine(t)

	cov := e.Derive(fakeSource{"PR.AC-4": state.StatusImplemented}, "acme", "soc2", "CC6.6", "nist_csf")
	assert.Equal(t, state.StatusImplemented, cov.Status)
	assert.Equal(t, ConfidencePartial, cov.Confidence, "presumed subsumption is never exact")
}

func TestDerive_NarrowerClampsAtPartial(t *testing.T) {
	e := testEngine(t)

	cov := e.Derive(fakeSource{"PR.AC-1": state.StatusImplemented}, "acme", "soc2", "CC6.2", "nist_csf")
	assert.Equal(t, state.StatusPartial, cov.Status, "a narrower source cannot fully cover the target")
	assert.Equal(t, ConfidencePartial, cov.Confidence)
}

func TestDerive_RelatedClampsAtPartialWeak(t *testing.T) {
	e := testEngine(t)

	// Only the related edge has an attested source.
	cov := e.Derive(fakeSource{"PR.AC-3": state.StatusImplemented}, "acme", "soc2", "CC6.2", "nist_csf")
	assert.Equal(t, state.StatusPartial, cov.Status)
	assert.Equal(t, ConfidenceWeak, cov.Confidence)
}

func TestDerive_MaxRankWinsAcrossEdges(t *testing.T) {
	e := testEngine(t)

	// Narrower contributes partial, related contributes partial: equal
	// status, so the stronger confidence wins regardless of edge order.
	cov := e.Derive(fakeSource{
		"PR.AC-1": state.StatusImplemented,
		"PR.AC-3": state.StatusImplemented,
	}, "acme", "soc2", "CC6.2", "nist_csf")

	assert.Equal(t, state.StatusPartial, cov.Status)
	assert.Equal(t, ConfidencePartial, cov.Confidence)
	require.Len(t, cov.Sources, 2)
}

func TestDerive_SourcesRecordPerEdgeContribution(t *testing.T) {
	e := testEngine(t)

	cov := e.Derive(fakeSource{
		"PR.AC-1": state.StatusImplemented,
		"PR.AC-3": state.StatusPlanned,
	}, "acme", "soc2", "CC6.2", "nist_csf")

	require.Len(t, cov.Sources, 2)
	byControl := map[string]Contribution{}
	for _, c := range cov.Sources {
		byControl[c.SourceControl] = c
	}

	narrower := byControl["PR.AC-1"]
	assert.Equal(t, crosswalk.RelNarrower, narrower.Relationship)
	assert.Equal(t, state.StatusImplemented, narrower.SourceStatus)
	assert.Equal(t, state.StatusPartial, narrower.Derived)

	related := byControl["PR.AC-3"]
	assert.Equal(t, crosswalk.RelRelated, related.Relationship)
	assert.Equal(t, state.StatusPlanned, related.SourceStatus)
	assert.Equal(t, state.StatusPlanned, related.Derived, "planned is below the related cap")
}

func TestDerive_NoIncomingEdges(t *testing.T) {
	e := testEngine(t)

	cov := e.Derive(fakeSource{}, "acme", "soc2", "CC6.7", "nist_csf")
	assert.Equal(t, state.StatusNotAddressed, cov.Status)
	assert.Equal(t, ConfidenceNone, cov.Confidence)
	assert.Empty(t, cov.Sources)
	assert.True(t, cov.Advisory)
}

func TestDerive_NotApplicablePropagates(t *testing.T) {
	e := testEngine(t)

	cov := e.Derive(fakeSource{"PR.AC-1": state.StatusNotApplicable}, "acme", "soc2", "CC6.1", "nist_csf")
	assert.Equal(t, state.StatusNotApplicable, cov.Status)
	assert.Equal(t, ConfidenceExact, cov.Confidence)
}

func TestDerive_Monotonic(t *testing.T) {
	e := testEngine(t)

	// Raising a source's attested status never lowers the derived status.
	ladder := []state.Status{
		state.StatusNotAddressed,
		state.StatusNotApplicable,
		state.StatusPlanned,
		state.StatusPartial,
		state.StatusImplemented,
	}
	for _, target := range []string{"CC6.1", "CC6.2", "CC6.6"} {
		prev := -1
		for _, status := range ladder {
			cov := e.Derive(fakeSource{
				"PR.AC-1": status,
				"PR.AC-3": status,
				"PR.AC-4": status,
			}, "acme", "soc2", target, "nist_csf")
			require.GreaterOrEqual(t, cov.Status.Rank(), prev,
				"derived status for %s regressed at source status %s", target, status)
			prev = cov.Status.Rank()
		}
	}
}

func TestDefaultPolicy_Rules(t *testing.T) {
	p := DefaultPolicy()

	cases := []struct {
		rel        crosswalk.Relationship
		cap        state.Status
		confidence Confidence
	}{
		{crosswalk.RelEquivalent, state.StatusImplemented, ConfidenceExact},
		{crosswalk.RelBroader, state.StatusImplemented, ConfidencePartial},
		{crosswalk.RelNarrower, state.StatusPartial, ConfidencePartial},
		{crosswalk.RelRelated, state.StatusPartial, ConfidenceWeak},
	}
	for _, tc := range cases {
		rule, ok := p.rule(tc.rel)
		require.True(t, ok)
		assert.Equal(t, tc.cap, rule.Cap, "%s cap", tc.rel)
		assert.Equal(t, tc.confidence, rule.Confidence, "%s confidence", tc.rel)
	}

	_, ok := p.rule(crosswalk.Relationship("parent_of"))
	assert.False(t, ok)
}

func TestConfidence_YAML(t *testing.T) {
	var c Confidence
	require.NoError(t, yaml.Unmarshal([]byte("exact"), &c))
	assert.Equal(t, ConfidenceExact, c)

	err := yaml.Unmarshal([]byte("certain"), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid confidence "certain"`)
}
