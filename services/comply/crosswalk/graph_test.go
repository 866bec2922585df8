// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package crosswalk

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
)

const csfDoc = `{
	"id": "nist_csf", "name": "NIST CSF", "version": "2.0",
	"functions": [{"id": "PR", "categories": [{"id": "PR.AC",
		"subcategories": [{"id": "PR.AC-1"}, {"id": "PR.AC-3"}]}]}]
}`

const soc2Doc = `{
	"id": "soc2", "name": "SOC 2", "version": "2017",
	"functions": [{"id": "CC", "categories": [{"id": "CC6",
		"subcategories": [{"id": "CC6.1"}, {"id": "CC6.2"}, {"id": "CC6.6"}]}]}]
}`

const validMapping = `{
	"source_framework": "nist_csf",
	"target_framework": "soc2",
	"mappings": [
		{"source_control_id": "PR.AC-1", "target_control_id": "CC6.1", "relationship": "equivalent", "confidence": 0.95},
		{"source_control_id": "PR.AC-1", "target_control_id": "CC6.2", "relationship": "narrower", "confidence": 0.7},
		{"source_control_id": "PR.AC-3", "target_control_id": "CC6.6", "relationship": "related"}
	]
}`

func testCatalogs(t *testing.T) *catalog.Store {
	t.Helper()
	cats := catalog.NewStore(nil)
	for _, doc := range []string{csfDoc, soc2Doc} {
		fw, err := catalog.Load([]byte(doc))
		require.NoError(t, err)
		cats.Install(fw)
	}
	return cats
}

func TestGraph_LoadPair(t *testing.T) {
	g := NewGraph(nil)
	require.NoError(t, g.LoadPair(testCatalogs(t), []byte(validMapping)))

	assert.Equal(t, 1, g.PairCount())
	assert.Equal(t, 3, g.EdgeCount())

	// Forward index: edges leaving PR.AC-1.
	edges := g.Mappings("nist_csf", "PR.AC-1", "")
	require.Len(t, edges, 2)

	// Filtered by target framework.
	edges = g.Mappings("nist_csf", "PR.AC-1", "soc2")
	assert.Len(t, edges, 2)
	edges = g.Mappings("nist_csf", "PR.AC-1", "iso27001")
	assert.Empty(t, edges)

	// Reverse index: edges arriving at CC6.1.
	incoming := g.Incoming("soc2", "CC6.1", "")
	require.Len(t, incoming, 1)
	assert.Equal(t, RelEquivalent, incoming[0].Relationship)
	assert.Equal(t, "PR.AC-1", incoming[0].SourceControl)
}

func TestGraph_LoadPair_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantMsg string
	}{
		{
			"dangling source control",
			func(m map[string]any) {
				m["mappings"] = []map[string]any{{
					"source_control_id": "PR.AC-99", "target_control_id": "CC6.1", "relationship": "related",
				}}
			},
			"PR.AC-99",
		},
		{
			"dangling target control",
			func(m map[string]any) {
				m["mappings"] = []map[string]any{{
					"source_control_id": "PR.AC-1", "target_control_id": "CC9.9", "relationship": "related",
				}}
			},
			"CC9.9",
		},
		{
			"unknown source framework",
			func(m map[string]any) { m["source_framework"] = "iso27001" },
			"iso27001",
		},
		{
			"self mapping",
			func(m map[string]any) {
				m["target_framework"] = "nist_csf"
				m["mappings"] = []map[string]any{{
					"source_control_id": "PR.AC-1", "target_control_id": "PR.AC-1", "relationship": "equivalent",
				}}
			},
			"self-mapping",
		},
		{
			"confidence out of range",
			func(m map[string]any) {
				m["mappings"] = []map[string]any{{
					"source_control_id": "PR.AC-1", "target_control_id": "CC6.1",
					"relationship": "equivalent", "confidence": 1.5,
				}}
			},
			"confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(validMapping), &m))
			tt.mutate(m)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			g := NewGraph(nil)
			err = g.LoadPair(testCatalogs(t), data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Zero(t, g.EdgeCount(), "failed load must not install edges")
		})
	}
}

func TestGraph_LoadPair_UnknownRelationship(t *testing.T) {
	doc := `{
		"source_framework": "nist_csf", "target_framework": "soc2",
		"mappings": [{"source_control_id": "PR.AC-1", "target_control_id": "CC6.1", "relationship": "parent_of"}]
	}`
	g := NewGraph(nil)
	err := g.LoadPair(testCatalogs(t), []byte(doc))
	require.Error(t, err)
}

func TestGraph_ReloadReplacesPair(t *testing.T) {
	cats := testCatalogs(t)
	g := NewGraph(nil)
	require.NoError(t, g.LoadPair(cats, []byte(validMapping)))
	require.Equal(t, 3, g.EdgeCount())

	smaller := `{
		"source_framework": "nist_csf", "target_framework": "soc2",
		"mappings": [{"source_control_id": "PR.AC-1", "target_control_id": "CC6.1", "relationship": "equivalent"}]
	}`
	require.NoError(t, g.LoadPair(cats, []byte(smaller)))

	assert.Equal(t, 1, g.PairCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Empty(t, g.Incoming("soc2", "CC6.2", ""), "stale reverse edges must be gone")
	assert.Empty(t, g.Mappings("nist_csf", "PR.AC-3", ""))
}

func TestGraph_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "csf_to_soc2.json"), []byte(validMapping), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	g := NewGraph(nil)
	require.NoError(t, g.LoadDir(testCatalogs(t), dir))
	assert.Equal(t, 3, g.EdgeCount())
}

func TestParseRelationship(t *testing.T) {
	tests := []struct {
		in      string
		want    Relationship
		wantErr bool
	}{
		{"equivalent", RelEquivalent, false},
		{"broader", RelBroader, false},
		{"narrower", RelNarrower, false},
		{"related", RelRelated, false},
		{"subset", RelNarrower, false},
		{"superset", RelBroader, false},
		{"", RelRelated, false},
		{"parent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRelationship(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
