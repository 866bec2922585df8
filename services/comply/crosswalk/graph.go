// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package crosswalk

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
)

// endpoint keys the forward/reverse indexes by (framework, control id).
type endpoint struct {
	framework string
	control   string
}

// Graph is the loaded mapping graph across all framework pairs.
//
// # Description
//
// Both a forward index (edges out of a source control) and a reverse index
// (edges into a target control) are built at load time. Gap analysis hits
// the reverse index once per target control, so neither direction may
// degenerate into a scan of the edge list.
//
// # Thread Safety
//
// Safe for concurrent use. LoadPair replaces a pair's edges atomically
// under the write lock.
type Graph struct {
	mu sync.RWMutex

	// forward indexes edges by their source endpoint.
	forward map[endpoint][]Edge

	// reverse indexes edges by their target endpoint.
	reverse map[endpoint][]Edge

	// pairs remembers which edges came from which mapping pair so a
	// pair can be replaced on reload.
	pairs map[string][]Edge

	logger *slog.Logger
}

// NewGraph creates an empty mapping graph.
func NewGraph(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		forward: make(map[endpoint][]Edge),
		reverse: make(map[endpoint][]Edge),
		pairs:   make(map[string][]Edge),
		logger:  logger,
	}
}

// mappingDocument is the on-disk JSON shape for one framework pair.
// Partial coverage is expected: not every control pair has an edge.
type mappingDocument struct {
	SourceFramework string `json:"source_framework"`
	TargetFramework string `json:"target_framework"`
	Mappings        []struct {
		SourceControlID string  `json:"source_control_id"`
		TargetControlID string  `json:"target_control_id"`
		Relationship    string  `json:"relationship"`
		Confidence      float64 `json:"confidence"`
	} `json:"mappings"`
}

// LoadPair validates and installs the edges for one framework pair.
//
// # Description
//
//	Every edge endpoint must exist in its declared framework's catalog;
//	a dangling edge is a load-time *Error, never silently dropped. An
//	edge whose source and target framework are identical is rejected.
//	On any validation failure nothing is installed for the pair.
//
// # Inputs
//
//	cats - Catalog store used to validate edge endpoints.
//	data - Raw JSON mapping document.
//
// # Outputs
//
//	error - *Error on invalid mapping data.
func (g *Graph) LoadPair(cats *catalog.Store, data []byte) error {
	var doc mappingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return &Error{Reason: fmt.Sprintf("parse mapping data: %v", err)}
	}

	if doc.SourceFramework == "" || doc.TargetFramework == "" {
		return &Error{
			SourceFramework: doc.SourceFramework,
			TargetFramework: doc.TargetFramework,
			Reason:          "source_framework and target_framework are required",
		}
	}
	if doc.SourceFramework == doc.TargetFramework {
		return &Error{
			SourceFramework: doc.SourceFramework,
			TargetFramework: doc.TargetFramework,
			Reason:          "self-mapping is not allowed",
		}
	}

	source, err := cats.Framework(doc.SourceFramework)
	if err != nil {
		return &Error{
			SourceFramework: doc.SourceFramework,
			TargetFramework: doc.TargetFramework,
			Reason:          fmt.Sprintf("source framework not loaded: %s", doc.SourceFramework),
		}
	}
	target, err := cats.Framework(doc.TargetFramework)
	if err != nil {
		return &Error{
			SourceFramework: doc.SourceFramework,
			TargetFramework: doc.TargetFramework,
			Reason:          fmt.Sprintf("target framework not loaded: %s", doc.TargetFramework),
		}
	}

	edges := make([]Edge, 0, len(doc.Mappings))
	for i, m := range doc.Mappings {
		rel, err := ParseRelationship(m.Relationship)
		if err != nil {
			return &Error{
				SourceFramework: doc.SourceFramework,
				TargetFramework: doc.TargetFramework,
				Reason:          fmt.Sprintf("mapping %d: %v", i, err),
			}
		}
		if _, ok := source.Control(m.SourceControlID); !ok {
			return &Error{
				SourceFramework: doc.SourceFramework,
				TargetFramework: doc.TargetFramework,
				Reason:          fmt.Sprintf("dangling edge: source control %q not in %s", m.SourceControlID, doc.SourceFramework),
			}
		}
		if _, ok := target.Control(m.TargetControlID); !ok {
			return &Error{
				SourceFramework: doc.SourceFramework,
				TargetFramework: doc.TargetFramework,
				Reason:          fmt.Sprintf("dangling edge: target control %q not in %s", m.TargetControlID, doc.TargetFramework),
			}
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			return &Error{
				SourceFramework: doc.SourceFramework,
				TargetFramework: doc.TargetFramework,
				Reason:          fmt.Sprintf("mapping %d: confidence %v outside [0,1]", i, m.Confidence),
			}
		}
		edges = append(edges, Edge{
			SourceFramework: doc.SourceFramework,
			SourceControl:   m.SourceControlID,
			TargetFramework: doc.TargetFramework,
			TargetControl:   m.TargetControlID,
			Relationship:    rel,
			Confidence:      m.Confidence,
		})
	}

	g.install(doc.SourceFramework, doc.TargetFramework, edges)
	g.logger.Info("mapping pair loaded",
		"source", doc.SourceFramework,
		"target", doc.TargetFramework,
		"edges", len(edges))
	return nil
}

// LoadDir loads every *.json mapping file in dir. A file that fails
// validation is logged and skipped; other pairs still load.
func (g *Graph) LoadDir(cats *catalog.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read mappings directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			g.logger.Error("mapping file unreadable", "file", entry.Name(), "error", err)
			continue
		}
		if err := g.LoadPair(cats, data); err != nil {
			g.logger.Error("mapping pair rejected", "file", entry.Name(), "error", err)
		}
	}
	return nil
}

// install replaces the pair's edges in both indexes under the write lock.
func (g *Graph) install(sourceFW, targetFW string, edges []Edge) {
	key := sourceFW + "→" + targetFW

	g.mu.Lock()
	defer g.mu.Unlock()

	// Drop any prior edges for this pair from both indexes.
	if prior := g.pairs[key]; len(prior) > 0 {
		for _, e := range prior {
			fkey := endpoint{e.SourceFramework, e.SourceControl}
			g.forward[fkey] = removeEdgesForPair(g.forward[fkey], sourceFW, targetFW)
			rkey := endpoint{e.TargetFramework, e.TargetControl}
			g.reverse[rkey] = removeEdgesForPair(g.reverse[rkey], sourceFW, targetFW)
		}
	}

	g.pairs[key] = edges
	for _, e := range edges {
		fkey := endpoint{e.SourceFramework, e.SourceControl}
		g.forward[fkey] = append(g.forward[fkey], e)
		rkey := endpoint{e.TargetFramework, e.TargetControl}
		g.reverse[rkey] = append(g.reverse[rkey], e)
	}
}

func removeEdgesForPair(edges []Edge, sourceFW, targetFW string) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.SourceFramework == sourceFW && e.TargetFramework == targetFW {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Mappings returns edges out of a source control.
//
// # Inputs
//
//   - sourceFramework, controlID: The source endpoint.
//   - targetFramework: Restrict to one target framework; empty returns
//     edges to all known targets.
//
// # Outputs
//
//   - []Edge: Matching edges in load order. Empty when none exist;
//     absence of mappings is a normal outcome, not an error.
func (g *Graph) Mappings(sourceFramework, controlID, targetFramework string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := g.forward[endpoint{sourceFramework, controlID}]
	return filterByFramework(edges, targetFramework, false)
}

// Incoming returns edges into a target control: the reverse index needed
// by gap analysis and derivation.
//
// # Inputs
//
//   - targetFramework, controlID: The target endpoint.
//   - sourceFramework: Restrict to one source framework; empty returns
//     edges from all known sources.
func (g *Graph) Incoming(targetFramework, controlID, sourceFramework string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := g.reverse[endpoint{targetFramework, controlID}]
	return filterByFramework(edges, sourceFramework, true)
}

// filterByFramework copies edges, optionally restricted to one framework
// on the far side. bySource selects which side is being restricted.
func filterByFramework(edges []Edge, framework string, bySource bool) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if framework != "" {
			if bySource && e.SourceFramework != framework {
				continue
			}
			if !bySource && e.TargetFramework != framework {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// PairCount returns the number of loaded mapping pairs.
func (g *Graph) PairCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pairs)
}

// EdgeCount returns the total number of loaded edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, edges := range g.pairs {
		n += len(edges)
	}
	return n
}
