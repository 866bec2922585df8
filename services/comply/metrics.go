// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// statusRecordsTotal counts status attestations by outcome.
	// Labels: "success", "not_found", "persistence_error", "invalid"
	statusRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comply_status_records_total",
		Help: "Total control status attestations by outcome",
	}, []string{"outcome"})

	// evidenceLinksTotal counts evidence attachments by outcome.
	evidenceLinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comply_evidence_links_total",
		Help: "Total evidence links by outcome",
	}, []string{"outcome"})

	gapAnalysesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comply_gap_analyses_total",
		Help: "Total gap analyses run",
	})

	gapAnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "comply_gap_analysis_duration_seconds",
		Help:    "Gap analysis duration",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	derivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comply_derivations_total",
		Help: "Total single-control coverage derivations",
	})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comply_exports_total",
		Help: "Total compliance report exports by format",
	}, []string{"format"})
)
