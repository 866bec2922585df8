// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package state

import (
	"math"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
)

// Summary is the per-status breakdown for a (project, framework) scope.
//
// Total is always the full catalog control count for the filtered scope,
// including controls with no record (implicitly not_addressed) — never
// just the count of recorded controls. The five counts sum to Total.
type Summary struct {
	FrameworkID string `json:"framework_id"`
	Project     string `json:"project"`

	Total         int `json:"total_controls"`
	Implemented   int `json:"implemented"`
	Partial       int `json:"partial"`
	Planned       int `json:"planned"`
	NotApplicable int `json:"not_applicable"`
	NotAddressed  int `json:"not_addressed"`

	// CompletionPercentage is round(100 × implemented / total).
	CompletionPercentage int `json:"completion_percentage"`
}

// Summarize computes per-status counts over the full catalog scope.
//
// # Inputs
//
//   - project: Project whose recorded state is counted.
//   - fw: Catalog framework supplying the control universe.
//   - filter: Optional function/category narrowing; the denominator is
//     the catalog count within this scope.
func (s *Store) Summarize(project string, fw *catalog.Framework, filter catalog.Filter) Summary {
	controls := fw.FilterControls(filter)
	records := s.Records(project, fw.ID)

	sum := Summary{
		FrameworkID: fw.ID,
		Project:     project,
		Total:       len(controls),
	}

	for _, ctrl := range controls {
		status := StatusNotAddressed
		if rec, ok := records[ctrl.ID]; ok {
			status = rec.Status
		}
		switch status {
		case StatusImplemented:
			sum.Implemented++
		case StatusPartial:
			sum.Partial++
		case StatusPlanned:
			sum.Planned++
		case StatusNotApplicable:
			sum.NotApplicable++
		case StatusNotAddressed:
			sum.NotAddressed++
		}
	}

	if sum.Total > 0 {
		sum.CompletionPercentage = int(math.Round(100 * float64(sum.Implemented) / float64(sum.Total)))
	}
	return sum
}
