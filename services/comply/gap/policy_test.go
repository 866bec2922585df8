// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComply/services/comply/derive"
	"github.com/AleutianAI/AleutianComply/services/comply/state"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultEffortPolicy(t *testing.T) {
	p := DefaultEffortPolicy()

	assert.Equal(t, 0.5, p.CategoryCoveredThreshold)
	assert.Equal(t, EffortLow, p.CoveredCategoryEffort)
	assert.Equal(t, EffortHigh, p.NewCategoryEffort)
	assert.Equal(t, EffortMedium, p.DefaultEffort)
	assert.True(t, p.KeywordOverlapSoftens)
}

func TestLoadPolicyFile_Overrides(t *testing.T) {
	path := writePolicy(t, `
effort:
  category_covered_threshold: 0.75
  new_category_effort: medium
  keyword_overlap_softens: false
derivation:
  broader:
    cap: partial
    confidence: weak
`)

	effort, derivation, err := LoadPolicyFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, effort.CategoryCoveredThreshold)
	assert.Equal(t, EffortMedium, effort.NewCategoryEffort)
	assert.False(t, effort.KeywordOverlapSoftens)
	// Untouched fields keep their defaults.
	assert.Equal(t, EffortLow, effort.CoveredCategoryEffort)
	assert.Equal(t, EffortMedium, effort.DefaultEffort)

	assert.Equal(t, state.StatusPartial, derivation.Broader.Cap)
	assert.Equal(t, derive.ConfidenceWeak, derivation.Broader.Confidence)
	assert.Equal(t, state.StatusImplemented, derivation.Equivalent.Cap)
}

func TestLoadPolicyFile_MissingFile(t *testing.T) {
	effort, derivation, err := LoadPolicyFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read policy file")

	// Errors still return usable defaults.
	assert.Equal(t, DefaultEffortPolicy(), effort)
	assert.Equal(t, derive.DefaultPolicy(), derivation)
}

func TestLoadPolicyFile_InvalidEnum(t *testing.T) {
	path := writePolicy(t, "effort:\n  new_category_effort: extreme\n")

	_, _, err := LoadPolicyFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid effort level "extreme"`)
}

func TestLoadPolicyFile_InvalidStatusCap(t *testing.T) {
	path := writePolicy(t, "derivation:\n  related:\n    cap: complete\n")

	_, _, err := LoadPolicyFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown status "complete"`)
}

func TestLoadPolicyFile_ThresholdRange(t *testing.T) {
	for _, doc := range []string{
		"effort:\n  category_covered_threshold: 1.5\n",
		"effort:\n  category_covered_threshold: -0.1\n",
	} {
		path := writePolicy(t, doc)
		_, _, err := LoadPolicyFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside [0,1]")
	}
}
