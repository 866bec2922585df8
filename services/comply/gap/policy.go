// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gap

import (
	"fmt"
	"os"

	"github.com/AleutianAI/AleutianComply/services/comply/derive"
	"gopkg.in/yaml.v3"
)

// EffortLevel is the closed set of gap closure effort estimates.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

// Valid reports whether l is one of the closed effort values.
func (l EffortLevel) Valid() bool {
	switch l {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// UnmarshalYAML enforces the closed effort set.
func (l *EffortLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed := EffortLevel(s)
	if !parsed.Valid() {
		return fmt.Errorf("invalid effort level %q", s)
	}
	*l = parsed
	return nil
}

// EffortPolicy is the gap effort heuristic configuration.
//
// No single heuristic is authoritative, so the thresholds are a policy
// knob loaded from configuration, not a hard-coded law.
type EffortPolicy struct {
	// CategoryCoveredThreshold is the fraction of a category's controls
	// that must already be covered for its remaining gaps to default to
	// low effort. Default: 0.5.
	CategoryCoveredThreshold float64 `yaml:"category_covered_threshold"`

	// CoveredCategoryEffort applies to gaps in categories at or above
	// the threshold. Default: low.
	CoveredCategoryEffort EffortLevel `yaml:"covered_category_effort"`

	// NewCategoryEffort applies to gaps in all-new categories: no
	// control in the category has any derived coverage. Default: high.
	NewCategoryEffort EffortLevel `yaml:"new_category_effort"`

	// DefaultEffort applies everywhere else. Default: medium.
	DefaultEffort EffortLevel `yaml:"default_effort"`

	// KeywordOverlapSoftens downgrades a high estimate to the default
	// when the gap control shares a keyword with an implemented source
	// control. Default: true.
	KeywordOverlapSoftens bool `yaml:"keyword_overlap_softens"`
}

// policyDocument is the optional on-disk configuration bundling the gap
// effort policy with the derivation combine rules.
type policyDocument struct {
	Effort     EffortPolicy  `yaml:"effort"`
	Derivation derive.Policy `yaml:"derivation"`
}

// DefaultEffortPolicy returns the documented heuristic defaults.
func DefaultEffortPolicy() EffortPolicy {
	return EffortPolicy{
		CategoryCoveredThreshold: 0.5,
		CoveredCategoryEffort:    EffortLow,
		NewCategoryEffort:        EffortHigh,
		DefaultEffort:            EffortMedium,
		KeywordOverlapSoftens:    true,
	}
}

// LoadPolicyFile reads effort and derivation policy overrides from a YAML
// file. Missing fields keep their defaults.
func LoadPolicyFile(path string) (EffortPolicy, derive.Policy, error) {
	doc := policyDocument{
		Effort:     DefaultEffortPolicy(),
		Derivation: derive.DefaultPolicy(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return doc.Effort, doc.Derivation, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return DefaultEffortPolicy(), derive.DefaultPolicy(), fmt.Errorf("parse policy file: %w", err)
	}

	if doc.Effort.CategoryCoveredThreshold < 0 || doc.Effort.CategoryCoveredThreshold > 1 {
		return DefaultEffortPolicy(), derive.DefaultPolicy(),
			fmt.Errorf("category_covered_threshold %v outside [0,1]", doc.Effort.CategoryCoveredThreshold)
	}
	return doc.Effort, doc.Derivation, nil
}
