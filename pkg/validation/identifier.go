// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that are
// used in database keys, file paths, or URLs. Using these validators
// prevents key-collision and path traversal issues from hostile input.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// projectPattern matches valid project names.
// Allows: letters, digits, dots, hyphens, underscores.
// Max length: 64 characters.
var projectPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// frameworkPattern matches framework identifiers like "nist_csf" or
// "soc2". Lowercase by convention, but case is accepted and preserved.
var frameworkPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateProjectName validates a project name before it is embedded in a
// storage key or file path.
//
// Valid names:
//   - 1-64 characters
//   - Letters and digits, plus dots, hyphens, and underscores
//   - No path separators or whitespace
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateProjectName(project); err != nil {
//	    return fmt.Errorf("invalid project: %w", err)
//	}
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("project name %q must not contain path separators", name)
	}
	if !projectPattern.MatchString(name) {
		return fmt.Errorf("invalid project name %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", name)
	}
	return nil
}

// ValidateFrameworkID validates a framework identifier from a URL or flag.
func ValidateFrameworkID(id string) error {
	if id == "" {
		return fmt.Errorf("framework id cannot be empty")
	}
	if !frameworkPattern.MatchString(id) {
		return fmt.Errorf("invalid framework id %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", id)
	}
	return nil
}

// ValidateProjectNames validates multiple project names.
// Returns an error listing all invalid names if any fail validation.
func ValidateProjectNames(names []string) error {
	var invalid []string
	for _, name := range names {
		if err := ValidateProjectName(name); err != nil {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid project names: %s", strings.Join(invalid, ", "))
	}
	return nil
}
