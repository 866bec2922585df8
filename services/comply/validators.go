// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianComply/pkg/validation"
)

func init() {
	// Register the framework_id binding tag on Gin's shared validator so
	// query params carrying framework ids are rejected before they reach
	// catalog lookups or badger keys.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("framework_id", validateFrameworkID)
	}
}

// validateFrameworkID validates that a string field is a well-formed
// framework identifier.
//
// # Inputs
//
//   - fl: Validator field level containing the string to validate
//
// # Outputs
//
//   - bool: true if the field is a valid framework id
func validateFrameworkID(fl validator.FieldLevel) bool {
	return validation.ValidateFrameworkID(fl.Field().String()) == nil
}
