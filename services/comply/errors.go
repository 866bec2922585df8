// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package comply

import "errors"

// Sentinel errors for the compliance service.
var (
	// ErrSameFramework indicates a gap analysis named the same framework
	// on both sides.
	ErrSameFramework = errors.New("current and target framework must differ")

	// ErrInvalidFormat indicates an unsupported export format.
	ErrInvalidFormat = errors.New("unsupported export format")

	// ErrServiceClosed indicates the service has been shut down.
	ErrServiceClosed = errors.New("service is closed")
)
