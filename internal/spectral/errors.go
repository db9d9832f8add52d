// SPDX-License-Identifier: MIT
package spectral

import (
	"errors"

	"spectrum/internal/log"
)

var logger = log.For("Engine")

var (
	ErrInvalidConfig    = errors.New("invalid engine config")
	ErrUnknownTransform = errors.New("unknown transform")
	ErrAutonomousMode   = errors.New("engine is autonomous; UpdateOutputs is driven by its own goroutine")
	ErrExternalMode     = errors.New("engine is externally driven; Start is not available")
	ErrAlreadyRunning   = errors.New("engine already running")
)
