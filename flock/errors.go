package flock

import (
	"errors"
	"fmt"
)

// ErrPoolExhausted is returned by Acquire when no idle bucket remains.
// The cell that needed the bucket is skipped for the tick.
var ErrPoolExhausted = errors.New("flock: bucket pool exhausted")

// ErrConfiguration is the sentinel every ConfigurationError unwraps to.
var ErrConfiguration = errors.New("flock: invalid configuration")

// ErrNoPointsOfInterest is returned by Nearest for an empty point set.
var ErrNoPointsOfInterest = &ConfigurationError{Field: "points", Reason: "no points of interest"}

// ConfigurationError reports a setup problem that must stop the run
// before any tick executes.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("flock: invalid configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
