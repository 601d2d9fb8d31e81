package main

import (
	"github.com/pthm-cable/flock/config"
)

// ParamSpec defines a single tunable steering parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	apply   func(cfg *config.Config, v float64)
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "separation_weight", Path: "flock.separation_weight", Min: 0, Max: 5, Default: 1,
				apply: func(c *config.Config, v float64) { c.Flock.SeparationWeight = v }},
			{Name: "alignment_weight", Path: "flock.alignment_weight", Min: 0, Max: 5, Default: 1,
				apply: func(c *config.Config, v float64) { c.Flock.AlignmentWeight = v }},
			{Name: "target_weight", Path: "flock.target_weight", Min: 0, Max: 5, Default: 2,
				apply: func(c *config.Config, v float64) { c.Flock.TargetWeight = v }},
			{Name: "obstacle_aversion_distance", Path: "flock.obstacle_aversion_distance", Min: 5, Max: 80, Default: 30,
				apply: func(c *config.Config, v float64) { c.Flock.ObstacleAversionDistance = v }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// FromConfig reads the current parameter values from a config.
func (pv *ParamVector) FromConfig(cfg *config.Config) []float64 {
	p := cfg.Params()
	return []float64{p.SeparationWeight, p.AlignmentWeight, p.TargetWeight, p.ObstacleAversionDistance}
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies clamped parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].apply(cfg, v)
	}
}
